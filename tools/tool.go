package tools

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// ToolDefinition describes a local function the hosted agent may invoke.
// Function receives the raw JSON arguments chosen by the model and returns
// the string handed back to the model.
type ToolDefinition struct {
	Name        string
	Description string
	Schema      *jsonschema.Schema
	Function    func(input json.RawMessage) (string, error)
}

// GenerateSchema reflects T into an inline JSON Schema. Fields without
// omitempty are required.
func GenerateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// Parameters returns the schema as a plain JSON object, the shape both
// hosting SDKs and the argument validator accept. Meta keywords are dropped.
func (d ToolDefinition) Parameters() map[string]any {
	out := map[string]any{"type": "object", "properties": map[string]any{}}
	if d.Schema == nil {
		return out
	}
	b, err := json.Marshal(d.Schema)
	if err != nil {
		return out
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	delete(out, "$schema")
	delete(out, "$id")
	return out
}
