package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/petasbytes/expense-agent/internal/safety"
	"github.com/petasbytes/expense-agent/internal/telemetry"
	"github.com/petasbytes/expense-agent/tools"
)

// Result is the outcome of one tool call. Output is the handler's string on
// success, the error text otherwise.
type Result struct {
	CallID  string
	Name    string
	Output  string
	IsError bool
}

// Dispatcher routes tool calls to the registered definitions.
type Dispatcher struct {
	tools   []tools.ToolDefinition
	schemas map[string]*gojsonschema.Schema
	rec     *telemetry.Recorder
}

// NewDispatcher compiles each definition's schema once. rec may be nil.
func NewDispatcher(defs []tools.ToolDefinition, rec *telemetry.Recorder) (*Dispatcher, error) {
	d := &Dispatcher{
		tools:   defs,
		schemas: make(map[string]*gojsonschema.Schema, len(defs)),
		rec:     rec,
	}
	for _, def := range defs {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(def.Parameters()))
		if err != nil {
			return nil, fmt.Errorf("compile schema for %s: %w", def.Name, err)
		}
		d.schemas[def.Name] = schema
	}
	return d, nil
}

// Definitions returns the registered tools in registration order.
func (d *Dispatcher) Definitions() []tools.ToolDefinition {
	return d.tools
}

func (d *Dispatcher) lookup(name string) *tools.ToolDefinition {
	for i := range d.tools {
		if d.tools[i].Name == name {
			return &d.tools[i]
		}
	}
	return nil
}

// Exec runs the named tool with raw JSON input and records a tool_exec event
// under the turn ID carried by ctx. Only sizes are recorded, never payloads.
func (d *Dispatcher) Exec(ctx context.Context, callID, name string, input json.RawMessage) Result {
	turnID, _ := telemetry.TurnIDFromContext(ctx)
	start := time.Now()

	emit := func(outputSize int, errStr string) {
		fields := map[string]any{
			"tool_name":   name,
			"duration_ms": time.Since(start).Milliseconds(),
			"input_size":  len(input),
			"output_size": outputSize,
			"turn_id":     turnID,
			"error":       nil,
		}
		if errStr != "" {
			fields["error"] = errStr
		}
		d.rec.Emit("tool_exec", fields)
	}
	fail := func(errStr string, err error) Result {
		emit(0, errStr)
		return Result{CallID: callID, Name: name, Output: err.Error(), IsError: true}
	}

	def := d.lookup(name)
	if def == nil {
		return fail("tool not found", safety.ToolError{Code: safety.CodeToolNotFound, Message: "no tool named " + name})
	}

	if len(strings.TrimSpace(string(input))) == 0 {
		input = json.RawMessage("{}")
	}
	if err := d.validate(name, input); err != nil {
		return fail("invalid input", err)
	}

	out, err := def.Function(input)
	if err != nil {
		// The model sees the detailed error; telemetry only the category.
		return fail("tool error", err)
	}
	emit(len(out), "")
	return Result{CallID: callID, Name: name, Output: out}
}

func (d *Dispatcher) validate(name string, input json.RawMessage) error {
	schema := d.schemas[name]
	if schema == nil {
		return nil
	}
	res, err := schema.Validate(gojsonschema.NewBytesLoader(input))
	if err != nil {
		return safety.ToolError{Code: safety.CodeInvalidInput, Message: err.Error()}
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return safety.ToolError{Code: safety.CodeInvalidInput, Message: strings.Join(msgs, "; ")}
}
