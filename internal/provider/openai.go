// Package provider constructs the SDK clients the hosting backends use.
// Clients are plain values handed to constructors; nothing is global.
package provider

import (
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultModel is used when MODEL_DEPLOYMENT_NAME is unset.
const DefaultModel = "gpt-4.1"

// NewAssistantsClient returns an Assistants API client rooted at endpoint.
func NewAssistantsClient(endpoint, apiKey string) *openai.Client {
	var opts []option.RequestOption
	if endpoint != "" {
		opts = append(opts, option.WithBaseURL(withSlash(endpoint)))
	}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	c := openai.NewClient(opts...)
	return &c
}

// withSlash makes relative API paths resolve under the endpoint's path.
func withSlash(u string) string {
	if strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}
