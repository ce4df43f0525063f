package provider

import (
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// NewAnthropicClient returns a Messages API client. Empty baseURL or apiKey
// fall back to the SDK's environment defaults.
func NewAnthropicClient(baseURL, apiKey string) *anthropic.Client {
	var opts []option.RequestOption
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(withSlash(baseURL)))
	}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	c := anthropic.NewClient(opts...)
	return &c
}
