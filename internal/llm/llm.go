// Package llm is the boundary to the hosted generative models. Each backend
// takes a prompt plus a structured-output schema and returns the raw reply
// text, which callers parse themselves.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Supported providers.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// ErrNotConfigured is returned by Generate when no API key was supplied.
var ErrNotConfigured = errors.New("API key not configured")

// Schema types, named as in JSON Schema.
const (
	TypeObject  = "object"
	TypeArray   = "array"
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
)

// Schema is a provider-neutral subset of JSON Schema used to constrain
// model output.
type Schema struct {
	Type        string
	Description string
	Properties  map[string]*Schema
	Items       *Schema
	Required    []string
}

// JSONSchema renders s as a JSON Schema document.
func (s *Schema) JSONSchema() map[string]any {
	if s == nil {
		return nil
	}
	out := map[string]any{"type": s.Type}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if s.Items != nil {
		out["items"] = s.Items.JSONSchema()
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for k, v := range s.Properties {
			props[k] = v.JSONSchema()
		}
		out["properties"] = props
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	return out
}

// Request is a single structured generation call.
type Request struct {
	Prompt      string
	Schema      *Schema
	Temperature float32
}

// Model generates a structured reply for a prompt.
type Model interface {
	// Name returns the provider and model, e.g. "gemini/gemini-2.5-flash".
	Name() string
	// Configured reports whether credentials are present. Callers check it
	// before Generate so a missing key never reaches the network.
	Configured() bool
	Generate(ctx context.Context, req Request) (string, error)
}

// New returns the model for provider. An empty model name selects the
// provider default.
func New(provider, apiKey, model string) (Model, error) {
	switch strings.ToLower(provider) {
	case "", ProviderGemini:
		return NewGemini(apiKey, model), nil
	case ProviderAnthropic:
		return NewAnthropic(apiKey, model), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", provider)
	}
}

// stripFences removes a surrounding markdown code fence, if present.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.SplitN(text, "\n", 2)
		if len(lines) > 1 {
			text = lines[1]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	return text
}
