package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// SafetyError reports a reply withheld by the provider's safety filter.
// Its message always contains "SAFETY".
type SafetyError struct {
	Reason string
}

func (e *SafetyError) Error() string {
	return "response blocked by SAFETY filter: " + e.Reason
}

// Gemini generates replies through the Gemini API with a JSON response
// schema enforced by the provider.
type Gemini struct {
	apiKey string
	model  string
	opts   []option.ClientOption
}

// NewGemini creates a Gemini model.
func NewGemini(apiKey, model string, opts ...option.ClientOption) *Gemini {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{apiKey: apiKey, model: model, opts: opts}
}

func (g *Gemini) Name() string { return ProviderGemini + "/" + g.model }

func (g *Gemini) Configured() bool { return g.apiKey != "" }

func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	if !g.Configured() {
		return "", ErrNotConfigured
	}

	opts := append([]option.ClientOption{option.WithAPIKey(g.apiKey)}, g.opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("create gemini client: %w", err)
	}
	defer func() { _ = client.Close() }()

	m := client.GenerativeModel(g.model)
	m.SetTemperature(req.Temperature)
	if req.Schema != nil {
		m.ResponseMIMEType = "application/json"
		m.ResponseSchema = toGenaiSchema(req.Schema)
	}

	resp, err := m.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) {
			return "", &SafetyError{Reason: blocked.Error()}
		}
		return "", fmt.Errorf("gemini API call: %w", err)
	}
	return replyText(resp)
}

func replyText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in gemini response")
	}
	cand := resp.Candidates[0]
	if cand.FinishReason == genai.FinishReasonSafety {
		return "", &SafetyError{Reason: cand.FinishReason.String()}
	}
	if cand.Content == nil {
		return "", fmt.Errorf("empty gemini candidate")
	}

	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no text content in gemini response")
	}
	return stripFences(sb.String()), nil
}

func toGenaiSchema(s *Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        convertType(s.Type),
		Description: s.Description,
		Items:       toGenaiSchema(s.Items),
		Required:    s.Required,
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for k, v := range s.Properties {
			out.Properties[k] = toGenaiSchema(v)
		}
	}
	return out
}

func convertType(t string) genai.Type {
	switch t {
	case TypeString:
		return genai.TypeString
	case TypeNumber:
		return genai.TypeNumber
	case TypeInteger:
		return genai.TypeInteger
	case TypeBoolean:
		return genai.TypeBoolean
	case TypeArray:
		return genai.TypeArray
	case TypeObject:
		return genai.TypeObject
	default:
		return genai.TypeUnspecified
	}
}
