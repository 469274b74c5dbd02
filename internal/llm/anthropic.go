package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = "claude-haiku-4-5-20251001"

// replyTool is the single tool the model is forced to call; its input is
// the structured reply.
const replyTool = "submit_result"

// Anthropic generates replies through the Messages API, using a forced
// tool call to get schema-constrained output.
type Anthropic struct {
	apiKey string
	model  anthropic.Model
	opts   []option.RequestOption
}

// NewAnthropic creates an Anthropic model. Extra request options (base URL,
// HTTP client) are appended after the API key.
func NewAnthropic(apiKey, model string, opts ...option.RequestOption) *Anthropic {
	if model == "" {
		model = DefaultAnthropicModel
	}
	return &Anthropic{apiKey: apiKey, model: anthropic.Model(model), opts: opts}
}

func (a *Anthropic) Name() string { return ProviderAnthropic + "/" + string(a.model) }

func (a *Anthropic) Configured() bool { return a.apiKey != "" }

func (a *Anthropic) Generate(ctx context.Context, req Request) (string, error) {
	if !a.Configured() {
		return "", ErrNotConfigured
	}

	opts := append([]option.RequestOption{
		option.WithAPIKey(a.apiKey),
		option.WithMaxRetries(0),
	}, a.opts...)
	client := anthropic.NewClient(opts...)

	params := anthropic.MessageNewParams{
		Model:       a.model,
		MaxTokens:   8192,
		Temperature: anthropic.Float(float64(req.Temperature)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}

	if req.Schema != nil {
		params.Tools = []anthropic.ToolUnionParam{{
			OfTool: &anthropic.ToolParam{
				Name:        replyTool,
				Description: anthropic.String("Submit the structured result."),
				InputSchema: toolInputSchema(req.Schema),
			},
		}}
		params.ToolChoice = anthropic.ToolChoiceParamOfTool(replyTool)
	}

	msg, err := client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic API call: %w", err)
	}

	for _, block := range msg.Content {
		switch block.Type {
		case "tool_use":
			if block.Name == replyTool {
				return string(block.Input), nil
			}
		case "text":
			if req.Schema == nil && block.Text != "" {
				return stripFences(block.Text), nil
			}
		}
	}
	return "", fmt.Errorf("no content in anthropic response")
}

func toolInputSchema(s *Schema) anthropic.ToolInputSchemaParam {
	doc := s.JSONSchema()
	return anthropic.ToolInputSchemaParam{
		Properties: doc["properties"],
		Required:   s.Required,
	}
}
