package cmd

import (
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/joescharf/bugless/internal/llm"
	"github.com/joescharf/bugless/internal/review"
)

// geminiAPIKey reads the Gemini key from config, then from the
// GEMINI_API_KEY and API_KEY environment variables.
func geminiAPIKey() string {
	if k := viper.GetString("gemini.api_key"); k != "" {
		return k
	}
	if k := os.Getenv("GEMINI_API_KEY"); k != "" {
		return k
	}
	return os.Getenv("API_KEY")
}

func anthropicAPIKey() string {
	if k := viper.GetString("anthropic.api_key"); k != "" {
		return k
	}
	return os.Getenv("ANTHROPIC_API_KEY")
}

// newModel builds the configured model. A missing key still yields a
// model; it reports itself unconfigured.
func newModel() (llm.Model, error) {
	provider := strings.ToLower(viper.GetString("llm.provider"))
	model := viper.GetString("llm.model")

	switch provider {
	case llm.ProviderAnthropic:
		if model == "" {
			model = viper.GetString("anthropic.model")
		}
		return llm.New(provider, anthropicAPIKey(), model)
	default:
		return llm.New(provider, geminiAPIKey(), model)
	}
}

// newRequester creates the analysis requester for the configured model.
func newRequester(obs review.Observer) (*review.Requester, error) {
	m, err := newModel()
	if err != nil {
		return nil, err
	}
	return review.NewRequester(m, nil, obs), nil
}
