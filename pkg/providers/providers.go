package providers

import (
	"context"
	"fmt"
	"strings"
)

// LLMClient is the single completion call the classifier needs.
type LLMClient interface {
	Complete(ctx context.Context, model string, prompt string) (string, error)
}

const (
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
)

type ProviderParams struct {
	BaseURL string
	APIKey  string
}

type ProviderOption func(*ProviderParams)

func WithBaseURL(baseURL string) ProviderOption {
	return func(p *ProviderParams) {
		p.BaseURL = baseURL
	}
}

func WithAPIKey(apiKey string) ProviderOption {
	return func(p *ProviderParams) {
		p.APIKey = apiKey
	}
}

func applyOptions(opts []ProviderOption) ProviderParams {
	params := ProviderParams{}
	for _, opt := range opts {
		opt(&params)
	}
	return params
}

// New builds the client for the named provider.
func New(ctx context.Context, name string, opts ...ProviderOption) (LLMClient, error) {
	switch strings.ToLower(name) {
	case ProviderOpenAI:
		return OpenAi(ctx, opts...), nil
	case ProviderGemini:
		client, err := Gemini(ctx, opts...)
		if err != nil {
			return nil, err
		}
		return client, nil
	case ProviderOpenRouter:
		client, err := OpenRouter(opts...)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", name)
	}
}

// DefaultModel is the model used for a provider when none is configured.
func DefaultModel(name string) string {
	switch strings.ToLower(name) {
	case ProviderGemini:
		return "gemini-2.0-flash"
	case ProviderOpenRouter:
		return "openai/gpt-4o-mini"
	default:
		return "gpt-4o-mini"
	}
}
