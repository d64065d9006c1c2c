package providers

import (
	"context"
	"errors"
	"fmt"
	"os"

	goopenai "github.com/sashabaranov/go-openai"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterClient talks to any OpenAI-compatible chat completions endpoint,
// OpenRouter by default.
type OpenRouterClient struct {
	client *goopenai.Client
}

func OpenRouter(opts ...ProviderOption) (*OpenRouterClient, error) {
	params := applyOptions(opts)
	if params.APIKey == "" {
		params.APIKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if params.APIKey == "" {
		return nil, errors.New("OPENROUTER_API_KEY is not set")
	}
	if params.BaseURL == "" {
		params.BaseURL = defaultOpenRouterBaseURL
	}

	config := goopenai.DefaultConfig(params.APIKey)
	config.BaseURL = params.BaseURL
	return &OpenRouterClient{
		client: goopenai.NewClientWithConfig(config),
	}, nil
}

func (c *OpenRouterClient) Complete(ctx context.Context, model string, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openrouter completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openrouter returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
