package llm

import (
	"context"
	"errors"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"docqa/internal/domain"
)

// AnthropicClient implements the Completer contract using the Messages
// API.
type AnthropicClient struct {
	client *anthropic.Client
	model  anthropic.Model
}

// NewAnthropicClient reads the API key from the given environment
// variable. An empty model selects the latest Sonnet.
func NewAnthropicClient(apiKeyEnv, model string) (*AnthropicClient, error) {
	key := os.Getenv(apiKeyEnv)
	if key == "" {
		return nil, errors.New("missing API key in env " + apiKeyEnv)
	}
	m := anthropic.Model(model)
	if model == "" {
		m = anthropic.ModelClaude3_7SonnetLatest
	}
	client := anthropic.NewClient(option.WithAPIKey(key))
	return &AnthropicClient{client: &client, model: m}, nil
}

func (c *AnthropicClient) Complete(ctx context.Context, prompt string, opts domain.CompletionOptions) (string, error) {
	message, err := c.client.Messages.New(ctx, c.params(prompt, opts))
	if err != nil {
		return "", err
	}
	out := ""
	for _, content := range message.Content {
		if content.Type == "text" {
			out += content.Text
		}
	}
	return out, nil
}

func (c *AnthropicClient) StreamComplete(ctx context.Context, prompt string, opts domain.CompletionOptions, onChunk func(string) error) error {
	stream := c.client.Messages.NewStreaming(ctx, c.params(prompt, opts))
	for stream.Next() {
		event := stream.Current()
		switch eventVariant := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch deltaVariant := eventVariant.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if deltaVariant.Text != "" {
					if err := onChunk(deltaVariant.Text); err != nil {
						return err
					}
				}
			}
		}
	}
	return stream.Err()
}

func (c *AnthropicClient) params(prompt string, opts domain.CompletionOptions) anthropic.MessageNewParams {
	maxTokens := int64(opts.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 1024
	}
	return anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
}
