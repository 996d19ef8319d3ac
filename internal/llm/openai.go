package llm

import (
	"context"
	"errors"
	"io"
	"os"
	"syscall"

	openai "github.com/sashabaranov/go-openai"

	"docqa/internal/domain"
)

// OpenAIClient implements the Completer contract using the chat
// completions API.
type OpenAIClient struct {
	client   *openai.Client
	model    string
	endpoint string
}

// NewOpenAIClient reads the API key from the given environment variable.
func NewOpenAIClient(apiKeyEnv, baseURL, model string) (*OpenAIClient, error) {
	key := os.Getenv(apiKeyEnv)
	if key == "" {
		return nil, errors.New("missing API key in env " + apiKeyEnv)
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	cfg := openai.DefaultConfig(key)
	endpoint := cfg.BaseURL
	if baseURL != "" {
		cfg.BaseURL = baseURL
		endpoint = baseURL
	}
	return &OpenAIClient{
		client:   openai.NewClientWithConfig(cfg),
		model:    model,
		endpoint: endpoint,
	}, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, prompt string, opts domain.CompletionOptions) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, c.request(prompt, opts))
	if err != nil {
		return "", c.wrap(err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) StreamComplete(ctx context.Context, prompt string, opts domain.CompletionOptions, onChunk func(string) error) error {
	stream, err := c.client.CreateChatCompletionStream(ctx, c.request(prompt, opts))
	if err != nil {
		return c.wrap(err)
	}
	defer stream.Close()
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return c.wrap(err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if delta := resp.Choices[0].Delta.Content; delta != "" {
			if err := onChunk(delta); err != nil {
				return err
			}
		}
	}
}

func (c *OpenAIClient) request(prompt string, opts domain.CompletionOptions) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
}

func (c *OpenAIClient) wrap(err error) error {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return &domain.UnreachableError{Endpoint: c.endpoint, Err: err}
	}
	return err
}
