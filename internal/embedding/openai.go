package embedding

import (
	"context"
	"errors"
	"os"
	"syscall"

	openai "github.com/sashabaranov/go-openai"

	"docqa/internal/domain"
)

// OpenAIClient implements the Embedder contract against the OpenAI API.
type OpenAIClient struct {
	client   *openai.Client
	model    openai.EmbeddingModel
	endpoint string
}

// NewOpenAIClient reads the API key from the given environment variable.
// baseURL may point at any OpenAI-compatible server.
func NewOpenAIClient(apiKeyEnv, baseURL, model string) (*OpenAIClient, error) {
	key := os.Getenv(apiKeyEnv)
	if key == "" {
		return nil, errors.New("missing API key in env " + apiKeyEnv)
	}
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	cfg := openai.DefaultConfig(key)
	endpoint := cfg.BaseURL
	if baseURL != "" {
		cfg.BaseURL = baseURL
		endpoint = baseURL
	}
	return &OpenAIClient{
		client:   openai.NewClientWithConfig(cfg),
		model:    openai.EmbeddingModel(model),
		endpoint: endpoint,
	}, nil
}

func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text}, nil)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (c *OpenAIClient) EmbedBatch(ctx context.Context, texts []string, onProgress func(done, total int)) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: c.model,
	})
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return nil, &domain.UnreachableError{Endpoint: c.endpoint, Err: err}
		}
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, errors.New("embedding count does not match input count")
	}
	out := make([][]float32, len(texts))
	for i, d := range resp.Data {
		out[i] = d.Embedding
	}
	if onProgress != nil {
		onProgress(len(texts), len(texts))
	}
	return out, nil
}
