package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"syscall"
	"time"

	"docqa/internal/domain"
)

// OllamaClient talks to an Ollama (or OpenAI-compatible) embeddings
// endpoint over plain HTTP.
type OllamaClient struct {
	baseURL    string
	model      string
	client     *http.Client
	maxRetries int
}

// OllamaConfig configures the Ollama embeddings client.
type OllamaConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

func NewOllamaClient(cfg OllamaConfig) *OllamaClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "nomic-embed-text"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	return &OllamaClient{
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		client:     &http.Client{Timeout: t},
		maxRetries: 3,
	}
}

// Embed returns an embedding vector for the given text.
func (c *OllamaClient) Embed(ctx context.Context, text string) ([]float32, error) {
	type reqBody struct {
		Model  string `json:"model"`
		Prompt string `json:"prompt,omitempty"`
		Input  string `json:"input,omitempty"`
	}
	url := fmt.Sprintf("%s/api/embeddings", c.baseURL)
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay(attempt - 1)):
			}
		}
		data, _ := json.Marshal(reqBody{Model: c.model, Prompt: text, Input: text})
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			if errors.Is(err, syscall.ECONNREFUSED) {
				return nil, &domain.UnreachableError{Endpoint: c.baseURL, Err: err}
			}
			lastErr = err
			continue
		}

		payload, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("embeddings request failed: %s", resp.Status)
			continue
		}
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("embeddings request failed: %s", resp.Status)
		}

		if v := decodeEmbedding(payload); v != nil {
			return v, nil
		}
		lastErr = errors.New("no embedding in response")
	}
	return nil, lastErr
}

// EmbedBatch embeds texts sequentially, preserving order.
func (c *OllamaClient) EmbedBatch(ctx context.Context, texts []string, onProgress func(done, total int)) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for i, t := range texts {
		v, err := c.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		if onProgress != nil {
			onProgress(i+1, len(texts))
		}
	}
	return out, nil
}

// decodeEmbedding accepts both the Ollama-native and OpenAI-compatible
// response shapes.
func decodeEmbedding(payload []byte) []float32 {
	var native struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(payload, &native); err == nil && len(native.Embedding) > 0 {
		return native.Embedding
	}
	var compat struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &compat); err == nil && len(compat.Data) > 0 && len(compat.Data[0].Embedding) > 0 {
		return compat.Data[0].Embedding
	}
	return nil
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
