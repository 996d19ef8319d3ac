package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"syscall"
	"time"

	"docqa/internal/domain"
)

// OllamaClient implements the Completer contract against an Ollama
// server's generate API.
type OllamaClient struct {
	baseURL string
	model   string
	client  *http.Client
}

// OllamaConfig configures the Ollama completion client.
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
		cfg.Model = "llama3.2"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 120 * time.Second
	}
	return &OllamaClient{
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		client:  &http.Client{Timeout: t},
	}
}

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float32 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Complete runs a single non-streaming generation.
func (c *OllamaClient) Complete(ctx context.Context, prompt string, opts domain.CompletionOptions) (string, error) {
	resp, err := c.generate(ctx, prompt, opts, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	var out ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("cannot decode generation response: %w", err)
	}
	return out.Response, nil
}

// StreamComplete forwards each generated fragment to onChunk as it
// arrives. A non-nil error from onChunk aborts the stream.
func (c *OllamaClient) StreamComplete(ctx context.Context, prompt string, opts domain.CompletionOptions, onChunk func(string) error) error {
	resp, err := c.generate(ctx, prompt, opts, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var part ollamaGenerateResponse
		if err := json.Unmarshal(line, &part); err != nil {
			return fmt.Errorf("cannot decode stream fragment: %w", err)
		}
		if part.Response != "" {
			if err := onChunk(part.Response); err != nil {
				return err
			}
		}
		if part.Done {
			return nil
		}
	}
	return scanner.Err()
}

func (c *OllamaClient) generate(ctx context.Context, prompt string, opts domain.CompletionOptions, stream bool) (*http.Response, error) {
	body := ollamaGenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: stream,
		Options: ollamaOptions{
			Temperature: opts.Temperature,
			NumPredict:  opts.MaxTokens,
		},
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/api/generate", c.baseURL)
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
		return nil, err
	}
	if resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("generation request failed: %s", resp.Status)
	}
	return resp, nil
}
