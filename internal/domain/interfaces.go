package domain

import "context"

// Yield is invoked between units of background work. It blocks while a
// higher-priority task has requested a pause and returns a non-nil error
// when the work should stop (user stop request or context cancellation).
type Yield func(ctx context.Context) error

// Embedder converts text into a fixed-length vector. All vectors from
// one instance share dimensionality.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch embeds texts in order. onProgress, if non-nil, is called
	// after each item with (done, total).
	EmbedBatch(ctx context.Context, texts []string, onProgress func(done, total int)) ([][]float32, error)
}

// CompletionOptions tune a single LLM call.
type CompletionOptions struct {
	Temperature float32
	MaxTokens   int
}

// Completer produces text from a prompt, optionally streaming fragments
// through onChunk. A non-nil error returned by onChunk aborts the stream.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error)
	StreamComplete(ctx context.Context, prompt string, opts CompletionOptions, onChunk func(fragment string) error) error
}

// Parser extracts plain text from a file. An empty result is valid for
// genuinely empty files.
type Parser interface {
	Parse(path string) (string, error)
}
