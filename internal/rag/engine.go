package rag

import (
	"context"
	"log"
	"strings"

	"github.com/google/uuid"

	"docqa/internal/chat"
	"docqa/internal/domain"
)

// Store is the retrieval surface the engine needs from the vector store,
// plus the admin operations the command registry exposes.
type Store interface {
	Search(query []float32, k int) ([]domain.SearchResult, error)
	SearchByKeyword(keywords []string, k int) []domain.SearchResult
	Clear()
	Count() int
}

// Indexer lets the engine pause background ingestion around a query and
// drive it from chat commands.
type Indexer interface {
	Pause()
	Resume()
	Stop()
	Status() domain.IndexingStatus
	IndexFolders(ctx context.Context, folders []string) error
}

// Summarizer produces an extractive summary of a document's chunks.
type Summarizer interface {
	SummarizeChunks(contents []string, maxSentences int) string
}

// EventType labels one streaming event.
type EventType string

const (
	EventChunk   EventType = "chunk"
	EventSources EventType = "sources"
	EventError   EventType = "error"
	EventDone    EventType = "done"
)

// StreamEvent is one element of a streaming answer: sources arrive once
// before generation, chunks carry text fragments, and the stream ends
// with exactly one done or error event.
type StreamEvent struct {
	Type    EventType
	Text    string
	Sources []domain.Source
	Err     error
}

// Engine orchestrates a query: classify, retrieve, fuse, prompt,
// generate. Background indexing is paused for the duration of each
// query so chat latency never waits behind a bulk run.
type Engine struct {
	store      Store
	embedder   domain.Embedder
	llm        domain.Completer
	indexer    Indexer
	history    *chat.History
	summarizer Summarizer
	folders    []string
	opts       domain.CompletionOptions

	conversationID string
	commands       map[string]command
}

// Options carries the optional engine collaborators.
type Options struct {
	Indexer    Indexer
	History    *chat.History
	Summarizer Summarizer
	Folders    []string
	Completion domain.CompletionOptions
}

func NewEngine(store Store, embedder domain.Embedder, llm domain.Completer, opts Options) *Engine {
	e := &Engine{
		store:          store,
		embedder:       embedder,
		llm:            llm,
		indexer:        opts.Indexer,
		history:        opts.History,
		summarizer:     opts.Summarizer,
		folders:        opts.Folders,
		opts:           opts.Completion,
		conversationID: uuid.New().String(),
	}
	e.commands = e.commandRegistry()
	return e
}

// Query answers a question in one shot. Empty retrieval degrades to a
// general-knowledge answer rather than failing.
func (e *Engine) Query(ctx context.Context, question string) (string, []domain.Source, error) {
	question = strings.TrimSpace(question)
	if e.indexer != nil {
		e.indexer.Pause()
		defer e.indexer.Resume()
	}

	kind := classify(question)
	var results []domain.SearchResult
	var sources []domain.Source
	if kind == kindRetrieval {
		var err error
		results, sources, err = e.retrieve(ctx, question)
		if err != nil {
			return "", nil, err
		}
	}

	answer, err := e.llm.Complete(ctx, buildPrompt(kind, results, question), e.opts)
	if err != nil {
		return "", nil, err
	}
	e.record("user", question, nil)
	e.record("assistant", answer, sources)
	return answer, sources, nil
}

// QueryStream answers a question as a finite event sequence. The channel
// is closed after a terminal done or error event; each call re-executes
// retrieval and generation.
func (e *Engine) QueryStream(ctx context.Context, question string) <-chan StreamEvent {
	out := make(chan StreamEvent, 8)
	go func() {
		defer close(out)
		q := strings.TrimSpace(question)
		e.record("user", q, nil)

		if strings.HasPrefix(q, commandSigil) {
			e.dispatchCommand(ctx, q, out)
			return
		}
		if e.indexer != nil {
			e.indexer.Pause()
			defer e.indexer.Resume()
		}

		kind := classify(q)
		var results []domain.SearchResult
		var sources []domain.Source
		if kind == kindRetrieval {
			var err error
			results, sources, err = e.retrieve(ctx, q)
			if err != nil {
				e.fail(out, err)
				return
			}
			if len(sources) > 0 {
				out <- StreamEvent{Type: EventSources, Sources: sources}
			}
		}

		var answer strings.Builder
		err := e.llm.StreamComplete(ctx, buildPrompt(kind, results, q), e.opts, func(fragment string) error {
			answer.WriteString(fragment)
			select {
			case out <- StreamEvent{Type: EventChunk, Text: fragment}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			e.fail(out, err)
			return
		}
		e.record("assistant", answer.String(), sources)
		out <- StreamEvent{Type: EventDone}
	}()
	return out
}

// retrieve runs the hybrid search and fuses both ranked lists.
func (e *Engine) retrieve(ctx context.Context, question string) ([]domain.SearchResult, []domain.Source, error) {
	keywords := extractKeywords(question)
	keywordHits := e.store.SearchByKeyword(keywords, searchDepth)

	vec, err := e.embedder.Embed(ctx, question)
	if err != nil {
		return nil, nil, err
	}
	vectorHits, err := e.store.Search(vec, searchDepth)
	if err != nil {
		return nil, nil, err
	}

	results := fuse(keywordHits, vectorHits)
	log.Printf("[rag] retrieval: %d keyword + %d vector hits fused to %d", len(keywordHits), len(vectorHits), len(results))
	return results, extractSources(results), nil
}

// fail emits a terminal error event and records the failure. Errors
// never escape the stream boundary.
func (e *Engine) fail(out chan<- StreamEvent, err error) {
	log.Printf("[rag] query failed: %v", err)
	e.record("assistant", "error: "+err.Error(), nil)
	out <- StreamEvent{Type: EventError, Err: err}
}

func (e *Engine) record(role, content string, sources []domain.Source) {
	if e.history == nil || content == "" {
		return
	}
	e.history.AddMessage(e.conversationID, role, content, sources)
}
