package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"docqa/internal/chat"
	"docqa/internal/chunker"
	"docqa/internal/config"
	"docqa/internal/domain"
	"docqa/internal/embedding"
	"docqa/internal/events"
	"docqa/internal/indexer"
	"docqa/internal/llm"
	"docqa/internal/parser"
	"docqa/internal/rag"
	"docqa/internal/summarizer"
	"docqa/internal/vectorstore"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:          "docqa",
	Short:        "Question answering over your local documents",
	Long:         "docqa indexes local text documents into a searchable store and answers questions about them with a local or hosted language model.",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config (default: ./config.yaml, then ~/.config/docqa/config.yaml)")
	rootCmd.AddCommand(chatCmd, indexCmd, askCmd, statusCmd)
}

// app bundles the assembled components behind every subcommand.
type app struct {
	cfg     *config.AppConfig
	store   *vectorstore.Store
	history *chat.History
	bus     *events.Bus
	indexer *indexer.Orchestrator
	engine  *rag.Engine
}

// buildApp loads config, restores the snapshot, and wires the pipeline.
func buildApp() (*app, error) {
	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	completer, err := buildCompleter(cfg)
	if err != nil {
		return nil, err
	}

	store := vectorstore.New(cfg.SnapshotPath())
	if err := store.Load(); err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	history := chat.NewHistory(cfg.HistoryPath())
	if err := history.Load(); err != nil {
		log.Printf("cannot load chat history: %v", err)
	}

	bus := events.NewBus()
	splitter := chunker.NewSplitter(cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap)
	orchestrator := indexer.New(store, splitter, embedder, parser.NewRegistry(), bus, cfg.SupportedFormats)

	engine := rag.NewEngine(store, embedder, completer, rag.Options{
		Indexer:    orchestrator,
		History:    history,
		Summarizer: summarizer.NewExtractive(),
		Folders:    cfg.Folders,
		Completion: domain.CompletionOptions{
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
		},
	})

	return &app{
		cfg:     cfg,
		store:   store,
		history: history,
		bus:     bus,
		indexer: orchestrator,
		engine:  engine,
	}, nil
}

// close flushes any pending snapshot write.
func (a *app) close() {
	a.bus.Close()
	if err := a.store.Close(); err != nil {
		log.Printf("snapshot flush failed: %v", err)
	}
}

func buildEmbedder(cfg *config.AppConfig) (domain.Embedder, error) {
	p := cfg.Embeddings
	switch p.Provider {
	case "ollama", "":
		return embedding.NewOllamaClient(embedding.OllamaConfig{
			BaseURL: p.BaseURL,
			Model:   p.Model,
			Timeout: time.Duration(p.TimeoutSecs) * time.Second,
		}), nil
	case "openai":
		return embedding.NewOpenAIClient(p.APIKeyEnv, p.BaseURL, p.Model)
	default:
		return nil, fmt.Errorf("unknown embeddings provider: %s", p.Provider)
	}
}

func buildCompleter(cfg *config.AppConfig) (domain.Completer, error) {
	p := cfg.LLM
	switch p.Provider {
	case "ollama", "":
		return llm.NewOllamaClient(llm.OllamaConfig{
			BaseURL: p.BaseURL,
			Model:   p.Model,
			Timeout: time.Duration(p.TimeoutSecs) * time.Second,
		}), nil
	case "openai":
		return llm.NewOpenAIClient(p.APIKeyEnv, p.BaseURL, p.Model)
	case "anthropic":
		return llm.NewAnthropicClient(p.APIKeyEnv, p.Model)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", p.Provider)
	}
}
