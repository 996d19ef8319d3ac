package main

import (
	"context"
	"fmt"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"docqa/internal/tui"
	"docqa/internal/watcher"
)

var chatReindex bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive chat over your indexed documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		if chatReindex && len(a.cfg.Folders) > 0 {
			go func() {
				if err := a.indexer.IndexFolders(ctx, a.cfg.Folders); err != nil {
					log.Printf("startup indexing failed: %v", err)
				}
			}()
		}

		if a.cfg.Watcher.Enabled && len(a.cfg.Folders) > 0 {
			w, err := watcher.New(a.indexer, a.cfg.SupportedFormats, time.Duration(a.cfg.Watcher.DebounceMillis)*time.Millisecond)
			if err != nil {
				log.Printf("watcher unavailable: %v", err)
			} else {
				defer w.Close()
				if err := w.Watch(ctx, a.cfg.Folders); err != nil {
					log.Printf("watcher failed to start: %v", err)
				}
			}
		}

		model := tui.New(a.engine, a.bus.Subscribe(32))
		if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
			return fmt.Errorf("chat ui: %w", err)
		}
		return nil
	},
}

func init() {
	chatCmd.Flags().BoolVar(&chatReindex, "reindex", true, "re-scan the configured folders on startup")
}
