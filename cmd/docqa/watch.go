package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"docqa/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the index in sync with the configured folders",
	Long:  "Watches the configured folders and reindexes documents as they change, until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		if len(a.cfg.Folders) == 0 {
			return fmt.Errorf("no folders configured")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		w, err := watcher.New(a.indexer, a.cfg.SupportedFormats, time.Duration(a.cfg.Watcher.DebounceMillis)*time.Millisecond)
		if err != nil {
			return err
		}
		defer w.Close()
		if err := w.Watch(ctx, a.cfg.Folders); err != nil {
			return err
		}

		fmt.Printf("watching %v, press Ctrl-C to stop\n", a.cfg.Folders)
		<-ctx.Done()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
