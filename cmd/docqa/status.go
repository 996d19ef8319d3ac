package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index size and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		fmt.Printf("snapshot:        %s\n", a.cfg.SnapshotPath())
		fmt.Printf("indexed chunks:  %d\n", a.store.Count())
		fmt.Printf("folders:         %v\n", a.cfg.Folders)
		fmt.Printf("formats:         %v\n", a.cfg.SupportedFormats)
		fmt.Printf("embeddings:      %s (%s)\n", a.cfg.Embeddings.Provider, a.cfg.Embeddings.Model)
		fmt.Printf("llm:             %s (%s)\n", a.cfg.LLM.Provider, a.cfg.LLM.Model)
		fmt.Printf("conversations:   %d\n", len(a.history.Conversations()))
		return nil
	},
}
