package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index [folder...]",
	Short: "Scan folders and build the document index",
	Long:  "Scans the given folders (or the configured ones when none are given), chunks and embeds every supported document, and writes the snapshot.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		folders := args
		if len(folders) == 0 {
			folders = a.cfg.Folders
		}
		if len(folders) == 0 {
			return fmt.Errorf("no folders given and none configured")
		}

		if err := a.indexer.IndexFolders(cmd.Context(), folders); err != nil {
			return err
		}

		status := a.indexer.Status()
		fmt.Printf("indexed %d/%d files, %d chunks total\n", status.Current, status.Total, a.store.Count())
		for _, ie := range status.Errors {
			fmt.Printf("  failed: %s: %s\n", ie.FilePath, ie.Message)
		}
		return nil
	},
}
