package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a single question and exit",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		question := strings.Join(args, " ")
		answer, sources, err := a.engine.Query(cmd.Context(), question)
		if err != nil {
			return err
		}

		fmt.Println(answer)
		if len(sources) > 0 {
			fmt.Println()
			fmt.Println("sources:")
			for _, s := range sources {
				fmt.Printf("  %s (chunk %d, score %.3f)\n", s.FileName, s.ChunkIndex, s.Relevance)
			}
		}
		return nil
	},
}
