package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"worldloom/internal/store"
)

func querySearchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Full-text search over entity names, descriptions and tags",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuerySearch(cmd, strings.Join(args, " "), limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum results")
	return cmd
}

func runQuerySearch(cmd *cobra.Command, query string, limit int) error {
	return withStore(func(ctx context.Context, db store.Store) error {
		results, err := db.Search(ctx, queryRun, query, limit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(results) == 0 {
			fmt.Fprintln(out, "No matches found.")
			return nil
		}
		for _, result := range results {
			fmt.Fprintf(out, "%s  %s (%s/%s) score=%.2f\n", result.ID, result.Name, result.Kind, result.Subtype, result.Score)
			if result.Snippet != "" {
				fmt.Fprintf(out, "    %s\n", result.Snippet)
			}
		}
		return nil
	})
}
