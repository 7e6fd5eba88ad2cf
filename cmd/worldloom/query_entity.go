package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"worldloom/internal/store"
)

func queryEntityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "entity <id>",
		Short: "Display an entity of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueryEntity(cmd, args[0])
		},
	}
}

func runQueryEntity(cmd *cobra.Command, id string) error {
	return withStore(func(ctx context.Context, db store.Store) error {
		e, err := db.GetEntity(ctx, queryRun, id)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "ID: %s\n", e.ID)
		fmt.Fprintf(out, "Name: %s\n", e.Name)
		fmt.Fprintf(out, "Kind: %s/%s\n", e.Kind, e.Subtype)
		fmt.Fprintf(out, "Status: %s\n", e.Status)
		fmt.Fprintf(out, "Prominence: %s\n", e.Prominence)
		if e.Culture != "" {
			fmt.Fprintf(out, "Culture: %s\n", e.Culture)
		}
		if e.Description != "" {
			fmt.Fprintf(out, "Description: %s\n", e.Description)
		}
		if len(e.Tags) > 0 {
			tags := make([]string, 0, len(e.Tags))
			for tag, on := range e.Tags {
				if on {
					tags = append(tags, tag)
				}
			}
			sort.Strings(tags)
			fmt.Fprintf(out, "Tags: %s\n", strings.Join(tags, ", "))
		}
		fmt.Fprintf(out, "Coordinates: %.2f, %.2f\n", e.Coordinates.X, e.Coordinates.Y)
		fmt.Fprintf(out, "Created: tick %d (updated tick %d)\n", e.CreatedAt, e.UpdatedAt)
		return nil
	})
}
