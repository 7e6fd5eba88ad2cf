package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"worldloom/internal/store"
)

func queryRelationsCmd() *cobra.Command {
	var kind string
	var direction string
	var historical bool
	cmd := &cobra.Command{
		Use:   "relations <id>",
		Short: "Display relationships for an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := store.ParseDirection(direction)
			if err != nil {
				return err
			}
			filter := store.RelationshipFilter{Kind: kind, Direction: dir, IncludeHistorical: historical}
			return runQueryRelations(cmd, args[0], filter)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "Relationship kind to filter")
	cmd.Flags().StringVar(&direction, "direction", "both", "Direction: out, in, or both")
	cmd.Flags().BoolVar(&historical, "historical", false, "Include archived relationships")
	return cmd
}

func runQueryRelations(cmd *cobra.Command, id string, filter store.RelationshipFilter) error {
	return withStore(func(ctx context.Context, db store.Store) error {
		rels, err := db.GetRelationships(ctx, queryRun, id, filter)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(rels) == 0 {
			fmt.Fprintf(out, "No relationships found for %q.\n", id)
			return nil
		}
		for _, rel := range rels {
			line := fmt.Sprintf("%s -%s-> %s strength=%.2f since=%d", rel.Src, rel.Kind, rel.Dst, rel.Strength, rel.CreatedAt)
			if rel.Distance != nil {
				line += fmt.Sprintf(" distance=%.2f", *rel.Distance)
			}
			if rel.CatalyzedBy != "" {
				line += " by=" + rel.CatalyzedBy
			}
			if rel.ArchivedAt != nil {
				line += fmt.Sprintf(" archived=%d", *rel.ArchivedAt)
			}
			fmt.Fprintln(out, line)
		}
		return nil
	})
}
