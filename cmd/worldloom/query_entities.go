package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"worldloom/internal/store"
	"worldloom/internal/world"
)

func queryEntitiesCmd() *cobra.Command {
	var filter store.EntityFilter
	var minProminence string
	cmd := &cobra.Command{
		Use:   "entities",
		Short: "List entities of a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if minProminence != "" {
				p, err := world.ParseProminence(minProminence)
				if err != nil {
					return err
				}
				filter.MinProminence = p
			}
			return runQueryEntities(cmd, filter)
		},
	}
	cmd.Flags().StringVar(&filter.Kind, "kind", "", "Entity kind to filter")
	cmd.Flags().StringVar(&filter.Subtype, "subtype", "", "Subtype to filter")
	cmd.Flags().StringVar(&filter.Status, "status", "", "Status to filter")
	cmd.Flags().StringVar(&filter.Culture, "culture", "", "Culture to filter")
	cmd.Flags().StringVar(&minProminence, "min-prominence", "", "Lowest prominence to include (forgotten..mythic)")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "Maximum entities to print (0 for all)")
	return cmd
}

func runQueryEntities(cmd *cobra.Command, filter store.EntityFilter) error {
	return withStore(func(ctx context.Context, db store.Store) error {
		entities, err := db.ListEntities(ctx, queryRun, filter)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(entities) == 0 {
			fmt.Fprintln(out, "No entities found.")
			return nil
		}
		for _, e := range entities {
			fmt.Fprintf(out, "%s  %s (%s/%s) [%s, %s]\n", e.ID, e.Name, e.Kind, e.Subtype, e.Status, e.Prominence)
		}
		return nil
	})
}
