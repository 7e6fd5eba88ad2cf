package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"worldloom/internal/store"
)

func queryPressuresCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pressures",
		Short: "Show the final pressure values of a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, db store.Store) error {
				pressures, err := db.GetPressures(ctx, queryRun)
				if err != nil {
					return err
				}
				ids := make([]string, 0, len(pressures))
				for id := range pressures {
					ids = append(ids, id)
				}
				sort.Strings(ids)
				for _, id := range ids {
					fmt.Fprintf(cmd.OutOrStdout(), "%-20s %6.2f\n", id, pressures[id])
				}
				return nil
			})
		},
	}
}
