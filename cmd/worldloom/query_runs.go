package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"worldloom/internal/store"
)

func queryRunsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, db store.Store) error {
				runs, err := db.ListRuns(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs stored.")
					return nil
				}
				for _, run := range runs {
					fmt.Fprintf(out, "%s  %s seed=%d ticks=%d era=%s entities=%d events=%d saved=%s\n",
						run.ID,
						run.Domain,
						run.Seed,
						run.Tick,
						run.Era,
						run.EntityCount,
						run.NarrativeEventCount,
						run.SavedAt.Format(time.RFC3339),
					)
				}
				return nil
			})
		},
	}
}
