package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"worldloom/internal/store"
)

func queryEventsCmd() *cobra.Command {
	var filter store.EventFilter
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List narrative events of a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if filter.MinSignificance < 0 || filter.MinSignificance > 1 {
				return fmt.Errorf("--min-significance must be between 0 and 1")
			}
			return runQueryEvents(cmd, filter)
		},
	}
	cmd.Flags().StringVar(&filter.Type, "type", "", "Event type to filter")
	cmd.Flags().StringVar(&filter.Subject, "subject", "", "Entity id the event is about")
	cmd.Flags().Float64Var(&filter.MinSignificance, "min-significance", 0, "Lowest significance to include")
	cmd.Flags().IntVar(&filter.FromTick, "from", 0, "First tick to include")
	cmd.Flags().IntVar(&filter.ToTick, "to", 0, "Last tick to include (0 for no bound)")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "Maximum events to print (0 for all)")
	return cmd
}

func runQueryEvents(cmd *cobra.Command, filter store.EventFilter) error {
	return withStore(func(ctx context.Context, db store.Store) error {
		events, err := db.ListNarrativeEvents(ctx, queryRun, filter)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(out, "No narrative events found.")
			return nil
		}
		for _, ev := range events {
			fmt.Fprintf(out, "[%4d] %-16s %.2f  %s\n", ev.Tick, ev.Type, ev.Significance, ev.Headline)
		}
		return nil
	})
}
