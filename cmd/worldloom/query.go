package main

import (
	"context"

	"github.com/spf13/cobra"

	"worldloom/internal/store"
)

var queryRun string

func queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query stored runs from the CLI",
	}
	cmd.PersistentFlags().StringVar(&queryRun, "run", "", "Run id (default: most recently saved)")
	cmd.AddCommand(queryRunsCmd())
	cmd.AddCommand(queryEntitiesCmd())
	cmd.AddCommand(queryEntityCmd())
	cmd.AddCommand(queryRelationsCmd())
	cmd.AddCommand(queryEventsCmd())
	cmd.AddCommand(queryPressuresCmd())
	cmd.AddCommand(querySearchCmd())
	cmd.AddCommand(querySQLCmd())
	return cmd
}

// withStore opens the configured database for the length of fn.
func withStore(fn func(ctx context.Context, db store.Store) error) error {
	ctx := context.Background()
	db, err := openConfiguredStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close(ctx)
	return fn(ctx, db)
}
