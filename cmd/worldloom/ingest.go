package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"worldloom/internal/engine"
)

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <snapshot.json>...",
		Short: "Save existing snapshot files to the configured database",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runIngest,
	}
	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	db, err := openConfiguredStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	for _, path := range args {
		snap, err := readSnapshotFile(path)
		if err != nil {
			return err
		}
		if err := db.SaveRun(ctx, snap); err != nil {
			return fmt.Errorf("saving %s: %w", path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved run %s from %s (%d entities)\n", snap.Metadata.RunID, path, len(snap.HardState))
	}
	return nil
}

func readSnapshotFile(path string) (*engine.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	defer f.Close()
	snap, err := engine.ReadSnapshot(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return snap, nil
}
