package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"worldloom/internal/engine"
	"worldloom/internal/store"
)

func (c *Client) SaveRun(ctx context.Context, snap *engine.Snapshot) error {
	if snap.Metadata.RunID == "" {
		return fmt.Errorf("saving run: snapshot has no run id")
	}
	entities, rels, events, pressures, err := store.Rows(snap)
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range store.DeleteRunQueries() {
		if _, err := tx.ExecContext(ctx, q, snap.Metadata.RunID); err != nil {
			return fmt.Errorf("clearing previous run: %w", err)
		}
	}
	if _, err := tx.NamedExecContext(ctx, store.InsertRunQuery(), store.NewRun(snap, c.now())); err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	if err := insertEach(ctx, tx, store.InsertEntityQuery(), entities); err != nil {
		return fmt.Errorf("inserting entities: %w", err)
	}
	if err := insertEach(ctx, tx, store.InsertRelationshipQuery(), rels); err != nil {
		return fmt.Errorf("inserting relationships: %w", err)
	}
	if err := insertEach(ctx, tx, store.InsertEventQuery(), events); err != nil {
		return fmt.Errorf("inserting narrative events: %w", err)
	}
	if err := insertEach(ctx, tx, store.InsertPressureQuery(), pressures); err != nil {
		return fmt.Errorf("inserting pressures: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing run: %w", err)
	}
	return nil
}

func insertEach[T any](ctx context.Context, tx *sqlx.Tx, query string, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := tx.PrepareNamedContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) ListRuns(ctx context.Context) ([]store.Run, error) {
	runs := []store.Run{}
	if err := c.db.SelectContext(ctx, &runs, store.ListRunsQuery()); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// resolveRun maps an empty id to the latest run and checks that a given
// id exists.
func (c *Client) resolveRun(ctx context.Context, runID string) (string, error) {
	if runID == "" {
		err := c.db.GetContext(ctx, &runID, store.LatestRunQuery())
		if errors.Is(err, sql.ErrNoRows) {
			return "", store.ErrNoRuns
		}
		if err != nil {
			return "", fmt.Errorf("finding latest run: %w", err)
		}
		return runID, nil
	}
	var n int
	if err := c.db.GetContext(ctx, &n, store.RunExistsQuery(), runID); err != nil {
		return "", fmt.Errorf("finding run %s: %w", runID, err)
	}
	if n == 0 {
		return "", fmt.Errorf("run %s: %w", runID, store.ErrNotFound)
	}
	return runID, nil
}
