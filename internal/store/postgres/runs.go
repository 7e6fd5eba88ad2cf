package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"worldloom/internal/engine"
	"worldloom/internal/store"
)

func (c *Client) SaveRun(ctx context.Context, snap *engine.Snapshot) error {
	runID := snap.Metadata.RunID
	if runID == "" {
		return fmt.Errorf("saving run: snapshot has no run id")
	}
	entities, rels, events, pressures, err := store.Rows(snap)
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, q := range store.DeleteRunQueries() {
		if _, err := tx.Exec(ctx, rebind(q), runID); err != nil {
			return fmt.Errorf("clearing previous run: %w", err)
		}
	}

	run := store.NewRun(snap, c.now())
	_, err = tx.Exec(ctx,
		`INSERT INTO runs (`+store.RunColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		run.ID,
		run.Project,
		run.Domain,
		run.Seed,
		run.Tick,
		run.Epoch,
		run.Era,
		run.EntityCount,
		run.RelationshipCount,
		run.HistoryEventCount,
		run.NarrativeEventCount,
		run.SavedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	copies := []struct {
		table   string
		columns string
		rows    int
		values  func(i int) ([]any, error)
	}{
		{"entities", store.EntityColumns, len(entities), func(i int) ([]any, error) {
			r := entities[i]
			return []any{r.RunID, r.ID, r.Kind, r.Subtype, r.Name, r.Description, r.Status, r.Prominence, r.Culture, r.Tags, r.X, r.Y, r.CreatedAt, r.UpdatedAt}, nil
		}},
		{"relationships", store.RelationshipColumns, len(rels), func(i int) ([]any, error) {
			r := rels[i]
			return []any{r.RunID, r.Kind, r.Src, r.Dst, r.Strength, r.CreatedAt, r.CatalyzedBy, r.Distance, r.ArchivedAt}, nil
		}},
		{"narrative_events", store.EventColumns, len(events), func(i int) ([]any, error) {
			r := events[i]
			return []any{r.RunID, r.Seq, r.ID, r.Tick, r.Era, r.Type, r.Significance, r.Headline, r.Subject, r.Affected, r.Catalyst, r.Field, r.Previous, r.Current, r.RelationshipKind, r.Counterpart}, nil
		}},
		{"pressures", "run_id, id, value", len(pressures), func(i int) ([]any, error) {
			r := pressures[i]
			return []any{r.RunID, r.ID, r.Value}, nil
		}},
	}
	for _, cp := range copies {
		if cp.rows == 0 {
			continue
		}
		_, err := tx.CopyFrom(ctx, pgx.Identifier{cp.table}, store.Columns(cp.columns), pgx.CopyFromSlice(cp.rows, cp.values))
		if err != nil {
			return fmt.Errorf("copying %s: %w", cp.table, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing run: %w", err)
	}
	return nil
}

func (c *Client) ListRuns(ctx context.Context) ([]store.Run, error) {
	rows, err := c.pool.Query(ctx, store.ListRunsQuery())
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	runs, err := pgx.CollectRows(rows, pgx.RowToStructByName[store.Run])
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

func (c *Client) resolveRun(ctx context.Context, runID string) (string, error) {
	if runID == "" {
		err := c.pool.QueryRow(ctx, store.LatestRunQuery()).Scan(&runID)
		if errors.Is(err, pgx.ErrNoRows) {
			return "", store.ErrNoRuns
		}
		if err != nil {
			return "", fmt.Errorf("finding latest run: %w", err)
		}
		return runID, nil
	}
	var n int
	if err := c.pool.QueryRow(ctx, rebind(store.RunExistsQuery()), runID).Scan(&n); err != nil {
		return "", fmt.Errorf("finding run %s: %w", runID, err)
	}
	if n == 0 {
		return "", fmt.Errorf("run %s: %w", runID, store.ErrNotFound)
	}
	return runID, nil
}
