package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"worldloom/internal/narrative"
	"worldloom/internal/store"
	"worldloom/internal/world"
)

func (c *Client) ListEntities(ctx context.Context, runID string, filter store.EntityFilter) ([]world.Entity, error) {
	runID, err := c.resolveRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	query, args := store.EntitiesQuery(runID, filter)
	rows, err := c.pool.Query(ctx, rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("listing entities: %w", err)
	}
	entityRows, err := pgx.CollectRows(rows, pgx.RowToStructByName[store.EntityRow])
	if err != nil {
		return nil, fmt.Errorf("listing entities: %w", err)
	}
	entities := make([]world.Entity, 0, len(entityRows))
	for _, row := range entityRows {
		e, err := row.Entity()
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, nil
}

func (c *Client) GetEntity(ctx context.Context, runID, id string) (*world.Entity, error) {
	runID, err := c.resolveRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	query, args := store.EntityQuery(runID, id)
	rows, err := c.pool.Query(ctx, rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("getting entity: %w", err)
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[store.EntityRow])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("entity %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting entity: %w", err)
	}
	e, err := row.Entity()
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (c *Client) GetRelationships(ctx context.Context, runID, id string, filter store.RelationshipFilter) ([]world.Relationship, error) {
	runID, err := c.resolveRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	query, args, err := store.RelationshipsQuery(runID, id, filter)
	if err != nil {
		return nil, err
	}
	rows, err := c.pool.Query(ctx, rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("getting relationships: %w", err)
	}
	relRows, err := pgx.CollectRows(rows, pgx.RowToStructByName[store.RelationshipRow])
	if err != nil {
		return nil, fmt.Errorf("getting relationships: %w", err)
	}
	rels := make([]world.Relationship, 0, len(relRows))
	for _, row := range relRows {
		rels = append(rels, row.Relationship())
	}
	return rels, nil
}

func (c *Client) ListNarrativeEvents(ctx context.Context, runID string, filter store.EventFilter) ([]narrative.Event, error) {
	runID, err := c.resolveRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	query, args := store.EventsQuery(runID, filter)
	rows, err := c.pool.Query(ctx, rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("listing narrative events: %w", err)
	}
	eventRows, err := pgx.CollectRows(rows, pgx.RowToStructByName[store.EventRow])
	if err != nil {
		return nil, fmt.Errorf("listing narrative events: %w", err)
	}
	events := make([]narrative.Event, 0, len(eventRows))
	for _, row := range eventRows {
		ev, err := row.Event()
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

func (c *Client) GetPressures(ctx context.Context, runID string) (map[string]float64, error) {
	runID, err := c.resolveRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	query, args := store.PressuresQuery(runID)
	rows, err := c.pool.Query(ctx, rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("getting pressures: %w", err)
	}
	pressureRows, err := pgx.CollectRows(rows, pgx.RowToStructByName[store.PressureRow])
	if err != nil {
		return nil, fmt.Errorf("getting pressures: %w", err)
	}
	pressures := make(map[string]float64, len(pressureRows))
	for _, row := range pressureRows {
		pressures[row.ID] = row.Value
	}
	return pressures, nil
}
