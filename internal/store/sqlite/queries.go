package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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
	var rows []store.EntityRow
	if err := c.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing entities: %w", err)
	}
	entities := make([]world.Entity, 0, len(rows))
	for _, row := range rows {
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
	var row store.EntityRow
	err = c.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
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
	var rows []store.RelationshipRow
	if err := c.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("getting relationships: %w", err)
	}
	rels := make([]world.Relationship, 0, len(rows))
	for _, row := range rows {
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
	var rows []store.EventRow
	if err := c.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing narrative events: %w", err)
	}
	events := make([]narrative.Event, 0, len(rows))
	for _, row := range rows {
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
	var rows []store.PressureRow
	if err := c.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("getting pressures: %w", err)
	}
	pressures := make(map[string]float64, len(rows))
	for _, row := range rows {
		pressures[row.ID] = row.Value
	}
	return pressures, nil
}
