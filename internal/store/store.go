// Package store persists finished runs so they can be queried after the
// simulation exits.
package store

import (
	"context"
	"errors"

	"worldloom/internal/engine"
	"worldloom/internal/narrative"
	"worldloom/internal/world"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrNoRuns        = errors.New("no runs stored")
	ErrBadDirection  = errors.New("direction must be out, in or both")
	ErrUnsupportedDB = errors.New("unsupported database DSN")
)

type Store interface {
	Close(ctx context.Context) error
	EnsureSchema(ctx context.Context) error

	// SaveRun replaces any run stored under the same run id.
	SaveRun(ctx context.Context, snap *engine.Snapshot) error
	ListRuns(ctx context.Context) ([]Run, error)

	// An empty runID selects the most recently saved run.
	ListEntities(ctx context.Context, runID string, filter EntityFilter) ([]world.Entity, error)
	GetEntity(ctx context.Context, runID, id string) (*world.Entity, error)
	GetRelationships(ctx context.Context, runID, id string, filter RelationshipFilter) ([]world.Relationship, error)
	ListNarrativeEvents(ctx context.Context, runID string, filter EventFilter) ([]narrative.Event, error)
	GetPressures(ctx context.Context, runID string) (map[string]float64, error)
	Search(ctx context.Context, runID, query string, limit int) ([]SearchResult, error)

	// RunSQL runs a read query with positional parameters keyed "1", "2", ...
	RunSQL(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
}
