// Package mcp serves stored runs to MCP clients as read-only tools.
package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"worldloom/internal/config"
	"worldloom/internal/narrative"
	"worldloom/internal/store"
	"worldloom/internal/world"
)

// Reader is the part of store.Store the tools need.
type Reader interface {
	ListRuns(ctx context.Context) ([]store.Run, error)
	ListEntities(ctx context.Context, runID string, filter store.EntityFilter) ([]world.Entity, error)
	GetEntity(ctx context.Context, runID, id string) (*world.Entity, error)
	GetRelationships(ctx context.Context, runID, id string, filter store.RelationshipFilter) ([]world.Relationship, error)
	ListNarrativeEvents(ctx context.Context, runID string, filter store.EventFilter) ([]narrative.Event, error)
	GetPressures(ctx context.Context, runID string) (map[string]float64, error)
	Search(ctx context.Context, runID, query string, limit int) ([]store.SearchResult, error)
}

type Server struct {
	schema *config.Schema
	db     Reader
	mcp    *sdk.Server
}

// NewServer registers the tools. schema may be nil, in which case
// get_schema returns an empty description.
func NewServer(schema *config.Schema, db Reader, version string) *Server {
	s := &Server{
		schema: schema,
		db:     db,
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "worldloom",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}
