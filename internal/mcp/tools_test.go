package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"worldloom/internal/domain/frontier"
	"worldloom/internal/engine"
	"worldloom/internal/narrative"
	"worldloom/internal/store"
	"worldloom/internal/store/storetest"
	"worldloom/internal/world"
)

type mockReader struct {
	snap *engine.Snapshot

	lastRun          string
	lastEntityFilter store.EntityFilter
	lastRelID        string
	lastRelFilter    store.RelationshipFilter
	lastEventFilter  store.EventFilter
	lastQuery        string
}

func newMockReader() *mockReader {
	return &mockReader{snap: storetest.Snapshot("run-1")}
}

func (m *mockReader) ListRuns(ctx context.Context) ([]store.Run, error) {
	return []store.Run{store.NewRun(m.snap, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))}, nil
}

func (m *mockReader) ListEntities(ctx context.Context, runID string, filter store.EntityFilter) ([]world.Entity, error) {
	m.lastRun = runID
	m.lastEntityFilter = filter
	var out []world.Entity
	for _, e := range m.snap.HardState {
		if filter.Kind == "" || e.Kind == filter.Kind {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockReader) GetEntity(ctx context.Context, runID, id string) (*world.Entity, error) {
	m.lastRun = runID
	for _, e := range m.snap.HardState {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockReader) GetRelationships(ctx context.Context, runID, id string, filter store.RelationshipFilter) ([]world.Relationship, error) {
	m.lastRun = runID
	m.lastRelID = id
	m.lastRelFilter = filter
	return m.snap.Relationships, nil
}

func (m *mockReader) ListNarrativeEvents(ctx context.Context, runID string, filter store.EventFilter) ([]narrative.Event, error) {
	m.lastRun = runID
	m.lastEventFilter = filter
	return m.snap.NarrativeEvents, nil
}

func (m *mockReader) GetPressures(ctx context.Context, runID string) (map[string]float64, error) {
	m.lastRun = runID
	return m.snap.Pressures, nil
}

func (m *mockReader) Search(ctx context.Context, runID, query string, limit int) ([]store.SearchResult, error) {
	m.lastQuery = query
	return []store.SearchResult{{ID: storetest.SaltCrown, Name: "The Salt Crown", Kind: "faction", Subtype: "crown", Score: 1.5}}, nil
}

func TestListRuns(t *testing.T) {
	server := NewServer(nil, newMockReader(), "test")

	_, output, err := server.handleListRuns(context.Background(), nil, ListRunsInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(output.Runs) != 1 || output.Runs[0].ID != "run-1" || output.Runs[0].SavedAt != "2026-03-01T12:00:00Z" {
		t.Fatalf("unexpected runs output: %+v", output)
	}
}

func TestListEntities(t *testing.T) {
	reader := newMockReader()
	server := NewServer(nil, reader, "test")

	_, output, err := server.handleListEntities(context.Background(), nil, ListEntitiesInput{Run: "run-1", Kind: "npc", MinProminence: "recognized"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(output.Entities) != 1 || output.Entities[0].Name != "Ysolde" {
		t.Fatalf("unexpected list output: %+v", output)
	}
	if got := output.Entities[0]; got.Prominence != "renowned" || len(got.Tags) != 1 || got.Tags[0] != "legend" {
		t.Fatalf("unexpected entity fields: %+v", got)
	}
	if reader.lastRun != "run-1" || reader.lastEntityFilter.MinProminence != world.Recognized {
		t.Fatalf("unexpected list params: %q %+v", reader.lastRun, reader.lastEntityFilter)
	}

	if _, _, err := server.handleListEntities(context.Background(), nil, ListEntitiesInput{MinProminence: "legendary"}); err == nil {
		t.Fatalf("expected error for unknown prominence")
	}
}

func TestGetEntity(t *testing.T) {
	server := NewServer(nil, newMockReader(), "test")

	_, output, err := server.handleGetEntity(context.Background(), nil, GetEntityInput{ID: storetest.Saltmere})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Name != "Saltmere" || output.Tags == nil {
		t.Fatalf("unexpected entity output: %+v", output)
	}

	if _, _, err := server.handleGetEntity(context.Background(), nil, GetEntityInput{ID: "npc-404"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := server.handleGetEntity(context.Background(), nil, GetEntityInput{}); err == nil {
		t.Fatalf("expected error for missing id")
	}
}

func TestGetRelationships(t *testing.T) {
	reader := newMockReader()
	server := NewServer(nil, reader, "test")

	_, output, err := server.handleGetRelationships(context.Background(), nil, GetRelationshipsInput{ID: storetest.Ysolde, Kind: "member_of", Direction: "out", Historical: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(output.Relationships) != 3 || output.Relationships[1].Distance == nil {
		t.Fatalf("unexpected relationships output: %+v", output)
	}
	want := store.RelationshipFilter{Kind: "member_of", Direction: store.DirectionOut, IncludeHistorical: true}
	if reader.lastRelID != storetest.Ysolde || reader.lastRelFilter != want {
		t.Fatalf("unexpected relationships params: %+v", reader.lastRelFilter)
	}

	_, _, err = server.handleGetRelationships(context.Background(), nil, GetRelationshipsInput{ID: storetest.Ysolde, Direction: "sideways"})
	if !errors.Is(err, store.ErrBadDirection) {
		t.Fatalf("expected ErrBadDirection, got %v", err)
	}
}

func TestListNarrativeEvents(t *testing.T) {
	reader := newMockReader()
	server := NewServer(nil, reader, "test")

	_, output, err := server.handleListNarrativeEvents(context.Background(), nil, ListNarrativeEventsInput{Type: "coalescence", MinSignificance: 0.5, FromTick: 1, ToTick: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(output.Events) != 2 || output.Events[0].Headline != "The Salt Crown gathers at Saltmere" {
		t.Fatalf("unexpected events output: %+v", output)
	}
	if output.Events[1].Affected == nil {
		t.Fatalf("affected should be an empty list, not null")
	}
	want := store.EventFilter{Type: "coalescence", MinSignificance: 0.5, FromTick: 1, ToTick: 5}
	if reader.lastEventFilter != want {
		t.Fatalf("unexpected event params: %+v", reader.lastEventFilter)
	}

	if _, _, err := server.handleListNarrativeEvents(context.Background(), nil, ListNarrativeEventsInput{MinSignificance: 2}); err == nil {
		t.Fatalf("expected error for significance above 1")
	}
}

func TestGetPressures(t *testing.T) {
	server := NewServer(nil, newMockReader(), "test")

	_, output, err := server.handleGetPressures(context.Background(), nil, GetPressuresInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(output.Pressures) != 2 || output.Pressures[0].ID != "conflict" || output.Pressures[1].Value != 40 {
		t.Fatalf("unexpected pressures output: %+v", output)
	}
}

func TestSearchWorld(t *testing.T) {
	reader := newMockReader()
	server := NewServer(nil, reader, "test")

	_, output, err := server.handleSearchWorld(context.Background(), nil, SearchWorldInput{Query: "salt"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(output.Results) != 1 || output.Results[0].ID != storetest.SaltCrown || reader.lastQuery != "salt" {
		t.Fatalf("unexpected search output: %+v", output)
	}
	if _, _, err := server.handleSearchWorld(context.Background(), nil, SearchWorldInput{}); err == nil {
		t.Fatalf("expected error for empty query")
	}
}

func TestGetSchema(t *testing.T) {
	schema, err := frontier.Schema()
	if err != nil {
		t.Fatalf("loading schema: %v", err)
	}
	server := NewServer(schema, newMockReader(), "test")

	_, output, err := server.handleGetSchema(context.Background(), nil, GetSchemaInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Version != 1 || len(output.EntityKinds) != 7 || len(output.Cultures) != 4 {
		t.Fatalf("unexpected schema output: %+v", output)
	}

	_, empty, err := NewServer(nil, newMockReader(), "test").handleGetSchema(context.Background(), nil, GetSchemaInput{})
	if err != nil || empty.Version != 0 {
		t.Fatalf("expected empty schema, got %+v (%v)", empty, err)
	}
}
