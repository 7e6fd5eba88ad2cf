package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"worldloom/internal/store"
	"worldloom/internal/store/storetest"
	"worldloom/internal/world"
)

func openTestClient(t *testing.T) *Client {
	t.Helper()
	ctx := context.Background()
	c, err := New(ctx, "sqlite://"+filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { c.Close(ctx) })
	if err := c.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	// Idempotent.
	if err := c.EnsureSchema(ctx); err != nil {
		t.Fatalf("second EnsureSchema() error = %v", err)
	}
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return c
}

func TestEmptyStore(t *testing.T) {
	c := openTestClient(t)
	ctx := context.Background()

	runs, err := c.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected no runs, got %d", len(runs))
	}
	if _, err := c.ListEntities(ctx, "", store.EntityFilter{}); !errors.Is(err, store.ErrNoRuns) {
		t.Fatalf("expected ErrNoRuns, got %v", err)
	}
}

func TestRunRoundTrip(t *testing.T) {
	c := openTestClient(t)
	ctx := context.Background()
	snap := storetest.Snapshot("run-1")
	if err := c.SaveRun(ctx, snap); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	// Saving again replaces the run.
	if err := c.SaveRun(ctx, snap); err != nil {
		t.Fatalf("second SaveRun() error = %v", err)
	}

	runs, err := c.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "run-1" || runs[0].Seed != 7 || runs[0].Era != "age_of_expansion" {
		t.Fatalf("unexpected runs: %+v", runs)
	}

	t.Run("entities", func(t *testing.T) {
		all, err := c.ListEntities(ctx, "", store.EntityFilter{})
		if err != nil {
			t.Fatalf("ListEntities() error = %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("expected 3 entities, got %d", len(all))
		}
		npcs, err := c.ListEntities(ctx, "run-1", store.EntityFilter{Kind: "npc"})
		if err != nil {
			t.Fatalf("ListEntities(npc) error = %v", err)
		}
		if len(npcs) != 1 || !reflect.DeepEqual(npcs[0], snap.HardState[0]) {
			t.Fatalf("npc did not round trip: %+v", npcs)
		}
		notable, err := c.ListEntities(ctx, "run-1", store.EntityFilter{MinProminence: world.Recognized})
		if err != nil {
			t.Fatalf("ListEntities(prominence) error = %v", err)
		}
		if len(notable) != 2 {
			t.Fatalf("expected 2 entities at recognized or above, got %d", len(notable))
		}
	})

	t.Run("entity", func(t *testing.T) {
		e, err := c.GetEntity(ctx, "run-1", storetest.SaltCrown)
		if err != nil {
			t.Fatalf("GetEntity() error = %v", err)
		}
		if !reflect.DeepEqual(*e, snap.HardState[1]) {
			t.Fatalf("faction did not round trip: %+v", e)
		}
		if _, err := c.GetEntity(ctx, "run-1", "npc-404"); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if _, err := c.GetEntity(ctx, "run-404", storetest.SaltCrown); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected ErrNotFound for unknown run, got %v", err)
		}
	})

	t.Run("relationships", func(t *testing.T) {
		out, err := c.GetRelationships(ctx, "run-1", storetest.Ysolde, store.RelationshipFilter{Direction: store.DirectionOut})
		if err != nil {
			t.Fatalf("GetRelationships() error = %v", err)
		}
		if len(out) != 2 {
			t.Fatalf("expected 2 outgoing, got %d", len(out))
		}
		if !reflect.DeepEqual(out[0], snap.Relationships[1]) {
			t.Fatalf("resident_of did not round trip: %+v", out[0])
		}

		in, err := c.GetRelationships(ctx, "run-1", storetest.Saltmere, store.RelationshipFilter{Direction: store.DirectionIn})
		if err != nil {
			t.Fatalf("GetRelationships(in) error = %v", err)
		}
		if len(in) != 1 {
			t.Fatalf("expected archived edge hidden, got %d", len(in))
		}
		history, err := c.GetRelationships(ctx, "run-1", storetest.Saltmere, store.RelationshipFilter{IncludeHistorical: true})
		if err != nil {
			t.Fatalf("GetRelationships(historical) error = %v", err)
		}
		if len(history) != 2 {
			t.Fatalf("expected 2 with history, got %d", len(history))
		}
		if _, err := c.GetRelationships(ctx, "run-1", storetest.Ysolde, store.RelationshipFilter{Direction: "sideways"}); !errors.Is(err, store.ErrBadDirection) {
			t.Fatalf("expected ErrBadDirection, got %v", err)
		}
	})

	t.Run("narrative", func(t *testing.T) {
		events, err := c.ListNarrativeEvents(ctx, "run-1", store.EventFilter{})
		if err != nil {
			t.Fatalf("ListNarrativeEvents() error = %v", err)
		}
		if !reflect.DeepEqual(events, snap.NarrativeEvents) {
			t.Fatalf("events did not round trip: %+v", events)
		}
		major, err := c.ListNarrativeEvents(ctx, "run-1", store.EventFilter{MinSignificance: 0.5})
		if err != nil {
			t.Fatalf("ListNarrativeEvents(significance) error = %v", err)
		}
		if len(major) != 1 || major[0].ID != "event-1" {
			t.Fatalf("unexpected filtered events: %+v", major)
		}
		late, err := c.ListNarrativeEvents(ctx, "run-1", store.EventFilter{FromTick: 5, ToTick: 10})
		if err != nil {
			t.Fatalf("ListNarrativeEvents(ticks) error = %v", err)
		}
		if len(late) != 1 || late[0].ID != "event-2" {
			t.Fatalf("unexpected tick window: %+v", late)
		}
	})

	t.Run("pressures", func(t *testing.T) {
		pressures, err := c.GetPressures(ctx, "run-1")
		if err != nil {
			t.Fatalf("GetPressures() error = %v", err)
		}
		if !reflect.DeepEqual(pressures, snap.Pressures) {
			t.Fatalf("pressures = %v, want %v", pressures, snap.Pressures)
		}
	})

	t.Run("search", func(t *testing.T) {
		results, err := c.Search(ctx, "run-1", "salt", 10)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("expected crown and founder, got %+v", results)
		}
	})

	t.Run("sql", func(t *testing.T) {
		rows, err := c.RunSQL(ctx, "SELECT COUNT(*) AS n FROM entities WHERE run_id = ?", map[string]any{"1": "run-1"})
		if err != nil {
			t.Fatalf("RunSQL() error = %v", err)
		}
		if len(rows) != 1 || rows[0]["n"] != int64(3) {
			t.Fatalf("unexpected rows: %v", rows)
		}
	})
}

func TestLatestRunWins(t *testing.T) {
	c := openTestClient(t)
	ctx := context.Background()
	if err := c.SaveRun(ctx, storetest.Snapshot("run-a")); err != nil {
		t.Fatalf("SaveRun(a) error = %v", err)
	}
	second := storetest.Snapshot("run-b")
	second.Pressures["conflict"] = 90
	if err := c.SaveRun(ctx, second); err != nil {
		t.Fatalf("SaveRun(b) error = %v", err)
	}

	pressures, err := c.GetPressures(ctx, "")
	if err != nil {
		t.Fatalf("GetPressures() error = %v", err)
	}
	if pressures["conflict"] != 90 {
		t.Fatalf("expected latest run, got %v", pressures)
	}
	runs, err := c.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-b" {
		t.Fatalf("expected newest first, got %+v", runs)
	}
}

func TestParseDSN(t *testing.T) {
	tests := []struct {
		dsn     string
		want    string
		wantErr bool
	}{
		{dsn: "sqlite://:memory:", want: ":memory:"},
		{dsn: "sqlite:///var/lib/runs.db", want: "/var/lib/runs.db"},
		{dsn: "sqlite://runs.db", want: "./runs.db"},
		{dsn: "sqlite://my%20runs.db?mode=ro", want: "./my runs.db?mode=ro"},
		{dsn: "postgres://localhost/runs", wantErr: true},
		{dsn: "sqlite://", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			got, err := parseDSN(tt.dsn)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.dsn)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseDSN() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("parseDSN(%q) = %q, want %q", tt.dsn, got, tt.want)
			}
		})
	}
}
