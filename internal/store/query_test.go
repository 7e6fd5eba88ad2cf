package store

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"worldloom/internal/world"
)

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in      string
		want    Direction
		wantErr bool
	}{
		{in: "", want: DirectionBoth},
		{in: "out", want: DirectionOut},
		{in: "in", want: DirectionIn},
		{in: "both", want: DirectionBoth},
		{in: "outgoing", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseDirection(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrBadDirection) {
				t.Fatalf("ParseDirection(%q): expected ErrBadDirection, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("ParseDirection(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestEntitiesQuery(t *testing.T) {
	q, args := EntitiesQuery("run-1", EntityFilter{Kind: "npc", MinProminence: world.Renowned, Limit: 5})
	if !strings.Contains(q, "WHERE run_id = ? AND kind = ? AND prominence >= ?") {
		t.Fatalf("unexpected where clause: %s", q)
	}
	if !strings.HasSuffix(q, "ORDER BY created_at, id LIMIT 5") {
		t.Fatalf("unexpected ordering: %s", q)
	}
	if want := []any{"run-1", "npc", int(world.Renowned)}; !reflect.DeepEqual(args, want) {
		t.Fatalf("args = %v, want %v", args, want)
	}
}

func TestRelationshipsQuery(t *testing.T) {
	q, args, err := RelationshipsQuery("run-1", "npc-1", RelationshipFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(q, "(src = ? OR dst = ?)") || !strings.Contains(q, "archived_at IS NULL") {
		t.Fatalf("unexpected default query: %s", q)
	}
	if len(args) != 3 {
		t.Fatalf("expected 3 args, got %v", args)
	}

	q, _, err = RelationshipsQuery("run-1", "npc-1", RelationshipFilter{Direction: DirectionIn, IncludeHistorical: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(q, "dst = ?") || strings.Contains(q, "(src = ? OR dst = ?)") || strings.Contains(q, "archived_at IS NULL") {
		t.Fatalf("unexpected historical query: %s", q)
	}

	if _, _, err := RelationshipsQuery("run-1", "npc-1", RelationshipFilter{Direction: "up"}); !errors.Is(err, ErrBadDirection) {
		t.Fatalf("expected ErrBadDirection, got %v", err)
	}
}

func TestDeleteRunQueriesChildrenFirst(t *testing.T) {
	queries := DeleteRunQueries()
	if len(queries) != len(Tables) {
		t.Fatalf("expected %d deletes, got %d", len(Tables), len(queries))
	}
	if last := queries[len(queries)-1]; last != "DELETE FROM runs WHERE id = ?" {
		t.Fatalf("runs must be deleted last, got %q", last)
	}
}

func TestInsertQueryIsNamed(t *testing.T) {
	want := "INSERT INTO pressures (run_id, id, value) VALUES (:run_id, :id, :value)"
	if got := InsertPressureQuery(); got != want {
		t.Fatalf("InsertPressureQuery() = %q, want %q", got, want)
	}
}

func TestPositionalArgs(t *testing.T) {
	got := PositionalArgs(map[string]any{"2": "b", "1": "a", "4": "d"})
	if want := []any{"a", "b"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("PositionalArgs() = %v, want %v", got, want)
	}
	if got := PositionalArgs(nil); len(got) != 0 {
		t.Fatalf("expected no args, got %v", got)
	}
}

func TestEntityRowTags(t *testing.T) {
	e := world.Entity{ID: "npc-1", Kind: "npc", Tags: map[string]bool{"zealot": true, "legend": true}}
	row, err := NewEntityRow("run-1", e)
	if err != nil {
		t.Fatalf("NewEntityRow() error = %v", err)
	}
	if row.Tags != `["legend","zealot"]` {
		t.Fatalf("tags should be a sorted JSON list, got %s", row.Tags)
	}
	back, err := row.Entity()
	if err != nil {
		t.Fatalf("Entity() error = %v", err)
	}
	if !reflect.DeepEqual(back.Tags, e.Tags) {
		t.Fatalf("tags = %v, want %v", back.Tags, e.Tags)
	}
}
