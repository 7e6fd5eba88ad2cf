package store

import (
	"fmt"
	"strconv"
	"strings"
)

// Queries are built with ? placeholders; backends that number their
// parameters rebind them.

const EntityColumns = "run_id, id, kind, subtype, name, description, status, prominence, culture, tags, x, y, created_at, updated_at"

const RelationshipColumns = "run_id, kind, src, dst, strength, created_at, catalyzed_by, distance, archived_at"

const EventColumns = "run_id, seq, id, tick, era, event_type, significance, headline, subject, affected, catalyst, field, previous_value, current_value, relationship_kind, counterpart"

const RunColumns = "id, project, domain, seed, tick, epoch, era, entity_count, relationship_count, history_event_count, narrative_event_count, saved_at"

// Tables lists the run tables in dependency order.
var Tables = []string{"runs", "entities", "relationships", "narrative_events", "pressures"}

type where struct {
	clauses []string
	args    []any
}

func (w *where) add(clause string, args ...any) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func limit(n int) string {
	if n <= 0 {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d", n)
}

func ListRunsQuery() string {
	return "SELECT " + RunColumns + " FROM runs ORDER BY saved_at DESC, id"
}

func LatestRunQuery() string {
	return "SELECT id FROM runs ORDER BY saved_at DESC, id LIMIT 1"
}

func RunExistsQuery() string {
	return "SELECT COUNT(*) FROM runs WHERE id = ?"
}

func DeleteRunQueries() []string {
	queries := make([]string, 0, len(Tables))
	for i := len(Tables) - 1; i >= 1; i-- {
		queries = append(queries, "DELETE FROM "+Tables[i]+" WHERE run_id = ?")
	}
	return append(queries, "DELETE FROM runs WHERE id = ?")
}

// Inserts use the sqlx :column named form.

func InsertRunQuery() string {
	return named("runs", RunColumns)
}

func InsertEntityQuery() string {
	return named("entities", EntityColumns)
}

func InsertRelationshipQuery() string {
	return named("relationships", RelationshipColumns)
}

func InsertEventQuery() string {
	return named("narrative_events", EventColumns)
}

func InsertPressureQuery() string {
	return named("pressures", "run_id, id, value")
}

// Columns splits a column list for bulk copy.
func Columns(list string) []string {
	return strings.Split(list, ", ")
}

func named(table, columns string) string {
	cols := Columns(columns)
	params := make([]string, len(cols))
	for i, c := range cols {
		params[i] = ":" + c
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, columns, strings.Join(params, ", "))
}

func EntitiesQuery(runID string, f EntityFilter) (string, []any) {
	w := &where{}
	w.add("run_id = ?", runID)
	if f.Kind != "" {
		w.add("kind = ?", f.Kind)
	}
	if f.Subtype != "" {
		w.add("subtype = ?", f.Subtype)
	}
	if f.Status != "" {
		w.add("status = ?", f.Status)
	}
	if f.Culture != "" {
		w.add("culture = ?", f.Culture)
	}
	if f.MinProminence > 0 {
		w.add("prominence >= ?", int(f.MinProminence))
	}
	return "SELECT " + EntityColumns + " FROM entities" + w.String() + " ORDER BY created_at, id" + limit(f.Limit), w.args
}

func EntityQuery(runID, id string) (string, []any) {
	return "SELECT " + EntityColumns + " FROM entities WHERE run_id = ? AND id = ?", []any{runID, id}
}

func RelationshipsQuery(runID, id string, f RelationshipFilter) (string, []any, error) {
	w := &where{}
	w.add("run_id = ?", runID)
	switch f.Direction {
	case DirectionOut:
		w.add("src = ?", id)
	case DirectionIn:
		w.add("dst = ?", id)
	case DirectionBoth, "":
		w.add("(src = ? OR dst = ?)", id, id)
	default:
		return "", nil, fmt.Errorf("%w: %q", ErrBadDirection, f.Direction)
	}
	if f.Kind != "" {
		w.add("kind = ?", f.Kind)
	}
	if !f.IncludeHistorical {
		w.add("archived_at IS NULL")
	}
	return "SELECT " + RelationshipColumns + " FROM relationships" + w.String() + " ORDER BY created_at, kind, src, dst", w.args, nil
}

func EventsQuery(runID string, f EventFilter) (string, []any) {
	w := &where{}
	w.add("run_id = ?", runID)
	if f.Type != "" {
		w.add("event_type = ?", f.Type)
	}
	if f.Subject != "" {
		w.add("subject = ?", f.Subject)
	}
	if f.MinSignificance > 0 {
		w.add("significance >= ?", f.MinSignificance)
	}
	if f.FromTick > 0 {
		w.add("tick >= ?", f.FromTick)
	}
	if f.ToTick > 0 {
		w.add("tick <= ?", f.ToTick)
	}
	return "SELECT " + EventColumns + " FROM narrative_events" + w.String() + " ORDER BY seq" + limit(f.Limit), w.args
}

func PressuresQuery(runID string) (string, []any) {
	return "SELECT run_id, id, value FROM pressures WHERE run_id = ? ORDER BY id", []any{runID}
}

// PositionalArgs orders params keyed "1", "2", ... into an argument list.
// Numbering stops at the first gap.
func PositionalArgs(params map[string]any) []any {
	args := make([]any, 0, len(params))
	for i := 1; ; i++ {
		v, ok := params[strconv.Itoa(i)]
		if !ok {
			return args
		}
		args = append(args, v)
	}
}
