package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"worldloom/internal/engine"
	"worldloom/internal/narrative"
	"worldloom/internal/world"
)

type Run struct {
	ID                  string    `db:"id" json:"id"`
	Project             string    `db:"project" json:"project,omitempty"`
	Domain              string    `db:"domain" json:"domain"`
	Seed                int64     `db:"seed" json:"seed"`
	Tick                int       `db:"tick" json:"tick"`
	Epoch               int       `db:"epoch" json:"epoch"`
	Era                 string    `db:"era" json:"era,omitempty"`
	EntityCount         int       `db:"entity_count" json:"entityCount"`
	RelationshipCount   int       `db:"relationship_count" json:"relationshipCount"`
	HistoryEventCount   int       `db:"history_event_count" json:"historyEventCount"`
	NarrativeEventCount int       `db:"narrative_event_count" json:"narrativeEventCount"`
	SavedAt             time.Time `db:"saved_at" json:"savedAt"`
}

type EntityFilter struct {
	Kind    string
	Subtype string
	Status  string
	Culture string
	// MinProminence keeps entities at or above this level.
	MinProminence world.Prominence
	Limit         int
}

type SearchResult struct {
	ID      string  `db:"id" json:"id"`
	Name    string  `db:"name" json:"name"`
	Kind    string  `db:"kind" json:"kind"`
	Subtype string  `db:"subtype" json:"subtype"`
	Score   float64 `db:"score" json:"score"`
	Snippet string  `db:"snippet" json:"snippet"`
}

type Direction string

const (
	DirectionOut  Direction = "out"
	DirectionIn   Direction = "in"
	DirectionBoth Direction = "both"
)

func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case "":
		return DirectionBoth, nil
	case DirectionOut, DirectionIn, DirectionBoth:
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", ErrBadDirection, s)
}

type RelationshipFilter struct {
	Kind              string
	Direction         Direction
	IncludeHistorical bool
}

type EventFilter struct {
	Type            string
	Subject         string
	MinSignificance float64
	FromTick        int
	// ToTick of zero means no upper bound.
	ToTick int
	Limit  int
}

// NewRun summarizes a snapshot for the runs table.
func NewRun(snap *engine.Snapshot, savedAt time.Time) Run {
	m := snap.Metadata
	return Run{
		ID:                  m.RunID,
		Project:             m.Project,
		Domain:              m.Domain,
		Seed:                m.Seed,
		Tick:                m.Tick,
		Epoch:               m.Epoch,
		Era:                 m.Era,
		EntityCount:         m.EntityCount,
		RelationshipCount:   m.RelationshipCount,
		HistoryEventCount:   m.HistoryEventCount,
		NarrativeEventCount: m.NarrativeEventCount,
		SavedAt:             savedAt.UTC(),
	}
}

// EntityRow is the column layout shared by the sql backends.
type EntityRow struct {
	RunID       string  `db:"run_id"`
	ID          string  `db:"id"`
	Kind        string  `db:"kind"`
	Subtype     string  `db:"subtype"`
	Name        string  `db:"name"`
	Description string  `db:"description"`
	Status      string  `db:"status"`
	Prominence  int     `db:"prominence"`
	Culture     string  `db:"culture"`
	Tags        string  `db:"tags"`
	X           float64 `db:"x"`
	Y           float64 `db:"y"`
	CreatedAt   int     `db:"created_at"`
	UpdatedAt   int     `db:"updated_at"`
}

func NewEntityRow(runID string, e world.Entity) (EntityRow, error) {
	tags := make([]string, 0, len(e.Tags))
	for tag, on := range e.Tags {
		if on {
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)
	raw, err := json.Marshal(tags)
	if err != nil {
		return EntityRow{}, fmt.Errorf("marshaling tags of %s: %w", e.ID, err)
	}
	return EntityRow{
		RunID:       runID,
		ID:          e.ID,
		Kind:        e.Kind,
		Subtype:     e.Subtype,
		Name:        e.Name,
		Description: e.Description,
		Status:      e.Status,
		Prominence:  int(e.Prominence),
		Culture:     e.Culture,
		Tags:        string(raw),
		X:           e.Coordinates.X,
		Y:           e.Coordinates.Y,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}, nil
}

func (r EntityRow) Entity() (world.Entity, error) {
	e := world.Entity{
		ID:          r.ID,
		Kind:        r.Kind,
		Subtype:     r.Subtype,
		Name:        r.Name,
		Description: r.Description,
		Status:      r.Status,
		Prominence:  world.Prominence(r.Prominence),
		Culture:     r.Culture,
		Coordinates: world.Coordinates{X: r.X, Y: r.Y},
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	var tags []string
	if r.Tags != "" {
		if err := json.Unmarshal([]byte(r.Tags), &tags); err != nil {
			return world.Entity{}, fmt.Errorf("unmarshaling tags of %s: %w", r.ID, err)
		}
	}
	if len(tags) > 0 {
		e.Tags = make(map[string]bool, len(tags))
		for _, tag := range tags {
			e.Tags[tag] = true
		}
	}
	return e, nil
}

type RelationshipRow struct {
	RunID       string   `db:"run_id"`
	Kind        string   `db:"kind"`
	Src         string   `db:"src"`
	Dst         string   `db:"dst"`
	Strength    float64  `db:"strength"`
	CreatedAt   int      `db:"created_at"`
	CatalyzedBy string   `db:"catalyzed_by"`
	Distance    *float64 `db:"distance"`
	ArchivedAt  *int     `db:"archived_at"`
}

func NewRelationshipRow(runID string, r world.Relationship) RelationshipRow {
	return RelationshipRow{
		RunID:       runID,
		Kind:        r.Kind,
		Src:         r.Src,
		Dst:         r.Dst,
		Strength:    r.Strength,
		CreatedAt:   r.CreatedAt,
		CatalyzedBy: r.CatalyzedBy,
		Distance:    r.Distance,
		ArchivedAt:  r.ArchivedAt,
	}
}

func (r RelationshipRow) Relationship() world.Relationship {
	return world.Relationship{
		Kind:        r.Kind,
		Src:         r.Src,
		Dst:         r.Dst,
		Strength:    r.Strength,
		CreatedAt:   r.CreatedAt,
		CatalyzedBy: r.CatalyzedBy,
		Distance:    r.Distance,
		ArchivedAt:  r.ArchivedAt,
	}
}

type EventRow struct {
	RunID            string  `db:"run_id"`
	Seq              int     `db:"seq"`
	ID               string  `db:"id"`
	Tick             int     `db:"tick"`
	Era              string  `db:"era"`
	Type             string  `db:"event_type"`
	Significance     float64 `db:"significance"`
	Headline         string  `db:"headline"`
	Subject          string  `db:"subject"`
	Affected         string  `db:"affected"`
	Catalyst         string  `db:"catalyst"`
	Field            string  `db:"field"`
	Previous         string  `db:"previous_value"`
	Current          string  `db:"current_value"`
	RelationshipKind string  `db:"relationship_kind"`
	Counterpart      string  `db:"counterpart"`
}

func NewEventRow(runID string, seq int, ev narrative.Event) (EventRow, error) {
	affected := ev.Affected
	if affected == nil {
		affected = []string{}
	}
	raw, err := json.Marshal(affected)
	if err != nil {
		return EventRow{}, fmt.Errorf("marshaling affected of %s: %w", ev.ID, err)
	}
	return EventRow{
		RunID:            runID,
		Seq:              seq,
		ID:               ev.ID,
		Tick:             ev.Tick,
		Era:              ev.Era,
		Type:             string(ev.Type),
		Significance:     ev.Significance,
		Headline:         ev.Headline,
		Subject:          ev.Subject,
		Affected:         string(raw),
		Catalyst:         ev.Catalyst,
		Field:            ev.Field,
		Previous:         ev.Previous,
		Current:          ev.Current,
		RelationshipKind: ev.RelationshipKind,
		Counterpart:      ev.Counterpart,
	}, nil
}

func (r EventRow) Event() (narrative.Event, error) {
	ev := narrative.Event{
		ID:               r.ID,
		Tick:             r.Tick,
		Era:              r.Era,
		Type:             narrative.EventType(r.Type),
		Significance:     r.Significance,
		Headline:         r.Headline,
		Subject:          r.Subject,
		Catalyst:         r.Catalyst,
		Field:            r.Field,
		Previous:         r.Previous,
		Current:          r.Current,
		RelationshipKind: r.RelationshipKind,
		Counterpart:      r.Counterpart,
	}
	if r.Affected != "" {
		if err := json.Unmarshal([]byte(r.Affected), &ev.Affected); err != nil {
			return narrative.Event{}, fmt.Errorf("unmarshaling affected of %s: %w", r.ID, err)
		}
	}
	if len(ev.Affected) == 0 {
		ev.Affected = nil
	}
	return ev, nil
}

type PressureRow struct {
	RunID string  `db:"run_id"`
	ID    string  `db:"id"`
	Value float64 `db:"value"`
}

// Rows flattens a snapshot into table rows in snapshot order.
func Rows(snap *engine.Snapshot) ([]EntityRow, []RelationshipRow, []EventRow, []PressureRow, error) {
	runID := snap.Metadata.RunID
	entities := make([]EntityRow, 0, len(snap.HardState))
	for _, e := range snap.HardState {
		row, err := NewEntityRow(runID, e)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		entities = append(entities, row)
	}
	rels := make([]RelationshipRow, 0, len(snap.Relationships))
	for _, r := range snap.Relationships {
		rels = append(rels, NewRelationshipRow(runID, r))
	}
	events := make([]EventRow, 0, len(snap.NarrativeEvents))
	for i, ev := range snap.NarrativeEvents {
		row, err := NewEventRow(runID, i, ev)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		events = append(events, row)
	}
	ids := make([]string, 0, len(snap.Pressures))
	for id := range snap.Pressures {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	pressures := make([]PressureRow, 0, len(ids))
	for _, id := range ids {
		pressures = append(pressures, PressureRow{RunID: runID, ID: id, Value: snap.Pressures[id]})
	}
	return entities, rels, events, pressures, nil
}
