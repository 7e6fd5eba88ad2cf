package engine

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"worldloom/internal/narrative"
	"worldloom/internal/world"
)

type Metadata struct {
	RunID               string `json:"runId"`
	Project             string `json:"project,omitempty"`
	Domain              string `json:"domain"`
	Seed                int64  `json:"seed"`
	Tick                int    `json:"tick"`
	Epoch               int    `json:"epoch"`
	Era                 string `json:"era,omitempty"`
	EntityCount         int    `json:"entityCount"`
	RelationshipCount   int    `json:"relationshipCount"`
	HistoryEventCount   int    `json:"historyEventCount"`
	NarrativeEventCount int    `json:"narrativeEventCount"`
}

// Snapshot is the artifact of a run.
type Snapshot struct {
	Metadata        Metadata             `json:"metadata"`
	HardState       []world.Entity       `json:"hardState"`
	Relationships   []world.Relationship `json:"relationships"`
	Pressures       map[string]float64   `json:"pressures"`
	History         []HistoryEvent       `json:"history"`
	NarrativeEvents []narrative.Event    `json:"narrativeEvents"`
}

// Snapshot copies the current world state.
func (s *Simulation) Snapshot() *Snapshot {
	entities := s.graph.Entities(world.EntityFilter{})
	rels := s.graph.Relationships(world.RelationshipFilter{IncludeHistorical: true})

	snap := &Snapshot{
		Metadata: Metadata{
			RunID:               s.runID,
			Project:             s.opts.Project,
			Domain:              s.domain.Name,
			Seed:                s.opts.Seed,
			Tick:                s.tick,
			Epoch:               s.epoch(),
			Era:                 s.eraID(),
			EntityCount:         len(entities),
			RelationshipCount:   len(rels),
			HistoryEventCount:   len(s.history),
			NarrativeEventCount: len(s.events),
		},
		HardState:       make([]world.Entity, 0, len(entities)),
		Relationships:   make([]world.Relationship, 0, len(rels)),
		Pressures:       s.pressures.Values(),
		History:         append([]HistoryEvent{}, s.history...),
		NarrativeEvents: append([]narrative.Event{}, s.events...),
	}
	for _, e := range entities {
		cp := *e
		if e.Tags != nil {
			cp.Tags = make(map[string]bool, len(e.Tags))
			for k, v := range e.Tags {
				cp.Tags[k] = v
			}
		}
		snap.HardState = append(snap.HardState, cp)
	}
	for _, r := range rels {
		snap.Relationships = append(snap.Relationships, *r)
	}
	return snap
}

// WriteJSON encodes the snapshot with indentation.
func (snap *Snapshot) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return nil
}

// WriteFile writes the snapshot to path, creating parent directories.
func (snap *Snapshot) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := snap.WriteJSON(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadSnapshot decodes a snapshot written by WriteJSON.
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &snap, nil
}
