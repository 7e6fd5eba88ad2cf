package engine

import (
	"worldloom/internal/world"
)

type Source string

const (
	SourceTemplate   Source = "template"
	SourceAction     Source = "action"
	SourceSystem     Source = "system"
	SourceEra        Source = "era"
	SourceOccurrence Source = "occurrence"
)

// HistoryEvent records one attempt that changed the graph, or an action
// that was tried and failed.
type HistoryEvent struct {
	Tick                 int      `json:"tick"`
	Era                  string   `json:"era,omitempty"`
	Source               Source   `json:"source"`
	SourceID             string   `json:"sourceId"`
	Actor                string   `json:"actor,omitempty"`
	Description          string   `json:"description"`
	Failed               bool     `json:"failed,omitempty"`
	EntitiesCreated      []string `json:"entitiesCreated,omitempty"`
	RelationshipsCreated []string `json:"relationshipsCreated,omitempty"`
	EntitiesModified     []string `json:"entitiesModified,omitempty"`
}

func (s *Simulation) record(source Source, sourceID, description string, c world.Committed) {
	ev := HistoryEvent{
		Tick:             s.tick,
		Era:              s.eraID(),
		Source:           source,
		SourceID:         sourceID,
		Description:      description,
		EntitiesCreated:  c.EntityIDs,
		EntitiesModified: c.Modified,
	}
	for _, key := range c.Relationships {
		ev.RelationshipsCreated = append(ev.RelationshipsCreated, key.String())
	}
	s.history = append(s.history, ev)
}
