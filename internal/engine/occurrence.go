package engine

import (
	"fmt"
	"sort"

	"worldloom/internal/world"
)

// occurrences opens an occurrence for every pressure over its threshold
// that has none running, and closes running ones once the pressure has
// dropped below its end mark.
func (s *Simulation) occurrences() {
	kind, ok := s.domain.Schema.EntityKindByName(s.domain.OccurrenceKind)
	if !ok {
		return
	}
	for _, p := range s.pressures.Pressures() {
		occ := p.Occurrence
		if occ == nil {
			continue
		}
		running := s.graph.Entities(world.EntityFilter{Kind: kind.Name, Subtype: occ.Subtype, ExcludeHistorical: true})
		if len(running) > 0 {
			if p.Value >= occ.EndBelow {
				continue
			}
			cs := world.ChangeSet{Description: fmt.Sprintf("%s ends as %s eases", running[0].Name, p.Name)}
			for _, e := range running {
				cs.Fields = append(cs.Fields, world.FieldChange{EntityID: e.ID, Field: world.FieldStatus, Value: kind.HistoricalStatus()})
			}
			s.commitOccurrence(p.ID, cs)
			continue
		}
		if p.Value < occ.Threshold {
			continue
		}

		name := occ.Name
		if name == "" {
			name = fmt.Sprintf("The %s of tick %d", occ.Subtype, s.tick)
		}
		cs := world.ChangeSet{
			Entities: []world.EntityDraft{{
				Kind:        kind.Name,
				Subtype:     occ.Subtype,
				Name:        name,
				Description: fmt.Sprintf("Sparked when %s reached %.0f.", p.Name, p.Value),
				Prominence:  world.Recognized,
			}},
			Description: fmt.Sprintf("%s breaks out", name),
		}
		if s.domain.ParticipationKind != "" {
			for _, id := range s.involved(occ.InvolveKind, occ.InvolveCount) {
				cs.Relationships = append(cs.Relationships, world.RelationshipDraft{
					Kind: s.domain.ParticipationKind,
					Src:  world.Existing(id),
					Dst:  world.Placeholder(0),
				})
			}
		}
		s.commitOccurrence(p.ID, cs)
	}
}

func (s *Simulation) commitOccurrence(pressureID string, cs world.ChangeSet) {
	committed, err := s.graph.Apply(cs, "")
	if err != nil {
		s.logger.Warn("occurrence commit rejected", "pressure", pressureID, "tick", s.tick, "error", err)
		s.rec.CountCommit(string(SourceOccurrence), false)
		return
	}
	s.rec.CountCommit(string(SourceOccurrence), true)
	s.record(SourceOccurrence, pressureID, cs.Description, committed)
}

// involved returns the n best connected live entities of kind.
func (s *Simulation) involved(kind string, n int) []string {
	if kind == "" || n <= 0 {
		return nil
	}
	candidates := s.graph.Entities(world.EntityFilter{Kind: kind, ExcludeHistorical: true})
	degree := make(map[string]int, len(candidates))
	for _, e := range candidates {
		degree[e.ID] = s.graph.Degree(e.ID)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return degree[candidates[i].ID] > degree[candidates[j].ID]
	})
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	ids := make([]string, len(candidates))
	for i, e := range candidates {
		ids[i] = e.ID
	}
	return ids
}
