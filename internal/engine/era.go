package engine

import (
	"fmt"

	"worldloom/internal/world"
)

func (s *Simulation) currentEra() Era {
	if s.era < 0 || s.era >= len(s.domain.Eras) {
		return Era{}
	}
	return s.domain.Eras[s.era]
}

func (s *Simulation) eraID() string {
	return s.currentEra().ID
}

// advanceEra opens the first era and moves to the next one when the
// current era's duration has elapsed. The last era runs to the end.
func (s *Simulation) advanceEra() {
	if len(s.domain.Eras) == 0 {
		return
	}
	if s.era < 0 {
		s.openEra(0)
		return
	}
	current := s.currentEra()
	if s.era+1 >= len(s.domain.Eras) || s.tick-s.eraStarted < current.Duration {
		return
	}
	s.openEra(s.era + 1)
}

func (s *Simulation) openEra(next int) {
	era := s.domain.Eras[next]
	kind, _ := s.domain.Schema.EntityKindByName(s.domain.EraKind)

	cs := world.ChangeSet{
		Entities: []world.EntityDraft{{
			Kind:        s.domain.EraKind,
			Subtype:     era.Subtype,
			Name:        era.Name,
			Description: fmt.Sprintf("The %s begins.", era.Name),
			Prominence:  world.Renowned,
		}},
		Description: fmt.Sprintf("%s begins", era.Name),
	}
	if s.eraEntity != "" {
		cs.Fields = append(cs.Fields, world.FieldChange{
			EntityID: s.eraEntity,
			Field:    world.FieldStatus,
			Value:    kind.HistoricalStatus(),
		})
		if s.domain.SuccessionKind != "" {
			cs.Relationships = append(cs.Relationships, world.RelationshipDraft{
				Kind:     s.domain.SuccessionKind,
				Src:      world.Existing(s.eraEntity),
				Dst:      world.Placeholder(0),
				Strength: 1,
			})
		}
	}

	committed, err := s.graph.Apply(cs, "")
	if err != nil {
		s.logger.Warn("era transition rejected", "era", era.ID, "tick", s.tick, "error", err)
		s.rec.CountCommit(string(SourceEra), false)
		return
	}
	s.rec.CountCommit(string(SourceEra), true)

	previous := s.eraID()
	s.era = next
	s.eraEntity = committed.EntityIDs[0]
	s.eraStarted = s.tick
	s.record(SourceEra, era.ID, cs.Description, committed)
	s.logger.Info("era started", "era", era.ID, "previous", previous, "tick", s.tick)
}
