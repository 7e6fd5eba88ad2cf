// Package storetest holds a small hand-built run for store and tool tests.
package storetest

import (
	"worldloom/internal/engine"
	"worldloom/internal/narrative"
	"worldloom/internal/world"
)

const (
	Ysolde    = "npc-1"
	SaltCrown = "faction-1"
	Saltmere  = "location-1"
)

// Snapshot returns a three-entity run stored under runID.
func Snapshot(runID string) *engine.Snapshot {
	distance := 0.3
	archived := 5
	return &engine.Snapshot{
		Metadata: engine.Metadata{
			RunID:               runID,
			Project:             "saltmere",
			Domain:              "frontier",
			Seed:                7,
			Tick:                10,
			Epoch:               1,
			Era:                 "age_of_expansion",
			EntityCount:         3,
			RelationshipCount:   3,
			HistoryEventCount:   4,
			NarrativeEventCount: 2,
		},
		HardState: []world.Entity{
			{
				ID:          Ysolde,
				Kind:        "npc",
				Subtype:     "leader",
				Name:        "Ysolde",
				Description: "Founder of the salt trade",
				Status:      "alive",
				Prominence:  world.Renowned,
				Culture:     "coastal",
				Tags:        map[string]bool{"legend": true},
				Coordinates: world.Coordinates{X: 1.5, Y: -2},
				CreatedAt:   1,
				UpdatedAt:   8,
			},
			{
				ID:         SaltCrown,
				Kind:       "faction",
				Subtype:    "crown",
				Name:       "The Salt Crown",
				Status:     "active",
				Prominence: world.Recognized,
				Culture:    "coastal",
				CreatedAt:  2,
				UpdatedAt:  2,
			},
			{
				ID:         Saltmere,
				Kind:       "location",
				Subtype:    "settlement",
				Name:       "Saltmere",
				Status:     "thriving",
				Prominence: world.Marginal,
				CreatedAt:  1,
				UpdatedAt:  1,
			},
		},
		Relationships: []world.Relationship{
			{Kind: "member_of", Src: Ysolde, Dst: SaltCrown, Strength: 0.9, CreatedAt: 2},
			{Kind: "resident_of", Src: Ysolde, Dst: Saltmere, Strength: 0.8, CreatedAt: 1, Distance: &distance},
			{Kind: "headquartered_in", Src: SaltCrown, Dst: Saltmere, Strength: 0.7, CreatedAt: 2, CatalyzedBy: Ysolde, ArchivedAt: &archived},
		},
		Pressures: map[string]float64{"conflict": 12.5, "scarcity": 40},
		NarrativeEvents: []narrative.Event{
			{
				ID:           "event-1",
				Tick:         2,
				Era:          "age_of_expansion",
				Type:         narrative.Coalescence,
				Significance: 0.55,
				Headline:     "The Salt Crown gathers at Saltmere",
				Subject:      SaltCrown,
				Affected:     []string{Ysolde, Saltmere},
			},
			{
				ID:           "event-2",
				Tick:         8,
				Era:          "age_of_expansion",
				Type:         narrative.StateChange,
				Significance: 0.35,
				Headline:     "Ysolde becomes renowned",
				Subject:      Ysolde,
				Field:        "prominence",
				Previous:     "recognized",
				Current:      "renowned",
			},
		},
	}
}
