package frontier

import (
	"worldloom/internal/pressure"
	"worldloom/internal/world"
)

const (
	pressureConflict    = "conflict"
	pressureScarcity    = "scarcity"
	pressureInstability = "magical_instability"
	pressureTension     = "cultural_tension"
)

// Pressures returns the four frontier pressures in update order.
func Pressures() []pressure.Pressure {
	return []pressure.Pressure{
		{
			ID:           pressureConflict,
			Name:         "Conflict",
			Value:        15,
			Decay:        6,
			RestingPoint: 10,
			Max:          100,
			Growth: func(g *world.Graph) float64 {
				wars := count(g, relWar)
				return 6*pressure.Ratio(wars, population(g, kindFaction)) +
					2*pressure.Ratio(float64(g.CountEntities(world.EntityFilter{Kind: kindNPC, Status: "exiled"})), population(g, kindNPC))
			},
			Contract: pressure.Contract{
				Sources: []string{relWar, "assassinate", "betray_ally"},
				Sinks:   []string{relAllied, "forge_alliance"},
				Affects: []pressure.Affect{
					{Target: "declare_war", Mode: pressure.Amplifies, Factor: 1},
					{Target: "assassinate", Mode: pressure.Enables, Threshold: 25},
					{Target: "faction_splinter", Mode: pressure.Amplifies, Threshold: 30, Factor: 1.5},
					{Target: "hero_emergence", Mode: pressure.Amplifies, Threshold: 40, Factor: 1},
				},
				Equilibrium: pressure.Equilibrium{ExpectedRange: [2]float64{10, 60}},
			},
			Occurrence: &pressure.Occurrence{
				Subtype:      "war",
				Threshold:    70,
				EndBelow:     35,
				InvolveKind:  kindFaction,
				InvolveCount: 3,
			},
		},
		{
			ID:           pressureScarcity,
			Name:         "Scarcity",
			Value:        20,
			Decay:        5,
			RestingPoint: 15,
			Max:          100,
			Growth: func(g *world.Graph) float64 {
				crowding := pressure.Ratio(population(g, kindNPC), 8*population(g, kindLocation))
				trade := pressure.Ratio(count(g, relTrade), population(g, kindFaction))
				return 3*crowding - 2*trade + pressure.Ratio(count(g, relEmbargo), 2)
			},
			Contract: pressure.Contract{
				Sources: []string{"settler_arrival", relEmbargo},
				Sinks:   []string{relTrade, "colony_founding"},
				Affects: []pressure.Affect{
					{Target: "establish_trade", Mode: pressure.Amplifies, Factor: 1},
					{Target: "impose_embargo", Mode: pressure.Amplifies, Threshold: 40, Factor: 0.5},
					{Target: "colony_founding", Mode: pressure.Amplifies, Threshold: 30, Factor: 1},
					{Target: "settler_arrival", Mode: pressure.Amplifies, Threshold: 60, Factor: -0.8},
				},
				Equilibrium: pressure.Equilibrium{ExpectedRange: [2]float64{10, 55}},
			},
			Occurrence: &pressure.Occurrence{
				Subtype:      "famine",
				Name:         "The Hungry Years",
				Threshold:    75,
				EndBelow:     40,
				InvolveKind:  kindLocation,
				InvolveCount: 3,
			},
		},
		{
			ID:           pressureInstability,
			Name:         "Magical Instability",
			Value:        5,
			Decay:        4,
			RestingPoint: 5,
			Max:          100,
			Growth: func(g *world.Graph) float64 {
				practice := pressure.Ratio(count(g, relPractitioner), population(g, kindNPC))
				return 4*practice + 0.5*pressure.Ratio(population(g, kindAbilities), 4)
			},
			Contract: pressure.Contract{
				Sources: []string{relPractitioner, "channel_power", "ability_discovery"},
				Affects: []pressure.Affect{
					{Target: "channel_power", Mode: pressure.Enables, Threshold: 10},
					{Target: "ability_discovery", Mode: pressure.Amplifies, Factor: 1},
					{Target: "cult_formation", Mode: pressure.Amplifies, Threshold: 30, Factor: 2},
				},
				Equilibrium: pressure.Equilibrium{ExpectedRange: [2]float64{5, 50}},
			},
			Occurrence: &pressure.Occurrence{
				Subtype:      "magical_storm",
				Name:         "The Wild Surge",
				Threshold:    80,
				EndBelow:     30,
				InvolveKind:  kindNPC,
				InvolveCount: 4,
			},
		},
		{
			ID:           pressureTension,
			Name:         "Cultural Tension",
			Value:        10,
			Decay:        5,
			RestingPoint: 10,
			Max:          100,
			Growth: func(g *world.Graph) float64 {
				rivals := pressure.Ratio(count(g, relRival), population(g, kindNPC))
				friends := pressure.Ratio(count(g, relFriend), population(g, kindNPC))
				return 5*rivals - friends + pressure.Ratio(population(g, kindFaction), 10)
			},
			Contract: pressure.Contract{
				Sources: []string{relRival, "start_feud"},
				Sinks:   []string{relFriend, "befriend", "law_enactment"},
				Affects: []pressure.Affect{
					{Target: "start_feud", Mode: pressure.Amplifies, Factor: 1},
					{Target: "cult_formation", Mode: pressure.Amplifies, Threshold: 40, Factor: 1},
					{Target: "law_enactment", Mode: pressure.Amplifies, Threshold: 30, Factor: 1},
				},
				Equilibrium: pressure.Equilibrium{ExpectedRange: [2]float64{5, 50}},
			},
			Occurrence: &pressure.Occurrence{
				Subtype:      "unrest",
				Name:         "The Long Unrest",
				Threshold:    70,
				EndBelow:     30,
				InvolveKind:  kindFaction,
				InvolveCount: 2,
			},
		},
	}
}
