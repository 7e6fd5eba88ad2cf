package frontier

import (
	"fmt"

	"worldloom/internal/catalyst"
	"worldloom/internal/world"
)

// ActionDomains returns the political, economic, magical and social
// action domains.
func ActionDomains() []catalyst.ActionDomain {
	return []catalyst.ActionDomain{
		{
			ID:                 "political",
			ValidActors:        []catalyst.ActorSpec{{Kind: kindFaction}},
			PressureAmplifiers: map[string]float64{pressureConflict: 0.5},
			Actions: []catalyst.ActionDefinition{
				{ID: "declare_war", Name: "Declare war", BaseWeight: 1, BaseSuccessChance: 0.4, Produces: []string{relWar}, Handler: declareWar},
				{ID: "forge_alliance", Name: "Forge alliance", BaseWeight: 1.2, BaseSuccessChance: 0.5, Produces: []string{relAllied}, Handler: forgeAlliance},
				{
					ID:                "betray_ally",
					Name:              "Betray ally",
					BaseWeight:        0.4,
					BaseSuccessChance: 0.35,
					Requirements:      catalyst.Requirements{Relationships: []string{relAllied}},
					Produces:          []string{relWar},
					Handler:           betrayAlly,
				},
				{
					ID:                "assassinate",
					Name:              "Assassinate",
					BaseWeight:        0.3,
					BaseSuccessChance: 0.25,
					Requirements:      catalyst.Requirements{MinProminence: world.Recognized, Relationships: []string{relWar}},
					Produces:          []string{relSlain},
					Handler:           assassinate,
				},
			},
		},
		{
			ID:                 "economic",
			ValidActors:        []catalyst.ActorSpec{{Kind: kindFaction, Subtypes: []string{"guild", "company", "crown"}}},
			PressureAmplifiers: map[string]float64{pressureScarcity: 0.5},
			Actions: []catalyst.ActionDefinition{
				{ID: "establish_trade", Name: "Establish trade", BaseWeight: 1.5, BaseSuccessChance: 0.6, Produces: []string{relTrade}, Handler: establishTrade},
				{
					ID:                "impose_embargo",
					Name:              "Impose embargo",
					BaseWeight:        0.5,
					BaseSuccessChance: 0.5,
					Requirements:      catalyst.Requirements{Relationships: []string{relTrade}},
					Produces:          []string{relEmbargo},
					Handler:           imposeEmbargo,
				},
			},
		},
		{
			ID:                 "magical",
			ValidActors:        []catalyst.ActorSpec{{Kind: kindNPC, Subtypes: []string{"mage", "hero"}}},
			PressureAmplifiers: map[string]float64{pressureInstability: 0.5},
			Actions: []catalyst.ActionDefinition{
				{
					ID:                "teach_ability",
					Name:              "Teach ability",
					BaseWeight:        1,
					BaseSuccessChance: 0.5,
					Requirements:      catalyst.Requirements{Relationships: []string{relPractitioner}},
					Produces:          []string{relPractitioner, relMentor},
					Handler:           teachAbility,
				},
				{
					ID:                "channel_power",
					Name:              "Channel power",
					BaseWeight:        0.6,
					BaseSuccessChance: 0.3,
					Requirements:      catalyst.Requirements{Relationships: []string{relPractitioner}},
					Handler:           channelPower,
				},
			},
		},
		{
			ID:                 "social",
			ValidActors:        []catalyst.ActorSpec{{Kind: kindNPC}},
			PressureAmplifiers: map[string]float64{pressureTension: 0.3},
			Actions: []catalyst.ActionDefinition{
				{ID: "befriend", Name: "Befriend", BaseWeight: 2, BaseSuccessChance: 0.6, Produces: []string{relFriend}, Handler: befriend},
				{ID: "start_feud", Name: "Start feud", BaseWeight: 0.6, BaseSuccessChance: 0.5, Produces: []string{relRival}, Handler: startFeud},
				{
					ID:                "take_apprentice",
					Name:              "Take apprentice",
					BaseWeight:        0.8,
					BaseSuccessChance: 0.5,
					Requirements:      catalyst.Requirements{MinProminence: world.Recognized},
					Produces:          []string{relMentor},
					Handler:           takeApprentice,
				},
			},
		},
	}
}

// rivalsOf returns the live factions other than the actor that are not
// joined to it by any of kinds.
func rivalsOf(ctx *catalyst.Context, kinds ...string) []*world.Entity {
	var out []*world.Entity
	for _, f := range live(ctx.Graph, kindFaction) {
		if f.ID == ctx.Actor.ID {
			continue
		}
		joined := false
		for _, k := range kinds {
			if ctx.Graph.HasRelationship(ctx.Actor.ID, f.ID, k) || ctx.Graph.HasRelationship(f.ID, ctx.Actor.ID, k) {
				joined = true
				break
			}
		}
		if !joined {
			out = append(out, f)
		}
	}
	return out
}

// both returns a relationship in each direction between a and b.
func both(kind, a, b string, strength float64) []world.RelationshipDraft {
	return []world.RelationshipDraft{
		{Kind: kind, Src: world.Existing(a), Dst: world.Existing(b), Strength: strength},
		{Kind: kind, Src: world.Existing(b), Dst: world.Existing(a), Strength: strength},
	}
}

// severed lists the active keys of kind between a and b, in either direction.
func severed(g *world.Graph, kind, a, b string) []world.RelationshipKey {
	var out []world.RelationshipKey
	for _, k := range []world.RelationshipKey{{Src: a, Dst: b, Kind: kind}, {Src: b, Dst: a, Kind: kind}} {
		if g.HasRelationship(k.Src, k.Dst, k.Kind) {
			out = append(out, k)
		}
	}
	return out
}

func declareWar(ctx *catalyst.Context) catalyst.Outcome {
	target := ctx.Pick(rivalsOf(ctx, relWar))
	if target == nil {
		return catalyst.Failed(fmt.Sprintf("%s finds no one to fight", ctx.Actor.Name))
	}
	if !ctx.Roll() {
		return catalyst.Failed(fmt.Sprintf("%s backs down from war with %s", ctx.Actor.Name, target.Name))
	}
	return catalyst.Outcome{
		Success:          true,
		Relationships:    both(relWar, ctx.Actor.ID, target.ID, 0.8),
		EntitiesModified: []string{target.ID},
		Description:      fmt.Sprintf("%s declares war on %s", ctx.Actor.Name, target.Name),
	}
}

func forgeAlliance(ctx *catalyst.Context) catalyst.Outcome {
	target := ctx.Pick(rivalsOf(ctx, relWar, relAllied))
	if target == nil {
		return catalyst.Failed(fmt.Sprintf("%s finds no partner for an alliance", ctx.Actor.Name))
	}
	if !ctx.Roll() {
		return catalyst.Failed(fmt.Sprintf("%s is rebuffed by %s", ctx.Actor.Name, target.Name))
	}
	return catalyst.Outcome{
		Success:          true,
		Relationships:    both(relAllied, ctx.Actor.ID, target.ID, 0.7),
		EntitiesModified: []string{target.ID},
		Description:      fmt.Sprintf("%s allies with %s", ctx.Actor.Name, target.Name),
	}
}

func betrayAlly(ctx *catalyst.Context) catalyst.Outcome {
	target := ctx.Pick(ctx.Counterparts(relAllied))
	if target == nil {
		return catalyst.Failed(fmt.Sprintf("%s has no ally to betray", ctx.Actor.Name))
	}
	if !ctx.Roll() {
		return catalyst.Failed(fmt.Sprintf("%s's plot against %s is uncovered", ctx.Actor.Name, target.Name))
	}
	return catalyst.Outcome{
		Success:          true,
		Dissolve:         severed(ctx.Graph, relAllied, ctx.Actor.ID, target.ID),
		Relationships:    both(relWar, ctx.Actor.ID, target.ID, 0.9),
		EntitiesModified: []string{target.ID},
		Description:      fmt.Sprintf("%s betrays %s", ctx.Actor.Name, target.Name),
	}
}

func assassinate(ctx *catalyst.Context) catalyst.Outcome {
	var marks []*world.Entity
	for _, enemy := range ctx.Counterparts(relWar) {
		marks = append(marks, incoming(ctx.Graph, enemy.ID, relLeader)...)
	}
	victim := ctx.Pick(marks)
	if victim == nil {
		return catalyst.Failed(fmt.Sprintf("%s finds no enemy leader within reach", ctx.Actor.Name))
	}
	if !ctx.Roll() {
		return catalyst.Failed(fmt.Sprintf("%s's assassins fail to reach %s", ctx.Actor.Name, victim.Name))
	}
	return catalyst.Outcome{
		Success: true,
		Relationships: []world.RelationshipDraft{
			{Kind: relSlain, Src: world.Existing(victim.ID), Dst: world.Existing(ctx.Actor.ID), Strength: 1},
		},
		Fields: []world.FieldChange{
			{EntityID: victim.ID, Field: world.FieldStatus, Value: "dead"},
		},
		Description: fmt.Sprintf("%s has %s assassinated", ctx.Actor.Name, victim.Name),
	}
}

func establishTrade(ctx *catalyst.Context) catalyst.Outcome {
	target := ctx.Pick(rivalsOf(ctx, relWar, relTrade, relEmbargo))
	if target == nil {
		return catalyst.Failed(fmt.Sprintf("%s finds no new market", ctx.Actor.Name))
	}
	if !ctx.Roll() {
		return catalyst.Failed(fmt.Sprintf("talks between %s and %s collapse", ctx.Actor.Name, target.Name))
	}
	return catalyst.Outcome{
		Success:          true,
		Relationships:    both(relTrade, ctx.Actor.ID, target.ID, 0.6),
		EntitiesModified: []string{target.ID},
		Description:      fmt.Sprintf("%s opens trade with %s", ctx.Actor.Name, target.Name),
	}
}

func imposeEmbargo(ctx *catalyst.Context) catalyst.Outcome {
	target := ctx.Pick(ctx.Counterparts(relTrade))
	if target == nil {
		return catalyst.Failed(fmt.Sprintf("%s has no partner to embargo", ctx.Actor.Name))
	}
	if !ctx.Roll() {
		return catalyst.Failed(fmt.Sprintf("%s's embargo on %s never takes hold", ctx.Actor.Name, target.Name))
	}
	return catalyst.Outcome{
		Success:  true,
		Dissolve: severed(ctx.Graph, relTrade, ctx.Actor.ID, target.ID),
		Relationships: []world.RelationshipDraft{
			{Kind: relEmbargo, Src: world.Existing(ctx.Actor.ID), Dst: world.Existing(target.ID), Strength: 0.7},
		},
		EntitiesModified: []string{target.ID},
		Description:      fmt.Sprintf("%s embargoes %s", ctx.Actor.Name, target.Name),
	}
}

func teachAbility(ctx *catalyst.Context) catalyst.Outcome {
	ability := ctx.Pick(outgoing(ctx.Graph, ctx.Actor.ID, relPractitioner))
	if ability == nil {
		return catalyst.Failed(fmt.Sprintf("%s has nothing to teach", ctx.Actor.Name))
	}
	var students []*world.Entity
	for _, home := range outgoing(ctx.Graph, ctx.Actor.ID, relResident) {
		for _, npc := range except(incoming(ctx.Graph, home.ID, relResident), ctx.Actor.ID) {
			if !ctx.Graph.HasRelationship(npc.ID, ability.ID, relPractitioner) {
				students = append(students, npc)
			}
		}
	}
	student := ctx.Pick(students)
	if student == nil {
		return catalyst.Failed(fmt.Sprintf("%s finds no student for the %s", ctx.Actor.Name, ability.Name))
	}
	if !ctx.Roll() {
		return catalyst.Failed(fmt.Sprintf("%s cannot grasp the %s", student.Name, ability.Name))
	}
	out := catalyst.Outcome{
		Success: true,
		Relationships: []world.RelationshipDraft{
			{Kind: relPractitioner, Src: world.Existing(student.ID), Dst: world.Existing(ability.ID), Strength: 0.5},
		},
		EntitiesModified: []string{student.ID},
		Description:      fmt.Sprintf("%s teaches %s the %s", ctx.Actor.Name, student.Name, ability.Name),
	}
	if len(outgoing(ctx.Graph, student.ID, relMentor)) == 0 {
		out.Relationships = append(out.Relationships, world.RelationshipDraft{
			Kind: relMentor, Src: world.Existing(student.ID), Dst: world.Existing(ctx.Actor.ID), Strength: 0.6,
		})
	}
	return out
}

func channelPower(ctx *catalyst.Context) catalyst.Outcome {
	if !ctx.Roll() {
		if ctx.Rand.Float64() < 0.2 {
			return catalyst.Outcome{
				Success:     true,
				Fields:      []world.FieldChange{{EntityID: ctx.Actor.ID, Field: world.FieldStatus, Value: "dead"}},
				Description: fmt.Sprintf("%s is consumed by the power they called", ctx.Actor.Name),
			}
		}
		return catalyst.Failed(fmt.Sprintf("%s's channeling fizzles", ctx.Actor.Name))
	}
	return catalyst.Outcome{
		Success:     true,
		Fields:      []world.FieldChange{{EntityID: ctx.Actor.ID, Field: world.FieldProminence, Value: ctx.Actor.Prominence.Raise().String()}},
		Description: fmt.Sprintf("%s channels raw power and grows in renown", ctx.Actor.Name),
	}
}

// acquaintances are the live npcs sharing a residence with the actor.
func acquaintances(ctx *catalyst.Context) []*world.Entity {
	var out []*world.Entity
	for _, home := range outgoing(ctx.Graph, ctx.Actor.ID, relResident) {
		out = append(out, except(incoming(ctx.Graph, home.ID, relResident), ctx.Actor.ID)...)
	}
	return out
}

func befriend(ctx *catalyst.Context) catalyst.Outcome {
	var candidates []*world.Entity
	for _, npc := range acquaintances(ctx) {
		if !ctx.Graph.HasRelationship(ctx.Actor.ID, npc.ID, relFriend) {
			candidates = append(candidates, npc)
		}
	}
	other := ctx.Pick(candidates)
	if other == nil {
		return catalyst.Failed(fmt.Sprintf("%s finds no one to befriend", ctx.Actor.Name))
	}
	if !ctx.Roll() {
		return catalyst.Failed(fmt.Sprintf("%s is snubbed by %s", ctx.Actor.Name, other.Name))
	}
	return catalyst.Outcome{
		Success: true,
		Relationships: []world.RelationshipDraft{
			{Kind: relFriend, Src: world.Existing(ctx.Actor.ID), Dst: world.Existing(other.ID), Strength: 0.5},
		},
		EntitiesModified: []string{other.ID},
		Description:      fmt.Sprintf("%s befriends %s", ctx.Actor.Name, other.Name),
	}
}

func startFeud(ctx *catalyst.Context) catalyst.Outcome {
	var candidates []*world.Entity
	for _, npc := range acquaintances(ctx) {
		if !ctx.Graph.HasRelationship(ctx.Actor.ID, npc.ID, relRival) {
			candidates = append(candidates, npc)
		}
	}
	other := ctx.Pick(candidates)
	if other == nil {
		return catalyst.Failed(fmt.Sprintf("%s has no one to quarrel with", ctx.Actor.Name))
	}
	if !ctx.Roll() {
		return catalyst.Failed(fmt.Sprintf("%s and %s settle their quarrel", ctx.Actor.Name, other.Name))
	}
	return catalyst.Outcome{
		Success: true,
		Relationships: []world.RelationshipDraft{
			{Kind: relRival, Src: world.Existing(ctx.Actor.ID), Dst: world.Existing(other.ID), Strength: 0.6},
		},
		EntitiesModified: []string{other.ID},
		Description:      fmt.Sprintf("%s starts a feud with %s", ctx.Actor.Name, other.Name),
	}
}

func takeApprentice(ctx *catalyst.Context) catalyst.Outcome {
	var candidates []*world.Entity
	for _, npc := range acquaintances(ctx) {
		if npc.Prominence < ctx.Actor.Prominence && len(outgoing(ctx.Graph, npc.ID, relMentor)) == 0 {
			candidates = append(candidates, npc)
		}
	}
	apprentice := ctx.Pick(candidates)
	if apprentice == nil {
		return catalyst.Failed(fmt.Sprintf("%s finds no worthy apprentice", ctx.Actor.Name))
	}
	if !ctx.Roll() {
		return catalyst.Failed(fmt.Sprintf("%s refuses to study under %s", apprentice.Name, ctx.Actor.Name))
	}
	return catalyst.Outcome{
		Success: true,
		Relationships: []world.RelationshipDraft{
			{Kind: relMentor, Src: world.Existing(apprentice.ID), Dst: world.Existing(ctx.Actor.ID), Strength: 0.7},
		},
		EntitiesModified: []string{apprentice.ID},
		Description:      fmt.Sprintf("%s takes %s as an apprentice", ctx.Actor.Name, apprentice.Name),
	}
}
