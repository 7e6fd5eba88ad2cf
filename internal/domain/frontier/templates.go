package frontier

import (
	"fmt"

	"worldloom/internal/template"
	"worldloom/internal/world"
)

// rule adapts plain functions to template.Template.
type rule struct {
	id       string
	meta     template.Metadata
	canApply func(ctx *template.Context) bool
	targets  func(ctx *template.Context) []*world.Entity
	expand   func(ctx *template.Context, target *world.Entity) world.ChangeSet
}

func (r *rule) ID() string { return r.id }
func (r *rule) Metadata() template.Metadata { return r.meta }

func (r *rule) CanApply(ctx *template.Context) bool {
	if r.canApply == nil {
		return true
	}
	return r.canApply(ctx)
}

func (r *rule) FindTargets(ctx *template.Context) []*world.Entity {
	if r.targets == nil {
		return nil
	}
	return r.targets(ctx)
}

func (r *rule) Expand(ctx *template.Context, target *world.Entity) world.ChangeSet {
	return r.expand(ctx, target)
}

// Templates returns every frontier growth template.
func Templates() []template.Template {
	return []template.Template{
		colonyFounding(),
		settlerArrival(),
		factionFormation(),
		factionSplinter(),
		abilityDiscovery(),
		lawEnactment(),
		cultFormation(),
		heroEmergence(),
		guildConsolidation(),
	}
}

func colonyFounding() template.Template {
	return &rule{
		id: "colony_founding",
		meta: template.Metadata{
			Name:        "Colony founding",
			Description: "Settlers strike out and found a new settlement.",
			Trigger:     template.TriggerTick,
			Probability: 0.12,
			Produces: template.Produces{
				Entities:      []template.EntityShape{{Kind: kindLocation, Subtype: "settlement"}, {Kind: kindNPC, Subtype: "settler"}},
				Relationships: []string{relResident},
			},
		},
		canApply: func(ctx *template.Context) bool {
			return !ctx.Saturated(kindLocation, "settlement")
		},
		expand: func(ctx *template.Context, _ *world.Entity) world.ChangeSet {
			culture := randomCulture(ctx.Rand)
			place := placeName(ctx.Rand)
			founder := personName(ctx.Rand, culture)
			return world.ChangeSet{
				Entities: []world.EntityDraft{
					{Kind: kindLocation, Subtype: "settlement", Name: place, Culture: culture},
					{Kind: kindNPC, Subtype: "settler", Name: founder, Culture: culture, Prominence: world.Marginal},
				},
				Relationships: []world.RelationshipDraft{
					{Kind: relResident, Src: world.Placeholder(1), Dst: world.Placeholder(0), Strength: 0.8},
				},
				Description: fmt.Sprintf("%s founds %s", founder, place),
			}
		},
	}
}

func settlerArrival() template.Template {
	return &rule{
		id: "settler_arrival",
		meta: template.Metadata{
			Name:        "Settler arrival",
			Description: "A band of newcomers settles in an existing place.",
			Trigger:     template.TriggerTick,
			Probability: 0.5,
			Produces: template.Produces{
				Entities:      []template.EntityShape{{Kind: kindNPC, Subtype: "settler"}},
				Relationships: []string{relResident},
			},
			Parameters: []template.Parameter{
				{Name: "group_size", Description: "Most settlers arriving together.", Min: 1, Max: 6, Default: 3},
			},
		},
		canApply: func(ctx *template.Context) bool {
			return !ctx.Saturated(kindNPC, "")
		},
		targets: func(ctx *template.Context) []*world.Entity {
			return live(ctx.Graph, kindLocation, "settlement", "outpost")
		},
		expand: func(ctx *template.Context, target *world.Entity) world.ChangeSet {
			if target == nil {
				return template.NoOp("no settlement to receive settlers")
			}
			n := 1 + ctx.Rand.Intn(max(1, int(ctx.Param("group_size"))))
			cs := world.ChangeSet{Description: fmt.Sprintf("%d settlers arrive at %s", n, target.Name)}
			for i := 0; i < n; i++ {
				subtype := "settler"
				if ctx.Chance(0.25) {
					subtype = "merchant"
				}
				cs.Entities = append(cs.Entities, world.EntityDraft{
					Kind:    kindNPC,
					Subtype: subtype,
					Name:    personName(ctx.Rand, target.Culture),
					Culture: target.Culture,
				})
				cs.Relationships = append(cs.Relationships, world.RelationshipDraft{
					Kind: relResident, Src: world.Placeholder(i), Dst: world.Existing(target.ID), Strength: 0.6,
				})
			}
			if n == 1 {
				cs.Description = fmt.Sprintf("a settler arrives at %s", target.Name)
			}
			return cs
		},
	}
}

func factionFormation() template.Template {
	return &rule{
		id: "faction_formation",
		meta: template.Metadata{
			Name:        "Faction formation",
			Description: "Residents of a settlement band together under a leader.",
			Trigger:     template.TriggerTick,
			Probability: 0.15,
			Produces: template.Produces{
				Entities:      []template.EntityShape{{Kind: kindFaction}},
				Relationships: []string{relMember, relLeader, relHeadquarters},
			},
			Parameters: []template.Parameter{
				{Name: "min_residents", Description: "Residents a settlement needs before a faction forms.", Min: 2, Max: 20, Default: 4},
			},
		},
		canApply: func(ctx *template.Context) bool {
			return !ctx.Saturated(kindFaction, "")
		},
		targets: func(ctx *template.Context) []*world.Entity {
			var out []*world.Entity
			for _, loc := range live(ctx.Graph, kindLocation, "settlement") {
				if float64(len(incoming(ctx.Graph, loc.ID, relResident))) >= ctx.Param("min_residents") {
					out = append(out, loc)
				}
			}
			return out
		},
		expand: func(ctx *template.Context, target *world.Entity) world.ChangeSet {
			if target == nil {
				return template.NoOp("no settlement large enough for a faction")
			}
			var candidates []*world.Entity
			for _, npc := range incoming(ctx.Graph, target.ID, relResident) {
				if len(outgoing(ctx.Graph, npc.ID, relLeader)) == 0 {
					candidates = append(candidates, npc)
				}
			}
			founder := ctx.Pick(candidates)
			if founder == nil {
				return template.NoOp("every resident already leads a faction")
			}
			subtype := pick(ctx.Rand, []string{"guild", "company", "warband"})
			name := factionName(ctx.Rand, subtype, target.Name)
			cs := world.ChangeSet{
				Entities: []world.EntityDraft{{Kind: kindFaction, Subtype: subtype, Name: name, Culture: target.Culture}},
				Relationships: []world.RelationshipDraft{
					{Kind: relMember, Src: world.Existing(founder.ID), Dst: world.Placeholder(0), Strength: 0.9},
					{Kind: relLeader, Src: world.Existing(founder.ID), Dst: world.Placeholder(0), Strength: 1},
					{Kind: relHeadquarters, Src: world.Placeholder(0), Dst: world.Existing(target.ID), Strength: 0.8},
				},
				Fields: []world.FieldChange{
					{EntityID: founder.ID, Field: world.FieldProminence, Value: founder.Prominence.Raise().String()},
				},
				Description: fmt.Sprintf("%s forms %s in %s", founder.Name, name, target.Name),
			}
			if recruit := ctx.Pick(except(candidates, founder.ID)); recruit != nil {
				cs.Relationships = append(cs.Relationships, world.RelationshipDraft{
					Kind: relMember, Src: world.Existing(recruit.ID), Dst: world.Placeholder(0), Strength: 0.6,
				})
			}
			return cs
		},
	}
}

// factionSplinter breaks a faction with enough members in two. The new
// faction takes part of the membership and goes to war with its parent.
func factionSplinter() template.Template {
	return &rule{
		id: "faction_splinter",
		meta: template.Metadata{
			Name:        "Faction splinter",
			Description: "Dissenters break away from a large faction.",
			Trigger:     template.TriggerTick,
			Probability: 0.08,
			Produces: template.Produces{
				Entities:      []template.EntityShape{{Kind: kindFaction}},
				Relationships: []string{relSplinter, relWar, relMember, relLeader},
			},
			Parameters: []template.Parameter{
				{Name: "min_members", Description: "Members a faction needs before it can splinter.", Min: 2, Max: 50, Default: 3},
			},
		},
		canApply: func(ctx *template.Context) bool {
			return !ctx.Saturated(kindFaction, "") && len(splinterCandidates(ctx)) > 0
		},
		targets: splinterCandidates,
		expand: func(ctx *template.Context, target *world.Entity) world.ChangeSet {
			if target == nil {
				return template.NoOp("no faction large enough to splinter")
			}
			g := ctx.Graph
			var leaders []string
			for _, l := range incoming(g, target.ID, relLeader) {
				leaders = append(leaders, l.ID)
			}
			var movers []*world.Entity
			for _, m := range except(incoming(g, target.ID, relMember), leaders...) {
				if len(outgoing(g, m.ID, relLeader)) == 0 {
					movers = append(movers, m)
				}
			}
			if len(movers) == 0 {
				return template.NoOp(fmt.Sprintf("no dissenters in %s", target.Name))
			}
			take := max(1, len(movers)/2)
			ctx.Rand.Shuffle(len(movers), func(i, j int) { movers[i], movers[j] = movers[j], movers[i] })
			movers = movers[:take]

			name := factionName(ctx.Rand, target.Subtype, "")
			cs := world.ChangeSet{
				Entities: []world.EntityDraft{{Kind: kindFaction, Subtype: target.Subtype, Name: name, Culture: target.Culture}},
				Relationships: []world.RelationshipDraft{
					{Kind: relSplinter, Src: world.Placeholder(0), Dst: world.Existing(target.ID), Strength: 1},
					{Kind: relWar, Src: world.Placeholder(0), Dst: world.Existing(target.ID), Strength: 0.8},
					{Kind: relWar, Src: world.Existing(target.ID), Dst: world.Placeholder(0), Strength: 0.8},
					{Kind: relLeader, Src: world.Existing(movers[0].ID), Dst: world.Placeholder(0), Strength: 1},
				},
				Description: fmt.Sprintf("%s breaks from %s with %d followers", name, target.Name, len(movers)),
			}
			for _, m := range movers {
				cs.Dissolve = append(cs.Dissolve, world.RelationshipKey{Src: m.ID, Dst: target.ID, Kind: relMember})
				cs.Relationships = append(cs.Relationships, world.RelationshipDraft{
					Kind: relMember, Src: world.Existing(m.ID), Dst: world.Placeholder(0), Strength: 0.7,
				})
			}
			return cs
		},
	}
}

// splinterCandidates lists live factions with at least min_members members.
func splinterCandidates(ctx *template.Context) []*world.Entity {
	var out []*world.Entity
	for _, f := range live(ctx.Graph, kindFaction) {
		if float64(len(incoming(ctx.Graph, f.ID, relMember))) >= ctx.Param("min_members") {
			out = append(out, f)
		}
	}
	return out
}

func abilityDiscovery() template.Template {
	return &rule{
		id: "ability_discovery",
		meta: template.Metadata{
			Name:        "Ability discovery",
			Description: "A mage or hero uncovers a new ability.",
			Trigger:     template.TriggerTick,
			Probability: 0.06,
			Produces: template.Produces{
				Entities:      []template.EntityShape{{Kind: kindAbilities}},
				Relationships: []string{relDiscovered, relPractitioner},
			},
		},
		canApply: func(ctx *template.Context) bool {
			return !ctx.Saturated(kindAbilities, "")
		},
		targets: func(ctx *template.Context) []*world.Entity {
			return live(ctx.Graph, kindNPC, "mage", "hero")
		},
		expand: func(ctx *template.Context, target *world.Entity) world.ChangeSet {
			if target == nil {
				return template.NoOp("no one to make a discovery")
			}
			subtype := "craft"
			if target.Subtype == "mage" {
				subtype = pick(ctx.Rand, []string{"spell", "spell", "rite"})
			}
			name := abilityName(ctx.Rand, subtype)
			return world.ChangeSet{
				Entities: []world.EntityDraft{{Kind: kindAbilities, Subtype: subtype, Name: name, Culture: target.Culture}},
				Relationships: []world.RelationshipDraft{
					{Kind: relDiscovered, Src: world.Placeholder(0), Dst: world.Existing(target.ID), Strength: 1},
					{Kind: relPractitioner, Src: world.Existing(target.ID), Dst: world.Placeholder(0), Strength: 0.9},
				},
				Fields: []world.FieldChange{
					{EntityID: target.ID, Field: world.FieldProminence, Value: target.Prominence.Raise().String()},
				},
				Description: fmt.Sprintf("%s discovers the %s", target.Name, name),
			}
		},
	}
}

func lawEnactment() template.Template {
	return &rule{
		id: "law_enactment",
		meta: template.Metadata{
			Name:        "Law enactment",
			Description: "A led faction lays down a rule over its seat.",
			Trigger:     template.TriggerTick,
			Probability: 0.05,
			Produces: template.Produces{
				Entities:      []template.EntityShape{{Kind: kindRules}},
				Relationships: []string{relEnacted, relGoverns},
			},
		},
		canApply: func(ctx *template.Context) bool {
			return !ctx.Saturated(kindRules, "")
		},
		targets: func(ctx *template.Context) []*world.Entity {
			var out []*world.Entity
			for _, f := range live(ctx.Graph, kindFaction) {
				if len(incoming(ctx.Graph, f.ID, relLeader)) > 0 {
					out = append(out, f)
				}
			}
			return out
		},
		expand: func(ctx *template.Context, target *world.Entity) world.ChangeSet {
			if target == nil {
				return template.NoOp("no faction with a leader to make law")
			}
			subtype := "law"
			if target.Subtype == "crown" {
				subtype = "edict"
			} else if target.Subtype == "cult" {
				subtype = "custom"
			}
			name := lawName(ctx.Rand, subtype)
			cs := world.ChangeSet{
				Entities: []world.EntityDraft{{Kind: kindRules, Subtype: subtype, Name: name, Culture: target.Culture}},
				Relationships: []world.RelationshipDraft{
					{Kind: relEnacted, Src: world.Placeholder(0), Dst: world.Existing(target.ID), Strength: 1},
				},
				Description: fmt.Sprintf("%s enacts the %s", target.Name, name),
			}
			for _, seat := range outgoing(ctx.Graph, target.ID, relHeadquarters) {
				cs.Relationships = append(cs.Relationships, world.RelationshipDraft{
					Kind: relGoverns, Src: world.Placeholder(0), Dst: world.Existing(seat.ID), Strength: 0.8,
				})
			}
			return cs
		},
	}
}

func cultFormation() template.Template {
	return &rule{
		id: "cult_formation",
		meta: template.Metadata{
			Name:        "Cult formation",
			Description: "A mage gathers believers around a new cult.",
			Trigger:     template.TriggerTick,
			Probability: 0.04,
			Produces: template.Produces{
				Entities:      []template.EntityShape{{Kind: kindFaction, Subtype: "cult"}},
				Relationships: []string{relMember, relLeader, relFollower},
			},
		},
		canApply: func(ctx *template.Context) bool {
			return !ctx.Saturated(kindFaction, "cult")
		},
		targets: func(ctx *template.Context) []*world.Entity {
			var out []*world.Entity
			for _, mage := range live(ctx.Graph, kindNPC, "mage") {
				if len(outgoing(ctx.Graph, mage.ID, relLeader)) == 0 {
					out = append(out, mage)
				}
			}
			return out
		},
		expand: func(ctx *template.Context, target *world.Entity) world.ChangeSet {
			if target == nil {
				return template.NoOp("no free mage to found a cult")
			}
			name := factionName(ctx.Rand, "cult", "")
			cs := world.ChangeSet{
				Entities: []world.EntityDraft{{Kind: kindFaction, Subtype: "cult", Name: name, Culture: target.Culture}},
				Relationships: []world.RelationshipDraft{
					{Kind: relMember, Src: world.Existing(target.ID), Dst: world.Placeholder(0), Strength: 1},
					{Kind: relLeader, Src: world.Existing(target.ID), Dst: world.Placeholder(0), Strength: 1},
				},
				Description: fmt.Sprintf("%s gathers %s", target.Name, name),
			}
			followers := 0
			for _, home := range outgoing(ctx.Graph, target.ID, relResident) {
				for _, neighbor := range except(incoming(ctx.Graph, home.ID, relResident), target.ID) {
					if followers == 2 || len(outgoing(ctx.Graph, neighbor.ID, relFollower)) > 0 {
						continue
					}
					cs.Relationships = append(cs.Relationships, world.RelationshipDraft{
						Kind: relFollower, Src: world.Existing(neighbor.ID), Dst: world.Placeholder(0), Strength: 0.5,
					})
					followers++
				}
			}
			return cs
		},
	}
}

func heroEmergence() template.Template {
	return &rule{
		id: "hero_emergence",
		meta: template.Metadata{
			Name:        "Hero emergence",
			Description: "A hero rises in a settlement, drawn into any ongoing crisis.",
			Trigger:     template.TriggerTick,
			Probability: 0.05,
			Produces: template.Produces{
				Entities:      []template.EntityShape{{Kind: kindNPC, Subtype: "hero"}},
				Relationships: []string{relResident},
			},
		},
		canApply: func(ctx *template.Context) bool {
			return !ctx.Saturated(kindNPC, "hero")
		},
		targets: func(ctx *template.Context) []*world.Entity {
			return live(ctx.Graph, kindLocation, "settlement", "outpost")
		},
		expand: func(ctx *template.Context, target *world.Entity) world.ChangeSet {
			if target == nil {
				return template.NoOp("nowhere for a hero to rise")
			}
			name := personName(ctx.Rand, target.Culture)
			cs := world.ChangeSet{
				Entities: []world.EntityDraft{{
					Kind:       kindNPC,
					Subtype:    "hero",
					Name:       name,
					Culture:    target.Culture,
					Prominence: world.Recognized,
				}},
				Relationships: []world.RelationshipDraft{
					{Kind: relResident, Src: world.Placeholder(0), Dst: world.Existing(target.ID), Strength: 0.7},
				},
				Description: fmt.Sprintf("%s rises in %s", name, target.Name),
			}
			if crisis := ctx.Pick(live(ctx.Graph, kindOccurrence)); crisis != nil {
				cs.Relationships = append(cs.Relationships, world.RelationshipDraft{
					Kind: relParticipant, Src: world.Placeholder(0), Dst: world.Existing(crisis.ID), Strength: 0.8,
				})
				cs.Description = fmt.Sprintf("%s rises in %s during %s", name, target.Name, crisis.Name)
			}
			return cs
		},
	}
}

// guildConsolidation runs once per epoch and organizes unaffiliated
// merchants of a settlement into a guild.
func guildConsolidation() template.Template {
	return &rule{
		id: "guild_consolidation",
		meta: template.Metadata{
			Name:        "Guild consolidation",
			Description: "Independent merchants of one place charter a guild.",
			Trigger:     template.TriggerEpoch,
			Probability: 1,
			Produces: template.Produces{
				Entities:      []template.EntityShape{{Kind: kindFaction, Subtype: "guild"}},
				Relationships: []string{relMember, relLeader, relHeadquarters},
			},
			Parameters: []template.Parameter{
				{Name: "min_merchants", Description: "Unaffiliated merchants needed to charter a guild.", Min: 2, Max: 20, Default: 2},
			},
		},
		canApply: func(ctx *template.Context) bool {
			return !ctx.Saturated(kindFaction, "") && len(guildSites(ctx)) > 0
		},
		targets: guildSites,
		expand: func(ctx *template.Context, target *world.Entity) world.ChangeSet {
			if target == nil {
				return template.NoOp("no merchants to consolidate")
			}
			merchants := freeMerchants(ctx.Graph, target.ID)
			if len(merchants) == 0 {
				return template.NoOp(fmt.Sprintf("no free merchants in %s", target.Name))
			}
			name := factionName(ctx.Rand, "guild", target.Name)
			cs := world.ChangeSet{
				Entities: []world.EntityDraft{{Kind: kindFaction, Subtype: "guild", Name: name, Culture: target.Culture}},
				Relationships: []world.RelationshipDraft{
					{Kind: relHeadquarters, Src: world.Placeholder(0), Dst: world.Existing(target.ID), Strength: 0.9},
					{Kind: relLeader, Src: world.Existing(merchants[0].ID), Dst: world.Placeholder(0), Strength: 1},
				},
				Description: fmt.Sprintf("%d merchants of %s charter %s", len(merchants), target.Name, name),
			}
			for _, m := range merchants {
				cs.Relationships = append(cs.Relationships, world.RelationshipDraft{
					Kind: relMember, Src: world.Existing(m.ID), Dst: world.Placeholder(0), Strength: 0.8,
				})
			}
			return cs
		},
	}
}

// guildSites lists locations with enough free merchants to charter a guild.
func guildSites(ctx *template.Context) []*world.Entity {
	var out []*world.Entity
	for _, loc := range live(ctx.Graph, kindLocation) {
		if float64(len(freeMerchants(ctx.Graph, loc.ID))) >= ctx.Param("min_merchants") {
			out = append(out, loc)
		}
	}
	return out
}

// freeMerchants lists the resident merchants of loc who belong to no
// faction and lead none.
func freeMerchants(g *world.Graph, loc string) []*world.Entity {
	var out []*world.Entity
	for _, npc := range incoming(g, loc, relResident) {
		if npc.Subtype != "merchant" {
			continue
		}
		if len(outgoing(g, npc.ID, relMember)) > 0 || len(outgoing(g, npc.ID, relLeader)) > 0 {
			continue
		}
		out = append(out, npc)
	}
	return out
}
