package systems

import (
	"worldloom/internal/sampling"
	"worldloom/internal/world"
)

// contagion spreads ideological adherence along friendships.
type contagion struct{}

func (contagion) Name() string { return Contagion }

func (contagion) Apply(ctx *Context) world.ChangeSet {
	v := ctx.Vocab
	rate := ctx.Tuning.Get("contagion.rate", 0.05)
	cs := spread(ctx, v.Belief, []string{v.Friendship}, rate)
	if len(cs.Relationships) > 0 {
		cs.Description = summarize("conversion", len(cs.Relationships))
	}
	return cs
}

// beliefContagion spreads magical practice along mentorships and
// friendships. Magical instability speeds it up.
type beliefContagion struct{}

func (beliefContagion) Name() string { return BeliefContagion }

func (beliefContagion) Apply(ctx *Context) world.ChangeSet {
	v := ctx.Vocab
	rate := ctx.Tuning.Get("belief_contagion.rate", 0.03) *
		ctx.Pressures.Scaled(map[string]float64{"magical_instability": ctx.Tuning.Get("belief_contagion.instability_factor", 0.5)})
	cs := spread(ctx, v.Practice, []string{v.Mentorship, v.Friendship}, rate)
	if len(cs.Relationships) > 0 {
		cs.Description = summarize("new practitioner", len(cs.Relationships))
	}
	return cs
}

// spread copies adherence relationships of kind adherence from each live
// person to the live people they are tied to, with probability rate
// scaled by the tie's strength.
func spread(ctx *Context, adherence string, ties []string, rate float64) world.ChangeSet {
	v := ctx.Vocab
	if v.Person == "" || adherence == "" {
		return world.ChangeSet{}
	}
	g := ctx.Graph
	strength := ctx.Tuning.Get("contagion.initial_strength", 0.5)
	added := make(map[world.RelationshipKey]bool)
	pending := make(map[string]int)
	limit, limited := g.Schema().RelationshipLimit(adherence)

	var cs world.ChangeSet
	for _, carrier := range live(g, v.Person) {
		held := g.Relationships(world.RelationshipFilter{Kind: adherence, Src: carrier.ID})
		if len(held) == 0 {
			continue
		}
		for _, tie := range ties {
			if tie == "" {
				continue
			}
			for _, r := range g.Relationships(world.RelationshipFilter{Kind: tie, Entity: carrier.ID}) {
				other, ok := g.Entity(r.Other(carrier.ID))
				if !ok || g.IsHistorical(other) || other.Kind != v.Person {
					continue
				}
				for _, h := range held {
					if target, ok := g.Entity(h.Dst); !ok || g.IsHistorical(target) {
						continue
					}
					if limited && len(g.Relationships(world.RelationshipFilter{Kind: adherence, Src: other.ID}))+pending[other.ID] >= limit {
						continue
					}
					key := world.RelationshipKey{Src: other.ID, Dst: h.Dst, Kind: adherence}
					if added[key] || g.HasRelationship(other.ID, h.Dst, adherence) {
						continue
					}
					if !sampling.Roll(ctx.Rand, rate*r.Strength) {
						continue
					}
					added[key] = true
					pending[other.ID]++
					cs.Relationships = append(cs.Relationships, world.RelationshipDraft{
						Kind:     adherence,
						Src:      world.Existing(other.ID),
						Dst:      world.Existing(h.Dst),
						Strength: strength,
					})
				}
			}
		}
	}
	return cs
}
