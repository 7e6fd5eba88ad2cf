package systems

import (
	"worldloom/internal/sampling"
	"worldloom/internal/world"
)

// resourceFlow breaks trade between factions at war and opens trade
// between allies. Scarcity makes broken routes more likely.
type resourceFlow struct{}

func (resourceFlow) Name() string { return ResourceFlow }

func (resourceFlow) Apply(ctx *Context) world.ChangeSet {
	v := ctx.Vocab
	if v.Trade == "" {
		return world.ChangeSet{}
	}
	g := ctx.Graph
	breakChance := ctx.Tuning.Get("resource_flow.break_chance", 0.3) *
		ctx.Pressures.Scaled(map[string]float64{"scarcity": ctx.Tuning.Get("resource_flow.scarcity_factor", 0.5)})
	openChance := ctx.Tuning.Get("resource_flow.open_chance", 0.05)

	var cs world.ChangeSet
	broken := 0
	for _, r := range g.Relationships(world.RelationshipFilter{Kind: v.Trade}) {
		if v.War == "" || !atWar(g, v.War, r.Src, r.Dst) {
			continue
		}
		if sampling.Roll(ctx.Rand, breakChance) {
			cs.Dissolve = append(cs.Dissolve, r.Key())
			broken++
		}
	}

	opened := 0
	if v.Alliance != "" {
		seen := make(pairSet)
		for _, r := range g.Relationships(world.RelationshipFilter{Kind: v.Alliance}) {
			if !seen.add(r.Src, r.Dst) || tradeBetween(g, v.Trade, r.Src, r.Dst) {
				continue
			}
			if !liveIDs(g, r.Src, r.Dst) {
				continue
			}
			if sampling.Roll(ctx.Rand, openChance) {
				cs.Relationships = append(cs.Relationships, world.RelationshipDraft{
					Kind: v.Trade,
					Src:  world.Existing(r.Src),
					Dst:  world.Existing(r.Dst),
				})
				opened++
			}
		}
	}

	switch {
	case broken > 0 && opened > 0:
		cs.Description = summarize("trade route", broken) + " broken by war; " + summarize("trade route", opened) + " opened between allies"
	case broken > 0:
		cs.Description = summarize("trade route", broken) + " broken by war"
	case opened > 0:
		cs.Description = summarize("trade route", opened) + " opened between allies"
	}
	return cs
}

func atWar(g *world.Graph, war, a, b string) bool {
	return g.HasRelationship(a, b, war) || g.HasRelationship(b, a, war)
}

func tradeBetween(g *world.Graph, trade, a, b string) bool {
	return g.HasRelationship(a, b, trade) || g.HasRelationship(b, a, trade)
}

func liveIDs(g *world.Graph, ids ...string) bool {
	for _, id := range ids {
		e, ok := g.Entity(id)
		if !ok || g.IsHistorical(e) {
			return false
		}
	}
	return true
}
