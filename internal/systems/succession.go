package systems

import (
	"sort"

	"worldloom/internal/world"
)

// successionVacuum fills leaderless factions with their most prominent
// live member and retires the ties of fallen leaders.
type successionVacuum struct{}

func (successionVacuum) Name() string { return SuccessionVacuum }

func (successionVacuum) Apply(ctx *Context) world.ChangeSet {
	v := ctx.Vocab
	if v.Faction == "" || v.Person == "" || v.Membership == "" || v.Leadership == "" {
		return world.ChangeSet{}
	}
	g := ctx.Graph
	limit, limited := g.Schema().RelationshipLimit(v.Leadership)
	chosen := make(map[string]bool)

	var cs world.ChangeSet
	promoted := 0
	for _, f := range live(g, v.Faction) {
		var fallen []world.RelationshipKey
		hasLeader := false
		for _, r := range g.Relationships(world.RelationshipFilter{Kind: v.Leadership, Dst: f.ID}) {
			leader, ok := g.Entity(r.Src)
			if ok && !g.IsHistorical(leader) {
				hasLeader = true
				break
			}
			fallen = append(fallen, r.Key())
		}
		if hasLeader {
			continue
		}

		members := liveNeighbors(g, f.ID, v.Membership, v.Person)
		sort.SliceStable(members, func(i, j int) bool {
			return members[i].Prominence > members[j].Prominence
		})
		var heir *world.Entity
		for _, m := range members {
			if chosen[m.ID] {
				continue
			}
			if limited && len(g.Relationships(world.RelationshipFilter{Kind: v.Leadership, Src: m.ID})) >= limit {
				continue
			}
			heir = m
			break
		}
		if heir == nil {
			continue
		}
		chosen[heir.ID] = true
		cs.Dissolve = append(cs.Dissolve, fallen...)
		cs.Relationships = append(cs.Relationships, world.RelationshipDraft{
			Kind:     v.Leadership,
			Src:      world.Existing(heir.ID),
			Dst:      world.Existing(f.ID),
			Strength: 1,
		})
		promoted++
	}
	if promoted > 0 {
		cs.Description = summarize("leaderless faction", promoted) + " filled"
	}
	return cs
}
