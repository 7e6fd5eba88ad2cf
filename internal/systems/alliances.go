package systems

import (
	"worldloom/internal/sampling"
	"worldloom/internal/world"
)

// allianceFormation allies factions that share an enemy.
type allianceFormation struct{}

func (allianceFormation) Name() string { return AllianceFormation }

func (allianceFormation) Apply(ctx *Context) world.ChangeSet {
	v := ctx.Vocab
	if v.Faction == "" || v.War == "" || v.Alliance == "" {
		return world.ChangeSet{}
	}
	g := ctx.Graph
	chance := ctx.Tuning.Get("alliance_formation.chance", 0.1)

	factions := live(g, v.Faction)
	enemies := make(map[string]map[string]bool, len(factions))
	for _, f := range factions {
		set := make(map[string]bool)
		for _, e := range liveNeighbors(g, f.ID, v.War, v.Faction) {
			set[e.ID] = true
		}
		enemies[f.ID] = set
	}

	var cs world.ChangeSet
	for i, a := range factions {
		if len(enemies[a.ID]) == 0 {
			continue
		}
		for _, b := range factions[i+1:] {
			if !sharesEnemy(enemies[a.ID], enemies[b.ID]) {
				continue
			}
			if enemies[a.ID][b.ID] || g.HasRelationship(a.ID, b.ID, v.Alliance) || g.HasRelationship(b.ID, a.ID, v.Alliance) {
				continue
			}
			if sampling.Roll(ctx.Rand, chance) {
				cs.Relationships = append(cs.Relationships, world.RelationshipDraft{
					Kind: v.Alliance,
					Src:  world.Existing(a.ID),
					Dst:  world.Existing(b.ID),
				})
			}
		}
	}
	if len(cs.Relationships) > 0 {
		cs.Description = summarize("alliance against a common enemy", len(cs.Relationships))
	}
	return cs
}

func sharesEnemy(a, b map[string]bool) bool {
	for id := range a {
		if b[id] {
			return true
		}
	}
	return false
}
