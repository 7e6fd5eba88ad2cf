package systems

import (
	"worldloom/internal/world"
)

// legendCrystallization turns renowned people who have passed into
// mythic legends.
type legendCrystallization struct{}

func (legendCrystallization) Name() string { return LegendCrystallization }

func (legendCrystallization) Apply(ctx *Context) world.ChangeSet {
	v := ctx.Vocab
	if v.Person == "" || v.LegendTag == "" {
		return world.ChangeSet{}
	}
	g := ctx.Graph
	threshold := world.Prominence(ctx.Tuning.Get("legend_crystallization.min_prominence", float64(world.Renowned)))
	if threshold < world.Forgotten || threshold > world.Mythic {
		threshold = world.Renowned
	}

	var cs world.ChangeSet
	n := 0
	for _, e := range g.Entities(world.EntityFilter{Kind: v.Person}) {
		if !g.IsHistorical(e) || e.HasTag(v.LegendTag) || e.Prominence < threshold {
			continue
		}
		cs.Fields = append(cs.Fields,
			world.FieldChange{EntityID: e.ID, Field: world.FieldTag, Value: v.LegendTag},
			world.FieldChange{EntityID: e.ID, Field: world.FieldProminence, Value: world.Mythic.String()},
		)
		n++
	}
	if n > 0 {
		cs.Description = summarize("legend", n) + " crystallized"
	}
	return cs
}
