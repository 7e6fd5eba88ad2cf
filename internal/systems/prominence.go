package systems

import (
	"worldloom/internal/sampling"
	"worldloom/internal/world"
)

// prominenceEvolution moves well-connected entities up the prominence
// scale and isolated ones down, one step at a time.
type prominenceEvolution struct{}

func (prominenceEvolution) Name() string { return ProminenceEvolution }

func (prominenceEvolution) Apply(ctx *Context) world.ChangeSet {
	g := ctx.Graph
	entities := g.Entities(world.EntityFilter{ExcludeHistorical: true})
	if len(entities) == 0 {
		return world.ChangeSet{}
	}

	total := 0
	degrees := make([]int, len(entities))
	for i, e := range entities {
		degrees[i] = g.Degree(e.ID)
		total += degrees[i]
	}
	mean := float64(total) / float64(len(entities))
	if mean == 0 {
		return world.ChangeSet{}
	}

	raiseRatio := ctx.Tuning.Get("prominence_evolution.raise_ratio", 2.0)
	lowerRatio := ctx.Tuning.Get("prominence_evolution.lower_ratio", 0.5)
	raiseChance := ctx.Tuning.Get("prominence_evolution.raise_chance", 0.1)
	lowerChance := ctx.Tuning.Get("prominence_evolution.lower_chance", 0.05)

	var cs world.ChangeSet
	for i, e := range entities {
		ratio := float64(degrees[i]) / mean
		next := e.Prominence
		switch {
		case ratio >= raiseRatio:
			if sampling.Roll(ctx.Rand, raiseChance) {
				next = e.Prominence.Raise()
			}
		case ratio <= lowerRatio:
			if sampling.Roll(ctx.Rand, lowerChance) {
				next = e.Prominence.Lower()
			}
		}
		if next != e.Prominence {
			cs.Fields = append(cs.Fields, world.FieldChange{EntityID: e.ID, Field: world.FieldProminence, Value: next.String()})
		}
	}
	if len(cs.Fields) > 0 {
		cs.Description = summarize("prominence shift", len(cs.Fields))
	}
	return cs
}
