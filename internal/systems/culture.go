package systems

import (
	"worldloom/internal/sampling"
	"worldloom/internal/world"
)

// culturalDrift pulls residents toward the majority culture of the place
// they live in. Cultural tension speeds the drift up.
type culturalDrift struct{}

func (culturalDrift) Name() string { return CulturalDrift }

func (culturalDrift) Apply(ctx *Context) world.ChangeSet {
	v := ctx.Vocab
	if v.Person == "" || v.Residence == "" {
		return world.ChangeSet{}
	}
	g := ctx.Graph
	chance := ctx.Tuning.Get("cultural_drift.chance", 0.05) *
		ctx.Pressures.Scaled(map[string]float64{"cultural_tension": ctx.Tuning.Get("cultural_drift.tension_factor", 0.5)})

	majority := make(map[string]string)
	var cs world.ChangeSet
	for _, person := range live(g, v.Person) {
		homes := liveNeighbors(g, person.ID, v.Residence, v.Location)
		if len(homes) == 0 {
			continue
		}
		home := homes[0]
		culture, ok := majority[home.ID]
		if !ok {
			culture = majorityCulture(g, home.ID, v)
			majority[home.ID] = culture
		}
		if culture == "" || culture == person.Culture {
			continue
		}
		if sampling.Roll(ctx.Rand, chance) {
			cs.Fields = append(cs.Fields, world.FieldChange{EntityID: person.ID, Field: world.FieldCulture, Value: culture})
		}
	}
	if len(cs.Fields) > 0 {
		cs.Description = summarize("cultural shift", len(cs.Fields))
	}
	return cs
}

// majorityCulture returns the most common culture among live residents of
// location. Ties go to the culture seen first.
func majorityCulture(g *world.Graph, location string, v Vocabulary) string {
	counts := make(map[string]int)
	var order []string
	for _, resident := range liveNeighbors(g, location, v.Residence, v.Person) {
		if resident.Culture == "" {
			continue
		}
		if counts[resident.Culture] == 0 {
			order = append(order, resident.Culture)
		}
		counts[resident.Culture]++
	}
	best := ""
	for _, c := range order {
		if best == "" || counts[c] > counts[best] {
			best = c
		}
	}
	return best
}
