package template

import (
	"math"
	"math/rand"
	"strings"

	opensimplex "github.com/ojrac/opensimplex-go"

	"worldloom/internal/sampling"
	"worldloom/internal/world"
)

const (
	// coordinateSpan is the side length of the semantic plane.
	coordinateSpan = 100.0
	// distanceScale converts a lineage distance into plane units.
	distanceScale  = 25.0
	noiseFrequency = 0.05
)

// Placer links new entities to an ancestor through their kind's lineage
// relationship and positions them in the semantic plane.
type Placer struct {
	noise opensimplex.Noise
}

func NewPlacer(seed int64) *Placer {
	return &Placer{noise: opensimplex.NewNormalized(seed)}
}

// Place adds missing lineage relationships and coordinates to cs. It
// reads the graph but never writes to it.
func (p *Placer) Place(g *world.Graph, r *rand.Rand, cs *world.ChangeSet) {
	schema := g.Schema()
	for i := range cs.Entities {
		draft := &cs.Entities[i]
		kind, ok := schema.EntityKindByName(draft.Kind)
		if !ok {
			continue
		}
		var ancestor *world.Coordinates
		if kind.Lineage != "" {
			lineage, _ := schema.RelationshipKindByName(kind.Lineage)
			ancestor = p.link(g, r, cs, i, kind.Name, lineage.Name, lineage.DistanceRange)
		}
		if draft.Coordinates != nil {
			continue
		}
		if ancestor == nil {
			draft.Coordinates = p.scatter(r)
			continue
		}
		draft.Coordinates = p.offset(*ancestor, p.distanceOf(cs, i, kind.Lineage))
	}
}

// link ensures entity i has a lineage relationship and returns the
// ancestor's coordinates when they are known.
func (p *Placer) link(g *world.Graph, r *rand.Rand, cs *world.ChangeSet, i int, kind, lineage string, span []float64) *world.Coordinates {
	for j := range cs.Relationships {
		rel := &cs.Relationships[j]
		if !strings.EqualFold(rel.Kind, lineage) || !rel.Src.IsPlaceholder() || rel.Src.Index() != i {
			continue
		}
		if rel.Distance == nil {
			d := sampling.Between(r, span[0], span[1])
			rel.Distance = &d
		} else {
			d := math.Min(span[1], math.Max(span[0], *rel.Distance))
			rel.Distance = &d
		}
		return p.coordinatesOf(g, cs, rel.Dst)
	}

	candidates := g.Entities(world.EntityFilter{Kind: kind, ExcludeHistorical: true})
	if len(candidates) == 0 {
		return nil
	}
	var same []*world.Entity
	for _, c := range candidates {
		if strings.EqualFold(c.Subtype, cs.Entities[i].Subtype) {
			same = append(same, c)
		}
	}
	if len(same) > 0 {
		candidates = same
	}
	ancestor := candidates[sampling.Index(r, len(candidates))]
	d := sampling.Between(r, span[0], span[1])
	cs.Relationships = append(cs.Relationships, world.RelationshipDraft{
		Kind:     lineage,
		Src:      world.Placeholder(i),
		Dst:      world.Existing(ancestor.ID),
		Strength: 1,
		Distance: &d,
	})
	c := ancestor.Coordinates
	return &c
}

func (p *Placer) coordinatesOf(g *world.Graph, cs *world.ChangeSet, ref world.Ref) *world.Coordinates {
	if ref.IsPlaceholder() {
		if ref.Index() < len(cs.Entities) && cs.Entities[ref.Index()].Coordinates != nil {
			c := *cs.Entities[ref.Index()].Coordinates
			return &c
		}
		return nil
	}
	e, ok := g.Entity(ref.ID())
	if !ok {
		return nil
	}
	c := e.Coordinates
	return &c
}

func (p *Placer) distanceOf(cs *world.ChangeSet, i int, lineage string) float64 {
	for _, rel := range cs.Relationships {
		if strings.EqualFold(rel.Kind, lineage) && rel.Src.IsPlaceholder() && rel.Src.Index() == i && rel.Distance != nil {
			return *rel.Distance
		}
	}
	return 0
}

// offset moves distance away from the ancestor along a noise-derived angle.
func (p *Placer) offset(from world.Coordinates, distance float64) *world.Coordinates {
	angle := p.noise.Eval2(from.X*noiseFrequency+distance*coordinateSpan, from.Y*noiseFrequency) * 2 * math.Pi
	return &world.Coordinates{
		X: clampPlane(from.X + math.Cos(angle)*distance*distanceScale),
		Y: clampPlane(from.Y + math.Sin(angle)*distance*distanceScale),
	}
}

func (p *Placer) scatter(r *rand.Rand) *world.Coordinates {
	u, v := r.Float64()*coordinateSpan, r.Float64()*coordinateSpan
	return &world.Coordinates{
		X: clampPlane(p.noise.Eval2(u*noiseFrequency, v*noiseFrequency) * coordinateSpan),
		Y: clampPlane(p.noise.Eval2(v*noiseFrequency, u*noiseFrequency) * coordinateSpan),
	}
}

func clampPlane(v float64) float64 {
	return math.Max(0, math.Min(coordinateSpan, v))
}
