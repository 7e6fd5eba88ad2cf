package lifecycle

import (
	"fmt"
	"log/slog"
	"math"

	"worldloom/internal/config"
	"worldloom/internal/world"
)

// Condition names the predicate under which a category reinforces.
type Condition string

const (
	Never              Condition = ""
	SharedLocation     Condition = "shared_location"
	SharedFaction      Condition = "shared_faction"
	ActivePractitioner Condition = "active_practitioner"
	Mutual             Condition = "mutual"
)

func ParseCondition(s string) (Condition, error) {
	switch c := Condition(s); c {
	case Never, SharedLocation, SharedFaction, ActivePractitioner, Mutual:
		return c, nil
	}
	return Never, fmt.Errorf("unknown reinforcement condition: %q", s)
}

type Policy struct {
	Category           string
	ApplyDecay         bool
	ApplyReinforcement bool
	ApplyCulling       bool
	DecayRate          float64
	ReinforceRate      float64
	ReinforceWhen      Condition
	CullFloor          float64
}

// DefaultPolicies returns the built-in policy of every category.
func DefaultPolicies() map[string]Policy {
	return map[string]Policy{
		config.CategoryImmutableFact: {Category: config.CategoryImmutableFact},
		config.CategoryAttribution:   {Category: config.CategoryAttribution},
		config.CategoryTemporal:      {Category: config.CategoryTemporal},
		config.CategoryStructural: {
			Category:  config.CategoryStructural, ApplyDecay: true, ApplyReinforcement: true,
			DecayRate: 0.002, ReinforceRate: 0.01, ReinforceWhen: SharedLocation,
		},
		config.CategoryMagical: {
			Category:  config.CategoryMagical, ApplyDecay: true, ApplyReinforcement: true,
			DecayRate: 0.004, ReinforceRate: 0.02, ReinforceWhen: ActivePractitioner,
		},
		config.CategoryIdeological: {
			Category:  config.CategoryIdeological, ApplyDecay: true, ApplyReinforcement: true,
			DecayRate: 0.003, ReinforceRate: 0.015, ReinforceWhen: SharedFaction,
		},
		config.CategoryPolitical: {
			Category:  config.CategoryPolitical, ApplyDecay: true, ApplyReinforcement: true, ApplyCulling: true,
			DecayRate: 0.01, ReinforceRate: 0.02, ReinforceWhen: SharedFaction, CullFloor: 0.05,
		},
		config.CategoryEconomic: {
			Category:  config.CategoryEconomic, ApplyDecay: true, ApplyReinforcement: true, ApplyCulling: true,
			DecayRate: 0.01, ReinforceRate: 0.02, ReinforceWhen: SharedLocation, CullFloor: 0.05,
		},
		config.CategorySocial: {
			Category:  config.CategorySocial, ApplyDecay: true, ApplyReinforcement: true, ApplyCulling: true,
			DecayRate: 0.005, ReinforceRate: 0.03, ReinforceWhen: Mutual, CullFloor: 0.05,
		},
	}
}

// Links names the relationship kinds the reinforcement predicates follow.
type Links struct {
	Residence  []string
	Membership []string
	Practice   []string
}

// Manager applies decay, reinforcement and culling by category.
type Manager struct {
	schema   *config.Schema
	policies map[string]Policy
	links    Links
	logger   *slog.Logger
}

func New(schema *config.Schema, links Links, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	policies := DefaultPolicies()
	for _, override := range schema.Categories {
		p := policies[override.Name]
		if override.DecayRate != nil {
			p.DecayRate = *override.DecayRate
		}
		if override.ReinforceRate != nil {
			p.ReinforceRate = *override.ReinforceRate
		}
		if override.ReinforceWhen != "" {
			cond, err := ParseCondition(override.ReinforceWhen)
			if err != nil {
				return nil, fmt.Errorf("category %s: %w", override.Name, err)
			}
			p.ReinforceWhen = cond
		}
		if override.CullFloor != nil {
			p.CullFloor = *override.CullFloor
		}
		policies[override.Name] = p
	}
	return &Manager{schema: schema, policies: policies, links: links, logger: logger}, nil
}

func (m *Manager) Policy(category string) (Policy, bool) {
	p, ok := m.policies[category]
	return p, ok
}

func (m *Manager) policyFor(kind string) (Policy, *config.RelationshipKind, bool) {
	rk, ok := m.schema.RelationshipKindByName(kind)
	if !ok {
		return Policy{}, nil, false
	}
	p, ok := m.policies[rk.Category]
	return p, rk, ok
}

// Cullable reports whether relationships of kind may ever be culled.
func (m *Manager) Cullable(kind string) bool {
	p, rk, ok := m.policyFor(kind)
	return ok && p.ApplyCulling && !rk.Protected && !rk.Structural
}

// Decay lowers the strength of every decaying relationship and returns
// how many changed.
func (m *Manager) Decay(g *world.Graph) int {
	changed := 0
	for _, r := range g.Relationships(world.RelationshipFilter{}) {
		p, _, ok := m.policyFor(r.Kind)
		if !ok || !p.ApplyDecay || p.DecayRate <= 0 || r.Strength <= 0 {
			continue
		}
		if err := g.SetStrength(r.Key(), r.Strength-p.DecayRate); err == nil {
			changed++
		}
	}
	return changed
}

// Reinforce raises the strength of relationships whose condition holds.
func (m *Manager) Reinforce(g *world.Graph) int {
	changed := 0
	for _, r := range g.Relationships(world.RelationshipFilter{}) {
		p, _, ok := m.policyFor(r.Kind)
		if !ok || !p.ApplyReinforcement || p.ReinforceRate <= 0 || r.Strength >= 1 {
			continue
		}
		if !m.holds(g, p.ReinforceWhen, r) {
			continue
		}
		if err := g.SetStrength(r.Key(), math.Min(1, r.Strength+p.ReinforceRate)); err == nil {
			changed++
		}
	}
	return changed
}

// Cull archives relationships at or below their category floor. Protected
// and structural kinds are never culled.
func (m *Manager) Cull(g *world.Graph) []world.RelationshipKey {
	var culled []world.RelationshipKey
	for _, r := range g.Relationships(world.RelationshipFilter{}) {
		if !m.Cullable(r.Kind) {
			continue
		}
		p, _, _ := m.policyFor(r.Kind)
		if r.Strength > p.CullFloor {
			continue
		}
		key := r.Key()
		if err := g.ArchiveRelationship(key); err != nil {
			m.logger.Warn("cull failed", "relationship", key.String(), "error", err)
			continue
		}
		culled = append(culled, key)
	}
	return culled
}

func (m *Manager) holds(g *world.Graph, cond Condition, r *world.Relationship) bool {
	switch cond {
	case SharedLocation:
		return intersects(m.reach(g, r.Src, m.links.Residence), m.reach(g, r.Dst, m.links.Residence))
	case SharedFaction:
		return intersects(m.reach(g, r.Src, m.links.Membership), m.reach(g, r.Dst, m.links.Membership))
	case ActivePractitioner:
		src, okSrc := g.Entity(r.Src)
		dst, okDst := g.Entity(r.Dst)
		if !okSrc || !okDst || g.IsHistorical(src) || g.IsHistorical(dst) {
			return false
		}
		return len(m.reach(g, r.Src, m.links.Practice)) > 0 || len(m.reach(g, r.Dst, m.links.Practice)) > 0
	case Mutual:
		return g.HasRelationship(r.Dst, r.Src, r.Kind)
	}
	return false
}

// reach returns everything linked to id by kinds, excluding id itself.
// A link whose endpoint is the location or faction does not share it with
// itself, so the shared conditions require a third entity.
func (m *Manager) reach(g *world.Graph, id string, kinds []string) map[string]bool {
	out := map[string]bool{}
	for _, kind := range kinds {
		for _, n := range g.Neighbors(id, kind) {
			if n != id {
				out[n] = true
			}
		}
	}
	return out
}

func intersects(a, b map[string]bool) bool {
	for k := range a {
		if b[k] {
			return true
		}
	}
	return false
}
