// Package systems holds the per-tick world dynamics that run between
// relationship reinforcement and culling. Each system reads the graph and
// returns a change set; the runner commits it.
package systems

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sort"

	"worldloom/internal/pressure"
	"worldloom/internal/world"
)

// Vocabulary names the kinds, relationship kinds and statuses of a domain
// that the systems work with. Empty names disable the parts that use them.
type Vocabulary struct {
	Person   string
	Faction  string
	Location string

	Residence  string
	Membership string
	Leadership string
	Practice   string
	Belief     string
	Friendship string
	Mentorship string
	Trade      string
	War        string
	Alliance   string

	LegendTag string
}

// Tuning holds named numeric knobs, keyed "<system>.<knob>".
type Tuning map[string]float64

// Get returns the tuned value for key, or def.
func (t Tuning) Get(key string, def float64) float64 {
	if v, ok := t[key]; ok {
		return v
	}
	return def
}

type Context struct {
	Graph     *world.Graph
	Pressures *pressure.System
	Rand      *rand.Rand
	Tick      int
	Era       string
	Vocab     Vocabulary
	Tuning    Tuning
}

// System is one named dynamics rule.
type System interface {
	Name() string
	Apply(ctx *Context) world.ChangeSet
}

const (
	ProminenceEvolution   = "prominence_evolution"
	CulturalDrift         = "cultural_drift"
	Contagion             = "contagion"
	BeliefContagion       = "belief_contagion"
	ResourceFlow          = "resource_flow"
	AllianceFormation     = "alliance_formation"
	LegendCrystallization = "legend_crystallization"
	SuccessionVacuum      = "succession_vacuum"
)

// DefaultOrder is used when the configuration lists no systems.
var DefaultOrder = []string{
	ProminenceEvolution,
	CulturalDrift,
	Contagion,
	BeliefContagion,
	ResourceFlow,
	AllianceFormation,
	LegendCrystallization,
	SuccessionVacuum,
}

// Builtin returns every system by name.
func Builtin() map[string]System {
	return map[string]System{
		ProminenceEvolution:   prominenceEvolution{},
		CulturalDrift:         culturalDrift{},
		Contagion:             contagion{},
		BeliefContagion:       beliefContagion{},
		ResourceFlow:          resourceFlow{},
		AllianceFormation:     allianceFormation{},
		LegendCrystallization: legendCrystallization{},
		SuccessionVacuum:      successionVacuum{},
	}
}

// Names returns the builtin system names in sorted order.
func Names() []string {
	names := make([]string, 0, len(DefaultOrder))
	for name := range Builtin() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Select resolves names against the builtin systems, keeping their order.
// Unknown names are returned separately.
func Select(names []string) ([]System, []string) {
	if len(names) == 0 {
		names = DefaultOrder
	}
	builtin := Builtin()
	var out []System
	var unknown []string
	for _, name := range names {
		s, ok := builtin[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		out = append(out, s)
	}
	return out, unknown
}

type Result struct {
	System      string
	Description string
	Committed   world.Committed
	Err         error
}

// Runner applies systems in a fixed order.
type Runner struct {
	systems []System
	logger  *slog.Logger
}

func NewRunner(systems []System, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{systems: systems, logger: logger}
}

func (r *Runner) Systems() []System {
	return r.systems
}

// Run applies each system and commits its change set on its own, so a
// rejected commit only loses that system's effect for the tick.
func (r *Runner) Run(ctx *Context) []Result {
	var results []Result
	for _, s := range r.systems {
		cs := r.apply(s, ctx)
		if cs.Empty() {
			continue
		}
		res := Result{System: s.Name(), Description: cs.Description}
		committed, err := ctx.Graph.Apply(cs, "")
		if err != nil {
			r.logger.Warn("system commit rejected", "system", s.Name(), "tick", ctx.Tick, "error", err)
			res.Err = err
		} else {
			res.Committed = committed
		}
		results = append(results, res)
	}
	return results
}

func (r *Runner) apply(s System, ctx *Context) (cs world.ChangeSet) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("system panicked", "system", s.Name(), "tick", ctx.Tick, "error", rec)
			cs = world.ChangeSet{}
		}
	}()
	return s.Apply(ctx)
}

// live returns the non-historical entities of kind.
func live(g *world.Graph, kind string) []*world.Entity {
	if kind == "" {
		return nil
	}
	return g.Entities(world.EntityFilter{Kind: kind, ExcludeHistorical: true})
}

// liveNeighbors returns the non-historical entities of kind linked to id by relKind.
func liveNeighbors(g *world.Graph, id, relKind, kind string) []*world.Entity {
	if relKind == "" {
		return nil
	}
	var out []*world.Entity
	for _, nid := range g.Neighbors(id, relKind) {
		e, ok := g.Entity(nid)
		if !ok || g.IsHistorical(e) || (kind != "" && e.Kind != kind) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// pairSet records unordered entity pairs already handled in one change set.
type pairSet map[[2]string]bool

func (p pairSet) add(a, b string) bool {
	if b < a {
		a, b = b, a
	}
	key := [2]string{a, b}
	if p[key] {
		return false
	}
	p[key] = true
	return true
}

func summarize(verb string, n int) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", verb)
	}
	return fmt.Sprintf("%d %ss", n, verb)
}
