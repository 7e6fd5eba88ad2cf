package template

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"

	"worldloom/internal/config"
	"worldloom/internal/pressure"
	"worldloom/internal/sampling"
	"worldloom/internal/world"
)

var ErrInvalidTemplate = errors.New("invalid template")

type Options struct {
	Overshoot         float64
	PopulationTargets []config.PopulationTarget
	// Parameters overrides declared parameter defaults, keyed by template id.
	Parameters map[string]map[string]float64
}

// Env is the per-tick state the engine applies templates against.
type Env struct {
	Graph      *world.Graph
	Pressures  *pressure.System
	Rand       *rand.Rand
	Tick       int
	Era        string
	EraWeights map[string]float64
}

type Result struct {
	TemplateID  string
	Target      string
	Description string
	Committed   world.Committed
	Err         error
}

// Applied reports whether the attempt changed the graph.
func (r Result) Applied() bool {
	return r.Err == nil && (len(r.Committed.EntityIDs) > 0 || len(r.Committed.Relationships) > 0 ||
		len(r.Committed.Modified) > 0 || len(r.Committed.Archived) > 0)
}

type Engine struct {
	templates []Template
	params    map[string]map[string]float64
	placer    *Placer
	opts      Options
	logger    *slog.Logger
}

func NewEngine(templates []Template, placer *Placer, opts Options, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Overshoot < 1 {
		opts.Overshoot = config.DefaultOvershoot
	}
	e := &Engine{
		placer: placer,
		opts:   opts,
		logger: logger,
		params: make(map[string]map[string]float64),
	}
	seen := make(map[string]struct{})
	for _, t := range templates {
		id := t.ID()
		if strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("%w: empty id", ErrInvalidTemplate)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrInvalidTemplate, id)
		}
		seen[id] = struct{}{}

		params, err := resolveParams(t.Metadata(), opts.Parameters[id])
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", id, err)
		}
		e.params[id] = params
		e.templates = append(e.templates, t)
	}
	return e, nil
}

func resolveParams(meta Metadata, overrides map[string]float64) (map[string]float64, error) {
	out := make(map[string]float64, len(meta.Parameters))
	declared := make(map[string]Parameter, len(meta.Parameters))
	for _, p := range meta.Parameters {
		declared[p.Name] = p
		out[p.Name] = p.Default
	}
	for name, v := range overrides {
		p, ok := declared[name]
		if !ok {
			return nil, fmt.Errorf("%w: unknown parameter %s", ErrInvalidTemplate, name)
		}
		if v < p.Min || v > p.Max {
			return nil, fmt.Errorf("%w: parameter %s=%g outside [%g, %g]", ErrInvalidTemplate, name, v, p.Min, p.Max)
		}
		out[name] = v
	}
	return out, nil
}

func (e *Engine) Templates() []Template {
	return e.templates
}

// Context builds the view a template gets for one attempt.
func (e *Engine) Context(env Env, templateID string) *Context {
	return &Context{
		Graph:     env.Graph,
		Pressures: env.Pressures,
		Rand:      env.Rand,
		Tick:      env.Tick,
		Era:       env.Era,
		params:    e.params[templateID],
		targets:   e.opts.PopulationTargets,
		overshoot: e.opts.Overshoot,
	}
}

// Run attempts every template with the given trigger, in registration order.
func (e *Engine) Run(env Env, trigger Trigger) []Result {
	var results []Result
	for _, t := range e.templates {
		meta := t.Metadata()
		if meta.Trigger == "" {
			meta.Trigger = TriggerTick
		}
		if meta.Trigger != trigger {
			continue
		}
		if res, attempted := e.attempt(env, t, meta); attempted {
			results = append(results, res)
		}
	}
	return results
}

func (e *Engine) attempt(env Env, t Template, meta Metadata) (Result, bool) {
	id := t.ID()
	if !env.Pressures.Gate(id) {
		return Result{}, false
	}

	weight := 1.0
	if w, ok := env.EraWeights[id]; ok {
		weight = w
	}
	p := math.Min(1, meta.Probability*weight*env.Pressures.Amplifier(id))
	if !sampling.Roll(env.Rand, p) {
		return Result{}, false
	}

	ctx := e.Context(env, id)
	if !t.CanApply(ctx) {
		return Result{}, false
	}

	res := Result{TemplateID: id}
	target := e.chooseTarget(ctx, t)
	if target != nil {
		res.Target = target.ID
	}

	cs := t.Expand(ctx, target)
	res.Description = cs.Description
	if cs.Empty() {
		e.logger.Debug("template no-op", "template", id, "tick", env.Tick, "reason", cs.Description)
		return res, true
	}

	if e.placer != nil {
		e.placer.Place(env.Graph, env.Rand, &cs)
	}

	committed, err := env.Graph.Apply(cs, "")
	if err != nil {
		e.logger.Warn("template commit rejected", "template", id, "tick", env.Tick, "error", err)
		res.Err = err
		return res, true
	}
	res.Committed = committed
	e.checkProduces(env.Graph, id, meta.Produces, committed)
	return res, true
}

func (e *Engine) chooseTarget(ctx *Context, t Template) *world.Entity {
	targets := t.FindTargets(ctx)
	if len(targets) == 0 {
		return nil
	}
	w, ok := t.(Weighter)
	if !ok {
		return ctx.Pick(targets)
	}
	weights := make([]float64, len(targets))
	for i, target := range targets {
		weights[i] = w.Weight(ctx, target)
	}
	i := sampling.Weighted(ctx.Rand, weights)
	if i < 0 {
		return nil
	}
	return targets[i]
}

// checkProduces warns when a commit created kinds the template never declared.
func (e *Engine) checkProduces(g *world.Graph, id string, produces Produces, c world.Committed) {
	for _, eid := range c.EntityIDs {
		ent, ok := g.Entity(eid)
		if !ok {
			continue
		}
		declared := false
		for _, shape := range produces.Entities {
			if strings.EqualFold(shape.Kind, ent.Kind) && (shape.Subtype == "" || strings.EqualFold(shape.Subtype, ent.Subtype)) {
				declared = true
				break
			}
		}
		if !declared {
			e.logger.Warn("template produced undeclared entity", "template", id, "kind", ent.Kind, "subtype", ent.Subtype)
		}
	}
	for _, key := range c.Relationships {
		if containsFold(produces.Relationships, key.Kind) || e.isLineage(g, key) {
			continue
		}
		e.logger.Warn("template produced undeclared relationship", "template", id, "kind", key.Kind)
	}
}

func (e *Engine) isLineage(g *world.Graph, key world.RelationshipKey) bool {
	src, ok := g.Entity(key.Src)
	if !ok {
		return false
	}
	kind, ok := g.Schema().EntityKindByName(src.Kind)
	return ok && strings.EqualFold(kind.Lineage, key.Kind)
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}
