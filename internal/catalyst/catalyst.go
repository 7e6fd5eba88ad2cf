package catalyst

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"

	"worldloom/internal/pressure"
	"worldloom/internal/sampling"
	"worldloom/internal/world"
)

var ErrInvalidAction = errors.New("invalid action")

type ActorSpec struct {
	Kind     string
	Subtypes []string
}

func (a ActorSpec) matches(e *world.Entity) bool {
	if !strings.EqualFold(a.Kind, e.Kind) {
		return false
	}
	if len(a.Subtypes) == 0 {
		return true
	}
	for _, s := range a.Subtypes {
		if strings.EqualFold(s, e.Subtype) {
			return true
		}
	}
	return false
}

type Requirements struct {
	MinProminence world.Prominence
	// Relationships lists kinds the actor must hold in either direction.
	Relationships []string
	// Pressures maps pressure id to a minimum value.
	Pressures map[string]float64
}

// Outcome describes what an action would change. Handlers return it
// instead of mutating the graph.
type Outcome struct {
	Success          bool
	Relationships    []world.RelationshipDraft
	Dissolve         []world.RelationshipKey
	Fields           []world.FieldChange
	EntitiesModified []string
	Description      string
}

func Failed(description string) Outcome {
	return Outcome{Description: description}
}

type Handler func(ctx *Context) Outcome

type ActionDefinition struct {
	ID                string
	Name              string
	BaseWeight        float64
	BaseSuccessChance float64
	Requirements      Requirements
	// Produces lists the relationship kinds the handler may create.
	Produces []string
	Handler  Handler
}

type ActionDomain struct {
	ID                 string
	ValidActors        []ActorSpec
	PressureAmplifiers map[string]float64
	Actions            []ActionDefinition
}

func (d *ActionDomain) accepts(e *world.Entity) bool {
	for _, spec := range d.ValidActors {
		if spec.matches(e) {
			return true
		}
	}
	return false
}

// Context is what a handler sees for one attempt.
type Context struct {
	Graph         *world.Graph
	Pressures     *pressure.System
	Rand          *rand.Rand
	Actor         *world.Entity
	Tick          int
	Era           string
	SuccessChance float64
}

// Roll reports whether the attempt succeeds at the effective chance.
func (c *Context) Roll() bool {
	return sampling.Roll(c.Rand, c.SuccessChance)
}

// Pick returns a uniformly chosen entity, or nil.
func (c *Context) Pick(candidates []*world.Entity) *world.Entity {
	i := sampling.Index(c.Rand, len(candidates))
	if i < 0 {
		return nil
	}
	return candidates[i]
}

// Counterparts returns live entities linked to the actor by kind.
func (c *Context) Counterparts(kind string) []*world.Entity {
	var out []*world.Entity
	for _, id := range c.Graph.Neighbors(c.Actor.ID, kind) {
		e, ok := c.Graph.Entity(id)
		if ok && !c.Graph.IsHistorical(e) {
			out = append(out, e)
		}
	}
	return out
}

type Options struct {
	ActivityRates    map[world.Prominence]float64
	MaxSuccessChance float64
}

// DefaultActivityRates bounds how often an entity acts per tick.
func DefaultActivityRates() map[world.Prominence]float64 {
	return map[world.Prominence]float64{
		world.Forgotten:  0.02,
		world.Marginal:   0.08,
		world.Recognized: 0.15,
		world.Renowned:   0.25,
		world.Mythic:     0.35,
	}
}

type Env struct {
	Graph         *world.Graph
	Pressures     *pressure.System
	Rand          *rand.Rand
	Tick          int
	Era           string
	ActionWeights map[string]float64
}

type Attempt struct {
	ActorID     string
	DomainID    string
	ActionID    string
	Success     bool
	Description string
	Committed   world.Committed
	Modified    []string
	Err         error
}

type System struct {
	domains []ActionDomain
	opts    Options
	logger  *slog.Logger
}

func NewSystem(domains []ActionDomain, opts Options, logger *slog.Logger) (*System, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ActivityRates == nil {
		opts.ActivityRates = DefaultActivityRates()
	}
	if opts.MaxSuccessChance <= 0 || opts.MaxSuccessChance > 1 {
		opts.MaxSuccessChance = 0.95
	}
	seen := make(map[string]string)
	for _, d := range domains {
		if d.ID == "" {
			return nil, fmt.Errorf("%w: domain without id", ErrInvalidAction)
		}
		for _, a := range d.Actions {
			if a.ID == "" || a.Handler == nil {
				return nil, fmt.Errorf("%w: domain %s has an action without id or handler", ErrInvalidAction, d.ID)
			}
			if other, dup := seen[a.ID]; dup {
				return nil, fmt.Errorf("%w: action %s declared by %s and %s", ErrInvalidAction, a.ID, other, d.ID)
			}
			if a.BaseSuccessChance < 0 || a.BaseSuccessChance > 1 {
				return nil, fmt.Errorf("%w: action %s success chance %g", ErrInvalidAction, a.ID, a.BaseSuccessChance)
			}
			seen[a.ID] = d.ID
		}
	}
	return &System{domains: domains, opts: opts, logger: logger}, nil
}

func (s *System) Domains() []ActionDomain {
	return s.domains
}

type candidate struct {
	domain *ActionDomain
	action *ActionDefinition
	weight float64
}

// Run gives every live entity present at the start of the phase one chance
// to act, in graph order.
func (s *System) Run(env Env) []Attempt {
	actors := env.Graph.Entities(world.EntityFilter{ExcludeHistorical: true})
	var attempts []Attempt
	for _, actor := range actors {
		if env.Graph.IsHistorical(actor) {
			continue
		}
		if !s.hasDomain(actor) {
			continue
		}
		if !sampling.Roll(env.Rand, s.opts.ActivityRates[actor.Prominence]) {
			continue
		}
		cands := s.eligible(env, actor)
		if len(cands) == 0 {
			continue
		}
		weights := make([]float64, len(cands))
		for i, c := range cands {
			weights[i] = c.weight
		}
		i := sampling.Weighted(env.Rand, weights)
		if i < 0 {
			continue
		}
		attempts = append(attempts, s.perform(env, actor, cands[i]))
	}
	return attempts
}

func (s *System) hasDomain(actor *world.Entity) bool {
	for i := range s.domains {
		if s.domains[i].accepts(actor) {
			return true
		}
	}
	return false
}

func (s *System) eligible(env Env, actor *world.Entity) []candidate {
	var out []candidate
	for i := range s.domains {
		d := &s.domains[i]
		if !d.accepts(actor) {
			continue
		}
		domainAmp := env.Pressures.Scaled(d.PressureAmplifiers)
		for j := range d.Actions {
			a := &d.Actions[j]
			if !s.meets(env, actor, a) {
				continue
			}
			era := 1.0
			if w, ok := env.ActionWeights[a.ID]; ok {
				era = w
			}
			w := a.BaseWeight * domainAmp * env.Pressures.Amplifier(a.ID) * era
			if w > 0 {
				out = append(out, candidate{domain: d, action: a, weight: w})
			}
		}
	}
	return out
}

func (s *System) meets(env Env, actor *world.Entity, a *ActionDefinition) bool {
	req := a.Requirements
	if actor.Prominence < req.MinProminence {
		return false
	}
	for _, kind := range req.Relationships {
		if len(env.Graph.Neighbors(actor.ID, kind)) == 0 {
			return false
		}
	}
	if !env.Pressures.AtLeast(req.Pressures) {
		return false
	}
	return env.Pressures.Gate(a.ID)
}

func (s *System) perform(env Env, actor *world.Entity, c candidate) Attempt {
	chance := c.action.BaseSuccessChance * env.Pressures.Scaled(c.domain.PressureAmplifiers) * env.Pressures.Amplifier(c.action.ID)
	chance = math.Min(s.opts.MaxSuccessChance, chance)

	ctx := &Context{
		Graph:         env.Graph,
		Pressures:     env.Pressures,
		Rand:          env.Rand,
		Actor:         actor,
		Tick:          env.Tick,
		Era:           env.Era,
		SuccessChance: chance,
	}
	out := s.invoke(c.action, ctx)

	attempt := Attempt{
		ActorID:     actor.ID,
		DomainID:    c.domain.ID,
		ActionID:    c.action.ID,
		Description: out.Description,
	}
	if !out.Success {
		s.logger.Debug("action failed", "actor", actor.ID, "action", c.action.ID, "tick", env.Tick, "reason", out.Description)
		return attempt
	}

	cs := world.ChangeSet{
		Relationships: out.Relationships,
		Dissolve:      out.Dissolve,
		Fields:        out.Fields,
		Description:   out.Description,
	}
	committed, err := env.Graph.Apply(cs, actor.ID)
	if err != nil {
		s.logger.Warn("action commit rejected", "actor", actor.ID, "action", c.action.ID, "tick", env.Tick, "error", err)
		attempt.Err = err
		return attempt
	}
	attempt.Success = true
	attempt.Committed = committed
	attempt.Modified = mergeIDs(out.EntitiesModified, committed.Modified)
	return attempt
}

func (s *System) invoke(a *ActionDefinition, ctx *Context) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("action handler panicked", "action", a.ID, "actor", ctx.Actor.ID, "error", r)
			out = Failed(fmt.Sprintf("%s aborted", a.ID))
		}
	}()
	return a.Handler(ctx)
}

func mergeIDs(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, id := range append(append([]string(nil), a...), b...) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
