package template

import (
	"math/rand"
	"strings"

	"worldloom/internal/config"
	"worldloom/internal/pressure"
	"worldloom/internal/sampling"
	"worldloom/internal/world"
)

type Trigger string

const (
	TriggerTick  Trigger = "tick"
	TriggerEpoch Trigger = "epoch"
)

// Parameter is a tunable numeric knob of a template.
type Parameter struct {
	Name        string
	Description string
	Min         float64
	Max         float64
	Default     float64
}

type EntityShape struct {
	Kind    string
	Subtype string
}

// Produces declares what a template is expected to create.
type Produces struct {
	Entities      []EntityShape
	Relationships []string
}

type Metadata struct {
	Name        string
	Description string
	Trigger     Trigger
	Probability float64
	Produces    Produces
	Parameters  []Parameter
}

// Template is a generative rule. Implementations never mutate the graph;
// Expand describes the change and the engine commits it.
type Template interface {
	ID() string
	Metadata() Metadata
	CanApply(ctx *Context) bool
	FindTargets(ctx *Context) []*world.Entity
	Expand(ctx *Context, target *world.Entity) world.ChangeSet
}

// Weighter lets a template bias target selection.
type Weighter interface {
	Weight(ctx *Context, target *world.Entity) float64
}

// Context is what a template sees during one application attempt.
type Context struct {
	Graph     *world.Graph
	Pressures *pressure.System
	Rand      *rand.Rand
	Tick      int
	Era       string

	params    map[string]float64
	targets   []config.PopulationTarget
	overshoot float64
}

// Param returns the effective value of a declared parameter.
func (c *Context) Param(name string) float64 {
	return c.params[name]
}

// Saturated reports whether the live population has reached its configured
// target times the overshoot multiplier, either for kind/subtype or for the
// kind as a whole. Populations without a target are never saturated.
func (c *Context) Saturated(kind, subtype string) bool {
	kindTarget := 0
	for _, t := range c.targets {
		if !strings.EqualFold(t.Kind, kind) {
			continue
		}
		if t.Subtype == "" {
			kindTarget = t.Target
			continue
		}
		if subtype != "" && strings.EqualFold(t.Subtype, subtype) && Saturated(c.Graph, kind, t.Subtype, t.Target, c.overshoot) {
			return true
		}
	}
	return Saturated(c.Graph, kind, "", kindTarget, c.overshoot)
}

// Saturated compares the live kind/subtype population with target*overshoot.
func Saturated(g *world.Graph, kind, subtype string, target int, overshoot float64) bool {
	if target <= 0 {
		return false
	}
	if overshoot < 1 {
		overshoot = 1
	}
	n := g.CountEntities(world.EntityFilter{Kind: kind, Subtype: subtype, ExcludeHistorical: true})
	return float64(n) >= float64(target)*overshoot
}

// Pick returns a uniformly chosen entity, or nil.
func (c *Context) Pick(candidates []*world.Entity) *world.Entity {
	i := sampling.Index(c.Rand, len(candidates))
	if i < 0 {
		return nil
	}
	return candidates[i]
}

// Chance reports whether a roll with probability p succeeds.
func (c *Context) Chance(p float64) bool {
	return sampling.Roll(c.Rand, p)
}

// NoOp is an empty change set that explains why nothing happened.
func NoOp(description string) world.ChangeSet {
	return world.ChangeSet{Description: description}
}
