// Package narrative turns one tick's graph deltas into significance-scored
// story events.
package narrative

import (
	"fmt"
	"log/slog"
	"strings"

	"worldloom/internal/config"
	"worldloom/internal/world"
)

type Options struct {
	Enabled         bool
	MinSignificance float64
}

type change struct {
	entityID string
	field    world.Field
	previous string
	current  string
	catalyst string
}

type changeKey struct {
	entityID string
	field    world.Field
}

// Extractor diffs the graph between StartTick and Flush. Changes to
// tracked fields reach it through RecordChange before they are applied.
type Extractor struct {
	opts   Options
	logger *slog.Logger

	relPolarity    map[string]string
	statusPolarity map[string]map[string]string
	authority      map[string]map[string]bool
	containers     map[string]bool

	graph *world.Graph
	tick  int
	era   string

	startRels    map[world.RelationshipKey]string
	startOrder   []world.RelationshipKey
	startPairs   map[[2]string]bool
	startMembers map[string][]string

	pending map[changeKey]*change
	order   []changeKey
	seq     int
}

func New(opts Options, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		opts:    opts,
		logger:  logger,
		pending: make(map[changeKey]*change),
	}
}

// SetSchema builds the polarity, authority and container lookups.
func (x *Extractor) SetSchema(s *config.Schema) {
	x.relPolarity = make(map[string]string)
	x.statusPolarity = make(map[string]map[string]string)
	x.authority = make(map[string]map[string]bool)
	x.containers = make(map[string]bool)
	if s == nil {
		return
	}
	for i := range s.RelationshipKinds {
		rk := &s.RelationshipKinds[i]
		name := strings.ToLower(rk.Name)
		x.relPolarity[name] = rk.EffectivePolarity()
		if rk.Container {
			x.containers[name] = true
		}
	}
	for i := range s.EntityKinds {
		k := &s.EntityKinds[i]
		kind := strings.ToLower(k.Name)
		statuses := make(map[string]string, len(k.Statuses))
		for j := range k.Statuses {
			statuses[strings.ToLower(k.Statuses[j].Name)] = k.Statuses[j].EffectivePolarity()
		}
		x.statusPolarity[kind] = statuses
		subs := make(map[string]bool)
		for _, sub := range k.Subtypes {
			if sub.Authority {
				subs[strings.ToLower(sub.Name)] = true
			}
		}
		x.authority[kind] = subs
	}
}

// StartTick snapshots active relationships and container memberships.
func (x *Extractor) StartTick(g *world.Graph, tick int, era string) {
	if x.relPolarity == nil {
		x.SetSchema(g.Schema())
	}
	x.graph = g
	x.tick = tick
	x.era = era
	x.startRels = make(map[world.RelationshipKey]string)
	x.startOrder = x.startOrder[:0]
	x.startPairs = make(map[[2]string]bool)
	x.startMembers = make(map[string][]string)

	for _, r := range g.Relationships(world.RelationshipFilter{}) {
		key := r.Key()
		x.startRels[key] = x.polarity(r.Kind)
		x.startOrder = append(x.startOrder, key)
		x.startPairs[pair(r.Src, r.Dst)] = true
		if x.isContainer(r.Kind) {
			x.startMembers[r.Dst] = append(x.startMembers[r.Dst], r.Src)
		}
	}
}

// RecordChange queues a tracked field change. Repeated changes to the same
// field in one tick keep the first previous and the last current value.
func (x *Extractor) RecordChange(entityID string, field world.Field, previous, current, catalyst string) {
	key := changeKey{entityID: entityID, field: field}
	if c, ok := x.pending[key]; ok {
		c.current = current
		if catalyst != "" {
			c.catalyst = catalyst
		}
		return
	}
	x.pending[key] = &change{entityID: entityID, field: field, previous: previous, current: current, catalyst: catalyst}
	x.order = append(x.order, key)
}

// Flush derives the tick's events and clears pending changes.
func (x *Extractor) Flush() []Event {
	changes := make([]*change, 0, len(x.order))
	for _, key := range x.order {
		changes = append(changes, x.pending[key])
	}
	x.pending = make(map[changeKey]*change)
	x.order = x.order[:0]

	if !x.opts.Enabled || x.graph == nil {
		return nil
	}

	var events []Event
	events = append(events, x.stateChanges(changes)...)
	events = append(events, x.dissolutions()...)
	events = append(events, x.formations()...)
	events = append(events, x.successions(changes)...)
	events = append(events, x.coalescences()...)

	out := events[:0]
	for _, e := range events {
		if e.Significance < x.opts.MinSignificance {
			continue
		}
		x.seq++
		e.ID = fmt.Sprintf("event-%d", x.seq)
		out = append(out, e)
	}
	if len(out) > 0 {
		x.logger.Debug("narrative events", "tick", x.tick, "count", len(out))
	}
	return out
}

func (x *Extractor) event(t EventType, subject string, affected []string, headline string) Event {
	involved := append([]string{subject}, affected...)
	weights := make([]float64, 0, len(involved))
	for _, id := range involved {
		if e, ok := x.graph.Entity(id); ok {
			weights = append(weights, e.Prominence.Weight())
		}
	}
	return Event{
		Tick:         x.tick,
		Era:          x.era,
		Type:         t,
		Significance: significance(BaseWeight(t), weights),
		Headline:     headline,
		Subject:      subject,
		Affected:     affected,
	}
}

func (x *Extractor) stateChanges(changes []*change) []Event {
	var out []Event
	for _, c := range changes {
		if c.previous == c.current {
			continue
		}
		e, ok := x.graph.Entity(c.entityID)
		if !ok {
			continue
		}
		t := StateChange
		headline := fmt.Sprintf("%s: %s changed from %s to %s", e.Name, c.field, orNone(c.previous), orNone(c.current))
		if c.field == world.FieldStatus {
			before := x.statusPolarity[strings.ToLower(e.Kind)][strings.ToLower(c.previous)]
			after := x.statusPolarity[strings.ToLower(e.Kind)][strings.ToLower(c.current)]
			switch {
			case after == config.PolarityNegative && before != config.PolarityNegative:
				t = Downfall
				headline = fmt.Sprintf("%s falls: now %s", e.Name, c.current)
			case after == config.PolarityPositive && before != config.PolarityPositive:
				t = Triumph
				headline = fmt.Sprintf("%s rises: now %s", e.Name, c.current)
			}
		}
		var affected []string
		if c.catalyst != "" && c.catalyst != c.entityID {
			affected = []string{c.catalyst}
		}
		ev := x.event(t, e.ID, affected, headline)
		ev.Catalyst = c.catalyst
		ev.Field = string(c.field)
		ev.Previous = c.previous
		ev.Current = c.current
		out = append(out, ev)
	}
	return out
}

func (x *Extractor) dissolutions() []Event {
	var out []Event
	for _, key := range x.startOrder {
		if _, ok := x.graph.ActiveRelationship(key); ok {
			continue
		}
		t := RelationshipDissolved
		verb := "ends"
		switch x.startRels[key] {
		case config.PolarityPositive:
			t, verb = Betrayal, "is betrayed"
		case config.PolarityNegative:
			t, verb = Reconciliation, "is reconciled"
		}
		headline := fmt.Sprintf("%s between %s and %s %s", key.Kind, x.name(key.Src), x.name(key.Dst), verb)
		ev := x.event(t, key.Src, []string{key.Dst}, headline)
		ev.RelationshipKind = key.Kind
		ev.Counterpart = key.Dst
		out = append(out, ev)
	}
	return out
}

// formations reports rivalries between entities that were already linked
// and alliances when one entity gains two or more positive ties.
func (x *Extractor) formations() []Event {
	var out []Event
	positive := make(map[string][]string)
	var positiveOrder []string
	for _, r := range x.graph.Relationships(world.RelationshipFilter{}) {
		key := r.Key()
		if _, existed := x.startRels[key]; existed {
			continue
		}
		switch x.polarity(r.Kind) {
		case config.PolarityNegative:
			if !x.startPairs[pair(r.Src, r.Dst)] {
				continue
			}
			headline := fmt.Sprintf("%s and %s become rivals (%s)", x.name(r.Src), x.name(r.Dst), r.Kind)
			ev := x.event(RivalryFormed, r.Src, []string{r.Dst}, headline)
			ev.RelationshipKind = r.Kind
			ev.Counterpart = r.Dst
			ev.Catalyst = r.CatalyzedBy
			out = append(out, ev)
		case config.PolarityPositive:
			for _, id := range []string{r.Src, r.Dst} {
				if _, seen := positive[id]; !seen {
					positiveOrder = append(positiveOrder, id)
				}
				positive[id] = append(positive[id], r.Other(id))
			}
		}
	}
	for _, id := range positiveOrder {
		partners := positive[id]
		if len(partners) < 2 {
			continue
		}
		headline := fmt.Sprintf("%s forms %d new alliances", x.name(id), len(partners))
		out = append(out, x.event(AllianceFormed, id, partners, headline))
	}
	return out
}

// successions reports containers with members and authority holders that
// became historical this tick.
func (x *Extractor) successions(changes []*change) []Event {
	var out []Event
	for _, c := range changes {
		if c.field != world.FieldStatus {
			continue
		}
		e, ok := x.graph.Entity(c.entityID)
		if !ok {
			continue
		}
		kind, ok := x.graph.Schema().EntityKindByName(e.Kind)
		if !ok || !kind.IsHistorical(c.current) || kind.IsHistorical(c.previous) {
			continue
		}
		if members := x.startMembers[e.ID]; len(members) > 0 {
			headline := fmt.Sprintf("%s is %s; its %d members carry on", e.Name, c.current, len(members))
			ev := x.event(Succession, e.ID, members, headline)
			ev.Catalyst = c.catalyst
			ev.Previous, ev.Current = c.previous, c.current
			out = append(out, ev)
		}
		if x.authority[strings.ToLower(e.Kind)][strings.ToLower(e.Subtype)] {
			affected := x.connectedLive(e.ID)
			headline := fmt.Sprintf("%s is %s, leaving a power vacuum", e.Name, c.current)
			ev := x.event(PowerVacuum, e.ID, affected, headline)
			ev.Catalyst = c.catalyst
			ev.Previous, ev.Current = c.previous, c.current
			out = append(out, ev)
		}
	}
	return out
}

// connectedLive returns the non-historical entities tied to id at tick
// start or now, in first-seen order.
func (x *Extractor) connectedLive(id string) []string {
	seen := map[string]bool{id: true}
	var out []string
	add := func(other string) {
		if seen[other] {
			return
		}
		seen[other] = true
		if e, ok := x.graph.Entity(other); ok && !x.graph.IsHistorical(e) {
			out = append(out, other)
		}
	}
	for _, key := range x.startOrder {
		switch id {
		case key.Src:
			add(key.Dst)
		case key.Dst:
			add(key.Src)
		}
	}
	for _, other := range x.graph.Neighbors(id, "") {
		add(other)
	}
	return out
}

func (x *Extractor) coalescences() []Event {
	joined := make(map[string][]string)
	var order []string
	for _, r := range x.graph.Relationships(world.RelationshipFilter{}) {
		if !x.isContainer(r.Kind) {
			continue
		}
		if _, existed := x.startRels[r.Key()]; existed || contains(x.startMembers[r.Dst], r.Src) {
			continue
		}
		if _, seen := joined[r.Dst]; !seen {
			order = append(order, r.Dst)
		}
		joined[r.Dst] = append(joined[r.Dst], r.Src)
	}
	var out []Event
	for _, id := range order {
		members := joined[id]
		if len(members) < 2 {
			continue
		}
		headline := fmt.Sprintf("%s gathers %d new members", x.name(id), len(members))
		out = append(out, x.event(Coalescence, id, members, headline))
	}
	return out
}

func (x *Extractor) polarity(kind string) string {
	if p, ok := x.relPolarity[strings.ToLower(kind)]; ok {
		return p
	}
	return config.PolarityNeutral
}

func (x *Extractor) isContainer(kind string) bool {
	return x.containers[strings.ToLower(kind)]
}

func (x *Extractor) name(id string) string {
	if e, ok := x.graph.Entity(id); ok && e.Name != "" {
		return e.Name
	}
	return id
}

func pair(a, b string) [2]string {
	if b < a {
		a, b = b, a
	}
	return [2]string{a, b}
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
