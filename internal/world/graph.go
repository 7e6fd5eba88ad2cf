package world

import (
	"strings"

	"worldloom/internal/config"
)

// ChangeObserver is told about tracked field changes before they land.
type ChangeObserver interface {
	RecordChange(entityID string, field Field, previous, current, catalyst string)
}

// Graph is the authoritative entity and relationship store of one run.
// It is not safe for concurrent use.
type Graph struct {
	schema   *config.Schema
	tick     int
	observer ChangeObserver

	entities map[string]*Entity
	order    []string
	seq      map[string]int

	rels      []*Relationship
	active    map[RelationshipKey]*Relationship
	adjacency map[string][]*Relationship
}

func New(schema *config.Schema) *Graph {
	return &Graph{
		schema:    schema,
		entities:  make(map[string]*Entity),
		seq:       make(map[string]int),
		active:    make(map[RelationshipKey]*Relationship),
		adjacency: make(map[string][]*Relationship),
	}
}

func (g *Graph) Schema() *config.Schema { return g.schema }
func (g *Graph) Tick() int              { return g.tick }
func (g *Graph) SetTick(tick int)       { g.tick = tick }

func (g *Graph) SetObserver(o ChangeObserver) { g.observer = o }

func (g *Graph) Entity(id string) (*Entity, bool) {
	e, ok := g.entities[id]
	return e, ok
}

type EntityFilter struct {
	Kind              string
	Subtype           string
	Status            string
	Culture           string
	Tag               string
	ExcludeHistorical bool
	Where             func(*Entity) bool
}

func (f EntityFilter) match(g *Graph, e *Entity) bool {
	if f.Kind != "" && !strings.EqualFold(e.Kind, f.Kind) {
		return false
	}
	if f.Subtype != "" && !strings.EqualFold(e.Subtype, f.Subtype) {
		return false
	}
	if f.Status != "" && !strings.EqualFold(e.Status, f.Status) {
		return false
	}
	if f.Culture != "" && !strings.EqualFold(e.Culture, f.Culture) {
		return false
	}
	if f.Tag != "" && !e.Tags[f.Tag] {
		return false
	}
	if f.ExcludeHistorical && g.IsHistorical(e) {
		return false
	}
	if f.Where != nil && !f.Where(e) {
		return false
	}
	return true
}

// Entities returns matching entities in insertion order.
func (g *Graph) Entities(filter EntityFilter) []*Entity {
	var out []*Entity
	for _, id := range g.order {
		e := g.entities[id]
		if filter.match(g, e) {
			out = append(out, e)
		}
	}
	return out
}

func (g *Graph) CountEntities(filter EntityFilter) int {
	n := 0
	for _, id := range g.order {
		if filter.match(g, g.entities[id]) {
			n++
		}
	}
	return n
}

func (g *Graph) EntityCount() int { return len(g.order) }

// IsHistorical reports whether the entity's status is a historical one.
func (g *Graph) IsHistorical(e *Entity) bool {
	if e == nil {
		return false
	}
	kind, ok := g.schema.EntityKindByName(e.Kind)
	return ok && kind.IsHistorical(e.Status)
}

type RelationshipFilter struct {
	Kind              string
	Src               string
	Dst               string
	Entity            string
	Category          string
	IncludeHistorical bool
}

func (f RelationshipFilter) match(g *Graph, r *Relationship) bool {
	if !f.IncludeHistorical && !r.Active() {
		return false
	}
	if f.Kind != "" && !strings.EqualFold(r.Kind, f.Kind) {
		return false
	}
	if f.Src != "" && r.Src != f.Src {
		return false
	}
	if f.Dst != "" && r.Dst != f.Dst {
		return false
	}
	if f.Entity != "" && r.Src != f.Entity && r.Dst != f.Entity {
		return false
	}
	if f.Category != "" && g.Category(r.Kind) != f.Category {
		return false
	}
	return true
}

// Relationships returns matching relationships in creation order.
func (g *Graph) Relationships(filter RelationshipFilter) []*Relationship {
	source := g.rels
	if filter.Entity != "" {
		source = g.adjacency[filter.Entity]
	} else if filter.Src != "" {
		source = g.adjacency[filter.Src]
	}
	var out []*Relationship
	for _, r := range source {
		if filter.match(g, r) {
			out = append(out, r)
		}
	}
	return out
}

// EntityRelationships returns the active relationships touching id.
func (g *Graph) EntityRelationships(id string) []*Relationship {
	return g.Relationships(RelationshipFilter{Entity: id})
}

// ActiveRelationship looks up an active relationship by key.
func (g *Graph) ActiveRelationship(key RelationshipKey) (*Relationship, bool) {
	r, ok := g.active[key]
	return r, ok
}

func (g *Graph) HasRelationship(src, dst, kind string) bool {
	_, ok := g.active[RelationshipKey{Src: src, Dst: dst, Kind: kind}]
	return ok
}

// Linked reports whether any active relationship joins a and b.
func (g *Graph) Linked(a, b string) bool {
	for _, r := range g.adjacency[a] {
		if r.Active() && r.Other(a) == b {
			return true
		}
	}
	return false
}

// Degree counts active relationships touching id.
func (g *Graph) Degree(id string) int {
	n := 0
	for _, r := range g.adjacency[id] {
		if r.Active() {
			n++
		}
	}
	return n
}

func (g *Graph) ActiveRelationshipCount() int { return len(g.active) }

func (g *Graph) RelationshipCount() int { return len(g.rels) }

// Category returns the category of a relationship kind, or "".
func (g *Graph) Category(kind string) string {
	rk, ok := g.schema.RelationshipKindByName(kind)
	if !ok {
		return ""
	}
	return rk.Category
}

// Neighbors returns the ids linked to id by active relationships of kind,
// in either direction. An empty kind matches all kinds.
func (g *Graph) Neighbors(id, kind string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, r := range g.adjacency[id] {
		if !r.Active() || (kind != "" && r.Kind != kind) {
			continue
		}
		other := r.Other(id)
		if _, dup := seen[other]; dup {
			continue
		}
		seen[other] = struct{}{}
		out = append(out, other)
	}
	return out
}

// Huddles returns connected components of size two or more among entities
// of kind, joined by active relationships of relKind. Components and their
// members follow insertion order.
func (g *Graph) Huddles(kind, relKind string) [][]string {
	visited := make(map[string]bool)
	var out [][]string
	for _, id := range g.order {
		e := g.entities[id]
		if !strings.EqualFold(e.Kind, kind) || visited[id] {
			continue
		}
		component := []string{}
		queue := []string{id}
		visited[id] = true
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			component = append(component, cur)
			for _, next := range g.Neighbors(cur, relKind) {
				ne := g.entities[next]
				if visited[next] || ne == nil || !strings.EqualFold(ne.Kind, kind) {
					continue
				}
				visited[next] = true
				queue = append(queue, next)
			}
		}
		if len(component) >= 2 {
			out = append(out, g.sortByOrder(component))
		}
	}
	return out
}

func (g *Graph) sortByOrder(ids []string) []string {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make([]string, 0, len(ids))
	for _, id := range g.order {
		if want[id] {
			out = append(out, id)
		}
	}
	return out
}
