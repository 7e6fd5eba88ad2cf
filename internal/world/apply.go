package world

import (
	"fmt"
	"math"
	"strings"

	"worldloom/internal/config"
)

// Apply validates every change in cs against the schema and then commits
// all of them. On error the graph is untouched. catalyst, when set, is
// recorded on new relationships and passed to the change observer.
func (g *Graph) Apply(cs ChangeSet, catalyst string) (Committed, error) {
	plan, err := g.plan(cs)
	if err != nil {
		return Committed{}, err
	}
	return g.commit(cs, plan, catalyst), nil
}

type resolvedRel struct {
	draft    RelationshipDraft
	src, dst string
	kind     *config.RelationshipKind
}

type commitPlan struct {
	entities []EntityDraft
	rels     []resolvedRel
	fields   []FieldChange
}

func (g *Graph) plan(cs ChangeSet) (*commitPlan, error) {
	p := &commitPlan{}
	kinds := make([]string, len(cs.Entities))

	for i, draft := range cs.Entities {
		normalized, err := g.checkEntityDraft(draft)
		if err != nil {
			return nil, fmt.Errorf("entity %s: %w", Placeholder(i), err)
		}
		kinds[i] = normalized.Kind
		p.entities = append(p.entities, normalized)
	}

	resolve := func(ref Ref) (id, kind string, err error) {
		if ref.placeholder {
			if ref.index < 0 || ref.index >= len(cs.Entities) {
				return "", "", fmt.Errorf("%s: %w", ref, ErrUnresolvedRef)
			}
			return ref.String(), kinds[ref.index], nil
		}
		e, ok := g.entities[ref.id]
		if !ok {
			return "", "", fmt.Errorf("%q: %w", ref.id, ErrUnknownEntity)
		}
		return e.ID, e.Kind, nil
	}

	added := make(map[RelationshipKey]bool)
	outgoing := make(map[string]int)
	for i, draft := range cs.Relationships {
		rk, ok := g.schema.RelationshipKindByName(draft.Kind)
		if !ok {
			return nil, fmt.Errorf("relationship %d %q: %w", i, draft.Kind, ErrUnknownRelationshipKind)
		}
		src, srcKind, err := resolve(draft.Src)
		if err != nil {
			return nil, fmt.Errorf("relationship %d src: %w", i, err)
		}
		dst, dstKind, err := resolve(draft.Dst)
		if err != nil {
			return nil, fmt.Errorf("relationship %d dst: %w", i, err)
		}
		if src == dst {
			return nil, fmt.Errorf("relationship %d %s: %w", i, rk.Name, ErrSelfRelationship)
		}
		if !rk.Permits(srcKind, dstKind) {
			return nil, fmt.Errorf("relationship %d %s %s->%s: %w", i, rk.Name, srcKind, dstKind, ErrKindNotPermitted)
		}

		key := RelationshipKey{Src: src, Dst: dst, Kind: rk.Name}
		if _, exists := g.active[key]; !exists && !added[key] {
			added[key] = true
			outgoing[src+"\x00"+rk.Name]++
		}
		p.rels = append(p.rels, resolvedRel{draft: draft, src: src, dst: dst, kind: rk})
	}

	for key, n := range outgoing {
		src, kind, _ := strings.Cut(key, "\x00")
		limit, ok := g.schema.RelationshipLimit(kind)
		if !ok {
			continue
		}
		if g.outgoingCount(src, kind)+n > limit {
			return nil, fmt.Errorf("%s %s: %w (limit %d)", src, kind, ErrLimitExceeded, limit)
		}
	}

	for i, fc := range cs.Fields {
		e, ok := g.entities[fc.EntityID]
		if !ok {
			return nil, fmt.Errorf("field change %d %q: %w", i, fc.EntityID, ErrUnknownEntity)
		}
		if err := g.checkField(e.Kind, fc.Field, fc.Value); err != nil {
			return nil, fmt.Errorf("field change %d on %s: %w", i, e.ID, err)
		}
		p.fields = append(p.fields, fc)
	}

	return p, nil
}

func (g *Graph) checkEntityDraft(d EntityDraft) (EntityDraft, error) {
	kind, ok := g.schema.EntityKindByName(d.Kind)
	if !ok {
		return d, fmt.Errorf("%q: %w", d.Kind, ErrUnknownKind)
	}
	d.Kind = kind.Name
	sub, ok := kind.Subtype(d.Subtype)
	if !ok {
		return d, fmt.Errorf("%s/%q: %w", kind.Name, d.Subtype, ErrInvalidSubtype)
	}
	d.Subtype = sub.Name
	if d.Status == "" {
		d.Status = kind.DefaultStatus
	}
	st, ok := kind.Status(d.Status)
	if !ok {
		return d, fmt.Errorf("%s/%q: %w", kind.Name, d.Status, ErrInvalidStatus)
	}
	d.Status = st.Name
	if !g.schema.IsValidCulture(d.Culture) {
		return d, fmt.Errorf("%q: %w", d.Culture, ErrInvalidCulture)
	}
	if d.Prominence < Forgotten || d.Prominence > Mythic {
		return d, fmt.Errorf("prominence %d: %w", int(d.Prominence), ErrInvalidField)
	}
	return d, nil
}

func (g *Graph) checkField(kindName string, field Field, value string) error {
	kind, ok := g.schema.EntityKindByName(kindName)
	if !ok {
		return fmt.Errorf("%q: %w", kindName, ErrUnknownKind)
	}
	switch field {
	case FieldStatus:
		if !kind.HasStatus(value) {
			return fmt.Errorf("%s/%q: %w", kind.Name, value, ErrInvalidStatus)
		}
	case FieldProminence:
		if _, err := ParseProminence(value); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidField, err)
		}
	case FieldCulture:
		if !g.schema.IsValidCulture(value) {
			return fmt.Errorf("%q: %w", value, ErrInvalidCulture)
		}
	case FieldName:
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("empty name: %w", ErrInvalidField)
		}
	case FieldDescription:
	case FieldTag, FieldUntag:
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("empty tag: %w", ErrInvalidField)
		}
	default:
		return fmt.Errorf("%q: %w", field, ErrInvalidField)
	}
	return nil
}

func (g *Graph) outgoingCount(src, kind string) int {
	n := 0
	for _, r := range g.adjacency[src] {
		if r.Active() && r.Src == src && strings.EqualFold(r.Kind, kind) {
			n++
		}
	}
	return n
}

func (g *Graph) commit(cs ChangeSet, p *commitPlan, catalyst string) Committed {
	var out Committed

	for _, draft := range p.entities {
		e := g.insertEntity(draft)
		out.EntityIDs = append(out.EntityIDs, e.ID)
	}
	resolveID := func(id string) string {
		if ref := ParseRef(id); ref.placeholder {
			return out.EntityIDs[ref.index]
		}
		return id
	}

	for _, key := range cs.Dissolve {
		if g.archive(key) {
			out.Archived = append(out.Archived, key)
		}
	}

	for _, rr := range p.rels {
		src, dst := resolveID(rr.src), resolveID(rr.dst)
		key := RelationshipKey{Src: src, Dst: dst, Kind: rr.kind.Name}
		strength := clampStrength(rr.draft.Strength)
		if existing, ok := g.active[key]; ok {
			existing.Strength = math.Max(existing.Strength, strength)
			out.Merged = append(out.Merged, key)
			continue
		}
		for _, conflicting := range g.conflictsFor(src, dst, rr.kind) {
			if g.archive(conflicting) {
				out.Archived = append(out.Archived, conflicting)
			}
		}
		rel := &Relationship{
			Kind:        rr.kind.Name,
			Src:         src,
			Dst:         dst,
			Strength:    strength,
			CreatedAt:   g.tick,
			CatalyzedBy: catalyst,
			Distance:    rr.draft.Distance,
		}
		g.insertRelationship(rel)
		out.Relationships = append(out.Relationships, key)
	}

	modified := make(map[string]bool)
	for _, fc := range p.fields {
		if g.setField(g.entities[fc.EntityID], fc.Field, fc.Value, catalyst) && !modified[fc.EntityID] {
			modified[fc.EntityID] = true
			out.Modified = append(out.Modified, fc.EntityID)
		}
	}

	return out
}

func clampStrength(s float64) float64 {
	if s <= 0 || math.IsNaN(s) {
		return DefaultStrength
	}
	return math.Min(s, 1)
}

func (g *Graph) conflictsFor(src, dst string, rk *config.RelationshipKind) []RelationshipKey {
	var out []RelationshipKey
	for _, r := range g.adjacency[src] {
		if !r.Active() || r.Src != src || r.Dst != dst || r.Kind == rk.Name {
			continue
		}
		other, ok := g.schema.RelationshipKindByName(r.Kind)
		if !ok {
			continue
		}
		if rk.ConflictsWithKind(other.Name) || other.ConflictsWithKind(rk.Name) {
			out = append(out, r.Key())
		}
	}
	return out
}

func (g *Graph) nextID(kind string) string {
	g.seq[kind]++
	return fmt.Sprintf("%s-%d", kind, g.seq[kind])
}

func (g *Graph) insertEntity(d EntityDraft) *Entity {
	id := g.nextID(d.Kind)
	name := d.Name
	if strings.TrimSpace(name) == "" {
		name = id
	}
	e := &Entity{
		ID:          id,
		Kind:        d.Kind,
		Subtype:     d.Subtype,
		Name:        name,
		Description: d.Description,
		Status:      d.Status,
		Prominence:  d.Prominence,
		Culture:     d.Culture,
		CreatedAt:   g.tick,
		UpdatedAt:   g.tick,
	}
	if len(d.Tags) > 0 {
		e.Tags = make(map[string]bool, len(d.Tags))
		for _, tag := range d.Tags {
			e.Tags[tag] = true
		}
	}
	if d.Coordinates != nil {
		e.Coordinates = *d.Coordinates
	}
	g.entities[id] = e
	g.order = append(g.order, id)
	return e
}

func (g *Graph) insertRelationship(r *Relationship) {
	g.rels = append(g.rels, r)
	g.active[r.Key()] = r
	g.adjacency[r.Src] = append(g.adjacency[r.Src], r)
	g.adjacency[r.Dst] = append(g.adjacency[r.Dst], r)
}

func (g *Graph) archive(key RelationshipKey) bool {
	r, ok := g.active[key]
	if !ok {
		return false
	}
	tick := g.tick
	r.ArchivedAt = &tick
	delete(g.active, key)
	return true
}

// setField applies a validated change and reports whether the value moved.
func (g *Graph) setField(e *Entity, field Field, value, catalyst string) bool {
	var previous string
	switch field {
	case FieldStatus:
		previous = e.Status
		if kind, ok := g.schema.EntityKindByName(e.Kind); ok {
			if st, ok := kind.Status(value); ok {
				value = st.Name
			}
		}
	case FieldProminence:
		previous = e.Prominence.String()
		p, _ := ParseProminence(value)
		value = p.String()
	case FieldCulture:
		previous = e.Culture
	case FieldName:
		previous = e.Name
	case FieldDescription:
		previous = e.Description
	case FieldTag:
		if e.Tags[value] {
			return false
		}
		if e.Tags == nil {
			e.Tags = make(map[string]bool)
		}
		e.Tags[value] = true
		e.UpdatedAt = g.tick
		return true
	case FieldUntag:
		if !e.Tags[value] {
			return false
		}
		delete(e.Tags, value)
		e.UpdatedAt = g.tick
		return true
	}
	if previous == value {
		return false
	}

	if field.Tracked() && g.observer != nil {
		g.observer.RecordChange(e.ID, field, previous, value, catalyst)
	}

	switch field {
	case FieldStatus:
		e.Status = value
	case FieldProminence:
		e.Prominence, _ = ParseProminence(value)
	case FieldCulture:
		e.Culture = value
	case FieldName:
		e.Name = value
	case FieldDescription:
		e.Description = value
	}
	e.UpdatedAt = g.tick
	return true
}

// AddEntity validates and inserts a single entity.
func (g *Graph) AddEntity(d EntityDraft) (*Entity, error) {
	committed, err := g.Apply(ChangeSet{Entities: []EntityDraft{d}}, "")
	if err != nil {
		return nil, err
	}
	return g.entities[committed.EntityIDs[0]], nil
}

// AddRelationship validates and inserts a relationship between existing entities.
func (g *Graph) AddRelationship(kind, src, dst string, strength float64, catalyst string) (*Relationship, error) {
	committed, err := g.Apply(ChangeSet{Relationships: []RelationshipDraft{{
		Kind:     kind,
		Src:      Existing(src),
		Dst:      Existing(dst),
		Strength: strength,
	}}}, catalyst)
	if err != nil {
		return nil, err
	}
	var key RelationshipKey
	if len(committed.Relationships) > 0 {
		key = committed.Relationships[0]
	} else {
		key = committed.Merged[0]
	}
	return g.active[key], nil
}

// ArchiveRelationship retires an active relationship. It stays queryable
// with IncludeHistorical.
func (g *Graph) ArchiveRelationship(key RelationshipKey) error {
	if !g.archive(key) {
		return fmt.Errorf("archiving %s: %w", key, ErrUnknownRelationship)
	}
	return nil
}

// SetEntityField validates and applies one field change.
func (g *Graph) SetEntityField(id string, field Field, value, catalyst string) error {
	_, err := g.Apply(ChangeSet{Fields: []FieldChange{{EntityID: id, Field: field, Value: value}}}, catalyst)
	return err
}

// SetStrength updates an active relationship's strength, clamped to [0, 1].
func (g *Graph) SetStrength(key RelationshipKey, strength float64) error {
	r, ok := g.active[key]
	if !ok {
		return fmt.Errorf("setting strength on %s: %w", key, ErrUnknownRelationship)
	}
	if math.IsNaN(strength) {
		strength = 0
	}
	r.Strength = math.Max(0, math.Min(1, strength))
	return nil
}
