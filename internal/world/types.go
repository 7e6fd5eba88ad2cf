package world

import (
	"fmt"
	"strconv"
	"strings"
)

type Coordinates struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Entity is one node of the world graph. Pointers handed out by Graph
// are live views; only Graph methods may change them.
type Entity struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	Subtype     string          `json:"subtype"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Status      string          `json:"status"`
	Prominence  Prominence      `json:"prominence"`
	Culture     string          `json:"culture,omitempty"`
	Tags        map[string]bool `json:"tags,omitempty"`
	Coordinates Coordinates     `json:"coordinates"`
	CreatedAt   int             `json:"createdAt"`
	UpdatedAt   int             `json:"updatedAt"`
}

func (e *Entity) HasTag(tag string) bool {
	return e != nil && e.Tags[tag]
}

type Relationship struct {
	Kind        string   `json:"kind"`
	Src         string   `json:"src"`
	Dst         string   `json:"dst"`
	Strength    float64  `json:"strength"`
	CreatedAt   int      `json:"createdAt"`
	CatalyzedBy string   `json:"catalyzedBy,omitempty"`
	Distance    *float64 `json:"distance,omitempty"`
	ArchivedAt  *int     `json:"archivedAt,omitempty"`
}

func (r *Relationship) Key() RelationshipKey {
	return RelationshipKey{Src: r.Src, Dst: r.Dst, Kind: r.Kind}
}

func (r *Relationship) Active() bool {
	return r.ArchivedAt == nil
}

// Other returns the endpoint opposite id.
func (r *Relationship) Other(id string) string {
	if r.Src == id {
		return r.Dst
	}
	return r.Src
}

// RelationshipKey identifies an active relationship.
type RelationshipKey struct {
	Src  string `json:"src"`
	Dst  string `json:"dst"`
	Kind string `json:"kind"`
}

func (k RelationshipKey) String() string {
	return k.Src + " -" + k.Kind + "-> " + k.Dst
}

const placeholderPrefix = "will-be-assigned-"

// Ref points at an existing entity or at an entity declared earlier in
// the same ChangeSet.
type Ref struct {
	id          string
	index       int
	placeholder bool
}

func Existing(id string) Ref {
	return Ref{id: id}
}

// Placeholder refers to ChangeSet.Entities[n].
func Placeholder(n int) Ref {
	return Ref{index: n, placeholder: true}
}

// ParseRef accepts an entity id or a will-be-assigned-N placeholder.
func ParseRef(s string) Ref {
	if rest, ok := strings.CutPrefix(s, placeholderPrefix); ok {
		if n, err := strconv.Atoi(rest); err == nil && n >= 0 {
			return Placeholder(n)
		}
	}
	return Existing(s)
}

func (r Ref) IsPlaceholder() bool { return r.placeholder }
func (r Ref) Index() int          { return r.index }
func (r Ref) ID() string          { return r.id }

func (r Ref) String() string {
	if r.placeholder {
		return fmt.Sprintf("%s%d", placeholderPrefix, r.index)
	}
	return r.id
}

type EntityDraft struct {
	Kind        string
	Subtype     string
	Name        string
	Description string
	Status      string
	Culture     string
	Prominence  Prominence
	Tags        []string
	Coordinates *Coordinates
}

const DefaultStrength = 0.7

type RelationshipDraft struct {
	Kind     string
	Src      Ref
	Dst      Ref
	Strength float64
	Distance *float64
}

type Field string

const (
	FieldStatus      Field = "status"
	FieldProminence  Field = "prominence"
	FieldCulture     Field = "culture"
	FieldName        Field = "name"
	FieldDescription Field = "description"
	FieldTag         Field = "tag"
	FieldUntag       Field = "untag"
)

// Tracked reports whether changes to f feed the narrative tracker.
func (f Field) Tracked() bool {
	return f == FieldStatus || f == FieldProminence || f == FieldCulture
}

type FieldChange struct {
	EntityID string
	Field    Field
	Value    string
}

// ChangeSet is the unit of graph mutation. Graph.Apply commits all of it
// or none of it.
type ChangeSet struct {
	Entities      []EntityDraft
	Relationships []RelationshipDraft
	Dissolve      []RelationshipKey
	Fields        []FieldChange
	Description   string
}

func (cs ChangeSet) Empty() bool {
	return len(cs.Entities) == 0 && len(cs.Relationships) == 0 && len(cs.Dissolve) == 0 && len(cs.Fields) == 0
}

// Merge appends other's changes. Placeholders in other are shifted past
// the entities already in cs.
func (cs *ChangeSet) Merge(other ChangeSet) {
	offset := len(cs.Entities)
	cs.Entities = append(cs.Entities, other.Entities...)
	for _, rel := range other.Relationships {
		if rel.Src.placeholder {
			rel.Src = Placeholder(rel.Src.index + offset)
		}
		if rel.Dst.placeholder {
			rel.Dst = Placeholder(rel.Dst.index + offset)
		}
		cs.Relationships = append(cs.Relationships, rel)
	}
	cs.Dissolve = append(cs.Dissolve, other.Dissolve...)
	cs.Fields = append(cs.Fields, other.Fields...)
	if other.Description != "" {
		if cs.Description == "" {
			cs.Description = other.Description
		} else {
			cs.Description += "; " + other.Description
		}
	}
}

// Committed reports what a successful Apply changed.
type Committed struct {
	EntityIDs     []string
	Relationships []RelationshipKey
	Merged        []RelationshipKey
	Archived      []RelationshipKey
	Modified      []string
}

// Resolve returns the graph id a ref points at after the commit.
func (c Committed) Resolve(ref Ref) string {
	if ref.placeholder {
		if ref.index < len(c.EntityIDs) {
			return c.EntityIDs[ref.index]
		}
		return ""
	}
	return ref.id
}
