package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	CategoryImmutableFact = "immutable_fact"
	CategoryStructural    = "structural"
	CategoryPolitical     = "political"
	CategoryEconomic      = "economic"
	CategoryMagical       = "magical"
	CategorySocial        = "social"
	CategoryAttribution   = "attribution"
	CategoryTemporal      = "temporal"
	CategoryIdeological   = "ideological"
)

// Categories lists every relationship category in a stable order.
var Categories = []string{
	CategoryImmutableFact,
	CategoryStructural,
	CategoryPolitical,
	CategoryEconomic,
	CategoryMagical,
	CategorySocial,
	CategoryAttribution,
	CategoryTemporal,
	CategoryIdeological,
}

const (
	PolarityPositive = "positive"
	PolarityNegative = "negative"
	PolarityNeutral  = "neutral"
)

type Schema struct {
	Version            int                `yaml:"version" validate:"eq=1"`
	EntityKinds        []EntityKind       `yaml:"entity_kinds" validate:"required,min=1,dive"`
	RelationshipKinds  []RelationshipKind `yaml:"relationship_kinds" validate:"dive"`
	Categories         []CategoryPolicy   `yaml:"categories" validate:"dive"`
	Cultures           []Culture          `yaml:"cultures" validate:"dive"`
	RelationshipLimits map[string]int     `yaml:"relationship_limits" validate:"dive,gt=0"`

	entityIndex   map[string]*EntityKind
	relIndex      map[string]*RelationshipKind
	categoryIndex map[string]*CategoryPolicy
	cultureIndex  map[string]*Culture
}

type EntityKind struct {
	Name                  string    `yaml:"name" validate:"required"`
	Subtypes              []Subtype `yaml:"subtypes" validate:"required,min=1,dive"`
	Statuses              []Status  `yaml:"statuses" validate:"required,min=1,dive"`
	DefaultStatus         string    `yaml:"default_status" validate:"required"`
	Lineage               string    `yaml:"lineage"`
	RequiredRelationships []string  `yaml:"required_relationships"`
}

type Subtype struct {
	Name      string `yaml:"name" validate:"required"`
	Authority bool   `yaml:"authority"`
}

type Status struct {
	Name       string `yaml:"name" validate:"required"`
	Polarity   string `yaml:"polarity" validate:"omitempty,oneof=positive negative neutral"`
	Historical bool   `yaml:"historical"`
}

type RelationshipKind struct {
	Name          string    `yaml:"name" validate:"required"`
	SrcKinds      []string  `yaml:"src_kinds" validate:"required,min=1"`
	DstKinds      []string  `yaml:"dst_kinds" validate:"required,min=1"`
	Category      string    `yaml:"category" validate:"required"`
	Polarity      string    `yaml:"polarity" validate:"omitempty,oneof=positive negative neutral"`
	Protected     bool      `yaml:"protected"`
	Structural    bool      `yaml:"structural"`
	Container     bool      `yaml:"container"`
	ConflictsWith []string  `yaml:"conflicts_with"`
	DistanceRange []float64 `yaml:"distance_range" validate:"omitempty,len=2"`
}

// CategoryPolicy overrides the lifecycle defaults of one category.
// Nil fields keep the built-in value.
type CategoryPolicy struct {
	Name          string   `yaml:"name" validate:"required"`
	DecayRate     *float64 `yaml:"decay_rate" validate:"omitempty,gte=0,lte=1"`
	ReinforceRate *float64 `yaml:"reinforce_rate" validate:"omitempty,gte=0,lte=1"`
	ReinforceWhen string   `yaml:"reinforce_when"`
	CullFloor     *float64 `yaml:"cull_floor" validate:"omitempty,gte=0,lte=1"`
}

type Culture struct {
	Name        string `yaml:"name" validate:"required"`
	Description string `yaml:"description"`
}

func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading schema: %w", err)
	}
	schema, err := ParseSchema(data)
	if err != nil {
		return nil, fmt.Errorf("loading schema: %w", err)
	}
	return schema, nil
}

// ParseSchema decodes and validates a schema document.
func ParseSchema(data []byte) (*Schema, error) {
	var schema Schema
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return nil, err
	}

	if err := validateSchema(&schema); err != nil {
		return nil, err
	}

	schema.index()
	return &schema, nil
}

func (s *Schema) index() {
	s.entityIndex = make(map[string]*EntityKind)
	for i := range s.EntityKinds {
		kind := &s.EntityKinds[i]
		s.entityIndex[strings.ToLower(kind.Name)] = kind
	}

	s.relIndex = make(map[string]*RelationshipKind)
	for i := range s.RelationshipKinds {
		rel := &s.RelationshipKinds[i]
		s.relIndex[strings.ToLower(rel.Name)] = rel
	}

	s.categoryIndex = make(map[string]*CategoryPolicy)
	for i := range s.Categories {
		cat := &s.Categories[i]
		s.categoryIndex[strings.ToLower(cat.Name)] = cat
	}

	s.cultureIndex = make(map[string]*Culture)
	for i := range s.Cultures {
		culture := &s.Cultures[i]
		s.cultureIndex[strings.ToLower(culture.Name)] = culture
	}
}

func validateSchema(s *Schema) error {
	if s.Version != 1 {
		return fmt.Errorf("unsupported version: %d", s.Version)
	}
	if len(s.EntityKinds) == 0 {
		return fmt.Errorf("at least one entity kind is required")
	}
	if err := structValidate.Struct(s); err != nil {
		return describeValidation(err)
	}

	kindNames := make(map[string]struct{})
	for _, kind := range s.EntityKinds {
		key := strings.ToLower(kind.Name)
		if _, exists := kindNames[key]; exists {
			return fmt.Errorf("duplicate entity kind name: %s", kind.Name)
		}
		kindNames[key] = struct{}{}

		subtypes := make(map[string]struct{})
		for _, sub := range kind.Subtypes {
			name := strings.ToLower(sub.Name)
			if _, exists := subtypes[name]; exists {
				return fmt.Errorf("entity kind %s has duplicate subtype: %s", kind.Name, sub.Name)
			}
			subtypes[name] = struct{}{}
		}

		statuses := make(map[string]struct{})
		for _, status := range kind.Statuses {
			name := strings.ToLower(status.Name)
			if _, exists := statuses[name]; exists {
				return fmt.Errorf("entity kind %s has duplicate status: %s", kind.Name, status.Name)
			}
			statuses[name] = struct{}{}
		}
		if _, ok := statuses[strings.ToLower(kind.DefaultStatus)]; !ok {
			return fmt.Errorf("entity kind %s default status %s is not declared", kind.Name, kind.DefaultStatus)
		}
	}

	relNames := make(map[string]*RelationshipKind)
	for i := range s.RelationshipKinds {
		rel := &s.RelationshipKinds[i]
		key := strings.ToLower(rel.Name)
		if _, exists := relNames[key]; exists {
			return fmt.Errorf("duplicate relationship kind name: %s", rel.Name)
		}
		relNames[key] = rel

		if !slices.Contains(Categories, rel.Category) {
			return fmt.Errorf("relationship kind %s has unknown category: %s", rel.Name, rel.Category)
		}
		for _, k := range append(slices.Clone(rel.SrcKinds), rel.DstKinds...) {
			if _, ok := kindNames[strings.ToLower(k)]; !ok {
				return fmt.Errorf("relationship kind %s references unknown entity kind: %s", rel.Name, k)
			}
		}
		if len(rel.DistanceRange) == 2 {
			lo, hi := rel.DistanceRange[0], rel.DistanceRange[1]
			if lo < 0 || hi < lo {
				return fmt.Errorf("relationship kind %s has invalid distance range [%g, %g]", rel.Name, lo, hi)
			}
		}
	}

	for _, rel := range s.RelationshipKinds {
		for _, other := range rel.ConflictsWith {
			if _, ok := relNames[strings.ToLower(other)]; !ok {
				return fmt.Errorf("relationship kind %s conflicts with unknown kind: %s", rel.Name, other)
			}
		}
	}

	for _, kind := range s.EntityKinds {
		if kind.Lineage != "" {
			rel, ok := relNames[strings.ToLower(kind.Lineage)]
			if !ok {
				return fmt.Errorf("entity kind %s lineage references unknown relationship: %s", kind.Name, kind.Lineage)
			}
			if len(rel.DistanceRange) != 2 {
				return fmt.Errorf("entity kind %s lineage %s has no distance range", kind.Name, kind.Lineage)
			}
			if !containsFold(rel.SrcKinds, kind.Name) || !containsFold(rel.DstKinds, kind.Name) {
				return fmt.Errorf("entity kind %s lineage %s must link %s to %s", kind.Name, kind.Lineage, kind.Name, kind.Name)
			}
		}
		for _, req := range kind.RequiredRelationships {
			if _, ok := relNames[strings.ToLower(req)]; !ok {
				return fmt.Errorf("entity kind %s requires unknown relationship: %s", kind.Name, req)
			}
		}
	}

	catNames := make(map[string]struct{})
	for _, cat := range s.Categories {
		if !slices.Contains(Categories, cat.Name) {
			return fmt.Errorf("unknown category override: %s", cat.Name)
		}
		if _, exists := catNames[cat.Name]; exists {
			return fmt.Errorf("duplicate category override: %s", cat.Name)
		}
		catNames[cat.Name] = struct{}{}
	}

	cultures := make(map[string]struct{})
	for _, culture := range s.Cultures {
		key := strings.ToLower(culture.Name)
		if _, exists := cultures[key]; exists {
			return fmt.Errorf("duplicate culture: %s", culture.Name)
		}
		cultures[key] = struct{}{}
	}

	for name := range s.RelationshipLimits {
		if _, ok := relNames[strings.ToLower(name)]; !ok {
			return fmt.Errorf("relationship limit references unknown kind: %s", name)
		}
	}

	return nil
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}

func (s *Schema) EntityKindByName(name string) (*EntityKind, bool) {
	if s == nil {
		return nil, false
	}
	kind, ok := s.entityIndex[strings.ToLower(name)]
	return kind, ok
}

func (s *Schema) RelationshipKindByName(name string) (*RelationshipKind, bool) {
	if s == nil {
		return nil, false
	}
	rel, ok := s.relIndex[strings.ToLower(name)]
	return rel, ok
}

func (s *Schema) CategoryOverride(name string) (*CategoryPolicy, bool) {
	if s == nil {
		return nil, false
	}
	cat, ok := s.categoryIndex[strings.ToLower(name)]
	return cat, ok
}

func (s *Schema) IsValidEntityKind(name string) bool {
	_, ok := s.EntityKindByName(name)
	return ok
}

func (s *Schema) IsValidRelationshipKind(name string) bool {
	_, ok := s.RelationshipKindByName(name)
	return ok
}

// IsValidCulture reports whether name is declared. An empty culture is always valid.
func (s *Schema) IsValidCulture(name string) bool {
	if name == "" {
		return true
	}
	if s == nil || len(s.cultureIndex) == 0 {
		return false
	}
	_, ok := s.cultureIndex[strings.ToLower(name)]
	return ok
}

// RelationshipLimit returns the maximum number of active outgoing
// relationships of kind one entity may hold.
func (s *Schema) RelationshipLimit(kind string) (int, bool) {
	if s == nil {
		return 0, false
	}
	for name, limit := range s.RelationshipLimits {
		if strings.EqualFold(name, kind) {
			return limit, true
		}
	}
	return 0, false
}

func (k *EntityKind) Subtype(name string) (*Subtype, bool) {
	for i := range k.Subtypes {
		if strings.EqualFold(k.Subtypes[i].Name, name) {
			return &k.Subtypes[i], true
		}
	}
	return nil, false
}

func (k *EntityKind) Status(name string) (*Status, bool) {
	for i := range k.Statuses {
		if strings.EqualFold(k.Statuses[i].Name, name) {
			return &k.Statuses[i], true
		}
	}
	return nil, false
}

func (k *EntityKind) HasSubtype(name string) bool {
	_, ok := k.Subtype(name)
	return ok
}

func (k *EntityKind) HasStatus(name string) bool {
	_, ok := k.Status(name)
	return ok
}

// HistoricalStatus returns the first declared historical status, or "".
func (k *EntityKind) HistoricalStatus() string {
	for _, status := range k.Statuses {
		if status.Historical {
			return status.Name
		}
	}
	return ""
}

// IsHistorical reports whether status marks an entity as no longer live.
func (k *EntityKind) IsHistorical(status string) bool {
	st, ok := k.Status(status)
	return ok && st.Historical
}

// Permits reports whether the relationship kind accepts the given endpoint kinds.
func (r *RelationshipKind) Permits(srcKind, dstKind string) bool {
	return containsFold(r.SrcKinds, srcKind) && containsFold(r.DstKinds, dstKind)
}

// ConflictsWithKind reports whether other may not coexist with r between one ordered pair.
func (r *RelationshipKind) ConflictsWithKind(other string) bool {
	return containsFold(r.ConflictsWith, other)
}

// Mutable reports whether the lifecycle manager may touch relationships of this kind.
func (r *RelationshipKind) Mutable() bool {
	switch r.Category {
	case CategoryImmutableFact, CategoryAttribution, CategoryTemporal:
		return false
	}
	return true
}

// EffectivePolarity defaults an unset polarity to neutral.
func (r *RelationshipKind) EffectivePolarity() string {
	if r.Polarity == "" {
		return PolarityNeutral
	}
	return r.Polarity
}

func (st *Status) EffectivePolarity() string {
	if st.Polarity == "" {
		return PolarityNeutral
	}
	return st.Polarity
}
