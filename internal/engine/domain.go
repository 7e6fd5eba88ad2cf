package engine

import (
	"errors"
	"fmt"

	"worldloom/internal/catalyst"
	"worldloom/internal/config"
	"worldloom/internal/lifecycle"
	"worldloom/internal/pressure"
	"worldloom/internal/systems"
	"worldloom/internal/template"
)

var ErrInvalidDomain = errors.New("invalid domain")

// Era is a macro-phase of the run that reweights templates and actions.
type Era struct {
	ID              string
	Subtype         string
	Name            string
	Duration        int
	TemplateWeights map[string]float64
	ActionWeights   map[string]float64
}

// Domain is the swappable content of one fictional setting.
type Domain struct {
	Name      string
	Schema    *config.Schema
	Pressures []pressure.Pressure
	Templates []template.Template
	Actions   []catalyst.ActionDomain
	Eras      []Era

	// EraKind and OccurrenceKind name the entity kinds the scheduler creates.
	EraKind        string
	OccurrenceKind string
	// SuccessionKind links consecutive eras; ParticipationKind links
	// entities to the occurrences they are caught up in.
	SuccessionKind    string
	ParticipationKind string

	Vocabulary systems.Vocabulary
	Links      lifecycle.Links
}

// Validate checks the parts of the domain the scheduler relies on against
// its schema.
func (d *Domain) Validate() error {
	if d.Schema == nil {
		return fmt.Errorf("domain %s: %w: schema is required", d.Name, ErrInvalidDomain)
	}
	if len(d.Eras) > 0 {
		kind, ok := d.Schema.EntityKindByName(d.EraKind)
		if !ok {
			return fmt.Errorf("domain %s: %w: era kind %q not in schema", d.Name, ErrInvalidDomain, d.EraKind)
		}
		seen := make(map[string]bool)
		for _, era := range d.Eras {
			if era.ID == "" || seen[era.ID] {
				return fmt.Errorf("domain %s: %w: era id %q missing or duplicated", d.Name, ErrInvalidDomain, era.ID)
			}
			seen[era.ID] = true
			if !kind.HasSubtype(era.Subtype) {
				return fmt.Errorf("domain %s: %w: era %s subtype %q", d.Name, ErrInvalidDomain, era.ID, era.Subtype)
			}
			if era.Duration <= 0 {
				return fmt.Errorf("domain %s: %w: era %s needs a positive duration", d.Name, ErrInvalidDomain, era.ID)
			}
		}
		if kind.HistoricalStatus() == "" {
			return fmt.Errorf("domain %s: %w: era kind %s has no historical status", d.Name, ErrInvalidDomain, kind.Name)
		}
		if d.SuccessionKind != "" && !d.Schema.IsValidRelationshipKind(d.SuccessionKind) {
			return fmt.Errorf("domain %s: %w: succession kind %q not in schema", d.Name, ErrInvalidDomain, d.SuccessionKind)
		}
	}
	for _, p := range d.Pressures {
		if p.Occurrence == nil {
			continue
		}
		kind, ok := d.Schema.EntityKindByName(d.OccurrenceKind)
		if !ok {
			return fmt.Errorf("domain %s: %w: occurrence kind %q not in schema", d.Name, ErrInvalidDomain, d.OccurrenceKind)
		}
		if !kind.HasSubtype(p.Occurrence.Subtype) {
			return fmt.Errorf("domain %s: %w: pressure %s occurrence subtype %q", d.Name, ErrInvalidDomain, p.ID, p.Occurrence.Subtype)
		}
		if d.ParticipationKind != "" && !d.Schema.IsValidRelationshipKind(d.ParticipationKind) {
			return fmt.Errorf("domain %s: %w: participation kind %q not in schema", d.Name, ErrInvalidDomain, d.ParticipationKind)
		}
	}
	return nil
}

// Era returns the era with id.
func (d *Domain) Era(id string) (Era, bool) {
	for _, era := range d.Eras {
		if era.ID == id {
			return era, true
		}
	}
	return Era{}, false
}
