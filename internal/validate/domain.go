package validate

import (
	"strings"

	"worldloom/internal/engine"
)

// knownIDs holds every name a pressure or era may refer to.
type knownIDs struct {
	templates map[string]bool
	actions   map[string]bool
	pressures map[string]bool
}

func (k knownIDs) mechanism(id string) bool {
	return k.templates[id] || k.actions[id]
}

func collectIDs(d engine.Domain) knownIDs {
	k := knownIDs{
		templates: make(map[string]bool),
		actions:   make(map[string]bool),
		pressures: make(map[string]bool),
	}
	for _, t := range d.Templates {
		k.templates[t.ID()] = true
	}
	for _, domain := range d.Actions {
		for _, a := range domain.Actions {
			k.actions[a.ID] = true
		}
	}
	for _, p := range d.Pressures {
		k.pressures[p.ID] = true
	}
	return k
}

func checkTemplates(r *Report, d engine.Domain) {
	for _, t := range d.Templates {
		produces := t.Metadata().Produces
		for _, shape := range produces.Entities {
			kind, ok := d.Schema.EntityKindByName(shape.Kind)
			if !ok {
				r.add(SeverityError, codeSchemaDrift, t.ID(), "template %s produces unknown kind %q", t.ID(), shape.Kind)
				continue
			}
			if shape.Subtype != "" && !kind.HasSubtype(shape.Subtype) {
				r.add(SeverityError, codeSchemaDrift, t.ID(), "template %s produces unknown subtype %s/%s", t.ID(), kind.Name, shape.Subtype)
			}
		}
		for _, rel := range produces.Relationships {
			if !d.Schema.IsValidRelationshipKind(rel) {
				r.add(SeverityError, codeSchemaDrift, t.ID(), "template %s produces unknown relationship kind %q", t.ID(), rel)
			}
		}
	}
}

func checkActions(r *Report, d engine.Domain) {
	pressures := make(map[string]bool)
	for _, p := range d.Pressures {
		pressures[p.ID] = true
	}
	for _, domain := range d.Actions {
		for _, actor := range domain.ValidActors {
			kind, ok := d.Schema.EntityKindByName(actor.Kind)
			if !ok {
				r.add(SeverityError, codeSchemaDrift, domain.ID, "action domain %s accepts unknown kind %q", domain.ID, actor.Kind)
				continue
			}
			for _, sub := range actor.Subtypes {
				if !kind.HasSubtype(sub) {
					r.add(SeverityError, codeSchemaDrift, domain.ID, "action domain %s accepts unknown subtype %s/%s", domain.ID, kind.Name, sub)
				}
			}
		}
		for _, id := range sortedKeys(domain.PressureAmplifiers) {
			if !pressures[id] {
				r.add(SeverityWarn, codeDanglingPressure, domain.ID, "action domain %s is amplified by unknown pressure %q", domain.ID, id)
			}
		}
		for _, a := range domain.Actions {
			for _, rel := range append(append([]string(nil), a.Produces...), a.Requirements.Relationships...) {
				if !d.Schema.IsValidRelationshipKind(rel) {
					r.add(SeverityError, codeSchemaDrift, a.ID, "action %s refers to unknown relationship kind %q", a.ID, rel)
				}
			}
			for _, id := range sortedKeys(a.Requirements.Pressures) {
				if !pressures[id] {
					r.add(SeverityWarn, codeDanglingPressure, a.ID, "action %s requires unknown pressure %q", a.ID, id)
				}
			}
		}
	}
}

func checkPressures(r *Report, d engine.Domain, ids knownIDs) {
	for _, p := range d.Pressures {
		for _, a := range p.Contract.Affects {
			if !ids.mechanism(a.Target) {
				r.add(SeverityWarn, codeDanglingAffect, p.ID, "pressure %s affects unknown template or action %q", p.ID, a.Target)
			}
		}
		for _, name := range append(append([]string(nil), p.Contract.Sources...), p.Contract.Sinks...) {
			if !ids.mechanism(name) && !d.Schema.IsValidRelationshipKind(name) {
				r.add(SeverityWarn, codeDanglingContract, p.ID, "pressure %s contract names unknown %q", p.ID, name)
			}
		}
		if rng := p.Contract.Equilibrium.ExpectedRange; rng[0] > rng[1] {
			r.add(SeverityWarn, codeEquilibriumInverted, p.ID, "pressure %s expected range [%g, %g] is inverted", p.ID, rng[0], rng[1])
		}
	}
}

func checkEras(r *Report, d engine.Domain, ids knownIDs) {
	for _, era := range d.Eras {
		for _, id := range sortedKeys(era.TemplateWeights) {
			if !ids.templates[id] {
				r.add(SeverityWarn, codeDanglingEraWeight, era.ID, "era %s weights unknown template %q", era.ID, id)
			}
		}
		for _, id := range sortedKeys(era.ActionWeights) {
			if !ids.actions[id] {
				r.add(SeverityWarn, codeDanglingEraWeight, era.ID, "era %s weights unknown action %q", era.ID, id)
			}
		}
	}
}

func checkVocabulary(r *Report, d engine.Domain) {
	v := d.Vocabulary
	for _, kind := range []string{v.Person, v.Faction, v.Location} {
		if kind != "" && !d.Schema.IsValidEntityKind(kind) {
			r.add(SeverityError, codeSchemaDrift, kind, "system vocabulary names unknown entity kind %q", kind)
		}
	}
	rels := []string{v.Residence, v.Membership, v.Leadership, v.Practice, v.Belief, v.Friendship, v.Mentorship, v.Trade, v.War, v.Alliance}
	rels = append(rels, d.Links.Residence...)
	rels = append(rels, d.Links.Membership...)
	rels = append(rels, d.Links.Practice...)
	for _, rel := range rels {
		if rel != "" && !d.Schema.IsValidRelationshipKind(rel) {
			r.add(SeverityError, codeSchemaDrift, rel, "system vocabulary names unknown relationship kind %q", rel)
		}
	}
}

// checkOrphanKinds flags entity kinds that nothing in the domain ever creates.
func checkOrphanKinds(r *Report, d engine.Domain) {
	produced := map[string]bool{
		strings.ToLower(d.EraKind):        true,
		strings.ToLower(d.OccurrenceKind): true,
	}
	for _, t := range d.Templates {
		for _, shape := range t.Metadata().Produces.Entities {
			produced[strings.ToLower(shape.Kind)] = true
		}
	}
	for _, kind := range d.Schema.EntityKinds {
		if !produced[strings.ToLower(kind.Name)] {
			r.add(SeverityWarn, codeOrphanKind, kind.Name, "no template produces entity kind %s", kind.Name)
		}
	}
}
