// Package validate reports drift between a domain, its schema and the
// project configuration that tunes it. Nothing here stops a run; the
// scheduler skips what it cannot resolve.
package validate

import (
	"fmt"
	"sort"
	"strings"

	"worldloom/internal/config"
	"worldloom/internal/engine"
	"worldloom/internal/systems"
	"worldloom/internal/world"
)

type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warning"
)

const (
	codeUnknownSystem       = "unknown_system"
	codeUnknownTuning       = "unknown_tuning_key"
	codeUnknownTarget       = "unknown_population_target"
	codeUnknownParameter    = "unknown_template_parameter"
	codeParameterRange      = "parameter_out_of_range"
	codeActivityRate        = "invalid_activity_rate"
	codeDanglingAffect      = "dangling_pressure_affect"
	codeDanglingContract    = "dangling_pressure_contract"
	codeDanglingPressure    = "dangling_pressure_reference"
	codeDanglingEraWeight   = "dangling_era_weight"
	codeSchemaDrift         = "schema_drift"
	codeOrphanKind          = "orphan_entity_kind"
	codeEquilibriumInverted = "equilibrium_inverted"
)

type Issue struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Subject  string   `json:"subject,omitempty"`
}

type Report struct {
	Issues []Issue `json:"issues"`
}

func (r *Report) add(severity Severity, code, subject, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{
		Severity: severity,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Subject:  subject,
	})
}

// Errors counts the error-severity issues.
func (r *Report) Errors() int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			n++
		}
	}
	return n
}

func (r *Report) Warnings() int {
	return len(r.Issues) - r.Errors()
}

// Run checks d against its own schema and against cfg. cfg may be nil.
func Run(d engine.Domain, cfg *config.ProjectConfig) (*Report, error) {
	if d.Schema == nil {
		return nil, fmt.Errorf("domain %s has no schema", d.Name)
	}
	r := &Report{Issues: make([]Issue, 0)}
	ids := collectIDs(d)

	checkTemplates(r, d)
	checkActions(r, d)
	checkPressures(r, d, ids)
	checkEras(r, d, ids)
	checkVocabulary(r, d)
	checkOrphanKinds(r, d)
	if cfg != nil {
		checkSystems(r, cfg)
		checkPopulationTargets(r, d.Schema, cfg.Simulation.PopulationTargets)
		checkParameters(r, d, cfg.Simulation.Parameters)
		checkActivityRates(r, cfg.Simulation.ActivityRates)
	}
	return r, nil
}

func checkSystems(r *Report, cfg *config.ProjectConfig) {
	known := make(map[string]bool)
	for _, name := range systems.Names() {
		known[name] = true
	}
	for _, name := range cfg.Simulation.Systems {
		if !known[name] {
			r.add(SeverityWarn, codeUnknownSystem, name, "unknown system %q is skipped at run time (known: %s)", name, strings.Join(systems.Names(), ", "))
		}
	}
	for _, key := range sortedKeys(cfg.Simulation.Tuning) {
		prefix, _, ok := strings.Cut(key, ".")
		if !ok || !known[prefix] {
			r.add(SeverityWarn, codeUnknownTuning, key, "tuning key %q does not name a system knob", key)
		}
	}
}

func checkPopulationTargets(r *Report, schema *config.Schema, targets []config.PopulationTarget) {
	for _, t := range targets {
		kind, ok := schema.EntityKindByName(t.Kind)
		if !ok {
			r.add(SeverityError, codeUnknownTarget, t.Kind, "population target names unknown kind %q", t.Kind)
			continue
		}
		if t.Subtype != "" && !kind.HasSubtype(t.Subtype) {
			r.add(SeverityError, codeUnknownTarget, t.Kind+"/"+t.Subtype, "population target names unknown subtype %q of %s", t.Subtype, kind.Name)
		}
	}
}

func checkParameters(r *Report, d engine.Domain, params map[string]map[string]float64) {
	declared := make(map[string]map[string][2]float64)
	for _, t := range d.Templates {
		ranges := make(map[string][2]float64)
		for _, p := range t.Metadata().Parameters {
			ranges[p.Name] = [2]float64{p.Min, p.Max}
		}
		declared[t.ID()] = ranges
	}
	for _, id := range sortedKeys(params) {
		ranges, ok := declared[id]
		if !ok {
			r.add(SeverityError, codeUnknownParameter, id, "parameters given for unknown template %q", id)
			continue
		}
		for _, name := range sortedKeys(params[id]) {
			bounds, ok := ranges[name]
			if !ok {
				r.add(SeverityError, codeUnknownParameter, id+"."+name, "template %s declares no parameter %q", id, name)
				continue
			}
			if v := params[id][name]; v < bounds[0] || v > bounds[1] {
				r.add(SeverityError, codeParameterRange, id+"."+name, "%s.%s=%g outside [%g, %g]", id, name, v, bounds[0], bounds[1])
			}
		}
	}
}

func checkActivityRates(r *Report, rates map[string]float64) {
	for _, key := range sortedKeys(rates) {
		if _, err := world.ParseProminence(key); err != nil {
			r.add(SeverityError, codeActivityRate, key, "activity rate key %q is not a prominence level", key)
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
