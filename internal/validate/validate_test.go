package validate

import (
	"testing"

	"worldloom/internal/config"
	"worldloom/internal/domain/frontier"
	"worldloom/internal/engine"
	"worldloom/internal/pressure"
	"worldloom/internal/template"
)

func hasIssueCode(issues []Issue, code string) bool {
	for _, issue := range issues {
		if issue.Code == code {
			return true
		}
	}
	return false
}

func loadDomain(t *testing.T) engine.Domain {
	t.Helper()
	d, err := frontier.New(nil)
	if err != nil {
		t.Fatalf("frontier.New() error = %v", err)
	}
	return d
}

func run(t *testing.T, d engine.Domain, cfg *config.ProjectConfig) *Report {
	t.Helper()
	report, err := Run(d, cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return report
}

func TestRunCleanDomain(t *testing.T) {
	cfg := config.Default()
	cfg.Simulation.Tuning = map[string]float64{"contagion.rate": 0.1}
	cfg.Simulation.ActivityRates = map[string]float64{"renowned": 0.9}
	cfg.Simulation.Parameters = map[string]map[string]float64{"settler_arrival": {"group_size": 4}}

	report := run(t, loadDomain(t), &cfg)
	if len(report.Issues) != 0 {
		t.Fatalf("expected no issues, got %+v", report.Issues)
	}
}

func TestRunRequiresSchema(t *testing.T) {
	if _, err := Run(engine.Domain{Name: "empty"}, nil); err == nil {
		t.Fatal("expected error for domain without schema")
	}
}

func TestRunConfigDrift(t *testing.T) {
	cfg := config.Default()
	cfg.Simulation.Systems = []string{"weather"}
	cfg.Simulation.Tuning = map[string]float64{"weather.rate": 1}
	cfg.Simulation.PopulationTargets = []config.PopulationTarget{
		{Kind: "dragon", Target: 3},
		{Kind: "npc", Subtype: "wizard", Target: 3},
	}
	cfg.Simulation.ActivityRates = map[string]float64{"legendary": 0.5}

	report := run(t, loadDomain(t), &cfg)
	for _, code := range []string{codeUnknownSystem, codeUnknownTuning, codeUnknownTarget, codeActivityRate} {
		if !hasIssueCode(report.Issues, code) {
			t.Errorf("expected %s issue, got %+v", code, report.Issues)
		}
	}
	if report.Errors() != 3 {
		t.Errorf("Errors() = %d, want 3", report.Errors())
	}
	if report.Warnings() != 2 {
		t.Errorf("Warnings() = %d, want 2", report.Warnings())
	}
}

func TestRunParameters(t *testing.T) {
	cfg := config.Default()
	cfg.Simulation.Parameters = map[string]map[string]float64{
		"settler_arrival": {"group_size": 99, "caravan": 1},
		"dragon_hatching": {"clutch": 2},
	}

	report := run(t, loadDomain(t), &cfg)
	if !hasIssueCode(report.Issues, codeParameterRange) {
		t.Errorf("expected %s issue, got %+v", codeParameterRange, report.Issues)
	}
	unknown := 0
	for _, issue := range report.Issues {
		if issue.Code == codeUnknownParameter {
			unknown++
		}
	}
	if unknown != 2 {
		t.Errorf("unknown parameter issues = %d, want 2", unknown)
	}
}

func TestRunDanglingReferences(t *testing.T) {
	d := loadDomain(t)
	d.Pressures[0].Contract.Affects = append(d.Pressures[0].Contract.Affects, pressure.Affect{Target: "summon_dragon", Mode: pressure.Enables})
	d.Pressures[0].Contract.Sinks = append(d.Pressures[0].Contract.Sinks, "dragon_slaying")
	d.Pressures[1].Contract.Equilibrium.ExpectedRange = [2]float64{60, 10}
	d.Eras[0].TemplateWeights["dragon_hatching"] = 2
	d.Eras[0].ActionWeights["breathe_fire"] = 2
	d.Actions[0].PressureAmplifiers["dread"] = 1

	report := run(t, d, nil)
	for _, code := range []string{codeDanglingAffect, codeDanglingContract, codeEquilibriumInverted, codeDanglingEraWeight, codeDanglingPressure} {
		if !hasIssueCode(report.Issues, code) {
			t.Errorf("expected %s issue, got %+v", code, report.Issues)
		}
	}
	if report.Errors() != 0 {
		t.Errorf("dangling references should only warn, got %d errors", report.Errors())
	}
}

func TestRunSchemaDrift(t *testing.T) {
	d := loadDomain(t)
	d.Vocabulary.Trade = "bartered_with"
	d.Actions[1].Actions[0].Produces = []string{"bartered_with"}

	report := run(t, d, nil)
	drift := 0
	for _, issue := range report.Issues {
		if issue.Code == codeSchemaDrift {
			drift++
		}
	}
	if drift != 2 {
		t.Fatalf("schema drift issues = %d, want 2: %+v", drift, report.Issues)
	}
}

func TestRunOrphanKind(t *testing.T) {
	d := loadDomain(t)
	kept := make([]template.Template, 0, len(d.Templates))
	for _, tmpl := range d.Templates {
		if tmpl.ID() != "ability_discovery" {
			kept = append(kept, tmpl)
		}
	}
	d.Templates = kept

	report := run(t, d, nil)
	found := false
	for _, issue := range report.Issues {
		if issue.Code == codeOrphanKind && issue.Subject == "abilities" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected orphan issue for abilities, got %+v", report.Issues)
	}
}
