package engine

import (
	"fmt"
	"time"

	"worldloom/internal/catalyst"
	"worldloom/internal/config"
	"worldloom/internal/narrative"
	"worldloom/internal/world"
)

type Options struct {
	Project     string
	Seed        int64
	Ticks       int
	EpochLength int

	Overshoot         float64
	MaxSuccessChance  float64
	PopulationTargets []config.PopulationTarget
	ActivityRates     map[world.Prominence]float64
	Parameters        map[string]map[string]float64
	Systems           []string
	Tuning            map[string]float64

	Narrative narrative.Options
	Recorder  Recorder
}

// OptionsFromConfig maps a project config onto engine options.
func OptionsFromConfig(cfg *config.ProjectConfig) (Options, error) {
	opts := Options{
		Project:           cfg.Project,
		Seed:              cfg.Seed,
		Ticks:             cfg.Ticks,
		EpochLength:       cfg.EpochLength,
		Overshoot:         cfg.Simulation.Overshoot,
		MaxSuccessChance:  cfg.Simulation.MaxSuccessChance,
		PopulationTargets: cfg.Simulation.PopulationTargets,
		Parameters:        cfg.Simulation.Parameters,
		Systems:           cfg.Simulation.Systems,
		Tuning:            cfg.Simulation.Tuning,
		Narrative: narrative.Options{
			Enabled:         cfg.Narrative.Enabled,
			MinSignificance: cfg.Narrative.MinSignificance,
		},
	}
	if len(cfg.Simulation.ActivityRates) > 0 {
		rates := catalyst.DefaultActivityRates()
		for name, rate := range cfg.Simulation.ActivityRates {
			p, err := world.ParseProminence(name)
			if err != nil {
				return Options{}, fmt.Errorf("simulation.activity_rates: %w", err)
			}
			rates[p] = rate
		}
		opts.ActivityRates = rates
	}
	return opts, nil
}

// Recorder receives per-tick measurements.
type Recorder interface {
	ObserveTick(d time.Duration)
	SetPressure(id string, value float64)
	SetGraphSize(entities, relationships int)
	CountCommit(source string, ok bool)
	CountNarrativeEvent(eventType string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveTick(time.Duration) {}
func (nopRecorder) SetPressure(string, float64) {}
func (nopRecorder) SetGraphSize(int, int) {}
func (nopRecorder) CountCommit(string, bool) {}
func (nopRecorder) CountNarrativeEvent(string) {}
