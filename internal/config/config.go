package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTicks            = 150
	DefaultEpochLength      = 20
	DefaultOvershoot        = 1.5
	DefaultMaxSuccessChance = 0.95
	DefaultOutput           = "world.json"
)

type ProjectConfig struct {
	Project     string           `yaml:"project" validate:"required"`
	Version     int              `yaml:"version" validate:"eq=1"`
	Domain      string           `yaml:"domain" validate:"required"`
	Schema      string           `yaml:"schema"`
	Seed        int64            `yaml:"seed" env:"WORLDLOOM_SEED"`
	Ticks       int              `yaml:"ticks" env:"WORLDLOOM_TICKS" validate:"gt=0"`
	EpochLength int              `yaml:"epoch_length" validate:"gt=0"`
	LogLevel    string           `yaml:"log_level" env:"WORLDLOOM_LOG_LEVEL" validate:"omitempty,oneof=debug info warn error"`
	Output      string           `yaml:"output"`
	Database    DatabaseConfig   `yaml:"database"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	Narrative   NarrativeConfig  `yaml:"narrative"`
	Simulation  SimulationConfig `yaml:"simulation"`

	dir string
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"WORLDLOOM_DSN"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr" env:"WORLDLOOM_METRICS_ADDR"`
}

type NarrativeConfig struct {
	Enabled         bool    `yaml:"enabled"`
	MinSignificance float64 `yaml:"min_significance" validate:"gte=0,lte=1"`
}

type SimulationConfig struct {
	Systems           []string                      `yaml:"systems"`
	Overshoot         float64                       `yaml:"overshoot" validate:"gte=1"`
	MaxSuccessChance  float64                       `yaml:"max_success_chance" validate:"gt=0,lte=1"`
	PopulationTargets []PopulationTarget            `yaml:"population_targets" validate:"dive"`
	ActivityRates     map[string]float64            `yaml:"activity_rates" validate:"dive,gte=0,lte=1"`
	Parameters        map[string]map[string]float64 `yaml:"parameters"`
	Tuning            map[string]float64            `yaml:"tuning"`
}

type PopulationTarget struct {
	Kind    string `yaml:"kind" validate:"required"`
	Subtype string `yaml:"subtype"`
	Target  int    `yaml:"target" validate:"gt=0"`
}

var structValidate = validator.New(validator.WithRequiredStructEnabled())

// Default returns a config carrying every default a worldloom.yaml may omit.
func Default() ProjectConfig {
	return ProjectConfig{
		Version:     1,
		Ticks:       DefaultTicks,
		EpochLength: DefaultEpochLength,
		LogLevel:    "info",
		Output:      DefaultOutput,
		Narrative: NarrativeConfig{
			Enabled:         true,
			MinSignificance: 0.3,
		},
		Simulation: SimulationConfig{
			Overshoot:        DefaultOvershoot,
			MaxSuccessChance: DefaultMaxSuccessChance,
		},
	}
}

func LoadProjectConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	if err := ApplyEnv(&cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	if err := validateProjectConfig(&cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	cfg.dir = filepath.Dir(path)
	return &cfg, nil
}

// SchemaPath resolves the schema override relative to the config file.
// An empty result means the domain's built-in schema is used.
func (c *ProjectConfig) SchemaPath() string {
	if strings.TrimSpace(c.Schema) == "" {
		return ""
	}
	if filepath.IsAbs(c.Schema) || c.dir == "" {
		return c.Schema
	}
	return filepath.Join(c.dir, c.Schema)
}

// OutputPath resolves the snapshot output relative to the config file.
func (c *ProjectConfig) OutputPath() string {
	out := c.Output
	if strings.TrimSpace(out) == "" {
		out = DefaultOutput
	}
	if filepath.IsAbs(out) || c.dir == "" {
		return out
	}
	return filepath.Join(c.dir, out)
}

func validateProjectConfig(cfg *ProjectConfig) error {
	if strings.TrimSpace(cfg.Project) == "" {
		return fmt.Errorf("project name is required")
	}
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported version: %d", cfg.Version)
	}
	if err := structValidate.Struct(cfg); err != nil {
		return describeValidation(err)
	}

	seen := make(map[string]struct{})
	for i, target := range cfg.Simulation.PopulationTargets {
		key := strings.ToLower(target.Kind) + "/" + strings.ToLower(target.Subtype)
		if _, exists := seen[key]; exists {
			return fmt.Errorf("population target %d duplicates %s", i, key)
		}
		seen[key] = struct{}{}
	}

	systems := make(map[string]struct{})
	for _, name := range cfg.Simulation.Systems {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("simulation system name must not be empty")
		}
		if _, exists := systems[name]; exists {
			return fmt.Errorf("duplicate simulation system: %s", name)
		}
		systems[name] = struct{}{}
	}

	return nil
}

func describeValidation(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	if fe.Param() != "" {
		return fmt.Errorf("%s fails %s=%s (got %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value())
	}
	return fmt.Errorf("%s fails %s", fe.Namespace(), fe.Tag())
}
