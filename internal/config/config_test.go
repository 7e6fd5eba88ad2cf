package config

import (
	"os"
	"path/filepath"
	"testing"
)

const minimalConfig = "project: test\nversion: 1\ndomain: frontier\n"

func TestLoadProjectConfig(t *testing.T) {
	t.Run("valid config loads", func(t *testing.T) {
		cfg, err := LoadProjectConfig(filepath.Join("testdata", "valid_config.yaml"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Project != "test-world" {
			t.Fatalf("expected project name, got %q", cfg.Project)
		}
		if cfg.Seed != 42 || cfg.Ticks != 60 || cfg.EpochLength != 10 {
			t.Fatalf("unexpected run settings: seed=%d ticks=%d epoch=%d", cfg.Seed, cfg.Ticks, cfg.EpochLength)
		}
		if len(cfg.Simulation.PopulationTargets) != 2 {
			t.Fatalf("expected 2 population targets, got %d", len(cfg.Simulation.PopulationTargets))
		}
		if cfg.Simulation.Parameters["faction_splinter"]["min_members"] != 3 {
			t.Fatalf("expected template parameter override")
		}
		if got := cfg.OutputPath(); got != filepath.Join("testdata", "out", "world.json") {
			t.Fatalf("expected output relative to config, got %q", got)
		}
	})

	t.Run("defaults fill omitted fields", func(t *testing.T) {
		cfg, err := LoadProjectConfig(writeTempConfig(t, minimalConfig))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Ticks != DefaultTicks {
			t.Fatalf("expected default ticks, got %d", cfg.Ticks)
		}
		if cfg.Simulation.Overshoot != DefaultOvershoot {
			t.Fatalf("expected default overshoot, got %v", cfg.Simulation.Overshoot)
		}
		if !cfg.Narrative.Enabled {
			t.Fatalf("expected narrative enabled by default")
		}
		if cfg.SchemaPath() != "" {
			t.Fatalf("expected no schema override, got %q", cfg.SchemaPath())
		}
	})

	t.Run("narrative can be disabled", func(t *testing.T) {
		cfg, err := LoadProjectConfig(writeTempConfig(t, minimalConfig+"narrative:\n  enabled: false\n"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Narrative.Enabled {
			t.Fatalf("expected narrative disabled")
		}
	})

	t.Run("env overrides file values", func(t *testing.T) {
		t.Setenv("WORLDLOOM_SEED", "7")
		t.Setenv("WORLDLOOM_TICKS", "12")
		t.Setenv("WORLDLOOM_DSN", "postgres://localhost/worlds")
		cfg, err := LoadProjectConfig(filepath.Join("testdata", "valid_config.yaml"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Seed != 7 || cfg.Ticks != 12 {
			t.Fatalf("expected env overrides, got seed=%d ticks=%d", cfg.Seed, cfg.Ticks)
		}
		if cfg.Database.DSN != "postgres://localhost/worlds" {
			t.Fatalf("expected env dsn, got %q", cfg.Database.DSN)
		}
		if cfg.LogLevel != "debug" {
			t.Fatalf("expected unset env to keep file value, got %q", cfg.LogLevel)
		}
	})

	t.Run("invalid env value", func(t *testing.T) {
		t.Setenv("WORLDLOOM_TICKS", "many")
		if _, err := LoadProjectConfig(writeTempConfig(t, minimalConfig)); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("missing project name", func(t *testing.T) {
		path := writeTempConfig(t, "version: 1\ndomain: frontier\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("missing domain", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 1\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("unsupported version", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 2\ndomain: frontier\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("non-positive ticks", func(t *testing.T) {
		path := writeTempConfig(t, minimalConfig+"ticks: 0\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("unknown log level", func(t *testing.T) {
		path := writeTempConfig(t, minimalConfig+"log_level: loud\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("overshoot below one", func(t *testing.T) {
		path := writeTempConfig(t, minimalConfig+"simulation:\n  overshoot: 0.5\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("activity rate out of range", func(t *testing.T) {
		path := writeTempConfig(t, minimalConfig+"simulation:\n  activity_rates:\n    mythic: 1.5\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("duplicate population target", func(t *testing.T) {
		path := writeTempConfig(t, minimalConfig+"simulation:\n  population_targets:\n    - kind: npc\n      target: 3\n    - kind: NPC\n      target: 4\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("duplicate system", func(t *testing.T) {
		path := writeTempConfig(t, minimalConfig+"simulation:\n  systems: [contagion, contagion]\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("file not found", func(t *testing.T) {
		if _, err := LoadProjectConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writeTempConfig(t, "project: [\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})
}

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}
