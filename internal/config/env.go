package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ApplyEnv overlays WORLDLOOM_* environment variables onto cfg.
// Unset variables leave the loaded values untouched.
func ApplyEnv(cfg *ProjectConfig) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
