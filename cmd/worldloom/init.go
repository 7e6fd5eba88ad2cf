package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"worldloom/internal/domain"
	"worldloom/internal/systems"
)

func initCmd() *cobra.Command {
	var projectName string
	var domainName string
	var dir string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a new worldloom project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(projectName) == "" {
				return fmt.Errorf("--name is required")
			}
			if err := runInit(dir, projectName, domainName); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created worldloom.yaml and schema.yaml in %s\n", dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&projectName, "name", "", "Project name")
	cmd.Flags().StringVar(&domainName, "domain", "frontier", "Domain to simulate")
	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to write the project into")
	return cmd
}

func runInit(dir, projectName, domainName string) error {
	configPath := filepath.Join(dir, "worldloom.yaml")
	schemaPath := filepath.Join(dir, "schema.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("%s already exists", configPath)
	}
	if _, err := os.Stat(schemaPath); err == nil {
		return fmt.Errorf("%s already exists", schemaPath)
	}

	schema, err := domain.DefaultSchema(domainName)
	if err != nil {
		return err
	}

	configContents := fmt.Sprintf(`project: %s
version: 1
domain: %s
schema: schema.yaml
seed: 1
ticks: 150
epoch_length: 20
log_level: info
output: world.json

database:
  dsn: sqlite://worldloom.db

metrics:
  addr: ""

narrative:
  enabled: true
  min_significance: 0.3

simulation:
  systems: [%s]
  overshoot: 1.5
  max_success_chance: 0.95
`, projectName, domainName, strings.Join(systems.DefaultOrder, ", "))

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	if err := os.WriteFile(configPath, []byte(configContents), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", configPath, err)
	}
	if err := os.WriteFile(schemaPath, schema, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", schemaPath, err)
	}
	return nil
}
