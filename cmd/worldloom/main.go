package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"worldloom/internal/config"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:          "worldloom",
		Short:        "Procedural world-history simulator",
		SilenceUsage: true,
	}
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "worldloom.yaml", "Project config file")
	root.AddCommand(initCmd())
	root.AddCommand(runCmd())
	root.AddCommand(validateCmd())
	root.AddCommand(ingestCmd())
	root.AddCommand(queryCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(versionCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.ProjectConfig, error) {
	return config.LoadProjectConfig(configPath)
}

// newLogger writes to stderr so stdout stays free for results and the
// MCP stdio transport.
func newLogger(level string) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
