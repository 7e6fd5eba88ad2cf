package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"worldloom/internal/config"
	"worldloom/internal/domain"
	"worldloom/internal/engine"
	"worldloom/internal/metrics"
	"worldloom/internal/validate"
)

type runFlags struct {
	seed        int64
	ticks       int
	output      string
	metricsAddr string
	noStore     bool
}

func runCmd() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Simulate a world and write its snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				cfg.Seed = flags.seed
			}
			if cmd.Flags().Changed("ticks") {
				cfg.Ticks = flags.ticks
			}
			if flags.output != "" {
				cfg.Output = flags.output
			}
			if flags.metricsAddr != "" {
				cfg.Metrics.Addr = flags.metricsAddr
			}
			if flags.noStore {
				cfg.Database.DSN = ""
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			snap, err := runSimulation(ctx, cfg, newLogger(cfg.LogLevel))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Run %s: %d entities, %d relationships, %d narrative events after %d ticks\n",
				snap.Metadata.RunID,
				snap.Metadata.EntityCount,
				snap.Metadata.RelationshipCount,
				snap.Metadata.NarrativeEventCount,
				snap.Metadata.Tick,
			)
			return nil
		},
	}
	cmd.Flags().Int64Var(&flags.seed, "seed", 0, "Override the configured seed")
	cmd.Flags().IntVar(&flags.ticks, "ticks", 0, "Override the configured tick count")
	cmd.Flags().StringVar(&flags.output, "output", "", "Snapshot file to write")
	cmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address during the run")
	cmd.Flags().BoolVar(&flags.noStore, "no-store", false, "Skip saving the run to the configured database")
	return cmd
}

// runSimulation runs cfg to completion, writes the snapshot file and saves
// the run when a database is configured. An interrupted run still writes
// the partial snapshot.
func runSimulation(ctx context.Context, cfg *config.ProjectConfig, logger *slog.Logger) (*engine.Snapshot, error) {
	d, err := domain.Load(cfg)
	if err != nil {
		return nil, err
	}

	report, err := validate.Run(d, cfg)
	if err != nil {
		return nil, err
	}
	for _, issue := range report.Issues {
		level := slog.LevelWarn
		if issue.Severity == validate.SeverityError {
			level = slog.LevelError
		}
		logger.Log(ctx, level, issue.Message, "code", issue.Code, "subject", issue.Subject)
	}

	opts, err := engine.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	var metricsDone chan error
	metricsCtx, stopMetrics := context.WithCancel(ctx)
	defer stopMetrics()
	if cfg.Metrics.Addr != "" {
		rec := metrics.New()
		opts.Recorder = rec
		metricsDone = make(chan error, 1)
		go func() { metricsDone <- rec.Serve(metricsCtx, cfg.Metrics.Addr, logger) }()
	}

	sim, err := engine.New(d, opts, logger)
	if err != nil {
		return nil, err
	}
	snap, runErr := sim.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return nil, runErr
	}

	if err := snap.WriteFile(cfg.OutputPath()); err != nil {
		return nil, err
	}
	logger.Info("snapshot written", "path", cfg.OutputPath(), "run", snap.Metadata.RunID)

	if cfg.Database.DSN != "" {
		// A cancelled run context must not abort the save.
		saveCtx := context.WithoutCancel(ctx)
		db, err := openStore(saveCtx, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		defer db.Close(saveCtx)
		if err := db.SaveRun(saveCtx, snap); err != nil {
			return nil, err
		}
		logger.Info("run saved", "run", snap.Metadata.RunID)
	}

	if metricsDone != nil {
		stopMetrics()
		if err := <-metricsDone; err != nil {
			logger.Warn("metrics server stopped", "error", err)
		}
	}
	return snap, runErr
}
