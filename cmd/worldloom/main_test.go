package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"worldloom/internal/config"
	"worldloom/internal/domain"
	"worldloom/internal/store"
	"worldloom/internal/validate"
)

func TestParseParamPairs(t *testing.T) {
	params, err := parseParamPairs([]string{"1=run-1", " 2 = npc ", ""})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(params) != 2 || params["1"] != "run-1" || params["2"] != "npc" {
		t.Fatalf("unexpected params: %v", params)
	}
	if _, err := parseParamPairs([]string{"novalue"}); err == nil {
		t.Fatalf("expected error for missing '='")
	}
	if _, err := parseParamPairs([]string{"=x"}); err == nil {
		t.Fatalf("expected error for empty key")
	}
}

func TestOpenStoreRejectsUnknownScheme(t *testing.T) {
	ctx := context.Background()
	for _, dsn := range []string{"", "mysql://localhost/runs", "runs.db"} {
		if _, err := openStore(ctx, dsn); !errors.Is(err, store.ErrUnsupportedDB) {
			t.Fatalf("openStore(%q): expected ErrUnsupportedDB, got %v", dsn, err)
		}
	}
}

func TestInitThenRun(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	if err := runInit(dir, "saltmere", "frontier"); err != nil {
		t.Fatalf("runInit() error = %v", err)
	}
	if err := runInit(dir, "saltmere", "frontier"); err == nil {
		t.Fatalf("expected error when the project already exists")
	}
	if err := runInit(t.TempDir(), "saltmere", "atlantis"); !errors.Is(err, domain.ErrUnknownDomain) {
		t.Fatalf("expected ErrUnknownDomain, got %v", err)
	}

	cfg, err := config.LoadProjectConfig(filepath.Join(dir, "worldloom.yaml"))
	if err != nil {
		t.Fatalf("loading scaffolded config: %v", err)
	}
	cfg.Ticks = 30
	cfg.Database.DSN = "sqlite://" + filepath.Join(dir, "runs.db")

	d, err := domain.Load(cfg)
	if err != nil {
		t.Fatalf("domain.Load() error = %v", err)
	}
	report, err := validate.Run(d, cfg)
	if err != nil {
		t.Fatalf("validate.Run() error = %v", err)
	}
	if report.Errors() != 0 {
		t.Fatalf("scaffolded project has errors: %+v", report.Issues)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	snap, err := runSimulation(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("runSimulation() error = %v", err)
	}
	if snap.Metadata.Tick != 30 {
		t.Fatalf("expected 30 ticks, got %d", snap.Metadata.Tick)
	}

	outPath := filepath.Join(dir, "world.json")
	if _, err := os.Stat(outPath); err != nil {
		t.Fatalf("snapshot not written: %v", err)
	}
	written, err := readSnapshotFile(outPath)
	if err != nil {
		t.Fatalf("readSnapshotFile() error = %v", err)
	}
	if written.Metadata.RunID != snap.Metadata.RunID {
		t.Fatalf("snapshot run id = %q, want %q", written.Metadata.RunID, snap.Metadata.RunID)
	}

	db, err := openStore(ctx, cfg.Database.DSN)
	if err != nil {
		t.Fatalf("openStore() error = %v", err)
	}
	defer db.Close(ctx)

	// Re-ingesting the same snapshot replaces the stored run.
	if err := db.SaveRun(ctx, written); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	runs, err := db.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 1 || runs[0].ID != snap.Metadata.RunID || runs[0].EntityCount != snap.Metadata.EntityCount {
		t.Fatalf("unexpected stored runs: %+v", runs)
	}
}
