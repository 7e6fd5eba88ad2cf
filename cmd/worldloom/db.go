package main

import (
	"context"
	"fmt"
	"strings"

	"worldloom/internal/store"
	"worldloom/internal/store/postgres"
	"worldloom/internal/store/sqlite"
)

// openStore picks a backend from the DSN scheme and makes sure its tables
// exist.
func openStore(ctx context.Context, dsn string) (store.Store, error) {
	var (
		db  store.Store
		err error
	)
	switch {
	case strings.TrimSpace(dsn) == "":
		return nil, fmt.Errorf("%w: database.dsn is not set", store.ErrUnsupportedDB)
	case strings.HasPrefix(dsn, "sqlite://"):
		var c *sqlite.Client
		if c, err = sqlite.New(ctx, dsn); err == nil {
			db = c
		}
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		var c *postgres.Client
		if c, err = postgres.New(ctx, dsn); err == nil {
			db = c
		}
	default:
		scheme, _, _ := strings.Cut(dsn, "://")
		return nil, fmt.Errorf("%w: scheme %q", store.ErrUnsupportedDB, scheme)
	}
	if err != nil {
		return nil, err
	}

	if err := db.EnsureSchema(ctx); err != nil {
		_ = db.Close(ctx)
		return nil, err
	}
	return db, nil
}

func openConfiguredStore(ctx context.Context) (store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return openStore(ctx, cfg.Database.DSN)
}
