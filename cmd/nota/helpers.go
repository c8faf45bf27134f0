package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/nota-flow/internal/config"
	"github.com/Veraticus/nota-flow/internal/extract"
	"github.com/Veraticus/nota-flow/internal/storage"
)

var envKeyReplacer = strings.NewReplacer(".", "_")

// openStorage opens the configured database without touching its schema.
func openStorage(ctx context.Context) (*storage.SQLStorage, error) {
	if err := cfg.ValidateDatabase(); err != nil {
		return nil, err
	}

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		return storage.NewPostgresStorage(ctx, cfg.Database.Postgres, slog.Default())
	default:
		return storage.NewSQLiteStorage(cfg.Database.Path, slog.Default())
	}
}

// initStorage opens the configured database and brings its schema up to date.
func initStorage(ctx context.Context) (*storage.SQLStorage, error) {
	store, err := openStorage(ctx)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// initExtractor builds the configured LLM extractor. Callers must Close it.
func initExtractor(ctx context.Context) (*extract.Service, error) {
	if err := cfg.ValidateExtractor(); err != nil {
		return nil, err
	}
	return extract.New(ctx, cfg.Extractor, slog.Default())
}
