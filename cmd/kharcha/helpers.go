package main

import (
	"context"
	"fmt"

	"github.com/kharcha-app/kharcha/internal/config"
	"github.com/kharcha-app/kharcha/internal/ledger"
	"github.com/kharcha-app/kharcha/internal/service"
	"github.com/kharcha-app/kharcha/internal/storage"
)

// initStorage opens the configured database and brings the schema up to date.
func initStorage(ctx context.Context, cfg *config.Config) (service.Storage, error) {
	store, err := storage.NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// initEngine wires the ledger engine for a CLI invocation and returns the
// user id it should operate as.
func initEngine(ctx context.Context) (*ledger.Engine, service.Storage, string, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, "", err
	}

	store, err := initStorage(ctx, cfg)
	if err != nil {
		return nil, nil, "", err
	}

	return ledger.New(store), store, cfg.UserID, nil
}
