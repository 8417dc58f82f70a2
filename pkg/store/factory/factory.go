// Package factory opens the configured store.Store backend.
package factory

import (
	"context"
	"fmt"
	"log/slog"

	"kinship-hq/sentinel/pkg/config"
	"kinship-hq/sentinel/pkg/store"
	"kinship-hq/sentinel/pkg/store/memory"
	"kinship-hq/sentinel/pkg/store/postgres"
	"kinship-hq/sentinel/pkg/store/sqlite"
)

// Supported backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Open creates the store selected by cfg.Backend.
//
//	st, err := factory.Open(ctx, cfg.Storage, logger)
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
func Open(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (store.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("opening store", "backend", cfg.Backend)

	switch cfg.Backend {
	case BackendMemory:
		logger.Warn("using in-memory store, moderation records will not survive a restart")
		return memory.New(), nil
	case BackendSQLite, "":
		s, err := sqlite.Open(ctx, cfg.SQLite, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendPostgres:
		s, err := postgres.Open(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %q (supported: memory, sqlite, postgres)", cfg.Backend)
	}
}
