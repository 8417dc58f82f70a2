// Package sqlite opens a SQLite-backed store.Store.
//
// Two drivers are supported: "sqlite3" (mattn/go-sqlite3, requires cgo) and
// "sqlite" (modernc.org/sqlite, pure Go). Both share the sqlstore queries.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"kinship-hq/sentinel/pkg/config"
	"kinship-hq/sentinel/pkg/store"
	"kinship-hq/sentinel/pkg/store/sqlstore"
)

const (
	// DriverCGO is the mattn/go-sqlite3 driver name.
	DriverCGO = "sqlite3"

	// DriverPureGo is the modernc.org/sqlite driver name.
	DriverPureGo = "sqlite"
)

// Open opens the database at cfg.Path, applies pragmas and migrates the schema.
func Open(ctx context.Context, cfg config.SQLiteConfig, logger *slog.Logger) (*sqlstore.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Path == "" {
		return nil, store.NewStorageError("sqlite", "open", fmt.Errorf("path cannot be empty"))
	}
	driver := cfg.Driver
	if driver == "" {
		driver = DriverCGO
	}

	if cfg.Path != ":memory:" {
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, store.NewStorageError("sqlite", "open", err)
			}
		}
	}

	db, err := sql.Open(driver, dsn(driver, cfg))
	if err != nil {
		return nil, store.NewStorageError("sqlite", "open", err)
	}

	maxOpen := cfg.MaxOpenConns
	if cfg.Path == ":memory:" {
		// Each connection to :memory: is a separate database.
		maxOpen = 1
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	if err := applyPragmas(ctx, db, cfg); err != nil {
		db.Close()
		return nil, err
	}

	s := sqlstore.New(db, sqlstore.SQLite, logger)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite store initialized",
		"path", cfg.Path,
		"driver", driver,
		"wal_mode", cfg.WALMode,
		"max_open_conns", maxOpen,
	)
	return s, nil
}

// dsn carries the busy timeout in the driver's own DSN syntax so that it
// applies to every pooled connection.
func dsn(driver string, cfg config.SQLiteConfig) string {
	ms := cfg.BusyTimeout.Milliseconds()
	if ms <= 0 {
		return cfg.Path
	}
	sep := "?"
	if strings.Contains(cfg.Path, "?") {
		sep = "&"
	}
	if driver == DriverPureGo {
		return fmt.Sprintf("%s%s_pragma=busy_timeout(%d)", cfg.Path, sep, ms)
	}
	return fmt.Sprintf("%s%s_busy_timeout=%d", cfg.Path, sep, ms)
}

func applyPragmas(ctx context.Context, db *sql.DB, cfg config.SQLiteConfig) error {
	if cfg.WALMode && cfg.Path != ":memory:" {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
			return store.NewStorageError("sqlite", "enable_wal", err)
		}
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		return store.NewStorageError("sqlite", "set_pragma", err)
	}
	return nil
}
