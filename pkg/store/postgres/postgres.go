// Package postgres opens a PostgreSQL-backed store.Store using lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/lib/pq"

	"kinship-hq/sentinel/pkg/config"
	"kinship-hq/sentinel/pkg/store"
	"kinship-hq/sentinel/pkg/store/sqlstore"
)

// Open connects to PostgreSQL and migrates the schema.
func Open(ctx context.Context, cfg config.PostgresConfig, logger *slog.Logger) (*sqlstore.Store, error) {
	db, err := sql.Open("postgres", DSN(cfg))
	if err != nil {
		return nil, store.NewStorageError("postgres", "open", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	s, err := OpenDB(ctx, db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("PostgreSQL store initialized",
		"host", cfg.Host,
		"database", cfg.Database,
		"ssl_mode", cfg.SSLMode,
	)
	return s, nil
}

// OpenDB wraps an existing connection pool.
func OpenDB(ctx context.Context, db *sql.DB, logger *slog.Logger) (*sqlstore.Store, error) {
	if err := db.PingContext(ctx); err != nil {
		return nil, store.NewStorageError("postgres", "ping", err)
	}
	s := sqlstore.New(db, sqlstore.Postgres, logger)
	if err := s.Migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// DSN builds a lib/pq key/value connection string. Empty fields are omitted.
func DSN(cfg config.PostgresConfig) string {
	var parts []string
	add := func(key, value string) {
		if value == "" {
			return
		}
		parts = append(parts, key+"="+quote(value))
	}
	add("host", cfg.Host)
	if cfg.Port > 0 {
		add("port", fmt.Sprint(cfg.Port))
	}
	add("dbname", cfg.Database)
	add("user", cfg.User)
	add("password", cfg.Password)
	add("sslmode", cfg.SSLMode)
	return strings.Join(parts, " ")
}

func quote(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}
