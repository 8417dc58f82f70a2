package factory

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"kinship-hq/sentinel/pkg/config"
	"kinship-hq/sentinel/pkg/store/memory"
	"kinship-hq/sentinel/pkg/store/sqlstore"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		s, err := Open(ctx, config.StorageConfig{Backend: BackendMemory}, nil)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer s.Close()
		if _, ok := s.(*memory.Store); !ok {
			t.Errorf("Open() returned %T, want *memory.Store", s)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		cfg := config.StorageConfig{
			Backend: BackendSQLite,
			SQLite: config.SQLiteConfig{
				Path:         filepath.Join(t.TempDir(), "sentinel.db"),
				Driver:       "sqlite",
				MaxOpenConns: 1,
				MaxIdleConns: 1,
			},
		}
		s, err := Open(ctx, cfg, nil)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer s.Close()
		if _, ok := s.(*sqlstore.Store); !ok {
			t.Errorf("Open() returned %T, want *sqlstore.Store", s)
		}
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := Open(ctx, config.StorageConfig{Backend: "mongodb"}, nil)
		if err == nil || !strings.Contains(err.Error(), "unsupported storage backend") {
			t.Errorf("Open() error = %v, want unsupported backend", err)
		}
	})
}
