package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sentinel.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
server:
  listen_address: "0.0.0.0:9000"
  read_timeout: "30s"

moderation:
  thresholds:
    max_length: 2000
    caps_ratio: 0.7

escalation:
  async: true
  workers: 4

storage:
  backend: "memory"

telemetry:
  logging:
    level: "debug"
    format: "text"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:9000" {
		t.Errorf("expected listen address %q, got %q", "0.0.0.0:9000", cfg.Server.ListenAddress)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("expected read timeout %v, got %v", 30*time.Second, cfg.Server.ReadTimeout)
	}
	if cfg.Moderation.Thresholds.MaxLength != 2000 {
		t.Errorf("expected max length 2000, got %d", cfg.Moderation.Thresholds.MaxLength)
	}
	if cfg.Moderation.Thresholds.CapsRatio != 0.7 {
		t.Errorf("expected caps ratio 0.7, got %v", cfg.Moderation.Thresholds.CapsRatio)
	}
	// Unset thresholds keep their defaults.
	if cfg.Moderation.Thresholds.CharRunLength != 5 {
		t.Errorf("expected default char run length 5, got %d", cfg.Moderation.Thresholds.CharRunLength)
	}
	if !cfg.Escalation.Async || cfg.Escalation.Workers != 4 {
		t.Errorf("expected async escalation with 4 workers, got async=%v workers=%d", cfg.Escalation.Async, cfg.Escalation.Workers)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("expected logging level %q, got %q", "debug", cfg.Telemetry.Logging.Level)
	}
}

func TestLoadConfig_BooleanDefaultsSurviveOmission(t *testing.T) {
	path := writeConfig(t, `
storage:
  backend: "memory"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if !cfg.Escalation.Enabled {
		t.Error("expected escalation enabled by default")
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("expected metrics enabled by default")
	}
	if !cfg.Telemetry.Logging.RedactPII {
		t.Error("expected PII redaction enabled by default")
	}
}

func TestLoadConfig_ExplicitFalse(t *testing.T) {
	path := writeConfig(t, `
escalation:
  enabled: false
telemetry:
  metrics:
    enabled: false
storage:
  backend: "memory"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Escalation.Enabled {
		t.Error("expected escalation disabled")
	}
	if cfg.Telemetry.Metrics.Enabled {
		t.Error("expected metrics disabled")
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [unclosed")

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "failed to parse") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
storage:
  backend: "cassandra"
`)

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if verr.Errors[0].Field != "storage.backend" {
		t.Errorf("expected storage.backend field error, got %q", verr.Errors[0].Field)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  listen_address: "127.0.0.1:8090"
storage:
  backend: "memory"
`)

	t.Setenv("SENTINEL_SERVER_LISTEN_ADDRESS", "0.0.0.0:7000")
	t.Setenv("SENTINEL_ESCALATION_ASYNC", "true")
	t.Setenv("SENTINEL_ESCALATION_REVIEWER_ROLES", "admin, trust_safety")
	t.Setenv("SENTINEL_STORAGE_RETENTION_DAYS", "30")
	t.Setenv("SENTINEL_TELEMETRY_TRACING_SAMPLE_RATIO", "0.5")
	t.Setenv("SENTINEL_SERVER_READ_TIMEOUT", "not-a-duration")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:7000" {
		t.Errorf("expected env listen address, got %q", cfg.Server.ListenAddress)
	}
	if !cfg.Escalation.Async {
		t.Error("expected async escalation from env")
	}
	if got := cfg.Escalation.ReviewerRoles; len(got) != 2 || got[1] != "trust_safety" {
		t.Errorf("unexpected reviewer roles %v", got)
	}
	if cfg.Storage.Retention.Days != 30 {
		t.Errorf("expected retention days 30, got %d", cfg.Storage.Retention.Days)
	}
	if cfg.Telemetry.Tracing.SampleRatio != 0.5 {
		t.Errorf("expected sample ratio 0.5, got %v", cfg.Telemetry.Tracing.SampleRatio)
	}
	// Unparseable values are ignored.
	if cfg.Server.ReadTimeout != DefaultReadTimeout {
		t.Errorf("expected default read timeout, got %v", cfg.Server.ReadTimeout)
	}
}

func TestLoadConfigWithEnvOverrides_NoFile(t *testing.T) {
	t.Setenv("SENTINEL_STORAGE_BACKEND", "memory")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("expected memory backend, got %q", cfg.Storage.Backend)
	}
}

func TestLoadConfigWithEnvOverrides_InvalidOverride(t *testing.T) {
	path := writeConfig(t, `
storage:
  backend: "memory"
`)
	t.Setenv("SENTINEL_TELEMETRY_LOGGING_LEVEL", "verbose")

	_, err := LoadConfigWithEnvOverrides(path)
	if err == nil {
		t.Fatal("expected validation error after env override")
	}
	if !strings.Contains(err.Error(), "after environment overrides") {
		t.Errorf("unexpected error: %v", err)
	}
}
