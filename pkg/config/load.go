package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// The file is decoded on top of Default() so omitted fields keep their
// default values. The result is validated before it is returned.
// Environment variables are not consulted; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	// Fields explicitly zeroed in YAML fall back to defaults.
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention SENTINEL_SECTION_FIELD (e.g., SENTINEL_SERVER_LISTEN_ADDRESS).
// Environment variables always take precedence over file-based configuration.
//
// An empty path skips the file and starts from Default().
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format SENTINEL_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	envString("SENTINEL_SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	envDuration("SENTINEL_SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("SENTINEL_SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("SENTINEL_SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	envDuration("SENTINEL_SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	envInt("SENTINEL_SERVER_MAX_HEADER_BYTES", &cfg.Server.MaxHeaderBytes)
	if val := os.Getenv("SENTINEL_SERVER_MAX_BODY_BYTES"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Server.MaxBodyBytes = i
		}
	}

	envBool("SENTINEL_SERVER_RATE_LIMIT_ENABLED", &cfg.Server.RateLimit.Enabled)
	envInt("SENTINEL_SERVER_RATE_LIMIT_REQUESTS_PER_MINUTE", &cfg.Server.RateLimit.RequestsPerMinute)
	envInt("SENTINEL_SERVER_RATE_LIMIT_BURST", &cfg.Server.RateLimit.Burst)

	// Moderation overrides
	envString("SENTINEL_MODERATION_RULES_FILE", &cfg.Moderation.RulesFile)
	envBool("SENTINEL_MODERATION_WATCH_RULES", &cfg.Moderation.WatchRules)
	envInt("SENTINEL_MODERATION_MAX_LENGTH", &cfg.Moderation.Thresholds.MaxLength)

	// Escalation overrides
	envBool("SENTINEL_ESCALATION_ENABLED", &cfg.Escalation.Enabled)
	envBool("SENTINEL_ESCALATION_ASYNC", &cfg.Escalation.Async)
	envInt("SENTINEL_ESCALATION_WORKERS", &cfg.Escalation.Workers)
	envInt("SENTINEL_ESCALATION_QUEUE_SIZE", &cfg.Escalation.QueueSize)
	envDuration("SENTINEL_ESCALATION_WRITE_TIMEOUT", &cfg.Escalation.WriteTimeout)
	envDuration("SENTINEL_ESCALATION_ROSTER_CACHE_TTL", &cfg.Escalation.RosterCacheTTL)
	if val := os.Getenv("SENTINEL_ESCALATION_REVIEWER_ROLES"); val != "" {
		cfg.Escalation.ReviewerRoles = splitList(val)
	}

	// Storage overrides
	envString("SENTINEL_STORAGE_BACKEND", &cfg.Storage.Backend)
	envString("SENTINEL_STORAGE_SQLITE_PATH", &cfg.Storage.SQLite.Path)
	envString("SENTINEL_STORAGE_SQLITE_DRIVER", &cfg.Storage.SQLite.Driver)
	envString("SENTINEL_STORAGE_POSTGRES_HOST", &cfg.Storage.Postgres.Host)
	envInt("SENTINEL_STORAGE_POSTGRES_PORT", &cfg.Storage.Postgres.Port)
	envString("SENTINEL_STORAGE_POSTGRES_DATABASE", &cfg.Storage.Postgres.Database)
	envString("SENTINEL_STORAGE_POSTGRES_USER", &cfg.Storage.Postgres.User)
	envString("SENTINEL_STORAGE_POSTGRES_PASSWORD", &cfg.Storage.Postgres.Password)
	envString("SENTINEL_STORAGE_POSTGRES_SSL_MODE", &cfg.Storage.Postgres.SSLMode)
	envInt("SENTINEL_STORAGE_RETENTION_DAYS", &cfg.Storage.Retention.Days)
	envString("SENTINEL_STORAGE_RETENTION_PRUNE_SCHEDULE", &cfg.Storage.Retention.PruneSchedule)

	// Telemetry overrides
	envString("SENTINEL_TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("SENTINEL_TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("SENTINEL_TELEMETRY_LOGGING_REDACT_PII", &cfg.Telemetry.Logging.RedactPII)
	envBool("SENTINEL_TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("SENTINEL_TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	envBool("SENTINEL_TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("SENTINEL_TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	if val := os.Getenv("SENTINEL_TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}
}

func envString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

// splitList parses a comma separated environment value.
func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
