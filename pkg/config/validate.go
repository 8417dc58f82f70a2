package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateModeration(&cfg.Moderation)...)
	errs = append(errs, validateEscalation(&cfg.Escalation)...)
	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateServer validates HTTP server configuration.
func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	}

	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.read_timeout",
			Message: "read timeout must be positive",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.write_timeout",
			Message: "write timeout must be positive",
		})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.idle_timeout",
			Message: "idle timeout must be positive",
		})
	}

	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes must be non-negative",
		})
	}
	if cfg.MaxHeaderBytes > 10*1024*1024 { // 10MB is excessive
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes exceeds reasonable limit (10MB)",
		})
	}
	if cfg.MaxBodyBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_body_bytes",
			Message: "max body bytes must be non-negative",
		})
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.RequestsPerMinute <= 0 {
			errs = append(errs, FieldError{
				Field:   "server.rate_limit.requests_per_minute",
				Message: "requests per minute must be positive",
			})
		}
		if cfg.RateLimit.Burst <= 0 {
			errs = append(errs, FieldError{
				Field:   "server.rate_limit.burst",
				Message: "burst must be positive",
			})
		}
	}
	if cfg.RateLimit.IdleTTL < 0 {
		errs = append(errs, FieldError{
			Field:   "server.rate_limit.idle_ttl",
			Message: "idle ttl must be non-negative",
		})
	}

	return errs
}

// validateModeration validates classifier configuration.
func validateModeration(cfg *ModerationConfig) []FieldError {
	var errs []FieldError

	if cfg.WatchRules && cfg.RulesFile == "" {
		errs = append(errs, FieldError{
			Field:   "moderation.watch_rules",
			Message: "rules file is required when watch_rules is enabled",
		})
	}
	if cfg.WatchDebounce < 0 {
		errs = append(errs, FieldError{
			Field:   "moderation.watch_debounce",
			Message: "watch debounce must be non-negative",
		})
	}

	t := &cfg.Thresholds
	positiveInts := []struct {
		field string
		value int
	}{
		{"max_length", t.MaxLength},
		{"min_token_length", t.MinTokenLength},
		{"repetition_min_tokens", t.RepetitionMinTokens},
		{"char_run_length", t.CharRunLength},
		{"caps_min_length", t.CapsMinLength},
		{"symbol_min_length", t.SymbolMinLength},
		{"dangerous_critical_matches", t.DangerousCriticalMatches},
		{"abusive_high_matches", t.AbusiveHighMatches},
		{"short_content_length", t.ShortContentLength},
		{"stored_content_length", t.StoredContentLength},
	}
	for _, p := range positiveInts {
		if p.value < 0 {
			errs = append(errs, FieldError{
				Field:   "moderation.thresholds." + p.field,
				Message: "must be non-negative",
			})
		}
	}
	if t.CharRunLength == 1 {
		errs = append(errs, FieldError{
			Field:   "moderation.thresholds.char_run_length",
			Message: "char run length must be at least 2",
		})
	}

	ratios := []struct {
		field string
		value float64
	}{
		{"repetition_ratio", t.RepetitionRatio},
		{"caps_ratio", t.CapsRatio},
		{"symbol_ratio", t.SymbolRatio},
		{"base_confidence", t.BaseConfidence},
		{"both_categories_bonus", t.BothCategoriesBonus},
		{"short_content_penalty", t.ShortContentPenalty},
		{"high_severity_bonus", t.HighSeverityBonus},
		{"min_confidence", t.MinConfidence},
		{"max_confidence", t.MaxConfidence},
	}
	for _, r := range ratios {
		if r.value < 0 || r.value > 1.0 {
			errs = append(errs, FieldError{
				Field:   "moderation.thresholds." + r.field,
				Message: "must be between 0.0 and 1.0",
			})
		}
	}
	if t.MinConfidence > t.MaxConfidence {
		errs = append(errs, FieldError{
			Field:   "moderation.thresholds.min_confidence",
			Message: "min confidence must not exceed max confidence",
		})
	}

	return errs
}

// validateEscalation validates escalation configuration.
func validateEscalation(cfg *EscalationConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return errs
	}

	if cfg.Workers < 0 {
		errs = append(errs, FieldError{
			Field:   "escalation.workers",
			Message: "workers must be non-negative",
		})
	}
	if cfg.QueueSize < 0 {
		errs = append(errs, FieldError{
			Field:   "escalation.queue_size",
			Message: "queue size must be non-negative",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "escalation.write_timeout",
			Message: "write timeout must be non-negative",
		})
	}
	if cfg.RosterCacheTTL < 0 {
		errs = append(errs, FieldError{
			Field:   "escalation.roster_cache_ttl",
			Message: "roster cache TTL must be non-negative",
		})
	}
	for i, role := range cfg.ReviewerRoles {
		if strings.TrimSpace(role) == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("escalation.reviewer_roles[%d]", i),
				Message: "role must not be empty",
			})
		}
	}

	return errs
}

// validateStorage validates storage configuration.
func validateStorage(cfg *StorageConfig) []FieldError {
	var errs []FieldError

	validBackends := map[string]bool{"memory": true, "sqlite": true, "postgres": true}
	if !validBackends[cfg.Backend] {
		errs = append(errs, FieldError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory', 'sqlite', or 'postgres'", cfg.Backend),
		})
	}

	switch cfg.Backend {
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "storage.sqlite.path",
				Message: "SQLite path is required when backend is 'sqlite'",
			})
		}
		if cfg.SQLite.Driver != "sqlite3" && cfg.SQLite.Driver != "sqlite" {
			errs = append(errs, FieldError{
				Field:   "storage.sqlite.driver",
				Message: fmt.Sprintf("invalid driver %q: must be 'sqlite3' or 'sqlite'", cfg.SQLite.Driver),
			})
		}
		if cfg.SQLite.MaxOpenConns < 1 {
			errs = append(errs, FieldError{
				Field:   "storage.sqlite.max_open_conns",
				Message: "max open connections must be at least 1",
			})
		}
	case "postgres":
		if cfg.Postgres.Host == "" {
			errs = append(errs, FieldError{
				Field:   "storage.postgres.host",
				Message: "PostgreSQL host is required when backend is 'postgres'",
			})
		}
		if cfg.Postgres.Port < 1 || cfg.Postgres.Port > 65535 {
			errs = append(errs, FieldError{
				Field:   "storage.postgres.port",
				Message: "PostgreSQL port must be between 1 and 65535",
			})
		}
		if cfg.Postgres.Database == "" {
			errs = append(errs, FieldError{
				Field:   "storage.postgres.database",
				Message: "PostgreSQL database is required when backend is 'postgres'",
			})
		}
		if cfg.Postgres.User == "" {
			errs = append(errs, FieldError{
				Field:   "storage.postgres.user",
				Message: "PostgreSQL user is required when backend is 'postgres'",
			})
		}
		// Password can be empty if using other auth methods
		validSSLModes := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
		if !validSSLModes[cfg.Postgres.SSLMode] {
			errs = append(errs, FieldError{
				Field:   "storage.postgres.ssl_mode",
				Message: fmt.Sprintf("invalid SSL mode %q: must be 'disable', 'require', 'verify-ca', or 'verify-full'", cfg.Postgres.SSLMode),
			})
		}
	}

	if cfg.Retention.Days < 0 {
		errs = append(errs, FieldError{
			Field:   "storage.retention.days",
			Message: "retention days must be non-negative",
		})
	}
	if cfg.Retention.Days > 3650 { // 10 years is excessive
		errs = append(errs, FieldError{
			Field:   "storage.retention.days",
			Message: "retention days exceeds reasonable limit (3650 days / 10 years)",
		})
	}
	if cfg.Retention.PruneSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Retention.PruneSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "storage.retention.prune_schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}

	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if cfg.Logging.Level == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: "logging level is required",
		})
	} else if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "console": true}
	if cfg.Logging.Format == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: "logging format is required",
		})
	} else if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json', 'text', or 'console'", cfg.Logging.Format),
		})
	}

	for i, p := range cfg.Logging.RedactPatterns {
		if p.Pattern == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("telemetry.logging.redact_patterns[%d].pattern", i),
				Message: "pattern is required",
			})
		}
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Path == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path is required when metrics are enabled",
		})
	}
	if cfg.Metrics.Path != "" && cfg.Metrics.Path[0] != '/' {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with /",
		})
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	validSamplers := map[string]bool{"always": true, "never": true, "ratio": true}
	if cfg.Tracing.Enabled && !validSamplers[cfg.Tracing.Sampler] {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never', or 'ratio'", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	return errs
}
