package config

import "time"

// Config is the root configuration structure for Sentinel.
// It contains all configuration sections for the HTTP server, the content
// classifier, escalation side effects, storage, and telemetry.
type Config struct {
	// Server contains HTTP server configuration including listen address
	// and timeouts.
	Server ServerConfig `yaml:"server"`

	// Moderation contains classifier configuration: numeric thresholds and
	// the optional custom rules file.
	Moderation ModerationConfig `yaml:"moderation"`

	// Escalation contains configuration for the side effects performed when
	// content is flagged (moderation records, reviewer notifications, user
	// warnings).
	Escalation EscalationConfig `yaml:"escalation"`

	// Storage contains configuration for the moderation store backend and
	// its retention policy.
	Storage StorageConfig `yaml:"storage"`

	// Telemetry contains configuration for logging, metrics, and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port for the server to listen on.
	// Default: "127.0.0.1:8090"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 10s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response.
	// Default: 10s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	// Default: 60s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 15s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits the size of request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// MaxBodyBytes limits the size of a classification request body.
	// Default: 262144 (256KB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// RateLimit limits classification requests per author.
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig configures per-author token buckets on the classification
// endpoint.
type RateLimitConfig struct {
	// Enabled turns rate limiting on.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// RequestsPerMinute is the sustained rate per author.
	// Default: 60
	RequestsPerMinute int `yaml:"requests_per_minute"`

	// Burst is the bucket capacity.
	// Default: 20
	Burst int `yaml:"burst"`

	// IdleTTL evicts the bucket of an author that has been quiet this long.
	// Default: 10m
	IdleTTL time.Duration `yaml:"idle_ttl"`
}

// ModerationConfig contains content classifier configuration.
type ModerationConfig struct {
	// RulesFile is an optional YAML file with custom patterns that are
	// appended to the built-in pattern sets.
	RulesFile string `yaml:"rules_file"`

	// WatchRules reloads RulesFile when it changes on disk.
	// Default: false
	WatchRules bool `yaml:"watch_rules"`

	// WatchDebounce is the delay between a file event and the reload.
	// Default: 200ms
	WatchDebounce time.Duration `yaml:"watch_debounce"`

	// Thresholds contains every numeric threshold used by the structural
	// validator and the scorer.
	Thresholds ThresholdsConfig `yaml:"thresholds"`
}

// ThresholdsConfig holds the tunable numeric parameters of the classifier.
// Zero values are replaced by defaults in ApplyDefaults.
type ThresholdsConfig struct {
	// MaxLength is the maximum content length in characters.
	MaxLength int `yaml:"max_length"`

	// MinTokenLength is the minimum length of a token counted by the word
	// repetition check. Shorter tokens are ignored.
	MinTokenLength int `yaml:"min_token_length"`

	// RepetitionMinTokens is the token count that must be exceeded before
	// word repetition is evaluated.
	RepetitionMinTokens int `yaml:"repetition_min_tokens"`

	// RepetitionRatio is the share of all tokens a single token may reach
	// before content is considered repetitive.
	RepetitionRatio float64 `yaml:"repetition_ratio"`

	// CharRunLength is the number of identical consecutive characters that
	// counts as character flooding.
	CharRunLength int `yaml:"char_run_length"`

	// CapsMinLength is the content length that must be exceeded before the
	// capitalization check applies.
	CapsMinLength int `yaml:"caps_min_length"`

	// CapsRatio is the maximum share of uppercase letters.
	CapsRatio float64 `yaml:"caps_ratio"`

	// SymbolMinLength is the content length that must be exceeded before the
	// obfuscation density check applies.
	SymbolMinLength int `yaml:"symbol_min_length"`

	// SymbolRatio is the maximum share of non-letter, non-whitespace characters.
	SymbolRatio float64 `yaml:"symbol_ratio"`

	// DangerousCriticalMatches escalates dangerous content to critical when
	// more patterns than this matched.
	DangerousCriticalMatches int `yaml:"dangerous_critical_matches"`

	// AbusiveHighMatches escalates abusive language to high when more
	// patterns than this matched.
	AbusiveHighMatches int `yaml:"abusive_high_matches"`

	// BaseConfidence is the starting confidence for a flagged verdict.
	BaseConfidence float64 `yaml:"base_confidence"`

	// BothCategoriesBonus is added when abusive and dangerous patterns both matched.
	BothCategoriesBonus float64 `yaml:"both_categories_bonus"`

	// ShortContentLength is the length below which ShortContentPenalty applies.
	ShortContentLength int `yaml:"short_content_length"`

	// ShortContentPenalty is subtracted for short content.
	ShortContentPenalty float64 `yaml:"short_content_penalty"`

	// HighSeverityBonus is added when the final severity is high.
	HighSeverityBonus float64 `yaml:"high_severity_bonus"`

	// MinConfidence and MaxConfidence clamp the final confidence.
	MinConfidence float64 `yaml:"min_confidence"`
	MaxConfidence float64 `yaml:"max_confidence"`

	// StoredContentLength is the number of characters of content kept on a
	// moderation record.
	StoredContentLength int `yaml:"stored_content_length"`
}

// EscalationConfig contains configuration for flagged-content side effects.
type EscalationConfig struct {
	// Enabled controls whether flagged verdicts are escalated at all.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Async runs escalation on a background worker queue so the verdict is
	// returned before the writes complete.
	// Default: false
	Async bool `yaml:"async"`

	// Workers is the number of background workers when Async is set.
	// Default: 2
	Workers int `yaml:"workers"`

	// QueueSize is the capacity of the async escalation queue.
	// Default: 1000
	QueueSize int `yaml:"queue_size"`

	// EnqueueTimeout is how long Submit waits on a full queue before the
	// escalation is dropped.
	// Default: 2s
	EnqueueTimeout time.Duration `yaml:"enqueue_timeout"`

	// WriteTimeout bounds each individual store write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// ReviewerRoles are the roles whose holders receive notifications.
	// Default: ["admin", "moderator"]
	ReviewerRoles []string `yaml:"reviewer_roles"`

	// RosterCacheTTL caches the reviewer roster. Zero disables caching.
	// Default: 1m
	RosterCacheTTL time.Duration `yaml:"roster_cache_ttl"`
}

// StorageConfig contains configuration for the moderation store.
type StorageConfig struct {
	// Backend selects the store implementation.
	// Options: "memory", "sqlite", "postgres"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite-specific configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Postgres contains PostgreSQL-specific configuration.
	Postgres PostgresConfig `yaml:"postgres"`

	// Retention contains retention policy configuration.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	// Path is the file path for the SQLite database.
	// Default: "data/sentinel.db"
	Path string `yaml:"path"`

	// Driver selects the database/sql driver.
	// Options: "sqlite3" (cgo, mattn/go-sqlite3), "sqlite" (pure Go, modernc.org/sqlite)
	// Default: "sqlite3"
	Driver string `yaml:"driver"`

	// MaxOpenConns is the maximum number of open database connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle database connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// PostgresConfig contains PostgreSQL connection configuration.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`

	// SSLMode is one of "disable", "require", "verify-ca", "verify-full".
	// Default: "require"
	SSLMode string `yaml:"ssl_mode"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// ConnMaxLifetime is the maximum lifetime of a connection.
	// Default: 30m
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// RetentionConfig contains retention policy configuration.
type RetentionConfig struct {
	// Days is how long reviewed records and acknowledged warnings are kept.
	// 0 keeps them forever.
	// Default: 180
	Days int `yaml:"days"`

	// PruneSchedule is a cron expression for pruning. Empty disables the
	// scheduler.
	// Default: "0 4 * * *"
	PruneSchedule string `yaml:"prune_schedule"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	AddSource bool `yaml:"add_source"`

	// RedactPII enables automatic PII redaction in logs.
	// Default: true
	RedactPII bool `yaml:"redact_pii"`

	// RedactPatterns contains custom PII redaction patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom PII redaction pattern.
type RedactPattern struct {
	// Name is a descriptive name for the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the string to replace matches with.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "sentinel"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "moderation"
	Subsystem string `yaml:"subsystem"`

	// DurationBuckets defines histogram buckets for classification duration (seconds).
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS for the OTLP connection.
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// ServiceName is the service name in traces.
	// Default: "sentinel"
	ServiceName string `yaml:"service_name"`
}
