package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8090"
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB
	DefaultMaxBodyBytes    = 262144  // 256KB

	// Rate limit defaults
	DefaultRateLimitPerMinute = 60
	DefaultRateLimitBurst     = 20
	DefaultRateLimitIdleTTL   = 10 * time.Minute

	// Moderation defaults
	DefaultWatchDebounce = 200 * time.Millisecond

	// Escalation defaults
	DefaultEscalationEnabled        = true
	DefaultEscalationWorkers        = 2
	DefaultEscalationQueueSize      = 1000
	DefaultEscalationEnqueueTimeout = 2 * time.Second
	DefaultEscalationWriteTimeout   = 5 * time.Second
	DefaultRosterCacheTTL           = time.Minute

	// Storage defaults
	DefaultStorageBackend         = "sqlite"
	DefaultSQLitePath             = "data/sentinel.db"
	DefaultSQLiteDriver           = "sqlite3"
	DefaultSQLiteMaxOpenConns     = 10
	DefaultSQLiteMaxIdleConns     = 5
	DefaultSQLiteWALMode          = true
	DefaultSQLiteBusyTimeout      = 5 * time.Second
	DefaultPostgresPort           = 5432
	DefaultPostgresSSLMode        = "require"
	DefaultPostgresMaxOpenConns   = 10
	DefaultPostgresMaxIdleConns   = 5
	DefaultPostgresConnLifetime   = 30 * time.Minute
	DefaultRetentionDays          = 180
	DefaultRetentionPruneSchedule = "0 4 * * *"

	// Telemetry defaults
	DefaultLoggingLevel     = "info"
	DefaultLoggingFormat    = "json"
	DefaultLoggingRedactPII = true
	DefaultMetricsEnabled   = true
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "sentinel"
	DefaultMetricsSubsystem = "moderation"
	DefaultTracingSampler   = "ratio"
	DefaultTracingRatio     = 0.1
	DefaultTracingTimeout   = 10 * time.Second
	DefaultTracingService   = "sentinel"
)

// DefaultReviewerRoles are the roles notified about high severity content.
var DefaultReviewerRoles = []string{"admin", "moderator"}

// DefaultThresholds returns the classifier thresholds used when none are
// configured.
func DefaultThresholds() ThresholdsConfig {
	return ThresholdsConfig{
		MaxLength:                10000,
		MinTokenLength:           3,
		RepetitionMinTokens:      8,
		RepetitionRatio:          0.25,
		CharRunLength:            5,
		CapsMinLength:            15,
		CapsRatio:                0.5,
		SymbolMinLength:          10,
		SymbolRatio:              0.4,
		DangerousCriticalMatches: 1,
		AbusiveHighMatches:       2,
		BaseConfidence:           0.7,
		BothCategoriesBonus:      0.2,
		ShortContentLength:       50,
		ShortContentPenalty:      0.1,
		HighSeverityBonus:        0.15,
		MinConfidence:            0.5,
		MaxConfidence:            0.95,
		StoredContentLength:      500,
	}
}

// Default returns a configuration populated with every default value,
// including boolean defaults that ApplyDefaults cannot infer from zero values.
// LoadConfig decodes YAML on top of it so omitted fields keep their default.
func Default() *Config {
	cfg := &Config{}
	cfg.Escalation.Enabled = DefaultEscalationEnabled
	cfg.Storage.SQLite.WALMode = DefaultSQLiteWALMode
	cfg.Telemetry.Logging.RedactPII = DefaultLoggingRedactPII
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Server.RateLimit.RequestsPerMinute == 0 {
		cfg.Server.RateLimit.RequestsPerMinute = DefaultRateLimitPerMinute
	}
	if cfg.Server.RateLimit.Burst == 0 {
		cfg.Server.RateLimit.Burst = DefaultRateLimitBurst
	}
	if cfg.Server.RateLimit.IdleTTL == 0 {
		cfg.Server.RateLimit.IdleTTL = DefaultRateLimitIdleTTL
	}

	// Moderation defaults
	if cfg.Moderation.WatchDebounce == 0 {
		cfg.Moderation.WatchDebounce = DefaultWatchDebounce
	}
	applyThresholdDefaults(&cfg.Moderation.Thresholds)

	// Escalation defaults
	if cfg.Escalation.Workers == 0 {
		cfg.Escalation.Workers = DefaultEscalationWorkers
	}
	if cfg.Escalation.QueueSize == 0 {
		cfg.Escalation.QueueSize = DefaultEscalationQueueSize
	}
	if cfg.Escalation.EnqueueTimeout == 0 {
		cfg.Escalation.EnqueueTimeout = DefaultEscalationEnqueueTimeout
	}
	if cfg.Escalation.WriteTimeout == 0 {
		cfg.Escalation.WriteTimeout = DefaultEscalationWriteTimeout
	}
	if len(cfg.Escalation.ReviewerRoles) == 0 {
		cfg.Escalation.ReviewerRoles = append([]string(nil), DefaultReviewerRoles...)
	}

	// Storage defaults
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = DefaultStorageBackend
	}
	if cfg.Storage.SQLite.Path == "" {
		cfg.Storage.SQLite.Path = DefaultSQLitePath
	}
	if cfg.Storage.SQLite.Driver == "" {
		cfg.Storage.SQLite.Driver = DefaultSQLiteDriver
	}
	if cfg.Storage.SQLite.MaxOpenConns == 0 {
		cfg.Storage.SQLite.MaxOpenConns = DefaultSQLiteMaxOpenConns
	}
	if cfg.Storage.SQLite.MaxIdleConns == 0 {
		cfg.Storage.SQLite.MaxIdleConns = DefaultSQLiteMaxIdleConns
	}
	if cfg.Storage.SQLite.BusyTimeout == 0 {
		cfg.Storage.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
	if cfg.Storage.Postgres.Port == 0 {
		cfg.Storage.Postgres.Port = DefaultPostgresPort
	}
	if cfg.Storage.Postgres.SSLMode == "" {
		cfg.Storage.Postgres.SSLMode = DefaultPostgresSSLMode
	}
	if cfg.Storage.Postgres.MaxOpenConns == 0 {
		cfg.Storage.Postgres.MaxOpenConns = DefaultPostgresMaxOpenConns
	}
	if cfg.Storage.Postgres.MaxIdleConns == 0 {
		cfg.Storage.Postgres.MaxIdleConns = DefaultPostgresMaxIdleConns
	}
	if cfg.Storage.Postgres.ConnMaxLifetime == 0 {
		cfg.Storage.Postgres.ConnMaxLifetime = DefaultPostgresConnLifetime
	}
	if cfg.Storage.Retention.Days == 0 {
		cfg.Storage.Retention.Days = DefaultRetentionDays
	}
	if cfg.Storage.Retention.PruneSchedule == "" {
		cfg.Storage.Retention.PruneSchedule = DefaultRetentionPruneSchedule
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingRatio
	}
	if cfg.Telemetry.Tracing.Timeout == 0 {
		cfg.Telemetry.Tracing.Timeout = DefaultTracingTimeout
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingService
	}
}

// applyThresholdDefaults fills zero thresholds from DefaultThresholds.
func applyThresholdDefaults(t *ThresholdsConfig) {
	d := DefaultThresholds()
	if t.MaxLength == 0 {
		t.MaxLength = d.MaxLength
	}
	if t.MinTokenLength == 0 {
		t.MinTokenLength = d.MinTokenLength
	}
	if t.RepetitionMinTokens == 0 {
		t.RepetitionMinTokens = d.RepetitionMinTokens
	}
	if t.RepetitionRatio == 0 {
		t.RepetitionRatio = d.RepetitionRatio
	}
	if t.CharRunLength == 0 {
		t.CharRunLength = d.CharRunLength
	}
	if t.CapsMinLength == 0 {
		t.CapsMinLength = d.CapsMinLength
	}
	if t.CapsRatio == 0 {
		t.CapsRatio = d.CapsRatio
	}
	if t.SymbolMinLength == 0 {
		t.SymbolMinLength = d.SymbolMinLength
	}
	if t.SymbolRatio == 0 {
		t.SymbolRatio = d.SymbolRatio
	}
	if t.DangerousCriticalMatches == 0 {
		t.DangerousCriticalMatches = d.DangerousCriticalMatches
	}
	if t.AbusiveHighMatches == 0 {
		t.AbusiveHighMatches = d.AbusiveHighMatches
	}
	if t.BaseConfidence == 0 {
		t.BaseConfidence = d.BaseConfidence
	}
	if t.BothCategoriesBonus == 0 {
		t.BothCategoriesBonus = d.BothCategoriesBonus
	}
	if t.ShortContentLength == 0 {
		t.ShortContentLength = d.ShortContentLength
	}
	if t.ShortContentPenalty == 0 {
		t.ShortContentPenalty = d.ShortContentPenalty
	}
	if t.HighSeverityBonus == 0 {
		t.HighSeverityBonus = d.HighSeverityBonus
	}
	if t.MinConfidence == 0 {
		t.MinConfidence = d.MinConfidence
	}
	if t.MaxConfidence == 0 {
		t.MaxConfidence = d.MaxConfidence
	}
	if t.StoredContentLength == 0 {
		t.StoredContentLength = d.StoredContentLength
	}
}
