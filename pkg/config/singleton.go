package config

import "sync/atomic"

// current is the process-wide configuration used by cmd/sentinel.
var current atomic.Pointer[Config]

// Initialize loads the configuration at path (empty means defaults plus
// SENTINEL_* overrides) and installs it. The first successful call wins;
// later calls are no-ops so subcommands sharing a process see one config.
func Initialize(path string) error {
	if current.Load() != nil {
		return nil
	}
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return err
	}
	current.CompareAndSwap(nil, cfg)
	return nil
}

// GetConfig returns the installed configuration, or nil before Initialize.
func GetConfig() *Config {
	return current.Load()
}

// SetConfig replaces the installed configuration. Tests use it to inject a
// config without touching the filesystem.
func SetConfig(cfg *Config) {
	current.Store(cfg)
}

// MustGetConfig is GetConfig for code that only runs after startup.
func MustGetConfig() *Config {
	cfg := current.Load()
	if cfg == nil {
		panic("config: Initialize has not been called")
	}
	return cfg
}
