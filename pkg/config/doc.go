// Package config provides configuration management for Sentinel.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("sentinel.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("sentinel.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention SENTINEL_SECTION_FIELD.
// For example:
//
//   - SENTINEL_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - SENTINEL_STORAGE_BACKEND overrides storage.backend
//   - SENTINEL_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Singleton Pattern
//
//	if err := config.Initialize("sentinel.yaml"); err != nil {
//	    log.Fatal(err)
//	}
//	cfg := config.GetConfig()
//
// For testing, prefer dependency injection with explicit Config instances
// rather than the global singleton.
//
// # Example Configuration
//
//	server:
//	  listen_address: "0.0.0.0:8090"
//
//	moderation:
//	  rules_file: "./rules.yaml"
//	  watch_rules: true
//	  thresholds:
//	    max_length: 10000
//
//	escalation:
//	  async: true
//	  workers: 4
//
//	storage:
//	  backend: "postgres"
//	  postgres:
//	    host: "db.internal"
//	    database: "social"
//	    user: "sentinel"
//
//	telemetry:
//	  logging:
//	    level: "info"
//	    format: "json"
package config
