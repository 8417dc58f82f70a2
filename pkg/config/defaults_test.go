package config

import (
	"reflect"
	"testing"
)

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("expected listen address %q, got %q", DefaultListenAddress, cfg.Server.ListenAddress)
	}
	if cfg.Storage.Backend != DefaultStorageBackend {
		t.Errorf("expected backend %q, got %q", DefaultStorageBackend, cfg.Storage.Backend)
	}
	if !reflect.DeepEqual(cfg.Moderation.Thresholds, DefaultThresholds()) {
		t.Errorf("expected default thresholds, got %+v", cfg.Moderation.Thresholds)
	}
	if !reflect.DeepEqual(cfg.Escalation.ReviewerRoles, DefaultReviewerRoles) {
		t.Errorf("expected reviewer roles %v, got %v", DefaultReviewerRoles, cfg.Escalation.ReviewerRoles)
	}
}

func TestApplyDefaults_PreservesValues(t *testing.T) {
	cfg := &Config{}
	cfg.Moderation.Thresholds.MaxLength = 280
	cfg.Escalation.ReviewerRoles = []string{"trust_safety"}
	cfg.Storage.SQLite.Driver = "sqlite"

	ApplyDefaults(cfg)

	if cfg.Moderation.Thresholds.MaxLength != 280 {
		t.Errorf("expected max length preserved, got %d", cfg.Moderation.Thresholds.MaxLength)
	}
	if cfg.Moderation.Thresholds.CapsRatio != 0.5 {
		t.Errorf("expected caps ratio default, got %v", cfg.Moderation.Thresholds.CapsRatio)
	}
	if len(cfg.Escalation.ReviewerRoles) != 1 || cfg.Escalation.ReviewerRoles[0] != "trust_safety" {
		t.Errorf("expected reviewer roles preserved, got %v", cfg.Escalation.ReviewerRoles)
	}
	if cfg.Storage.SQLite.Driver != "sqlite" {
		t.Errorf("expected driver preserved, got %q", cfg.Storage.SQLite.Driver)
	}
}

func TestApplyDefaults_Idempotent(t *testing.T) {
	a := &Config{}
	ApplyDefaults(a)
	b := &Config{}
	ApplyDefaults(b)
	ApplyDefaults(b)

	if !reflect.DeepEqual(a, b) {
		t.Error("ApplyDefaults is not idempotent")
	}
}

func TestDefault_Booleans(t *testing.T) {
	cfg := Default()
	if !cfg.Escalation.Enabled {
		t.Error("expected escalation enabled")
	}
	if cfg.Escalation.Async {
		t.Error("expected synchronous escalation by default")
	}
	if !cfg.Storage.SQLite.WALMode {
		t.Error("expected WAL mode enabled")
	}
	if cfg.Telemetry.Tracing.Enabled {
		t.Error("expected tracing disabled")
	}
}

func TestApplyDefaults_ReviewerRolesNotAliased(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Escalation.ReviewerRoles[0] = "changed"

	if DefaultReviewerRoles[0] != "admin" {
		t.Error("ApplyDefaults aliased the package default slice")
	}
}
