package cli

import (
	"errors"
	"testing"
)

func TestConfigError(t *testing.T) {
	tests := []struct {
		name string
		err  *ConfigError
		want string
	}{
		{"with field", NewConfigError("server.listen_address", "missing required field"), "config error in server.listen_address: missing required field"},
		{"without field", NewConfigError("", "failed to load config"), "config error: failed to load config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrapConfigError(t *testing.T) {
	cause := errors.New("storage.backend: unsupported backend")
	err := WrapConfigError(cause)
	if !errors.Is(err, cause) {
		t.Error("cause not reachable through Unwrap")
	}
}

func TestCommandError(t *testing.T) {
	cause := errors.New("listen tcp: address in use")
	err := NewCommandError("run", cause)
	if err.Error() != "command run failed: listen tcp: address in use" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
}
