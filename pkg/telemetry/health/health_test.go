package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestChecker_CheckReadiness(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]CheckFunc
		wantStatus string
	}{
		{"no checks", nil, StatusReady},
		{"all healthy", map[string]CheckFunc{
			"store": func(context.Context) error { return nil },
			"rules": func(context.Context) error { return nil },
		}, StatusReady},
		{"store down", map[string]CheckFunc{
			"store": func(context.Context) error { return errors.New("connection refused") },
			"rules": func(context.Context) error { return nil },
		}, StatusDegraded},
		{"timeout", map[string]CheckFunc{
			"store": func(ctx context.Context) error { <-ctx.Done(); time.Sleep(10 * time.Millisecond); return nil },
		}, StatusDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(50 * time.Millisecond)
			for name, fn := range tt.checks {
				c.RegisterCheck(name, fn)
			}
			got := c.CheckReadiness(context.Background())
			if got.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q (checks %+v)", got.Status, tt.wantStatus, got.Checks)
			}
			if len(got.Checks) != len(tt.checks) {
				t.Errorf("got %d results, want %d", len(got.Checks), len(tt.checks))
			}
		})
	}
}

func TestReadinessHandler(t *testing.T) {
	c := New(time.Second)
	c.RegisterCheck("store", func(context.Context) error { return errors.New("ping failed") })

	mux := http.NewServeMux()
	Register(mux, c, "1.2.3", "abc123", "2026-10-01")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}

	var body struct {
		Status string `json:"status"`
		Checks map[string]struct {
			Status     string  `json:"status"`
			Message    string  `json:"message"`
			DurationMS float64 `json:"duration_ms"`
		} `json:"checks"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Status != StatusDegraded || body.Checks["store"].Message != "ping failed" {
		t.Errorf("body = %+v", body)
	}
}

func TestLivenessAndVersion(t *testing.T) {
	mux := http.NewServeMux()
	Register(mux, New(0), "1.2.3", "abc123", "2026-10-01")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/health status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/version", nil))
	var info VersionInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatal(err)
	}
	if info.Version != "1.2.3" || info.GoVersion == "" {
		t.Errorf("version = %+v", info)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/health", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /health status = %d, want 405", rec.Code)
	}
}

func TestChecker_ListChecks(t *testing.T) {
	c := New(0)
	c.RegisterCheck("store", func(context.Context) error { return nil })
	c.RegisterCheck("rules", func(context.Context) error { return nil })
	got := c.ListChecks()
	if len(got) != 2 || got[0] != "rules" || got[1] != "store" {
		t.Errorf("ListChecks() = %v", got)
	}
}
