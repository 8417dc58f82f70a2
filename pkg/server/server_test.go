package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"kinship-hq/sentinel/pkg/config"
	"kinship-hq/sentinel/pkg/moderation"
	"kinship-hq/sentinel/pkg/pipeline"
	"kinship-hq/sentinel/pkg/store/memory"
	"kinship-hq/sentinel/pkg/telemetry/health"
	"kinship-hq/sentinel/pkg/telemetry/logging"
	"kinship-hq/sentinel/pkg/telemetry/metrics"
)

func testServer(t *testing.T, st *memory.Store, modify ...func(*config.Config)) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Server.ListenAddress = "127.0.0.1:0"
	cfg.Server.ShutdownTimeout = 2 * time.Second
	for _, fn := range modify {
		fn(cfg)
	}

	checker := health.New(time.Second)
	checker.RegisterCheck("store", st.Ping)

	collector := metrics.NewCollector(config.MetricsConfig{
		Enabled:   true,
		Namespace: config.DefaultMetricsNamespace,
		Subsystem: config.DefaultMetricsSubsystem,
	}, prometheus.NewRegistry())

	return New(cfg.Server, "/metrics", Deps{
		Service: pipeline.New(moderation.NewClassifier(cfg.Moderation.Thresholds), pipeline.WithLogger(logging.Discard())),
		Store:   st,
		Health:  checker,
		Metrics: collector,
		Logger:  logging.Discard(),
		Build:   BuildInfo{Version: "test"},
	})
}

func TestHandler_Routes(t *testing.T) {
	st := memory.New()
	h := testServer(t, st).Handler()

	tests := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodPost, "/v1/moderation/classify", `{"content":"hello friends","userId":"u1"}`, http.StatusOK},
		{http.MethodGet, "/v1/moderation/classify", "", http.StatusMethodNotAllowed},
		{http.MethodGet, "/v1/moderation/records", "", http.StatusOK},
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/ready", "", http.StatusOK},
		{http.MethodGet, "/version", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodGet, "/nope", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body)))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Error("missing X-Request-ID")
			}
		})
	}
}

func TestHandler_ReadyDegradesWhenStoreFails(t *testing.T) {
	st := memory.New()
	st.InjectError("ping", errors.New("database is locked"))
	h := testServer(t, st).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestHandler_RateLimitPerAuthor(t *testing.T) {
	h := testServer(t, memory.New(), func(c *config.Config) {
		c.Server.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 2, IdleTTL: time.Minute}
	}).Handler()

	post := func(user string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		body := `{"content":"hello friends","userId":"` + user + `"}`
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/moderation/classify", strings.NewReader(body)))
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := post("u1"); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, rec.Code)
		}
	}

	rec := post("u1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	if !strings.Contains(rec.Body.String(), `"code":"rate_limited"`) {
		t.Errorf("body = %s", rec.Body.String())
	}

	// Other authors have their own bucket.
	if rec := post("u2"); rec.Code != http.StatusOK {
		t.Errorf("u2 status = %d, want 200", rec.Code)
	}
}

func TestServer_StartAndShutdown(t *testing.T) {
	srv := testServer(t, memory.New())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for srv.Addr() == nil && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if srv.Addr() == nil {
		t.Fatal("server did not start")
	}

	resp, err := http.Get("http://" + srv.Addr().String() + "/health")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	if err := srv.Start(ctx); err == nil {
		t.Error("second Start should fail")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
	if srv.IsRunning() {
		t.Error("server still running")
	}
}
