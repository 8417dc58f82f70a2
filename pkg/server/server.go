package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"kinship-hq/sentinel/pkg/api/handlers"
	"kinship-hq/sentinel/pkg/api/middleware"
	"kinship-hq/sentinel/pkg/config"
	"kinship-hq/sentinel/pkg/pipeline"
	"kinship-hq/sentinel/pkg/ratelimit"
	"kinship-hq/sentinel/pkg/store"
	"kinship-hq/sentinel/pkg/telemetry/health"
	"kinship-hq/sentinel/pkg/telemetry/metrics"
	"kinship-hq/sentinel/pkg/telemetry/tracing"
)

// BuildInfo is reported by /version.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// Deps are the components the server routes to. Metrics and Tracer may be
// nil.
type Deps struct {
	Service *pipeline.Service
	Store   store.Store
	Health  *health.Checker
	Metrics *metrics.Collector
	Tracer  *tracing.Tracer
	Logger  *slog.Logger
	Build   BuildInfo
}

// Server is the moderation HTTP server.
type Server struct {
	config       config.ServerConfig
	metricsPath  string
	deps         Deps
	limiter      *ratelimit.Limiter
	logger       *slog.Logger
	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
	addr         net.Addr
}

// New creates a server. metricsPath is where /metrics is mounted when
// deps.Metrics is enabled.
func New(cfg config.ServerConfig, metricsPath string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Health == nil {
		deps.Health = health.New(0)
	}
	return &Server{
		config:       cfg,
		metricsPath:  metricsPath,
		deps:         deps,
		limiter:      ratelimit.New(cfg.RateLimit),
		logger:       logger.With("component", "server"),
		shutdownChan: make(chan struct{}),
	}
}

// Start listens on the configured address and blocks until ctx is done or
// Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}
	s.httpServer = &http.Server{
		Handler:        s.Handler(),
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	s.addr = ln.Addr()
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting moderation server", "address", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case <-s.shutdownChan:
		// Shutdown was called directly and has finished draining.
		return nil
	case err := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return err
	}
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		defer close(s.shutdownChan)

		s.mu.Lock()
		running := s.isRunning
		s.mu.Unlock()
		if !running {
			return
		}

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())
		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		s.logger.Info("moderation server stopped")
	})

	return shutdownErr
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	classify := handlers.NewClassifyHandler(s.deps.Service, s.config.MaxBodyBytes, s.logger,
		handlers.WithRateLimiter(s.limiter, s.deps.Metrics))
	records := handlers.NewRecordsHandler(s.deps.Store, s.logger)

	mux.Handle("POST /v1/moderation/classify", classify)
	mux.HandleFunc("GET /v1/moderation/records", records.List)
	mux.HandleFunc("GET /v1/moderation/records/{id}", records.Get)

	health.Register(mux, s.deps.Health, s.deps.Build.Version, s.deps.Build.Commit, s.deps.Build.BuildTime)
	if s.deps.Metrics.Enabled() && s.metricsPath != "" {
		mux.Handle("GET "+s.metricsPath, s.deps.Metrics.Handler())
	}

	chain := []middleware.Middleware{
		middleware.Recovery(s.logger),
		middleware.RequestID,
	}
	if s.deps.Tracer != nil {
		chain = append(chain, s.deps.Tracer.HTTPMiddleware)
	}
	chain = append(chain, middleware.Logging(s.logger, s.deps.Metrics))
	return middleware.Chain(mux, chain...)
}

// IsRunning reports whether the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Addr returns the bound address once Start is listening.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}
