package rules

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"kinship-hq/sentinel/pkg/moderation"
)

// Manager loads custom rules into a matcher and optionally keeps them in sync
// with the file on disk.
type Manager struct {
	path     string
	matcher  *moderation.Matcher
	logger   *slog.Logger
	onReload func(count int, err error)

	mu       sync.Mutex
	watcher  *Watcher
	loadedAt time.Time
	count    int
}

// Option configures a Manager.
type Option func(*Manager)

// WithReloadHook registers a callback invoked after every load attempt.
func WithReloadHook(fn func(count int, err error)) Option {
	return func(m *Manager) { m.onReload = fn }
}

// NewManager creates a manager for the rules file at path.
func NewManager(path string, matcher *moderation.Matcher, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		path:    path,
		matcher: matcher,
		logger:  logger.With("component", "rules"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load reads the rules file and installs its patterns. On error the
// previously installed patterns stay active.
func (m *Manager) Load() error {
	patterns, err := LoadFile(m.path)
	if m.onReload != nil {
		m.onReload(len(patterns), err)
	}
	if err != nil {
		return err
	}

	m.matcher.SetCustomPatterns(patterns)

	m.mu.Lock()
	m.loadedAt = time.Now()
	m.count = len(patterns)
	m.mu.Unlock()

	m.logger.Info("custom rules loaded", "path", m.path, "rules", len(patterns))
	return nil
}

// Status returns the number of active custom rules and when they were loaded.
func (m *Manager) Status() (int, time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count, m.loadedAt
}

// Watch reloads the rules whenever the file changes. It blocks until ctx is
// cancelled or Close is called.
func (m *Manager) Watch(ctx context.Context, debounce time.Duration) error {
	w, err := NewWatcher(m.path, debounce, m.logger)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.watcher = w
	m.mu.Unlock()

	return w.Watch(ctx, m.Load)
}

// Close stops the watcher if one is running.
func (m *Manager) Close() error {
	m.mu.Lock()
	w := m.watcher
	m.watcher = nil
	m.mu.Unlock()

	if w == nil {
		return nil
	}
	return w.Stop()
}
