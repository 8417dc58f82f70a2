package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs a Pruner on a cron schedule.
type Scheduler struct {
	pruner   *Pruner
	schedule string
	cron     *cron.Cron
	mu       sync.Mutex
	logger   *slog.Logger
	running  bool
	onPrune  func(error)
}

// NewScheduler creates a scheduler using pruner's PruneSchedule.
func NewScheduler(pruner *Pruner) *Scheduler {
	return &Scheduler{
		pruner:   pruner,
		schedule: pruner.config.PruneSchedule,
		cron:     cron.New(),
		logger:   pruner.logger.With("component", "store.retention.scheduler"),
	}
}

// OnPrune registers a callback invoked after each scheduled pass.
func (s *Scheduler) OnPrune(fn func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onPrune = fn
}

// Start schedules pruning. An empty schedule or zero retention leaves the
// scheduler idle. The scheduler stops when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" || s.pruner.config.Days <= 0 {
		s.logger.Info("retention not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}

	if _, err := s.cron.AddFunc(s.schedule, func() { s.run(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule pruning: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("retention scheduler started",
		"schedule", s.schedule,
		"retention_days", s.pruner.config.Days,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	s.logger.Info("starting scheduled moderation pruning")
	_, err := s.pruner.Prune(ctx)
	if err != nil {
		s.logger.Error("scheduled pruning failed", "error", err)
	}

	s.mu.Lock()
	fn := s.onPrune
	s.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

// Stop stops the scheduler and waits for a running pass to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	// run takes mu after pruning, so wait without holding it.
	<-s.cron.Stop().Done()
	s.logger.Info("retention scheduler stopped")
}

// IsRunning reports whether the scheduler is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled pass, or nil if none is scheduled.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
