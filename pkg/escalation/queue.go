package escalation

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"kinship-hq/sentinel/pkg/moderation"
)

var (
	// ErrQueueFull is returned when an escalation could not be enqueued
	// within the enqueue timeout.
	ErrQueueFull = errors.New("escalation queue full")

	// ErrQueueClosed is returned by Submit after Close.
	ErrQueueClosed = errors.New("escalation queue closed")
)

type job struct {
	req     moderation.Request
	verdict *moderation.Verdict
}

// Queue runs escalations on background workers so the verdict can be
// returned before the writes finish. Close drains pending jobs.
type Queue struct {
	orch           *Orchestrator
	jobs           chan job
	wg             sync.WaitGroup
	enqueueTimeout time.Duration
	logger         *slog.Logger

	// mu is held for reading while a job is sent and for writing while
	// closing, so no send can land after the workers have exited.
	mu     sync.RWMutex
	closed bool
}

// NewQueue starts workers goroutines draining a queue of size capacity.
func NewQueue(orch *Orchestrator, workers, capacity int, enqueueTimeout time.Duration) *Queue {
	if workers < 1 {
		workers = 1
	}
	if capacity < 0 {
		capacity = 0
	}
	q := &Queue{
		orch:           orch,
		jobs:           make(chan job, capacity),
		enqueueTimeout: enqueueTimeout,
		logger:         orch.base.With("component", "escalation.queue"),
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.logger.Info("escalation queue started",
		"workers", workers,
		"capacity", capacity,
		"enqueue_timeout", enqueueTimeout,
	)
	return q
}

// Submit enqueues an escalation. It blocks for at most the enqueue timeout
// and drops the job when the queue stays full.
func (q *Queue) Submit(req moderation.Request, v *moderation.Verdict) error {
	if v == nil || !v.Valid || !v.Flagged {
		return nil
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.orch.observer.ObserveEscalationDropped()
		q.logger.Warn("escalation queue closed, dropping escalation",
			"author_id", req.AuthorID,
		)
		return ErrQueueClosed
	}

	timer := time.NewTimer(q.enqueueTimeout)
	defer timer.Stop()

	select {
	case q.jobs <- job{req: req, verdict: v}:
		return nil
	case <-timer.C:
		q.orch.observer.ObserveEscalationDropped()
		q.logger.Error("escalation queue full, dropping escalation",
			"author_id", req.AuthorID,
			"severity", v.Severity,
			"capacity", cap(q.jobs),
		)
		return ErrQueueFull
	}
}

// Pending returns the number of queued jobs.
func (q *Queue) Pending() int {
	return len(q.jobs)
}

// Close stops accepting jobs and waits for queued jobs to be written.
// Submits already in flight finish (or time out) before the queue closes.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.logger.Info("shutting down escalation queue", "pending", len(q.jobs))
	close(q.jobs)
	q.mu.Unlock()

	q.wg.Wait()
	q.logger.Info("escalation queue drained")
	return nil
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for j := range q.jobs {
		q.run(j)
	}
}

func (q *Queue) run(j job) {
	q.orch.Escalate(context.Background(), j.req, j.verdict)
}
