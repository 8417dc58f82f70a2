package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"kinship-hq/sentinel/pkg/escalation"
	"kinship-hq/sentinel/pkg/moderation"
	"kinship-hq/sentinel/pkg/telemetry/metrics"
)

// ErrMissingAuthor is returned when a request has no author id.
var ErrMissingAuthor = errors.New("userId is required")

// Result is the outcome of one classification.
type Result struct {
	Verdict *moderation.Verdict

	// Escalation is nil when nothing was escalated or when escalation was
	// handed to the queue.
	Escalation *escalation.Outcome

	// Queued is set when escalation was submitted to the async queue.
	Queued bool

	Duration time.Duration
}

// Service classifies content and escalates flagged verdicts.
type Service struct {
	classifier   *moderation.Classifier
	orchestrator *escalation.Orchestrator
	queue        *escalation.Queue
	metrics      *metrics.Collector
	tracer       trace.Tracer
	logger       *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithOrchestrator escalates flagged verdicts synchronously.
func WithOrchestrator(o *escalation.Orchestrator) Option {
	return func(s *Service) { s.orchestrator = o }
}

// WithQueue escalates flagged verdicts on the async queue. It takes
// precedence over WithOrchestrator.
func WithQueue(q *escalation.Queue) Option {
	return func(s *Service) { s.queue = q }
}

// WithMetrics records classification metrics.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Service) { s.metrics = c }
}

// WithTracer sets the tracer used for classification spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Service. Without an orchestrator or queue the service only
// classifies.
func New(classifier *moderation.Classifier, opts ...Option) *Service {
	s := &Service{
		classifier: classifier,
		tracer:     noop.NewTracerProvider().Tracer("sentinel"),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "pipeline")
	return s
}

// Classifier returns the underlying classifier.
func (s *Service) Classifier() *moderation.Classifier {
	return s.classifier
}

// Escalates reports whether flagged verdicts are escalated.
func (s *Service) Escalates() bool {
	return s.queue != nil || s.orchestrator != nil
}

// Classify validates, matches and scores req.Content, then escalates the
// verdict when it is flagged. Escalation failures never change the verdict
// and are not returned.
func (s *Service) Classify(ctx context.Context, req moderation.Request) (*Result, error) {
	if strings.TrimSpace(req.AuthorID) == "" {
		return nil, ErrMissingAuthor
	}
	if req.ContentType == "" {
		req.ContentType = moderation.ContentTypeMessage
	}

	ctx, span := s.tracer.Start(ctx, "moderation.classify",
		trace.WithAttributes(
			attribute.String("moderation.content_type", string(req.ContentType)),
			attribute.Int("moderation.content_length", utf8.RuneCountInString(req.Content)),
		),
	)
	defer span.End()

	start := time.Now()
	verdict := s.classifier.Classify(req.Content)
	duration := time.Since(start)

	s.metrics.RecordClassification(req.ContentType, verdict, duration)
	span.SetAttributes(
		attribute.Bool("moderation.valid", verdict.Valid),
		attribute.Bool("moderation.flagged", verdict.Flagged),
		attribute.String("moderation.severity", string(verdict.Severity)),
	)

	// Content is never logged, only its shape.
	s.logger.DebugContext(ctx, "content classified",
		"author_id", req.AuthorID,
		"content_type", req.ContentType,
		"content_length", utf8.RuneCountInString(req.Content),
		"valid", verdict.Valid,
		"flagged", verdict.Flagged,
		"violations", verdict.Kinds(),
		"severity", verdict.Severity,
		"confidence", verdict.Confidence,
		"patterns", verdict.Patterns,
		"duration_us", duration.Microseconds(),
	)

	result := &Result{Verdict: verdict, Duration: duration}
	if !verdict.Valid || !verdict.Flagged {
		return result, nil
	}

	// A client hanging up must not abort escalation writes.
	switch {
	case s.queue != nil:
		// The queue logs and counts drops itself.
		result.Queued = s.queue.Submit(req, verdict) == nil
	case s.orchestrator != nil:
		result.Escalation = s.orchestrator.Escalate(context.WithoutCancel(ctx), req, verdict)
		if err := result.Escalation.Err(); err != nil {
			span.SetStatus(codes.Error, "escalation partially failed")
		}
	}
	return result, nil
}
