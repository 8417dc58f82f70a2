package escalation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"kinship-hq/sentinel/pkg/config"
	"kinship-hq/sentinel/pkg/moderation"
	"kinship-hq/sentinel/pkg/store"
)

// WarningTypeContentViolation is the warning type issued to authors.
const WarningTypeContentViolation = "content_violation"

// Observer receives escalation step results. The metrics collector
// implements it.
type Observer interface {
	ObserveEscalationStep(step string, err error)
	ObserveEscalationDropped()
}

type nopObserver struct{}

func (nopObserver) ObserveEscalationStep(string, error) {}
func (nopObserver) ObserveEscalationDropped()           {}

// Orchestrator performs the side effects of a flagged verdict: one
// moderation record, one notification per reviewer for high and critical
// severity, and one author warning. Every step is attempted even when an
// earlier one fails.
type Orchestrator struct {
	store         store.Store
	roster        *Roster
	writeTimeout  time.Duration
	maxContentLen int
	base          *slog.Logger
	logger        *slog.Logger
	tracer        trace.Tracer
	observer      Observer
	newID         func() string
	now           func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.base = l
		o.logger = l.With("component", "escalation")
	}
}

// WithTracer sets the tracer used for escalation spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// WithObserver sets the step observer.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithIDGenerator overrides uuid generation.
func WithIDGenerator(fn func() string) Option {
	return func(o *Orchestrator) { o.newID = fn }
}

// NewOrchestrator creates an orchestrator writing to st.
// maxContentLen is the number of runes of content stored on the record.
func NewOrchestrator(st store.Store, roster *Roster, cfg config.EscalationConfig, maxContentLen int, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:         st,
		roster:        roster,
		writeTimeout:  cfg.WriteTimeout,
		maxContentLen: maxContentLen,
		base:          slog.Default(),
		logger:        slog.Default().With("component", "escalation"),
		tracer:        noop.NewTracerProvider().Tracer("sentinel/escalation"),
		observer:      nopObserver{},
		newID:         func() string { return uuid.New().String() },
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Roster returns the reviewer roster.
func (o *Orchestrator) Roster() *Roster {
	return o.roster
}

// Escalate writes the side effects for v. Clean and structurally rejected
// verdicts produce an empty Outcome without touching the store.
func (o *Orchestrator) Escalate(ctx context.Context, req moderation.Request, v *moderation.Verdict) *Outcome {
	out := &Outcome{}
	if v == nil || !v.Valid || !v.Flagged {
		return out
	}

	ctx, span := o.tracer.Start(ctx, "escalation.escalate",
		trace.WithAttributes(
			attribute.String("moderation.severity", string(v.Severity)),
			attribute.String("moderation.content_type", string(req.ContentType)),
			attribute.Int("moderation.violations", len(v.Violations)),
		),
	)
	defer span.End()

	now := o.now().UTC()
	logger := o.logger.With("author_id", req.AuthorID, "severity", v.Severity)

	// Record first: notifications and the warning reference it.
	record := &store.ModerationRecord{
		ID:            o.newID(),
		AuthorID:      req.AuthorID,
		ContentType:   req.ContentType,
		ViolationKind: v.MostSevere(),
		Violations:    v.Kinds(),
		Severity:      v.Severity,
		Confidence:    v.Confidence,
		Content:       truncateRunes(req.Content, o.maxContentLen),
		CreatedAt:     now,
	}
	err := o.write(ctx, func(ctx context.Context) error {
		return o.store.CreateModerationRecord(ctx, record)
	})
	o.observer.ObserveEscalationStep(StepRecord, err)
	if err != nil {
		logger.Error("failed to create moderation record", "error", err)
		out.fail(StepRecord, "", err)
	} else {
		out.RecordID = record.ID
		logger.Info("moderation record created",
			"record_id", record.ID,
			"violation_kind", record.ViolationKind,
		)
	}

	if v.Severity.NotifiesReviewers() {
		o.notifyReviewers(ctx, logger, out, v, now)
	}

	warning := &store.UserWarning{
		ID:                 o.newID(),
		AuthorID:           req.AuthorID,
		ModerationRecordID: out.RecordID,
		WarningType:        WarningTypeContentViolation,
		Message:            WarningMessage(v.Kinds()),
		CreatedAt:          now,
	}
	err = o.write(ctx, func(ctx context.Context) error {
		return o.store.CreateUserWarning(ctx, warning)
	})
	o.observer.ObserveEscalationStep(StepWarning, err)
	if err != nil {
		logger.Error("failed to create user warning", "error", err)
		out.fail(StepWarning, "", err)
	} else {
		out.WarningID = warning.ID
	}

	span.SetAttributes(
		attribute.String("moderation.record_id", out.RecordID),
		attribute.Int("escalation.notified", len(out.Notified)),
	)
	if err := out.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "escalation partially failed")
	}

	logger.Debug("escalation completed",
		"record_id", out.RecordID,
		"notified", len(out.Notified),
		"failed_steps", len(out.Errors),
	)
	return out
}

func (o *Orchestrator) notifyReviewers(ctx context.Context, logger *slog.Logger, out *Outcome, v *moderation.Verdict, now time.Time) {
	var reviewers []string
	err := o.write(ctx, func(ctx context.Context) error {
		var err error
		reviewers, err = o.roster.Reviewers(ctx)
		return err
	})
	o.observer.ObserveEscalationStep(StepRoster, err)
	if err != nil {
		logger.Error("failed to list reviewers", "error", err)
		out.fail(StepRoster, "", err)
		return
	}
	if len(reviewers) == 0 {
		logger.Warn("no reviewers to notify", "roles", strings.Join(o.roster.Roles(), ","))
		return
	}

	message := NotificationMessage(v.Severity, v.Kinds())
	for _, reviewer := range reviewers {
		n := &store.ReviewerNotification{
			ID:                 o.newID(),
			RecipientID:        reviewer,
			ModerationRecordID: out.RecordID,
			Message:            message,
			CreatedAt:          now,
		}
		err := o.write(ctx, func(ctx context.Context) error {
			return o.store.CreateReviewerNotification(ctx, n)
		})
		o.observer.ObserveEscalationStep(StepNotification, err)
		if err != nil {
			logger.Error("failed to notify reviewer", "reviewer_id", reviewer, "error", err)
			out.fail(StepNotification, reviewer, err)
			continue
		}
		out.Notified = append(out.Notified, reviewer)
	}
}

// write runs fn under the per-step write timeout.
func (o *Orchestrator) write(ctx context.Context, fn func(context.Context) error) error {
	if o.writeTimeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, o.writeTimeout)
	defer cancel()
	return fn(ctx)
}

// NotificationMessage is the reviewer notification text.
func NotificationMessage(severity moderation.Severity, kinds []moderation.ViolationKind) string {
	return fmt.Sprintf("%s severity content requires review: %s",
		capitalize(string(severity)), joinLabels(kinds))
}

// WarningMessage is the author warning text naming every violation kind.
func WarningMessage(kinds []moderation.ViolationKind) string {
	return fmt.Sprintf("Your content was flagged for %s. Please review the community guidelines.",
		joinLabels(kinds))
}

func joinLabels(kinds []moderation.ViolationKind) string {
	labels := make([]string, len(kinds))
	for i, k := range kinds {
		labels[i] = k.Label()
	}
	return strings.Join(labels, ", ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
