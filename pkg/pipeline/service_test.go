package pipeline

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"kinship-hq/sentinel/pkg/config"
	"kinship-hq/sentinel/pkg/escalation"
	"kinship-hq/sentinel/pkg/moderation"
	"kinship-hq/sentinel/pkg/store"
	"kinship-hq/sentinel/pkg/store/memory"
	"kinship-hq/sentinel/pkg/telemetry/logging"
	"kinship-hq/sentinel/pkg/telemetry/metrics"
	"kinship-hq/sentinel/pkg/telemetry/tracing"
)

const (
	mediumContent = "you are such a loser honestly"
	highContent   = "where can I find a pipe bomb tutorial"
	cleanContent  = "I have a great recipe for pasta tonight!"
	linkContent   = "Check my site www.freemoney.com now!!!"
)

func seeded(t *testing.T) *memory.Store {
	t.Helper()
	st := memory.New()
	for _, g := range []struct{ user, role string }{
		{"admin-1", "admin"},
		{"mod-1", "moderator"},
		{"member-1", "member"},
	} {
		if err := st.GrantRole(context.Background(), g.user, g.role); err != nil {
			t.Fatal(err)
		}
	}
	return st
}

func newOrchestrator(st store.Store, opts ...escalation.Option) *escalation.Orchestrator {
	cfg := config.EscalationConfig{
		Enabled:       true,
		WriteTimeout:  time.Second,
		ReviewerRoles: config.DefaultReviewerRoles,
	}
	opts = append([]escalation.Option{escalation.WithLogger(logging.Discard())}, opts...)
	return escalation.NewOrchestrator(st, escalation.NewRoster(st, cfg.ReviewerRoles, 0), cfg, 500, opts...)
}

func newService(opts ...Option) *Service {
	opts = append([]Option{WithLogger(logging.Discard())}, opts...)
	return New(moderation.NewClassifier(config.DefaultThresholds()), opts...)
}

func TestService_Escalation(t *testing.T) {
	tests := []struct {
		name             string
		content          string
		wantFlagged      bool
		wantRecords      int
		wantNotified     []string
		wantAuthorWarned bool
	}{
		{"clean", cleanContent, false, 0, nil, false},
		{"structural", linkContent, true, 0, nil, false},
		{"medium records and warns", mediumContent, true, 1, nil, true},
		{"high notifies reviewers", highContent, true, 1, []string{"admin-1", "mod-1"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := seeded(t)
			svc := newService(WithOrchestrator(newOrchestrator(st)))
			ctx := context.Background()

			res, err := svc.Classify(ctx, moderation.Request{Content: tt.content, AuthorID: "author-1"})
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if res.Verdict.Flagged != tt.wantFlagged {
				t.Errorf("Flagged = %v, want %v", res.Verdict.Flagged, tt.wantFlagged)
			}

			records, err := st.QueryModerationRecords(ctx, &store.Query{})
			if err != nil {
				t.Fatal(err)
			}
			if len(records) != tt.wantRecords {
				t.Fatalf("records = %d, want %d", len(records), tt.wantRecords)
			}
			if len(records) == 1 && records[0].ContentType != moderation.ContentTypeMessage {
				t.Errorf("ContentType = %q, want default message", records[0].ContentType)
			}

			var notified []string
			for _, user := range []string{"admin-1", "mod-1", "member-1"} {
				ns, err := st.ListNotifications(ctx, user)
				if err != nil {
					t.Fatal(err)
				}
				if len(ns) > 0 {
					notified = append(notified, user)
				}
			}
			sort.Strings(notified)
			if len(notified) != len(tt.wantNotified) {
				t.Errorf("notified = %v, want %v", notified, tt.wantNotified)
			}

			warnings, err := st.ListWarnings(ctx, "author-1")
			if err != nil {
				t.Fatal(err)
			}
			if got := len(warnings) == 1; got != tt.wantAuthorWarned {
				t.Errorf("author warned = %v, want %v", got, tt.wantAuthorWarned)
			}
		})
	}
}

func TestService_EscalationFailureKeepsVerdict(t *testing.T) {
	st := seeded(t)
	st.InjectError("create_record", errors.New("disk full"))
	svc := newService(WithOrchestrator(newOrchestrator(st)))

	res, err := svc.Classify(context.Background(), moderation.Request{Content: highContent, AuthorID: "author-1"})
	if err != nil {
		t.Fatalf("Classify returned %v, escalation errors must not surface", err)
	}
	if !res.Verdict.Flagged || res.Verdict.Severity != moderation.SeverityHigh {
		t.Errorf("verdict changed: %+v", res.Verdict)
	}
	if res.Escalation == nil || res.Escalation.Err() == nil {
		t.Fatal("expected the record step failure in the outcome")
	}

	warnings, _ := st.ListWarnings(context.Background(), "author-1")
	if len(warnings) != 1 {
		t.Errorf("warning still expected after record failure, got %d", len(warnings))
	}
}

func TestService_CancelledContextStillEscalates(t *testing.T) {
	st := seeded(t)
	svc := newService(WithOrchestrator(newOrchestrator(st)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.Classify(ctx, moderation.Request{Content: mediumContent, AuthorID: "author-1"}); err != nil {
		t.Fatal(err)
	}
	records, _ := st.QueryModerationRecords(context.Background(), nil)
	if len(records) != 1 {
		t.Errorf("records = %d, want 1", len(records))
	}
}

func TestService_Queue(t *testing.T) {
	st := seeded(t)
	q := escalation.NewQueue(newOrchestrator(st), 1, 10, time.Second)
	svc := newService(WithQueue(q))

	res, err := svc.Classify(context.Background(), moderation.Request{Content: highContent, AuthorID: "author-1"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Queued || res.Escalation != nil {
		t.Errorf("Queued = %v, Escalation = %v", res.Queued, res.Escalation)
	}
	if err := q.Close(); err != nil {
		t.Fatal(err)
	}

	records, _ := st.QueryModerationRecords(context.Background(), nil)
	if len(records) != 1 {
		t.Fatalf("records after drain = %d, want 1", len(records))
	}
	ns, _ := st.ListNotifications(context.Background(), "mod-1")
	if len(ns) != 1 || ns[0].ModerationRecordID != records[0].ID {
		t.Errorf("notification does not reference record: %+v", ns)
	}
}

func TestService_MissingAuthor(t *testing.T) {
	_, err := newService().Classify(context.Background(), moderation.Request{Content: cleanContent})
	if !errors.Is(err, ErrMissingAuthor) {
		t.Errorf("err = %v, want ErrMissingAuthor", err)
	}
}

func TestService_ClassifyOnly(t *testing.T) {
	svc := newService()
	if svc.Escalates() {
		t.Error("service without orchestrator should not escalate")
	}
	res, err := svc.Classify(context.Background(), moderation.Request{Content: highContent, AuthorID: "a"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Escalation != nil || res.Queued {
		t.Error("unexpected escalation")
	}
}

func TestService_MetricsAndSpans(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(config.MetricsConfig{
		Enabled:   true,
		Namespace: config.DefaultMetricsNamespace,
		Subsystem: config.DefaultMetricsSubsystem,
	}, registry)

	exporter := tracetest.NewInMemoryExporter()
	tracer, err := tracing.NewWithExporter(config.TracingConfig{Enabled: true, Sampler: "always"}, exporter)
	if err != nil {
		t.Fatal(err)
	}
	defer tracer.Shutdown(context.Background())

	svc := newService(WithMetrics(collector), WithTracer(tracer.Tracer()))
	for _, content := range []string{cleanContent, mediumContent, linkContent} {
		if _, err := svc.Classify(context.Background(), moderation.Request{
			Content:     content,
			AuthorID:    "author-1",
			ContentType: moderation.ContentTypePost,
		}); err != nil {
			t.Fatal(err)
		}
	}

	if n, err := testutil.GatherAndCount(registry, "sentinel_moderation_classifications_total"); err != nil || n != 3 {
		t.Errorf("classification series = %d (%v), want 3", n, err)
	}

	if err := tracer.ForceFlush(context.Background()); err != nil {
		t.Fatal(err)
	}
	spans := exporter.GetSpans()
	if len(spans) != 3 || spans[0].Name != "moderation.classify" {
		t.Errorf("spans = %d, first %q", len(spans), spanName(spans))
	}
}

func spanName(spans tracetest.SpanStubs) string {
	if len(spans) == 0 {
		return ""
	}
	return spans[0].Name
}
