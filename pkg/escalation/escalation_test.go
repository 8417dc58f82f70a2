package escalation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"kinship-hq/sentinel/pkg/config"
	"kinship-hq/sentinel/pkg/moderation"
	"kinship-hq/sentinel/pkg/store"
	"kinship-hq/sentinel/pkg/store/memory"
)

func testConfig() config.EscalationConfig {
	return config.EscalationConfig{
		Enabled:       true,
		WriteTimeout:  time.Second,
		ReviewerRoles: []string{"admin", "moderator"},
	}
}

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	st := memory.New()
	ctx := context.Background()
	for _, g := range []struct{ user, role string }{
		{"admin-1", "admin"},
		{"mod-1", "moderator"},
		{"mod-2", "moderator"},
		{"admin-1", "moderator"},
		{"member-1", "member"},
	} {
		if err := st.GrantRole(ctx, g.user, g.role); err != nil {
			t.Fatal(err)
		}
	}
	return st
}

type countingObserver struct {
	mu      sync.Mutex
	steps   map[string]int
	failed  map[string]int
	dropped int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{steps: map[string]int{}, failed: map[string]int{}}
}

func (c *countingObserver) ObserveEscalationStep(step string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.steps[step]++
	if err != nil {
		c.failed[step]++
	}
}

func (c *countingObserver) ObserveEscalationDropped() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropped++
}

func newOrchestrator(st store.Store, opts ...Option) *Orchestrator {
	cfg := testConfig()
	ids := 0
	var mu sync.Mutex
	opts = append([]Option{WithIDGenerator(func() string {
		mu.Lock()
		defer mu.Unlock()
		ids++
		return fmt.Sprintf("id-%d", ids)
	})}, opts...)
	return NewOrchestrator(st, NewRoster(st, cfg.ReviewerRoles, 0), cfg, 500, opts...)
}

func flagged(severity moderation.Severity, kinds ...moderation.ViolationKind) *moderation.Verdict {
	v := &moderation.Verdict{
		Valid:      true,
		Flagged:    true,
		Severity:   severity,
		Confidence: 0.85,
	}
	for _, k := range kinds {
		v.Violations = append(v.Violations, moderation.Violation{Kind: k, Confidence: 0.85})
	}
	return v
}

var req = moderation.Request{Content: "some flagged text", AuthorID: "author-1", ContentType: moderation.ContentTypePost}

func TestEscalate_NotifiesReviewersBySeverity(t *testing.T) {
	tests := []struct {
		name         string
		severity     moderation.Severity
		wantNotified []string
	}{
		{"critical", moderation.SeverityCritical, []string{"admin-1", "mod-1", "mod-2"}},
		{"high", moderation.SeverityHigh, []string{"admin-1", "mod-1", "mod-2"}},
		{"medium", moderation.SeverityMedium, nil},
		{"low", moderation.SeverityLow, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := seededStore(t)
			o := newOrchestrator(st)
			ctx := context.Background()

			out := o.Escalate(ctx, req, flagged(tt.severity, moderation.KindAbusiveLanguage))
			if err := out.Err(); err != nil {
				t.Fatalf("Escalate() errors = %v", err)
			}
			if out.RecordID == "" || out.WarningID == "" {
				t.Fatalf("outcome = %+v, want record and warning", out)
			}
			if strings.Join(out.Notified, ",") != strings.Join(tt.wantNotified, ",") {
				t.Errorf("Notified = %v, want %v", out.Notified, tt.wantNotified)
			}

			for _, reviewer := range []string{"admin-1", "mod-1", "mod-2"} {
				got, err := st.ListNotifications(ctx, reviewer)
				if err != nil {
					t.Fatal(err)
				}
				want := 0
				if tt.wantNotified != nil {
					want = 1
				}
				if len(got) != want {
					t.Errorf("%s has %d notifications, want %d", reviewer, len(got), want)
				}
				for _, n := range got {
					if n.ModerationRecordID != out.RecordID {
						t.Errorf("notification references %q, want %q", n.ModerationRecordID, out.RecordID)
					}
				}
			}
			if got, _ := st.ListNotifications(ctx, "member-1"); len(got) != 0 {
				t.Errorf("non-reviewer was notified")
			}

			warnings, err := st.ListWarnings(ctx, "author-1")
			if err != nil {
				t.Fatal(err)
			}
			if len(warnings) != 1 {
				t.Fatalf("got %d warnings, want 1", len(warnings))
			}
			w := warnings[0]
			if w.ModerationRecordID != out.RecordID || w.Acknowledged || w.WarningType != WarningTypeContentViolation {
				t.Errorf("warning = %+v", w)
			}
		})
	}
}

func TestEscalate_RecordFields(t *testing.T) {
	st := seededStore(t)
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	o := newOrchestrator(st, WithClock(func() time.Time { return now }))

	long := strings.Repeat("é", 600)
	r := moderation.Request{Content: long, AuthorID: "author-1", ContentType: moderation.ContentTypeComment}
	out := o.Escalate(context.Background(), r,
		flagged(moderation.SeverityCritical, moderation.KindAbusiveLanguage, moderation.KindDangerousContent))

	rec, err := st.GetModerationRecord(context.Background(), out.RecordID)
	if err != nil {
		t.Fatalf("GetModerationRecord() error = %v", err)
	}
	if rec.ViolationKind != moderation.KindDangerousContent {
		t.Errorf("ViolationKind = %q, want most severe dangerous_content", rec.ViolationKind)
	}
	if len(rec.Violations) != 2 {
		t.Errorf("Violations = %v", rec.Violations)
	}
	if n := len([]rune(rec.Content)); n != 500 {
		t.Errorf("stored content has %d runes, want 500", n)
	}
	if !rec.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", rec.CreatedAt, now)
	}
	if rec.ContentType != moderation.ContentTypeComment || rec.Reviewed {
		t.Errorf("record = %+v", rec)
	}
}

func TestEscalate_SkipsCleanAndInvalid(t *testing.T) {
	tests := []struct {
		name    string
		verdict *moderation.Verdict
	}{
		{"nil", nil},
		{"clean", &moderation.Verdict{Valid: true, Violations: []moderation.Violation{}}},
		{"invalid structure", &moderation.Verdict{
			Valid:      false,
			Flagged:    true,
			Violations: []moderation.Violation{{Kind: moderation.KindInvalidStructure, Confidence: 1}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := seededStore(t)
			obs := newCountingObserver()
			o := newOrchestrator(st, WithObserver(obs))

			out := o.Escalate(context.Background(), req, tt.verdict)
			if out.RecordID != "" || out.WarningID != "" || len(out.Notified) != 0 {
				t.Errorf("outcome = %+v, want empty", out)
			}
			recs, _ := st.QueryModerationRecords(context.Background(), nil)
			if len(recs) != 0 {
				t.Errorf("got %d records, want none", len(recs))
			}
			if len(obs.steps) != 0 {
				t.Errorf("observed steps = %v, want none", obs.steps)
			}
		})
	}
}

func TestEscalate_StepFailuresDoNotStopLaterSteps(t *testing.T) {
	boom := errors.New("connection reset")

	t.Run("record insert fails", func(t *testing.T) {
		st := seededStore(t)
		st.InjectError("create_record", boom)
		obs := newCountingObserver()
		o := newOrchestrator(st, WithObserver(obs))

		out := o.Escalate(context.Background(), req, flagged(moderation.SeverityHigh, moderation.KindDangerousContent))
		if out.RecordID != "" {
			t.Errorf("RecordID = %q, want empty", out.RecordID)
		}
		if len(out.Notified) != 3 || out.WarningID == "" {
			t.Errorf("outcome = %+v, want notifications and warning", out)
		}
		if len(out.Errors) != 1 || out.Errors[0].Step != StepRecord || !errors.Is(out.Errors[0], boom) {
			t.Errorf("Errors = %v", out.Errors)
		}
		if obs.failed[StepRecord] != 1 || obs.steps[StepNotification] != 3 {
			t.Errorf("observer steps=%v failed=%v", obs.steps, obs.failed)
		}
		n, _ := st.ListNotifications(context.Background(), "mod-1")
		if len(n) != 1 || n[0].ModerationRecordID != "" {
			t.Errorf("notification = %+v, want empty record ref", n)
		}
	})

	t.Run("roster lookup fails", func(t *testing.T) {
		st := seededStore(t)
		st.InjectError("list_users_with_role", boom)
		o := newOrchestrator(st)

		out := o.Escalate(context.Background(), req, flagged(moderation.SeverityCritical, moderation.KindDangerousContent))
		if out.RecordID == "" || out.WarningID == "" {
			t.Errorf("outcome = %+v, want record and warning", out)
		}
		if len(out.Errors) != 1 || out.Errors[0].Step != StepRoster {
			t.Errorf("Errors = %v", out.Errors)
		}
	})

	t.Run("notification insert fails", func(t *testing.T) {
		st := seededStore(t)
		st.InjectError("create_notification", boom)
		o := newOrchestrator(st)

		out := o.Escalate(context.Background(), req, flagged(moderation.SeverityHigh, moderation.KindAbusiveLanguage))
		if len(out.Errors) != 3 {
			t.Fatalf("got %d errors, want one per reviewer", len(out.Errors))
		}
		if out.Errors[0].Target != "admin-1" {
			t.Errorf("first failed target = %q", out.Errors[0].Target)
		}
		if out.WarningID == "" {
			t.Error("warning should still be written")
		}
	})

	t.Run("warning insert fails", func(t *testing.T) {
		st := seededStore(t)
		st.InjectError("create_warning", boom)
		o := newOrchestrator(st)

		out := o.Escalate(context.Background(), req, flagged(moderation.SeverityMedium, moderation.KindAbusiveLanguage))
		if out.RecordID == "" || out.WarningID != "" {
			t.Errorf("outcome = %+v", out)
		}
		if !errors.Is(out.Err(), boom) {
			t.Errorf("Err() = %v, want %v", out.Err(), boom)
		}
	})
}

func TestRoster_CachesAndInvalidates(t *testing.T) {
	st := seededStore(t)
	r := NewRoster(st, []string{"admin", "moderator"}, time.Minute)
	ctx := context.Background()

	first, err := r.Reviewers(ctx)
	if err != nil {
		t.Fatalf("Reviewers() error = %v", err)
	}
	if strings.Join(first, ",") != "admin-1,mod-1,mod-2" {
		t.Errorf("Reviewers() = %v", first)
	}

	if err := st.GrantRole(ctx, "mod-3", "moderator"); err != nil {
		t.Fatal(err)
	}
	cached, _ := r.Reviewers(ctx)
	if len(cached) != 3 {
		t.Errorf("cached roster = %v, want 3 entries", cached)
	}

	r.Invalidate()
	fresh, _ := r.Reviewers(ctx)
	if len(fresh) != 4 {
		t.Errorf("roster after Invalidate = %v, want 4 entries", fresh)
	}

	// Callers must not be able to mutate the cached slice.
	fresh[0] = "mallory"
	again, _ := r.Reviewers(ctx)
	if again[0] != "admin-1" {
		t.Errorf("cached roster mutated: %v", again)
	}
}

func TestMessages(t *testing.T) {
	kinds := []moderation.ViolationKind{moderation.KindAbusiveLanguage, moderation.KindDangerousContent}
	if got, want := NotificationMessage(moderation.SeverityCritical, kinds),
		"Critical severity content requires review: abusive language, dangerous content"; got != want {
		t.Errorf("NotificationMessage() = %q, want %q", got, want)
	}
	if got := WarningMessage(kinds); !strings.Contains(got, "abusive language, dangerous content") {
		t.Errorf("WarningMessage() = %q", got)
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 3, "hel"},
		{"héllo", 2, "hé"},
		{"hello", 0, "hello"},
		{"", 5, ""},
	}
	for _, tt := range tests {
		if got := truncateRunes(tt.in, tt.n); got != tt.want {
			t.Errorf("truncateRunes(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
