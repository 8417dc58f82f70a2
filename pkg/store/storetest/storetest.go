// Package storetest holds behaviour tests shared by every store.Store
// implementation.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"kinship-hq/sentinel/pkg/moderation"
	"kinship-hq/sentinel/pkg/store"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) store.Store

// Run runs the full suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"RecordRoundTrip", testRecordRoundTrip},
		{"GetMissingRecord", testGetMissingRecord},
		{"QueryFilters", testQueryFilters},
		{"QueryPagination", testQueryPagination},
		{"MarkReviewed", testMarkReviewed},
		{"Roles", testRoles},
		{"NotificationsAndWarnings", testNotificationsAndWarnings},
		{"Prune", testPrune},
		{"Ping", testPing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			defer s.Close()
			tt.fn(t, s)
		})
	}
}

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// Record builds a flagged record created offset after a fixed base time.
func Record(id, author string, severity moderation.Severity, offset time.Duration) *store.ModerationRecord {
	return &store.ModerationRecord{
		ID:            id,
		AuthorID:      author,
		ContentType:   moderation.ContentTypePost,
		ViolationKind: moderation.KindAbusiveLanguage,
		Violations:    []moderation.ViolationKind{moderation.KindAbusiveLanguage},
		Severity:      severity,
		Confidence:    0.7,
		Content:       "you are an idiot",
		CreatedAt:     base.Add(offset),
	}
}

func mustCreate(t *testing.T, s store.Store, records ...*store.ModerationRecord) {
	t.Helper()
	for _, r := range records {
		if err := s.CreateModerationRecord(context.Background(), r); err != nil {
			t.Fatalf("CreateModerationRecord(%s) error = %v", r.ID, err)
		}
	}
}

func testRecordRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()
	r := Record("rec-1", "user-1", moderation.SeverityCritical, 0)
	r.ViolationKind = moderation.KindDangerousContent
	r.Violations = []moderation.ViolationKind{moderation.KindAbusiveLanguage, moderation.KindDangerousContent}
	r.Confidence = 0.95
	mustCreate(t, s, r)

	got, err := s.GetModerationRecord(ctx, "rec-1")
	if err != nil {
		t.Fatalf("GetModerationRecord() error = %v", err)
	}
	if got.AuthorID != "user-1" || got.Severity != moderation.SeverityCritical {
		t.Errorf("got author=%q severity=%q", got.AuthorID, got.Severity)
	}
	if got.ViolationKind != moderation.KindDangerousContent {
		t.Errorf("ViolationKind = %q, want %q", got.ViolationKind, moderation.KindDangerousContent)
	}
	if len(got.Violations) != 2 || got.Violations[1] != moderation.KindDangerousContent {
		t.Errorf("Violations = %v", got.Violations)
	}
	if got.Confidence != 0.95 {
		t.Errorf("Confidence = %v, want 0.95", got.Confidence)
	}
	if !got.CreatedAt.Equal(r.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, r.CreatedAt)
	}
	if got.Reviewed {
		t.Error("new record should not be reviewed")
	}

	if err := s.CreateModerationRecord(ctx, r); err == nil {
		t.Error("duplicate id should fail")
	}
}

func testGetMissingRecord(t *testing.T, s store.Store) {
	_, err := s.GetModerationRecord(context.Background(), "missing")
	if !store.IsNotFound(err) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	var serr *store.StorageError
	if !errors.As(err, &serr) {
		t.Fatalf("error %T is not a *StorageError", err)
	}
	if serr.Operation != "get_record" {
		t.Errorf("Operation = %q, want get_record", serr.Operation)
	}
}

func testQueryFilters(t *testing.T, s store.Store) {
	ctx := context.Background()
	dangerous := Record("rec-3", "user-2", moderation.SeverityHigh, 2*time.Minute)
	dangerous.ViolationKind = moderation.KindDangerousContent
	mustCreate(t, s,
		Record("rec-1", "user-1", moderation.SeverityMedium, 0),
		Record("rec-2", "user-1", moderation.SeverityHigh, time.Minute),
		dangerous,
	)
	if err := s.MarkReviewed(ctx, "rec-1"); err != nil {
		t.Fatalf("MarkReviewed() error = %v", err)
	}

	reviewed := true
	since := base.Add(30 * time.Second)
	tests := []struct {
		name  string
		query *store.Query
		want  []string
	}{
		{"nil query", nil, []string{"rec-3", "rec-2", "rec-1"}},
		{"author", &store.Query{AuthorID: "user-1"}, []string{"rec-2", "rec-1"}},
		{"severity", &store.Query{Severity: moderation.SeverityHigh}, []string{"rec-3", "rec-2"}},
		{"kind", &store.Query{Kind: moderation.KindDangerousContent}, []string{"rec-3"}},
		{"reviewed", &store.Query{Reviewed: &reviewed}, []string{"rec-1"}},
		{"since", &store.Query{Since: &since}, []string{"rec-3", "rec-2"}},
		{"combined", &store.Query{AuthorID: "user-1", Severity: moderation.SeverityHigh}, []string{"rec-2"}},
		{"no match", &store.Query{AuthorID: "nobody"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.QueryModerationRecords(ctx, tt.query)
			if err != nil {
				t.Fatalf("QueryModerationRecords() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d records, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("record[%d] = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func testQueryPagination(t *testing.T, s store.Store) {
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		mustCreate(t, s, Record(string(rune('a'+i)), "user-1", moderation.SeverityMedium, time.Duration(i)*time.Second))
	}

	got, err := s.QueryModerationRecords(ctx, &store.Query{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("QueryModerationRecords() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != "d" || got[1].ID != "c" {
		ids := make([]string, len(got))
		for i, r := range got {
			ids[i] = r.ID
		}
		t.Errorf("page = %v, want [d c]", ids)
	}

	got, err = s.QueryModerationRecords(ctx, &store.Query{Offset: 10})
	if err != nil {
		t.Fatalf("QueryModerationRecords() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("offset past end returned %d records", len(got))
	}
}

func testMarkReviewed(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustCreate(t, s, Record("rec-1", "user-1", moderation.SeverityHigh, 0))

	if err := s.MarkReviewed(ctx, "rec-1"); err != nil {
		t.Fatalf("MarkReviewed() error = %v", err)
	}
	got, err := s.GetModerationRecord(ctx, "rec-1")
	if err != nil {
		t.Fatalf("GetModerationRecord() error = %v", err)
	}
	if !got.Reviewed {
		t.Error("record should be reviewed")
	}
	if err := s.MarkReviewed(ctx, "missing"); !store.IsNotFound(err) {
		t.Errorf("MarkReviewed(missing) error = %v, want ErrNotFound", err)
	}
}

func testRoles(t *testing.T, s store.Store) {
	ctx := context.Background()
	grants := []struct{ user, role string }{
		{"mod-2", "moderator"},
		{"mod-1", "moderator"},
		{"admin-1", "admin"},
		{"admin-1", "moderator"},
		{"mod-1", "moderator"},
	}
	for _, g := range grants {
		if err := s.GrantRole(ctx, g.user, g.role); err != nil {
			t.Fatalf("GrantRole(%s, %s) error = %v", g.user, g.role, err)
		}
	}

	mods, err := s.ListUsersWithRole(ctx, "moderator")
	if err != nil {
		t.Fatalf("ListUsersWithRole() error = %v", err)
	}
	want := []string{"admin-1", "mod-1", "mod-2"}
	if len(mods) != len(want) {
		t.Fatalf("moderators = %v, want %v", mods, want)
	}
	for i := range want {
		if mods[i] != want[i] {
			t.Errorf("moderators[%d] = %s, want %s", i, mods[i], want[i])
		}
	}

	all, err := s.ListRoles(ctx)
	if err != nil {
		t.Fatalf("ListRoles() error = %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("ListRoles() returned %d assignments, want 4", len(all))
	}
	if all[0].Role != "admin" || all[0].UserID != "admin-1" {
		t.Errorf("first assignment = %+v", all[0])
	}
	if all[0].GrantedAt.IsZero() {
		t.Error("GrantedAt should be set")
	}

	if err := s.RevokeRole(ctx, "mod-2", "moderator"); err != nil {
		t.Fatalf("RevokeRole() error = %v", err)
	}
	if err := s.RevokeRole(ctx, "mod-2", "moderator"); !store.IsNotFound(err) {
		t.Errorf("second RevokeRole() error = %v, want ErrNotFound", err)
	}

	none, err := s.ListUsersWithRole(ctx, "superuser")
	if err != nil {
		t.Fatalf("ListUsersWithRole() error = %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("unknown role = %#v, want empty non-nil slice", none)
	}
}

func testNotificationsAndWarnings(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustCreate(t, s, Record("rec-1", "user-1", moderation.SeverityHigh, 0))

	for i, recipient := range []string{"admin-1", "mod-1"} {
		n := &store.ReviewerNotification{
			ID:                 "n-" + recipient,
			RecipientID:        recipient,
			ModerationRecordID: "rec-1",
			Message:            "High severity content flagged",
			CreatedAt:          base.Add(time.Duration(i) * time.Second),
		}
		if err := s.CreateReviewerNotification(ctx, n); err != nil {
			t.Fatalf("CreateReviewerNotification() error = %v", err)
		}
	}

	got, err := s.ListNotifications(ctx, "mod-1")
	if err != nil {
		t.Fatalf("ListNotifications() error = %v", err)
	}
	if len(got) != 1 || got[0].ModerationRecordID != "rec-1" {
		t.Errorf("notifications = %+v", got)
	}

	w := &store.UserWarning{
		ID:                 "w-1",
		AuthorID:           "user-1",
		ModerationRecordID: "rec-1",
		WarningType:        "content_violation",
		Message:            "Your content was flagged",
		CreatedAt:          base,
	}
	if err := s.CreateUserWarning(ctx, w); err != nil {
		t.Fatalf("CreateUserWarning() error = %v", err)
	}
	if err := s.AcknowledgeWarning(ctx, "w-1"); err != nil {
		t.Fatalf("AcknowledgeWarning() error = %v", err)
	}
	if err := s.AcknowledgeWarning(ctx, "w-missing"); !store.IsNotFound(err) {
		t.Errorf("AcknowledgeWarning(missing) error = %v, want ErrNotFound", err)
	}

	warnings, err := s.ListWarnings(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListWarnings() error = %v", err)
	}
	if len(warnings) != 1 || !warnings[0].Acknowledged || warnings[0].WarningType != "content_violation" {
		t.Errorf("warnings = %+v", warnings)
	}
}

func testPrune(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustCreate(t, s,
		Record("old-reviewed", "user-1", moderation.SeverityHigh, 0),
		Record("old-open", "user-1", moderation.SeverityHigh, time.Second),
		Record("new-reviewed", "user-1", moderation.SeverityHigh, 48*time.Hour),
	)
	for _, id := range []string{"old-reviewed", "new-reviewed"} {
		if err := s.MarkReviewed(ctx, id); err != nil {
			t.Fatalf("MarkReviewed(%s) error = %v", id, err)
		}
	}
	for _, rec := range []string{"old-reviewed", "old-open"} {
		n := &store.ReviewerNotification{ID: "n-" + rec, RecipientID: "mod-1", ModerationRecordID: rec, Message: "m", CreatedAt: base}
		if err := s.CreateReviewerNotification(ctx, n); err != nil {
			t.Fatalf("CreateReviewerNotification() error = %v", err)
		}
	}
	warnings := []*store.UserWarning{
		{ID: "w-ack", AuthorID: "user-1", ModerationRecordID: "old-reviewed", WarningType: "content_violation", Message: "m", Acknowledged: true, CreatedAt: base},
		{ID: "w-open", AuthorID: "user-1", ModerationRecordID: "old-open", WarningType: "content_violation", Message: "m", CreatedAt: base},
	}
	for _, w := range warnings {
		if err := s.CreateUserWarning(ctx, w); err != nil {
			t.Fatalf("CreateUserWarning() error = %v", err)
		}
	}

	res, err := s.Prune(ctx, base.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	want := store.PruneResult{Records: 1, Notifications: 1, Warnings: 1}
	if res != want {
		t.Errorf("Prune() = %+v, want %+v", res, want)
	}

	if _, err := s.GetModerationRecord(ctx, "old-reviewed"); !store.IsNotFound(err) {
		t.Errorf("old reviewed record should be pruned, got err = %v", err)
	}
	for _, id := range []string{"old-open", "new-reviewed"} {
		if _, err := s.GetModerationRecord(ctx, id); err != nil {
			t.Errorf("record %s should survive, got err = %v", id, err)
		}
	}
	left, err := s.ListNotifications(ctx, "mod-1")
	if err != nil {
		t.Fatalf("ListNotifications() error = %v", err)
	}
	if len(left) != 1 || left[0].ModerationRecordID != "old-open" {
		t.Errorf("remaining notifications = %+v", left)
	}
}

func testPing(t *testing.T, s store.Store) {
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}
