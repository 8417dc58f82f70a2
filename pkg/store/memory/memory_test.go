package memory

import (
	"context"
	"errors"
	"testing"

	"kinship-hq/sentinel/pkg/moderation"
	"kinship-hq/sentinel/pkg/store"
	"kinship-hq/sentinel/pkg/store/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return New() })
}

func TestStore_InjectError(t *testing.T) {
	s := New()
	ctx := context.Background()
	boom := errors.New("disk full")

	s.InjectError("create_record", boom)
	err := s.CreateModerationRecord(ctx, storetest.Record("rec-1", "user-1", moderation.SeverityHigh, 0))
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want %v", err, boom)
	}
	var serr *store.StorageError
	if !errors.As(err, &serr) || serr.Backend != "memory" || serr.Operation != "create_record" {
		t.Errorf("error = %#v", err)
	}

	s.InjectError("create_record", nil)
	if err := s.CreateModerationRecord(ctx, storetest.Record("rec-1", "user-1", moderation.SeverityHigh, 0)); err != nil {
		t.Errorf("after clearing, error = %v", err)
	}
}

func TestStore_Closed(t *testing.T) {
	s := New()
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Ping(context.Background()); err == nil {
		t.Error("Ping() after Close should fail")
	}
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	r := storetest.Record("rec-1", "user-1", moderation.SeverityHigh, 0)
	if err := s.CreateModerationRecord(ctx, r); err != nil {
		t.Fatal(err)
	}
	r.Violations[0] = moderation.KindSpam

	got, err := s.GetModerationRecord(ctx, "rec-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Violations[0] != moderation.KindAbusiveLanguage {
		t.Errorf("stored record was mutated through caller slice: %v", got.Violations)
	}
}
