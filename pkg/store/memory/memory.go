// Package memory provides an in-memory store.Store for tests and local
// development. Data is lost when the process exits.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"kinship-hq/sentinel/pkg/store"
)

const backend = "memory"

// errClosed is returned by every operation after Close.
var errClosed = errors.New("store closed")

// Store implements store.Store with maps guarded by a mutex.
type Store struct {
	mu            sync.RWMutex
	records       map[string]*store.ModerationRecord
	notifications map[string]*store.ReviewerNotification
	warnings      map[string]*store.UserWarning
	roles         map[roleKey]time.Time
	failures      map[string]error
	closed        bool
}

type roleKey struct {
	userID string
	role   string
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		records:       make(map[string]*store.ModerationRecord),
		notifications: make(map[string]*store.ReviewerNotification),
		warnings:      make(map[string]*store.UserWarning),
		roles:         make(map[roleKey]time.Time),
		failures:      make(map[string]error),
	}
}

// InjectError makes the named operation fail with err until cleared with a
// nil err. Operation names match the StorageError Operation field.
func (s *Store) InjectError(operation string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, operation)
		return
	}
	s.failures[operation] = err
}

// check must be called with s.mu held.
func (s *Store) check(operation string) error {
	if s.closed {
		return store.NewStorageError(backend, operation, errClosed)
	}
	if err, ok := s.failures[operation]; ok {
		return store.NewStorageError(backend, operation, err)
	}
	return nil
}

// CreateModerationRecord stores a copy of record.
func (s *Store) CreateModerationRecord(ctx context.Context, record *store.ModerationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("create_record"); err != nil {
		return err
	}
	if _, exists := s.records[record.ID]; exists {
		return store.NewStorageError(backend, "create_record", fmt.Errorf("duplicate id %q", record.ID))
	}
	cp := *record
	cp.Violations = append(cp.Violations[:0:0], record.Violations...)
	s.records[record.ID] = &cp
	return nil
}

// CreateReviewerNotification stores a copy of n.
func (s *Store) CreateReviewerNotification(ctx context.Context, n *store.ReviewerNotification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("create_notification"); err != nil {
		return err
	}
	cp := *n
	s.notifications[n.ID] = &cp
	return nil
}

// CreateUserWarning stores a copy of w.
func (s *Store) CreateUserWarning(ctx context.Context, w *store.UserWarning) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("create_warning"); err != nil {
		return err
	}
	cp := *w
	s.warnings[w.ID] = &cp
	return nil
}

// ListUsersWithRole returns the users holding role.
func (s *Store) ListUsersWithRole(ctx context.Context, role string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check("list_users_with_role"); err != nil {
		return nil, err
	}
	users := []string{}
	for k := range s.roles {
		if k.role == role {
			users = append(users, k.userID)
		}
	}
	sort.Strings(users)
	return users, nil
}

// GrantRole gives role to userID.
func (s *Store) GrantRole(ctx context.Context, userID, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("grant_role"); err != nil {
		return err
	}
	k := roleKey{userID: userID, role: role}
	if _, ok := s.roles[k]; !ok {
		s.roles[k] = time.Now().UTC()
	}
	return nil
}

// RevokeRole removes role from userID.
func (s *Store) RevokeRole(ctx context.Context, userID, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("revoke_role"); err != nil {
		return err
	}
	k := roleKey{userID: userID, role: role}
	if _, ok := s.roles[k]; !ok {
		return store.NewStorageError(backend, "revoke_role", store.ErrNotFound)
	}
	delete(s.roles, k)
	return nil
}

// ListRoles returns every role assignment.
func (s *Store) ListRoles(ctx context.Context) ([]store.RoleAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check("list_roles"); err != nil {
		return nil, err
	}
	out := make([]store.RoleAssignment, 0, len(s.roles))
	for k, at := range s.roles {
		out = append(out, store.RoleAssignment{UserID: k.userID, Role: k.role, GrantedAt: at})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Role != out[j].Role {
			return out[i].Role < out[j].Role
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

// QueryModerationRecords returns records matching q, newest first.
func (s *Store) QueryModerationRecords(ctx context.Context, q *store.Query) ([]*store.ModerationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check("query_records"); err != nil {
		return nil, err
	}
	if q == nil {
		q = &store.Query{}
	}

	matched := []*store.ModerationRecord{}
	for _, r := range s.records {
		if matches(r, q) {
			cp := *r
			matched = append(matched, &cp)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	if q.Offset >= len(matched) {
		return []*store.ModerationRecord{}, nil
	}
	matched = matched[q.Offset:]
	if limit := q.EffectiveLimit(); len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func matches(r *store.ModerationRecord, q *store.Query) bool {
	if q.AuthorID != "" && r.AuthorID != q.AuthorID {
		return false
	}
	if q.Severity != "" && r.Severity != q.Severity {
		return false
	}
	if q.Kind != "" && r.ViolationKind != q.Kind {
		return false
	}
	if q.Reviewed != nil && r.Reviewed != *q.Reviewed {
		return false
	}
	if q.Since != nil && r.CreatedAt.Before(*q.Since) {
		return false
	}
	if q.Until != nil && r.CreatedAt.After(*q.Until) {
		return false
	}
	return true
}

// GetModerationRecord returns a record by id.
func (s *Store) GetModerationRecord(ctx context.Context, id string) (*store.ModerationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check("get_record"); err != nil {
		return nil, err
	}
	r, ok := s.records[id]
	if !ok {
		return nil, store.NewStorageError(backend, "get_record", store.ErrNotFound)
	}
	cp := *r
	return &cp, nil
}

// MarkReviewed flags a record as reviewed.
func (s *Store) MarkReviewed(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("mark_reviewed"); err != nil {
		return err
	}
	r, ok := s.records[id]
	if !ok {
		return store.NewStorageError(backend, "mark_reviewed", store.ErrNotFound)
	}
	r.Reviewed = true
	return nil
}

// ListNotifications returns the notifications for recipientID.
func (s *Store) ListNotifications(ctx context.Context, recipientID string) ([]*store.ReviewerNotification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check("list_notifications"); err != nil {
		return nil, err
	}
	out := []*store.ReviewerNotification{}
	for _, n := range s.notifications {
		if n.RecipientID == recipientID {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ListWarnings returns the warnings for authorID.
func (s *Store) ListWarnings(ctx context.Context, authorID string) ([]*store.UserWarning, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check("list_warnings"); err != nil {
		return nil, err
	}
	out := []*store.UserWarning{}
	for _, w := range s.warnings {
		if w.AuthorID == authorID {
			cp := *w
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// AcknowledgeWarning flags a warning as acknowledged.
func (s *Store) AcknowledgeWarning(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("acknowledge_warning"); err != nil {
		return err
	}
	w, ok := s.warnings[id]
	if !ok {
		return store.NewStorageError(backend, "acknowledge_warning", store.ErrNotFound)
	}
	w.Acknowledged = true
	return nil
}

// Prune deletes reviewed records and acknowledged warnings older than cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (store.PruneResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res store.PruneResult
	if err := s.check("prune"); err != nil {
		return res, err
	}

	for id, r := range s.records {
		if r.Reviewed && r.CreatedAt.Before(cutoff) {
			for nid, n := range s.notifications {
				if n.ModerationRecordID == id {
					delete(s.notifications, nid)
					res.Notifications++
				}
			}
			delete(s.records, id)
			res.Records++
		}
	}
	for id, w := range s.warnings {
		if w.Acknowledged && w.CreatedAt.Before(cutoff) {
			delete(s.warnings, id)
			res.Warnings++
		}
	}
	return res, nil
}

// Ping reports whether the store is open.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.check("ping")
}

// Close marks the store closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var _ store.Store = (*Store)(nil)
