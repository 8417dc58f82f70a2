// Package sqlstore implements store.Store on database/sql. The sqlite and
// postgres packages open the database and pick the dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"kinship-hq/sentinel/pkg/moderation"
	"kinship-hq/sentinel/pkg/store"
)

// Store implements store.Store over a *sql.DB.
type Store struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

// New wraps db. Call Migrate before first use.
func New(db *sql.DB, dialect Dialect, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		db:      db,
		dialect: dialect,
		logger:  logger.With("component", "store."+dialect.Name),
	}
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) storageErr(op string, err error) error {
	return store.NewStorageError(s.dialect.Name, op, err)
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.dialect.rebind(query), args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
}

// Migrate creates the schema and verifies the schema version.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.Schema); err != nil {
		return s.storageErr("create_schema", err)
	}
	s.logger.Debug("database schema created")

	if _, err := s.exec(ctx,
		`INSERT INTO schema_version (version, applied_at) VALUES (?, ?) ON CONFLICT (version) DO NOTHING`,
		SchemaVersion, toMillis(time.Now()),
	); err != nil {
		return s.storageErr("insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&version)
	if err != nil {
		return s.storageErr("get_schema_version", err)
	}
	if version != SchemaVersion {
		return s.storageErr("schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	s.logger.Debug("schema version verified", "version", version)
	return nil
}

// CreateModerationRecord inserts a moderation record.
func (s *Store) CreateModerationRecord(ctx context.Context, r *store.ModerationRecord) error {
	_, err := s.exec(ctx, `
		INSERT INTO moderation_records (
			id, author_id, content_type, violation_kind, violations,
			severity, confidence, content, reviewed, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.AuthorID, string(r.ContentType), string(r.ViolationKind), joinKinds(r.Violations),
		string(r.Severity), r.Confidence, r.Content, r.Reviewed, toMillis(r.CreatedAt),
	)
	if err != nil {
		return s.storageErr("create_record", err)
	}
	return nil
}

// CreateReviewerNotification inserts a reviewer notification.
func (s *Store) CreateReviewerNotification(ctx context.Context, n *store.ReviewerNotification) error {
	_, err := s.exec(ctx, `
		INSERT INTO reviewer_notifications (id, recipient_id, moderation_record_id, message, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		n.ID, n.RecipientID, n.ModerationRecordID, n.Message, toMillis(n.CreatedAt),
	)
	if err != nil {
		return s.storageErr("create_notification", err)
	}
	return nil
}

// CreateUserWarning inserts an author warning.
func (s *Store) CreateUserWarning(ctx context.Context, w *store.UserWarning) error {
	_, err := s.exec(ctx, `
		INSERT INTO user_warnings (id, author_id, moderation_record_id, warning_type, message, acknowledged, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.AuthorID, w.ModerationRecordID, w.WarningType, w.Message, w.Acknowledged, toMillis(w.CreatedAt),
	)
	if err != nil {
		return s.storageErr("create_warning", err)
	}
	return nil
}

// ListUsersWithRole returns the distinct users holding role.
func (s *Store) ListUsersWithRole(ctx context.Context, role string) ([]string, error) {
	rows, err := s.query(ctx, `SELECT DISTINCT user_id FROM user_roles WHERE role = ? ORDER BY user_id`, role)
	if err != nil {
		return nil, s.storageErr("list_users_with_role", err)
	}
	defer rows.Close()

	users := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, s.storageErr("list_users_with_role", err)
		}
		users = append(users, id)
	}
	if err := rows.Err(); err != nil {
		return nil, s.storageErr("list_users_with_role", err)
	}
	return users, nil
}

// GrantRole gives role to userID.
func (s *Store) GrantRole(ctx context.Context, userID, role string) error {
	_, err := s.exec(ctx, `
		INSERT INTO user_roles (user_id, role, granted_at) VALUES (?, ?, ?)
		ON CONFLICT (user_id, role) DO NOTHING`,
		userID, role, toMillis(time.Now()),
	)
	if err != nil {
		return s.storageErr("grant_role", err)
	}
	return nil
}

// RevokeRole removes role from userID.
func (s *Store) RevokeRole(ctx context.Context, userID, role string) error {
	res, err := s.exec(ctx, `DELETE FROM user_roles WHERE user_id = ? AND role = ?`, userID, role)
	if err != nil {
		return s.storageErr("revoke_role", err)
	}
	return s.requireAffected("revoke_role", res)
}

// ListRoles returns every role assignment.
func (s *Store) ListRoles(ctx context.Context) ([]store.RoleAssignment, error) {
	rows, err := s.query(ctx, `SELECT user_id, role, granted_at FROM user_roles ORDER BY role, user_id`)
	if err != nil {
		return nil, s.storageErr("list_roles", err)
	}
	defer rows.Close()

	out := []store.RoleAssignment{}
	for rows.Next() {
		var a store.RoleAssignment
		var granted int64
		if err := rows.Scan(&a.UserID, &a.Role, &granted); err != nil {
			return nil, s.storageErr("list_roles", err)
		}
		a.GrantedAt = fromMillis(granted)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, s.storageErr("list_roles", err)
	}
	return out, nil
}

const recordColumns = `id, author_id, content_type, violation_kind, violations, severity, confidence, content, reviewed, created_at`

// QueryModerationRecords returns records matching q, newest first.
func (s *Store) QueryModerationRecords(ctx context.Context, q *store.Query) ([]*store.ModerationRecord, error) {
	if q == nil {
		q = &store.Query{}
	}
	where, args := buildWhereClause(q)

	sqlQuery := "SELECT " + recordColumns + " FROM moderation_records"
	if where != "" {
		sqlQuery += " WHERE " + where
	}
	sqlQuery += fmt.Sprintf(" ORDER BY created_at DESC, id ASC LIMIT %d", q.EffectiveLimit())
	if q.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", q.Offset)
	}

	rows, err := s.query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, s.storageErr("query_records", err)
	}
	defer rows.Close()

	records := []*store.ModerationRecord{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, s.storageErr("scan", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, s.storageErr("query_records", err)
	}
	return records, nil
}

// GetModerationRecord returns a record by id.
func (s *Store) GetModerationRecord(ctx context.Context, id string) (*store.ModerationRecord, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind("SELECT "+recordColumns+" FROM moderation_records WHERE id = ?"), id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, s.storageErr("get_record", store.ErrNotFound)
	}
	if err != nil {
		return nil, s.storageErr("get_record", err)
	}
	return r, nil
}

// MarkReviewed flags a record as reviewed.
func (s *Store) MarkReviewed(ctx context.Context, id string) error {
	res, err := s.exec(ctx, `UPDATE moderation_records SET reviewed = ? WHERE id = ?`, true, id)
	if err != nil {
		return s.storageErr("mark_reviewed", err)
	}
	return s.requireAffected("mark_reviewed", res)
}

// ListNotifications returns the notifications for recipientID.
func (s *Store) ListNotifications(ctx context.Context, recipientID string) ([]*store.ReviewerNotification, error) {
	rows, err := s.query(ctx, `
		SELECT id, recipient_id, moderation_record_id, message, created_at
		FROM reviewer_notifications WHERE recipient_id = ? ORDER BY created_at DESC`, recipientID)
	if err != nil {
		return nil, s.storageErr("list_notifications", err)
	}
	defer rows.Close()

	out := []*store.ReviewerNotification{}
	for rows.Next() {
		var n store.ReviewerNotification
		var created int64
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.ModerationRecordID, &n.Message, &created); err != nil {
			return nil, s.storageErr("list_notifications", err)
		}
		n.CreatedAt = fromMillis(created)
		out = append(out, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, s.storageErr("list_notifications", err)
	}
	return out, nil
}

// ListWarnings returns the warnings for authorID.
func (s *Store) ListWarnings(ctx context.Context, authorID string) ([]*store.UserWarning, error) {
	rows, err := s.query(ctx, `
		SELECT id, author_id, moderation_record_id, warning_type, message, acknowledged, created_at
		FROM user_warnings WHERE author_id = ? ORDER BY created_at DESC`, authorID)
	if err != nil {
		return nil, s.storageErr("list_warnings", err)
	}
	defer rows.Close()

	out := []*store.UserWarning{}
	for rows.Next() {
		var w store.UserWarning
		var created int64
		if err := rows.Scan(&w.ID, &w.AuthorID, &w.ModerationRecordID, &w.WarningType, &w.Message, &w.Acknowledged, &created); err != nil {
			return nil, s.storageErr("list_warnings", err)
		}
		w.CreatedAt = fromMillis(created)
		out = append(out, &w)
	}
	if err := rows.Err(); err != nil {
		return nil, s.storageErr("list_warnings", err)
	}
	return out, nil
}

// AcknowledgeWarning flags a warning as acknowledged.
func (s *Store) AcknowledgeWarning(ctx context.Context, id string) error {
	res, err := s.exec(ctx, `UPDATE user_warnings SET acknowledged = ? WHERE id = ?`, true, id)
	if err != nil {
		return s.storageErr("acknowledge_warning", err)
	}
	return s.requireAffected("acknowledge_warning", res)
}

// Prune deletes reviewed records with their notifications, and acknowledged
// warnings, created before cutoff. It runs in a single transaction.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (store.PruneResult, error) {
	var res store.PruneResult
	ms := toMillis(cutoff)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, s.storageErr("prune", err)
	}
	defer tx.Rollback() //nolint:errcheck

	steps := []struct {
		query string
		count *int64
	}{
		{`DELETE FROM reviewer_notifications WHERE moderation_record_id IN (
			SELECT id FROM moderation_records WHERE reviewed = ? AND created_at < ?)`, &res.Notifications},
		{`DELETE FROM moderation_records WHERE reviewed = ? AND created_at < ?`, &res.Records},
		{`DELETE FROM user_warnings WHERE acknowledged = ? AND created_at < ?`, &res.Warnings},
	}
	for _, step := range steps {
		r, err := tx.ExecContext(ctx, s.dialect.rebind(step.query), true, ms)
		if err != nil {
			return store.PruneResult{}, s.storageErr("prune", err)
		}
		n, err := r.RowsAffected()
		if err != nil {
			return store.PruneResult{}, s.storageErr("prune", err)
		}
		*step.count = n
	}

	if err := tx.Commit(); err != nil {
		return store.PruneResult{}, s.storageErr("prune", err)
	}
	return res, nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return s.storageErr("ping", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return s.storageErr("close", err)
	}
	s.logger.Info("store closed")
	return nil
}

func (s *Store) requireAffected(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return s.storageErr(op, err)
	}
	if n == 0 {
		return s.storageErr(op, store.ErrNotFound)
	}
	return nil
}

// buildWhereClause builds a WHERE clause (without the keyword) with ?
// placeholders from query filters.
func buildWhereClause(q *store.Query) (string, []any) {
	var conditions []string
	var args []any

	if q.AuthorID != "" {
		conditions = append(conditions, "author_id = ?")
		args = append(args, q.AuthorID)
	}
	if q.Severity != "" {
		conditions = append(conditions, "severity = ?")
		args = append(args, string(q.Severity))
	}
	if q.Kind != "" {
		conditions = append(conditions, "violation_kind = ?")
		args = append(args, string(q.Kind))
	}
	if q.Reviewed != nil {
		conditions = append(conditions, "reviewed = ?")
		args = append(args, *q.Reviewed)
	}
	if q.Since != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, toMillis(*q.Since))
	}
	if q.Until != nil {
		conditions = append(conditions, "created_at <= ?")
		args = append(args, toMillis(*q.Until))
	}

	return strings.Join(conditions, " AND "), args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*store.ModerationRecord, error) {
	var r store.ModerationRecord
	var contentType, kind, violations, severity string
	var created int64
	if err := row.Scan(&r.ID, &r.AuthorID, &contentType, &kind, &violations,
		&severity, &r.Confidence, &r.Content, &r.Reviewed, &created); err != nil {
		return nil, err
	}
	r.ContentType = moderation.ContentType(contentType)
	r.ViolationKind = moderation.ViolationKind(kind)
	r.Violations = splitKinds(violations)
	r.Severity = moderation.Severity(severity)
	r.CreatedAt = fromMillis(created)
	return &r, nil
}

func joinKinds(kinds []moderation.ViolationKind) string {
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, ",")
}

func splitKinds(s string) []moderation.ViolationKind {
	if s == "" {
		return []moderation.ViolationKind{}
	}
	parts := strings.Split(s, ",")
	kinds := make([]moderation.ViolationKind, len(parts))
	for i, p := range parts {
		kinds[i] = moderation.ViolationKind(p)
	}
	return kinds
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

var _ store.Store = (*Store)(nil)
