package store

import (
	"time"

	"kinship-hq/sentinel/pkg/moderation"
)

// ModerationRecord is persisted once per flagged classification.
type ModerationRecord struct {
	ID          string
	AuthorID    string
	ContentType moderation.ContentType

	// ViolationKind is the most severe kind of the verdict.
	ViolationKind moderation.ViolationKind

	// Violations lists every kind of the verdict.
	Violations []moderation.ViolationKind

	Severity   moderation.Severity
	Confidence float64

	// Content is the classified text, truncated.
	Content string

	// Reviewed is set by a human reviewer.
	Reviewed bool

	CreatedAt time.Time
}

// ReviewerNotification tells one reviewer about a high severity record.
type ReviewerNotification struct {
	ID                 string
	RecipientID        string
	ModerationRecordID string
	Message            string
	CreatedAt          time.Time
}

// UserWarning is issued to the author of flagged content.
type UserWarning struct {
	ID                 string
	AuthorID           string
	ModerationRecordID string
	WarningType        string
	Message            string
	Acknowledged       bool
	CreatedAt          time.Time
}

// RoleAssignment grants a role to a user.
type RoleAssignment struct {
	UserID    string
	Role      string
	GrantedAt time.Time
}

// Query filters moderation records. Zero values match everything.
type Query struct {
	AuthorID string
	Severity moderation.Severity
	Kind     moderation.ViolationKind
	Reviewed *bool

	Since *time.Time
	Until *time.Time

	// Limit defaults to DefaultQueryLimit when zero.
	Limit  int
	Offset int
}

// Query limits.
const (
	DefaultQueryLimit = 100
	MaxQueryLimit     = 1000
)

// EffectiveLimit returns the limit to apply for q.
func (q *Query) EffectiveLimit() int {
	switch {
	case q == nil || q.Limit <= 0:
		return DefaultQueryLimit
	case q.Limit > MaxQueryLimit:
		return MaxQueryLimit
	default:
		return q.Limit
	}
}

// PruneResult reports what a retention pass removed.
type PruneResult struct {
	Records       int64
	Notifications int64
	Warnings      int64
}
