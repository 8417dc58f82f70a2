package store

import (
	"context"
	"time"
)

// Store persists moderation outcomes and reviewer roles.
//
// Implementations must be safe for concurrent use. Every method that fails
// returns a *StorageError; lookups of missing rows wrap ErrNotFound.
type Store interface {
	// CreateModerationRecord inserts a record. ID and CreatedAt are assigned
	// by the caller.
	CreateModerationRecord(ctx context.Context, record *ModerationRecord) error

	// CreateReviewerNotification inserts a reviewer notification.
	CreateReviewerNotification(ctx context.Context, n *ReviewerNotification) error

	// CreateUserWarning inserts an author warning.
	CreateUserWarning(ctx context.Context, w *UserWarning) error

	// ListUsersWithRole returns the distinct ids of users holding role,
	// sorted ascending.
	ListUsersWithRole(ctx context.Context, role string) ([]string, error)

	// GrantRole gives role to userID. Granting an existing role is a no-op.
	GrantRole(ctx context.Context, userID, role string) error

	// RevokeRole removes role from userID. It returns ErrNotFound when the
	// user did not hold the role.
	RevokeRole(ctx context.Context, userID, role string) error

	// ListRoles returns every role assignment ordered by role then user.
	ListRoles(ctx context.Context) ([]RoleAssignment, error)

	// QueryModerationRecords returns records matching q, newest first.
	QueryModerationRecords(ctx context.Context, q *Query) ([]*ModerationRecord, error)

	// GetModerationRecord returns a single record by id.
	GetModerationRecord(ctx context.Context, id string) (*ModerationRecord, error)

	// MarkReviewed flags a record as reviewed.
	MarkReviewed(ctx context.Context, id string) error

	// ListNotifications returns the notifications for a reviewer, newest first.
	ListNotifications(ctx context.Context, recipientID string) ([]*ReviewerNotification, error)

	// ListWarnings returns the warnings issued to an author, newest first.
	ListWarnings(ctx context.Context, authorID string) ([]*UserWarning, error)

	// AcknowledgeWarning flags a warning as acknowledged.
	AcknowledgeWarning(ctx context.Context, id string) error

	// Prune deletes reviewed records (with their notifications) and
	// acknowledged warnings created before cutoff.
	Prune(ctx context.Context, cutoff time.Time) (PruneResult, error)

	// Ping checks connectivity to the backend.
	Ping(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}
