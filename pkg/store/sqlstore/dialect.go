package sqlstore

import (
	"strconv"
	"strings"
)

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Dialect captures what differs between the SQL backends.
type Dialect struct {
	// Name is used as the StorageError backend.
	Name string

	// Schema creates every table and index. It must be idempotent.
	Schema string

	// Positional reports whether placeholders are numbered ($1) rather than
	// anonymous (?).
	Positional bool
}

// rebind rewrites ? placeholders for positional dialects.
func (d Dialect) rebind(query string) string {
	if !d.Positional {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SQLite is the dialect for mattn/go-sqlite3 and modernc.org/sqlite.
var SQLite = Dialect{
	Name:   "sqlite",
	Schema: sqliteSchema,
}

// Postgres is the dialect for lib/pq.
var Postgres = Dialect{
	Name:       "postgres",
	Schema:     postgresSchema,
	Positional: true,
}

// Timestamps are stored as BIGINT milliseconds since the Unix epoch in every
// dialect.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS moderation_records (
    id TEXT PRIMARY KEY,
    author_id TEXT NOT NULL,
    content_type TEXT NOT NULL,
    violation_kind TEXT NOT NULL,
    violations TEXT NOT NULL,
    severity TEXT NOT NULL,
    confidence REAL NOT NULL,
    content TEXT NOT NULL,
    reviewed BOOLEAN NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_moderation_records_author ON moderation_records(author_id);
CREATE INDEX IF NOT EXISTS idx_moderation_records_created ON moderation_records(created_at);

CREATE TABLE IF NOT EXISTS reviewer_notifications (
    id TEXT PRIMARY KEY,
    recipient_id TEXT NOT NULL,
    moderation_record_id TEXT NOT NULL,
    message TEXT NOT NULL,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reviewer_notifications_recipient ON reviewer_notifications(recipient_id);
CREATE INDEX IF NOT EXISTS idx_reviewer_notifications_record ON reviewer_notifications(moderation_record_id);

CREATE TABLE IF NOT EXISTS user_warnings (
    id TEXT PRIMARY KEY,
    author_id TEXT NOT NULL,
    moderation_record_id TEXT NOT NULL,
    warning_type TEXT NOT NULL,
    message TEXT NOT NULL,
    acknowledged BOOLEAN NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_user_warnings_author ON user_warnings(author_id);

CREATE TABLE IF NOT EXISTS user_roles (
    user_id TEXT NOT NULL,
    role TEXT NOT NULL,
    granted_at INTEGER NOT NULL,
    PRIMARY KEY (user_id, role)
);
CREATE INDEX IF NOT EXISTS idx_user_roles_role ON user_roles(role);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at INTEGER NOT NULL
);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS moderation_records (
    id TEXT PRIMARY KEY,
    author_id TEXT NOT NULL,
    content_type TEXT NOT NULL,
    violation_kind TEXT NOT NULL,
    violations TEXT NOT NULL,
    severity TEXT NOT NULL,
    confidence DOUBLE PRECISION NOT NULL,
    content TEXT NOT NULL,
    reviewed BOOLEAN NOT NULL DEFAULT FALSE,
    created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_moderation_records_author ON moderation_records(author_id);
CREATE INDEX IF NOT EXISTS idx_moderation_records_created ON moderation_records(created_at);

CREATE TABLE IF NOT EXISTS reviewer_notifications (
    id TEXT PRIMARY KEY,
    recipient_id TEXT NOT NULL,
    moderation_record_id TEXT NOT NULL,
    message TEXT NOT NULL,
    created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reviewer_notifications_recipient ON reviewer_notifications(recipient_id);
CREATE INDEX IF NOT EXISTS idx_reviewer_notifications_record ON reviewer_notifications(moderation_record_id);

CREATE TABLE IF NOT EXISTS user_warnings (
    id TEXT PRIMARY KEY,
    author_id TEXT NOT NULL,
    moderation_record_id TEXT NOT NULL,
    warning_type TEXT NOT NULL,
    message TEXT NOT NULL,
    acknowledged BOOLEAN NOT NULL DEFAULT FALSE,
    created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_user_warnings_author ON user_warnings(author_id);

CREATE TABLE IF NOT EXISTS user_roles (
    user_id TEXT NOT NULL,
    role TEXT NOT NULL,
    granted_at BIGINT NOT NULL,
    PRIMARY KEY (user_id, role)
);
CREATE INDEX IF NOT EXISTS idx_user_roles_role ON user_roles(role);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at BIGINT NOT NULL
);
`
