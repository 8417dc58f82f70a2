package types

import (
	"time"

	"kinship-hq/sentinel/pkg/store"
)

// ModerationRecord is the reviewer facing view of a stored record.
type ModerationRecord struct {
	ID            string    `json:"id"`
	AuthorID      string    `json:"authorId"`
	ContentType   string    `json:"contentType"`
	ViolationKind string    `json:"violationKind"`
	Violations    []string  `json:"violations"`
	SeverityLevel string    `json:"severityLevel"`
	Confidence    float64   `json:"confidence"`
	Content       string    `json:"content"`
	Reviewed      bool      `json:"reviewed"`
	CreatedAt     time.Time `json:"createdAt"`
}

// RecordList is the body of GET /v1/moderation/records.
type RecordList struct {
	Records []ModerationRecord `json:"records"`
	Count   int                `json:"count"`
	Limit   int                `json:"limit"`
	Offset  int                `json:"offset"`
}

// NewRecordList converts stored records.
func NewRecordList(records []*store.ModerationRecord, limit, offset int) *RecordList {
	out := &RecordList{
		Records: make([]ModerationRecord, 0, len(records)),
		Count:   len(records),
		Limit:   limit,
		Offset:  offset,
	}
	for _, r := range records {
		out.Records = append(out.Records, NewModerationRecord(r))
	}
	return out
}

// NewModerationRecord converts one stored record.
func NewModerationRecord(r *store.ModerationRecord) ModerationRecord {
	violations := make([]string, 0, len(r.Violations))
	for _, k := range r.Violations {
		violations = append(violations, string(k))
	}
	return ModerationRecord{
		ID:            r.ID,
		AuthorID:      r.AuthorID,
		ContentType:   string(r.ContentType),
		ViolationKind: string(r.ViolationKind),
		Violations:    violations,
		SeverityLevel: string(r.Severity),
		Confidence:    r.Confidence,
		Content:       r.Content,
		Reviewed:      r.Reviewed,
		CreatedAt:     r.CreatedAt,
	}
}
