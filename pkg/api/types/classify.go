package types

import (
	"encoding/json"

	"kinship-hq/sentinel/pkg/moderation"
)

// ClassifyRequest is the body of POST /v1/moderation/classify.
type ClassifyRequest struct {
	Content     *string `json:"content"`
	UserID      string  `json:"userId"`
	ContentType string  `json:"contentType,omitempty"`
}

// ClassifyResponse is the verdict returned to callers.
//
// A clean verdict carries Success, Flagged=false, an empty Violations list
// and Message. A flagged verdict adds SeverityLevel and RequiresReview. A
// structural rejection has Success=false, Violations=["invalid_structure"]
// and Errors. Internal failures set only Success=false and Error.
type ClassifyResponse struct {
	Success        bool     `json:"success"`
	Flagged        bool     `json:"flagged"`
	Violations     []string `json:"violations"`
	SeverityLevel  string   `json:"severityLevel,omitempty"`
	RequiresReview *bool    `json:"requiresReview,omitempty"`
	Message        string   `json:"message,omitempty"`
	Errors         []string `json:"errors,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// failureBody is the wire shape of an internal failure. It carries no
// flagged or violations fields, so a caller reading the body cannot take a
// 500 for a clean verdict.
type failureBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// MarshalJSON writes internal failures as {success:false, error} and every
// other response field by field.
func (r ClassifyResponse) MarshalJSON() ([]byte, error) {
	if r.Error != "" {
		return json.Marshal(failureBody{Success: false, Error: r.Error})
	}
	type verdict ClassifyResponse
	return json.Marshal(verdict(r))
}

// NewClassifyResponse renders a verdict.
func NewClassifyResponse(v *moderation.Verdict) *ClassifyResponse {
	kinds := v.Kinds()
	violations := make([]string, 0, len(kinds))
	for _, k := range kinds {
		violations = append(violations, string(k))
	}

	switch {
	case !v.Valid:
		return &ClassifyResponse{
			Success:    false,
			Flagged:    true,
			Violations: violations,
			Errors:     append([]string(nil), v.Errors...),
		}
	case !v.Flagged:
		return &ClassifyResponse{
			Success:    true,
			Flagged:    false,
			Violations: violations,
			Message:    v.Message,
		}
	default:
		requiresReview := v.RequiresReview
		return &ClassifyResponse{
			Success:        true,
			Flagged:        true,
			Violations:     violations,
			SeverityLevel:  string(v.Severity),
			RequiresReview: &requiresReview,
			Message:        v.Message,
		}
	}
}

// NewFailureResponse renders an internal failure.
func NewFailureResponse(msg string) *ClassifyResponse {
	return &ClassifyResponse{Success: false, Error: msg}
}

// Structural reports whether the response is a structural rejection.
func (r *ClassifyResponse) Structural() bool {
	return !r.Success && r.Flagged && r.Error == ""
}
