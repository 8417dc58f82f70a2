package moderation

import (
	"fmt"
	"strings"
)

// ContentType identifies the surface a piece of content was submitted on.
type ContentType string

const (
	ContentTypeMessage ContentType = "message"
	ContentTypePost    ContentType = "post"
	ContentTypeComment ContentType = "comment"
	ContentTypeProfile ContentType = "profile"
)

// ParseContentType parses a content type, defaulting to message when s is empty.
func ParseContentType(s string) (ContentType, error) {
	switch ContentType(strings.ToLower(strings.TrimSpace(s))) {
	case "", ContentTypeMessage:
		return ContentTypeMessage, nil
	case ContentTypePost:
		return ContentTypePost, nil
	case ContentTypeComment:
		return ContentTypeComment, nil
	case ContentTypeProfile:
		return ContentTypeProfile, nil
	}
	return "", fmt.Errorf("invalid content type %q: must be 'message', 'post', 'comment', or 'profile'", s)
}

// ViolationKind is the category of a detected policy violation.
type ViolationKind string

const (
	KindAbusiveLanguage  ViolationKind = "abusive_language"
	KindDangerousContent ViolationKind = "dangerous_content"
	KindSpam             ViolationKind = "spam"
	KindInvalidStructure ViolationKind = "invalid_structure"
)

// Rank orders kinds by how severe they are. Higher is more severe.
func (k ViolationKind) Rank() int {
	switch k {
	case KindDangerousContent:
		return 4
	case KindAbusiveLanguage:
		return 3
	case KindSpam:
		return 2
	case KindInvalidStructure:
		return 1
	}
	return 0
}

// Label returns the human readable form used in messages ("abusive language").
func (k ViolationKind) Label() string {
	return strings.ReplaceAll(string(k), "_", " ")
}

// ParseViolationKind parses a violation kind name.
func ParseViolationKind(s string) (ViolationKind, error) {
	k := ViolationKind(s)
	if k.Rank() == 0 {
		return "", fmt.Errorf("unknown violation kind %q", s)
	}
	return k, nil
}

// Severity is the ordered severity of a flagged verdict.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities: low < medium < high < critical.
// Unknown or empty severities rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	}
	return 0
}

// AtLeast reports whether s is at or above other.
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// NotifiesReviewers reports whether reviewers are notified at this severity.
func (s Severity) NotifiesReviewers() bool {
	return s.AtLeast(SeverityHigh)
}

// ParseSeverity parses a severity name.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToLower(s))
	if sev.Rank() == 0 {
		return "", fmt.Errorf("invalid severity %q: must be 'low', 'medium', 'high', or 'critical'", s)
	}
	return sev, nil
}

// Request is a single classification request.
type Request struct {
	Content     string
	AuthorID    string
	ContentType ContentType
}

// Violation is one detected violation kind with its confidence.
type Violation struct {
	Kind       ViolationKind `json:"kind"`
	Confidence float64       `json:"confidence"`
}

// Verdict is the result of classifying a Request.
type Verdict struct {
	// Valid is false when the structural validator rejected the content.
	Valid bool

	// Flagged is true when at least one violation was detected.
	Flagged bool

	// Violations holds at most one entry per kind.
	Violations []Violation

	// Severity is empty for clean and structurally rejected content.
	Severity Severity

	// Confidence is the scorer confidence in [MinConfidence, MaxConfidence].
	Confidence float64

	RequiresReview bool

	// Errors lists the structural validator reasons, in check order.
	Errors []string

	// Message is the caller facing summary.
	Message string

	// Patterns names every pattern that matched, for logs and records.
	Patterns []string
}

// Kinds returns the violation kinds in detection order.
func (v *Verdict) Kinds() []ViolationKind {
	kinds := make([]ViolationKind, 0, len(v.Violations))
	for _, viol := range v.Violations {
		kinds = append(kinds, viol.Kind)
	}
	return kinds
}

// HasKind reports whether the verdict contains kind.
func (v *Verdict) HasKind(kind ViolationKind) bool {
	for _, viol := range v.Violations {
		if viol.Kind == kind {
			return true
		}
	}
	return false
}

// MostSevere returns the highest ranked violation kind, or "" when clean.
func (v *Verdict) MostSevere() ViolationKind {
	var best ViolationKind
	for _, viol := range v.Violations {
		if viol.Kind.Rank() > best.Rank() {
			best = viol.Kind
		}
	}
	return best
}

// FlaggedMessage builds the caller facing message for flagged content.
func FlaggedMessage(kinds []ViolationKind) string {
	labels := make([]string, 0, len(kinds))
	for _, k := range kinds {
		labels = append(labels, k.Label())
	}
	return "Content flagged for: " + strings.Join(labels, ", ")
}

// Messages returned to callers.
const (
	MessageApproved = "Content approved"
	MessageInvalid  = "Content failed structural validation"
)
