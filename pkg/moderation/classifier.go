package moderation

import (
	"kinship-hq/sentinel/pkg/config"
)

// Classifier is the pure classification pipeline: structural validation,
// semantic pattern matching and scoring. It performs no I/O and is safe for
// concurrent use.
type Classifier struct {
	validator *Validator
	matcher   *Matcher
	scorer    *Scorer
}

// NewClassifier creates a classifier with the given thresholds and the
// built-in pattern sets.
func NewClassifier(t config.ThresholdsConfig) *Classifier {
	return &Classifier{
		validator: NewValidator(t),
		matcher:   NewMatcher(),
		scorer:    NewScorer(t),
	}
}

// Matcher returns the classifier's matcher so custom patterns can be installed.
func (c *Classifier) Matcher() *Matcher {
	return c.matcher
}

// Classify returns the verdict for content. Structurally invalid content is
// rejected before any pattern runs.
func (c *Classifier) Classify(content string) *Verdict {
	validation := c.validator.Validate(content)
	if !validation.Valid {
		return &Verdict{
			Valid:      false,
			Flagged:    true,
			Violations: []Violation{{Kind: KindInvalidStructure, Confidence: 1.0}},
			Errors:     validation.Errors,
			Message:    MessageInvalid,
			Patterns:   validation.Checks,
		}
	}

	result := c.matcher.Match(content)
	if len(result.Kinds) == 0 {
		return &Verdict{
			Valid:      true,
			Flagged:    false,
			Violations: []Violation{},
			Message:    MessageApproved,
		}
	}

	score := c.scorer.Score(result, content)
	violations := make([]Violation, 0, len(result.Kinds))
	for _, kind := range result.Kinds {
		violations = append(violations, Violation{Kind: kind, Confidence: score.Confidence})
	}

	return &Verdict{
		Valid:          true,
		Flagged:        true,
		Violations:     violations,
		Severity:       score.Severity,
		Confidence:     score.Confidence,
		RequiresReview: score.RequiresReview,
		Message:        FlaggedMessage(result.Kinds),
		Patterns:       result.Patterns,
	}
}
