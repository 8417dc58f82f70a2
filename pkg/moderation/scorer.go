package moderation

import (
	"math"
	"unicode/utf8"

	"kinship-hq/sentinel/pkg/config"
)

// Score is the severity and confidence assigned to a match result.
type Score struct {
	Severity       Severity
	Confidence     float64
	RequiresReview bool
}

// Scorer derives severity and confidence from matcher output.
type Scorer struct {
	thresholds config.ThresholdsConfig
}

// NewScorer creates a scorer with the given thresholds.
func NewScorer(t config.ThresholdsConfig) *Scorer {
	return &Scorer{thresholds: t}
}

// Score computes the severity tier and clamped confidence for a non-empty
// match result.
func (s *Scorer) Score(result MatchResult, content string) Score {
	t := s.thresholds
	severity := s.severity(result)

	confidence := t.BaseConfidence
	if result.Has(KindAbusiveLanguage) && result.Has(KindDangerousContent) {
		confidence += t.BothCategoriesBonus
	}
	if utf8.RuneCountInString(content) < t.ShortContentLength {
		confidence -= t.ShortContentPenalty
	}
	if severity == SeverityHigh {
		confidence += t.HighSeverityBonus
	}
	confidence = math.Max(t.MinConfidence, math.Min(t.MaxConfidence, confidence))
	// Three decimals.
	confidence = math.Round(confidence*1000) / 1000

	return Score{
		Severity:       severity,
		Confidence:     confidence,
		RequiresReview: severity.NotifiesReviewers() || len(result.Kinds) > 1,
	}
}

// severity applies the tiers in order: dangerous content first, then abusive
// language, then anything else.
func (s *Scorer) severity(result MatchResult) Severity {
	t := s.thresholds
	switch {
	case result.Has(KindDangerousContent):
		if result.Counts[KindDangerousContent] > t.DangerousCriticalMatches {
			return SeverityCritical
		}
		return SeverityHigh
	case result.Has(KindAbusiveLanguage):
		if result.Counts[KindAbusiveLanguage] > t.AbusiveHighMatches {
			return SeverityHigh
		}
		return SeverityMedium
	default:
		return SeverityLow
	}
}
