package moderation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"kinship-hq/sentinel/pkg/config"
)

// linkPattern matches http/https URLs, www. hosts and bare domains ending in
// a common TLD.
var linkPattern = regexp.MustCompile(`(?i)(?:https?://\S+|www\.\S+|\b[a-z0-9][a-z0-9-]*(?:\.[a-z0-9-]+)*\.(?:com|net|org|io|gov|edu|info|biz|xyz|ru|ly|gg|app|dev)\b)`)

// leetDigits maps digits commonly substituted for letters.
var leetDigits = map[rune]rune{
	'0': 'o',
	'1': 'i',
	'3': 'e',
	'4': 'a',
	'5': 's',
	'7': 't',
	'8': 'b',
	'9': 'g',
}

// Validation failure reasons.
const (
	ReasonRequired          = "Content is required"
	ReasonRepetition        = "Content contains excessive repetition"
	ReasonCharRepetition    = "Content contains excessive character repetition"
	ReasonCapitalization    = "Content contains excessive capitalization"
	ReasonSuspiciousPattern = "Content contains suspicious character patterns"
	ReasonLinks             = "External links are not allowed"
)

// ValidationResult is the output of the structural validator.
type ValidationResult struct {
	Valid  bool
	Errors []string

	// Checks names the failed checks, parallel to Errors.
	Checks []string
}

// structuralCheck pairs a detection function with the reason it reports.
type structuralCheck struct {
	name   string
	reason func(config.ThresholdsConfig) string
	fails  func(text string, runes int, t config.ThresholdsConfig) bool
}

// structuralChecks run in order. Every check runs; failures accumulate.
var structuralChecks = []structuralCheck{
	{
		name:   "required",
		reason: static(ReasonRequired),
		fails:  func(text string, _ int, _ config.ThresholdsConfig) bool { return text == "" },
	},
	{
		name: "max_length",
		reason: func(t config.ThresholdsConfig) string {
			return fmt.Sprintf("Content exceeds maximum length of %d characters", t.MaxLength)
		},
		fails: func(_ string, runes int, t config.ThresholdsConfig) bool { return runes > t.MaxLength },
	},
	{name: "word_repetition", reason: static(ReasonRepetition), fails: hasWordRepetition},
	{name: "char_repetition", reason: static(ReasonCharRepetition), fails: hasCharRun},
	{name: "capitalization", reason: static(ReasonCapitalization), fails: hasExcessiveCaps},
	{name: "symbol_density", reason: static(ReasonSuspiciousPattern), fails: hasSymbolDensity},
	{
		name:   "links",
		reason: static(ReasonLinks),
		fails:  func(text string, _ int, _ config.ThresholdsConfig) bool { return linkPattern.MatchString(text) },
	},
}

func static(reason string) func(config.ThresholdsConfig) string {
	return func(config.ThresholdsConfig) string { return reason }
}

// Validator rejects malformed or spam-shaped content before pattern matching.
// It is stateless and safe for concurrent use.
type Validator struct {
	thresholds config.ThresholdsConfig
}

// NewValidator creates a validator with the given thresholds.
func NewValidator(t config.ThresholdsConfig) *Validator {
	return &Validator{thresholds: t}
}

// Validate runs every structural check against content.
func (v *Validator) Validate(content string) ValidationResult {
	runes := utf8.RuneCountInString(content)
	var errs, names []string
	for _, check := range structuralChecks {
		if check.fails(content, runes, v.thresholds) {
			errs = append(errs, check.reason(v.thresholds))
			names = append(names, check.name)
		}
	}
	return ValidationResult{Valid: len(errs) == 0, Errors: errs, Checks: names}
}

// normalizeForRepetition lowercases text, maps leetspeak digits to letters
// and drops everything that is not a letter, digit or whitespace.
func normalizeForRepetition(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if mapped, ok := leetDigits[r]; ok {
			r = mapped
		}
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return b.String()
}

// hasWordRepetition reports whether one token dominates the content.
// Only tokens of at least MinTokenLength runes are counted.
func hasWordRepetition(text string, _ int, t config.ThresholdsConfig) bool {
	counts := make(map[string]int)
	total := 0
	for _, tok := range strings.Fields(normalizeForRepetition(text)) {
		if utf8.RuneCountInString(tok) < t.MinTokenLength {
			continue
		}
		counts[tok]++
		total++
	}
	if total <= t.RepetitionMinTokens {
		return false
	}
	for _, n := range counts {
		if float64(n)/float64(total) > t.RepetitionRatio {
			return true
		}
	}
	return false
}

// hasCharRun reports whether any character repeats CharRunLength times in a
// row. RE2 has no backreferences, so this is a linear scan.
func hasCharRun(text string, _ int, t config.ThresholdsConfig) bool {
	count := 1
	prev := rune(-1)
	for _, r := range text {
		if r == prev {
			count++
			if count >= t.CharRunLength {
				return true
			}
		} else {
			count = 1
			prev = r
		}
	}
	return false
}

func hasExcessiveCaps(text string, runes int, t config.ThresholdsConfig) bool {
	if runes <= t.CapsMinLength {
		return false
	}
	upper := 0
	for _, r := range text {
		if unicode.IsUpper(r) {
			upper++
		}
	}
	return float64(upper)/float64(runes) > t.CapsRatio
}

func hasSymbolDensity(text string, runes int, t config.ThresholdsConfig) bool {
	if runes <= t.SymbolMinLength {
		return false
	}
	symbols := 0
	for _, r := range text {
		if !unicode.IsLetter(r) && !unicode.IsSpace(r) {
			symbols++
		}
	}
	return float64(symbols)/float64(runes) > t.SymbolRatio
}
