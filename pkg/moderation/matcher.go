package moderation

import "sync/atomic"

// categoryOrder is the order in which pattern categories are evaluated.
var categoryOrder = []ViolationKind{KindAbusiveLanguage, KindDangerousContent, KindSpam}

// MatchResult is the output of the semantic pattern matcher.
type MatchResult struct {
	// Kinds holds each matched category once, in evaluation order.
	Kinds []ViolationKind

	// Counts is the number of distinct patterns matched per category.
	Counts map[ViolationKind]int

	// Patterns names every matched pattern.
	Patterns []string
}

// Has reports whether kind matched.
func (r MatchResult) Has(kind ViolationKind) bool {
	return r.Counts[kind] > 0
}

// PatternSet is an immutable, ordered set of patterns grouped by kind.
type PatternSet struct {
	byKind map[ViolationKind][]Pattern
}

// NewPatternSet groups patterns by kind, keeping their relative order.
func NewPatternSet(patterns ...[]Pattern) *PatternSet {
	set := &PatternSet{byKind: make(map[ViolationKind][]Pattern)}
	for _, group := range patterns {
		for _, p := range group {
			set.byKind[p.Kind] = append(set.byKind[p.Kind], p)
		}
	}
	return set
}

// Len returns the total number of patterns.
func (s *PatternSet) Len() int {
	n := 0
	for _, ps := range s.byKind {
		n += len(ps)
	}
	return n
}

// Count returns the number of patterns of the given kind.
func (s *PatternSet) Count(kind ViolationKind) int {
	return len(s.byKind[kind])
}

// Matcher runs content against the abusive, dangerous and custom spam pattern
// sets. The active set can be replaced at runtime; Match always sees a
// consistent snapshot.
type Matcher struct {
	builtin []Pattern
	current atomic.Pointer[PatternSet]
}

// NewMatcher creates a matcher using the built-in pattern sets.
func NewMatcher() *Matcher {
	m := &Matcher{}
	m.builtin = append(BuiltinAbusivePatterns(), BuiltinDangerousPatterns()...)
	m.current.Store(NewPatternSet(m.builtin))
	return m
}

// SetCustomPatterns replaces the custom patterns. Custom patterns are
// evaluated after the built-in patterns of the same kind.
func (m *Matcher) SetCustomPatterns(custom []Pattern) {
	m.current.Store(NewPatternSet(m.builtin, custom))
}

// Patterns returns the active pattern set.
func (m *Matcher) Patterns() *PatternSet {
	return m.current.Load()
}

// Match evaluates every category against text. A category reports its kind
// once no matter how many of its patterns matched, but every pattern is
// evaluated so that Counts reflects distinct matches for scoring.
func (m *Matcher) Match(text string) MatchResult {
	set := m.current.Load()
	result := MatchResult{Counts: make(map[ViolationKind]int)}

	for _, kind := range categoryOrder {
		for _, p := range set.byKind[kind] {
			if !p.Match(text) {
				continue
			}
			if result.Counts[kind] == 0 {
				result.Kinds = append(result.Kinds, kind)
			}
			result.Counts[kind]++
			result.Patterns = append(result.Patterns, p.Name)
		}
	}

	return result
}
