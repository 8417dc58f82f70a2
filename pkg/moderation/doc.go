// Package moderation implements Sentinel's content classification pipeline.
//
// Classification is a pure function of the content and the active pattern
// sets:
//
//  1. The Validator rejects empty, oversized and spam-shaped content
//     (word or character flooding, shouting, symbol soup, links).
//  2. The Matcher runs the abusive language, dangerous content and custom
//     spam pattern sets. Abusive patterns tolerate leetspeak, so
//     "k1ll y0urs3lf" matches like "kill yourself".
//  3. The Scorer turns the matched categories and per-category match counts
//     into a Severity and a confidence value.
//
// # Usage
//
//	classifier := moderation.NewClassifier(cfg.Moderation.Thresholds)
//	verdict := classifier.Classify("You are so stupid and worthless, kys")
//	if verdict.Flagged {
//		log.Info("content flagged",
//			"violations", verdict.Kinds(),
//			"severity", verdict.Severity)
//	}
//
// Side effects for flagged verdicts live in package escalation. Callers that
// want both should use package pipeline.
//
// # Thread Safety
//
// Classifier, Validator and Scorer are immutable after construction. Matcher
// swaps its pattern set atomically, so custom rules can be reloaded while
// classifications are running.
package moderation
