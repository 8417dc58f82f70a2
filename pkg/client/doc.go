// Package client calls the moderation API and applies the caller side
// policy to its verdicts.
//
// Decide maps a verdict to an Action:
//
//	high, critical       -> block
//	medium, low          -> allow with a non-blocking warning
//	not flagged          -> allow
//	structural rejection -> block, showing the validator errors
//
// Any failure to obtain a verdict (network error, 5xx, undecodable body,
// open circuit) fails closed: the content is blocked and the author is
// asked to retry.
package client
