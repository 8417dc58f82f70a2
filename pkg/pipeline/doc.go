// Package pipeline ties the pure classifier to escalation, metrics and
// tracing. It is the single entry point used by the HTTP handlers and the
// classify command.
//
// Escalation runs synchronously by default. When a Queue is supplied the
// verdict is returned as soon as the job is enqueued, and record creation
// still happens before the notification and warning inserts that reference
// it.
package pipeline
