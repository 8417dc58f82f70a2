// Package server runs the moderation HTTP API.
//
// Routes:
//
//   - POST /v1/moderation/classify: classify content and escalate flagged verdicts
//   - GET /v1/moderation/records: list moderation records for reviewers
//   - GET /v1/moderation/records/{id}: fetch one record
//   - GET /health, GET /ready, GET /version: liveness, readiness, build info
//   - GET /metrics: Prometheus metrics, when enabled
//
// Start blocks until the context is cancelled or Shutdown is called, then
// drains in-flight requests for up to ShutdownTimeout.
package server
