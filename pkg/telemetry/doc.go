// Package telemetry groups the observability packages used by the
// moderation service.
//
//   - logging: slog construction, context attributes and PII redaction
//   - metrics: Prometheus collector for classification and escalation
//   - tracing: OpenTelemetry tracer and HTTP propagation
//   - health: liveness and readiness endpoints
package telemetry
