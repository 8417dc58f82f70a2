// Package metrics exposes Prometheus metrics for classification, escalation
// and the HTTP surface.
//
// Metrics (namespace and subsystem from config, default sentinel_moderation):
//   - classifications_total{content_type,outcome}
//   - violations_total{kind}
//   - severity_total{severity}
//   - classification_duration_seconds{content_type}
//   - escalation_steps_total{step,result}
//   - escalation_dropped_total
//   - rules_loaded
//   - http_requests_total{method,route,code}
//   - http_request_duration_seconds{method,route}
//
// A disabled Collector accepts every call and records nothing.
package metrics
