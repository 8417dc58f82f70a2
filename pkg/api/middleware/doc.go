// Package middleware provides the HTTP middleware chain of the moderation
// API.
//
// The chain, outermost first:
//
//	handler = Recovery(RequestID(Tracing(Logging(mux))))
//
//   - Recovery turns a handler panic into a 500 failure body.
//   - RequestID reuses or generates X-Request-ID and stores it in the
//     context, where the logging handler picks it up.
//   - Tracing (from the tracing package) continues the caller's trace.
//   - Logging writes one structured line per request and records the HTTP
//     metrics against the matched route pattern. It must wrap the ServeMux
//     directly so the pattern set by the mux is visible to it.
package middleware
