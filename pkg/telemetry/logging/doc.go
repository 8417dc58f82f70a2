// Package logging builds the service *slog.Logger.
//
// The handler chain adds request scoped fields from the context
// (request_id, user, content_type, trace_id) and, when enabled, redacts PII
// from string attributes before they reach the JSON or text handler.
//
//	logger, err := logging.New(cfg.Telemetry.Logging, os.Stderr)
//	if err != nil {
//	    return err
//	}
//	ctx = logging.WithRequestID(ctx, "req-123")
//	logger.InfoContext(ctx, "classified", "author_id", "u-1")
//
// Classified content must never be passed to the logger. Log its length.
package logging
