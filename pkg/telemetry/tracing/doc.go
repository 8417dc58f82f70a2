// Package tracing configures OpenTelemetry tracing.
//
// When enabled, spans are exported over OTLP gRPC. When disabled, New
// returns a Tracer backed by a noop provider so callers never branch on
// configuration.
//
//	tracer, err := tracing.New(ctx, cfg.Telemetry.Tracing)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.Start(ctx, "moderation.classify")
//	defer span.End()
package tracing
