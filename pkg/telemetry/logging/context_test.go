package logging

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func TestContextAccessors(t *testing.T) {
	ctx := context.Background()
	if GetRequestID(ctx) != "" || GetUser(ctx) != "" || GetContentType(ctx) != "" {
		t.Fatal("empty context should yield empty fields")
	}

	ctx = WithRequestID(ctx, "req-1")
	ctx = WithUser(ctx, "u-1")
	ctx = WithContentType(ctx, "comment")
	if GetRequestID(ctx) != "req-1" || GetUser(ctx) != "u-1" || GetContentType(ctx) != "comment" {
		t.Errorf("fields = %q %q %q", GetRequestID(ctx), GetUser(ctx), GetContentType(ctx))
	}
}

func TestContextAttrs_TraceID(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	attrs := contextAttrs(ctx)
	if len(attrs) != 1 || attrs[0].Key != "trace_id" || attrs[0].Value.String() != traceID.String() {
		t.Errorf("contextAttrs() = %v", attrs)
	}
}
