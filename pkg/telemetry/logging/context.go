package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

type contextKey string

const (
	requestIDKey   contextKey = "request_id"
	userKey        contextKey = "user"
	contentTypeKey contextKey = "content_type"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

// WithUser adds the author or operator id to the context.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// GetUser retrieves the user id from the context.
func GetUser(ctx context.Context) string {
	v, _ := ctx.Value(userKey).(string)
	return v
}

// WithContentType adds the classified content type to the context.
func WithContentType(ctx context.Context, contentType string) context.Context {
	return context.WithValue(ctx, contentTypeKey, contentType)
}

// GetContentType retrieves the content type from the context.
func GetContentType(ctx context.Context) string {
	v, _ := ctx.Value(contentTypeKey).(string)
	return v
}

// contextAttrs returns the non-empty log fields carried by ctx.
func contextAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	if v := GetRequestID(ctx); v != "" {
		attrs = append(attrs, slog.String(string(requestIDKey), v))
	}
	if v := GetUser(ctx); v != "" {
		attrs = append(attrs, slog.String(string(userKey), v))
	}
	if v := GetContentType(ctx); v != "" {
		attrs = append(attrs, slog.String(string(contentTypeKey), v))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		attrs = append(attrs, slog.String("trace_id", sc.TraceID().String()))
	}
	return attrs
}
