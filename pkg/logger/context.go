package logger

import (
	"context"
	"log/slog"
)

type scopedKey struct{}

// With scopes the context's logger with extra attributes, e.g. trace_id or profile_id.
func With(ctx context.Context, fields ...any) context.Context {
	return context.WithValue(ctx, scopedKey{}, From(ctx).With(fields...))
}

// From returns the request-scoped logger, falling back to the process logger.
func From(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return LoggerWrapper()
	}
	if l, ok := ctx.Value(scopedKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return LoggerWrapper()
}
