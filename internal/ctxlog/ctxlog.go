// Package ctxlog carries a *slog.Logger through context.Context, so the
// engine, the registry and the server log with the fields of the calculator
// or session they are working on.
package ctxlog

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// WithLogger attaches logger to ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger attached to ctx, or slog.Default() when
// there is none.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return slog.Default()
	}
	if logger, _ := ctx.Value(ctxKey{}).(*slog.Logger); logger != nil {
		return logger
	}
	return slog.Default()
}

// With returns a context whose logger carries the given attributes, so
// nested calls log with the same calculator or session fields.
func With(ctx context.Context, args ...any) context.Context {
	return WithLogger(ctx, FromContext(ctx).With(args...))
}
