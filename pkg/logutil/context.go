package logutil

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

// WithContext stores l in ctx so hook steps can log with the attributes
// the command attached (hook name, verb).
func WithContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// FromContext returns the logger stored by WithContext, or the process default.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// Step returns the context logger scoped to a single hook step.
func Step(ctx context.Context, step string) *slog.Logger {
	return FromContext(ctx).With("step", step)
}
