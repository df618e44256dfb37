// Package logging defines a minimal structured-logging interface used across
// the project. Implementations wrap slog (development, client) and zap with
// lumberjack rotation (long-running server with a log file).
package logging

import "context"

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "region pushed", "region", region, "pushed", n)
type Logger interface {
	// Debug logs verbose diagnostics, usually disabled.
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs a warning message for unusual but non-fatal conditions.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs an error message for failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}

// Flush writes out entries still buffered by l. Loggers without a buffer
// are left alone.
func Flush(l Logger) error {
	if s, ok := l.(interface{ Sync() error }); ok {
		return s.Sync()
	}
	return nil
}
