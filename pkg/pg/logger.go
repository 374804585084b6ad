package pg

import "context"

// logger is the subset of *slog.Logger the migrator writes to.
type logger interface {
	InfoContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}
