package session

import "context"

type sessionContextKey struct{}

// WithSession adds a validated session record to the context.
func WithSession(ctx context.Context, rec *Record) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, rec)
}

// FromContext returns the record stored by WithSession.
func FromContext(ctx context.Context) (*Record, bool) {
	rec, ok := ctx.Value(sessionContextKey{}).(*Record)
	return rec, ok && rec != nil
}
