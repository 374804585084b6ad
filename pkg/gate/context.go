package gate

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/portalgate/pkg/logger"
)

type identityCtxKey struct{}

// WithIdentity stores the request identity in ctx.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, id)
}

// IdentityFromContext returns the identity set by the gate middleware.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(*Identity)
	return id, ok && id != nil
}

// LoggerExtractor adds user and session attributes to log records written
// with a gated request's context.
func LoggerExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		id, ok := IdentityFromContext(ctx)
		if !ok {
			return slog.Attr{}, false
		}
		attrs := []slog.Attr{logger.UserID(id.UserID), logger.SessionID(id.SessionID)}
		if id.IsDemo {
			attrs = append(attrs, slog.Bool("demo", true))
		}
		return logger.Group("identity", attrs...), true
	}
}
