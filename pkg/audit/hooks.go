package audit

import (
	"context"
	"net/http"

	"github.com/dmitrymomot/portalgate/pkg/device"
	"github.com/dmitrymomot/portalgate/pkg/gate"
	"github.com/dmitrymomot/portalgate/pkg/session"
)

// SessionHook records every session lifecycle event.
func SessionHook(l *Logger) session.Hook {
	return func(ctx context.Context, e session.Event) {
		opts := []EventOption{
			WithActor(e.UserID, e.SessionID, e.Role),
			WithTime(e.At),
		}
		if e.Reason != "" {
			opts = append(opts, WithReason(string(e.Reason)))
		}
		_ = l.Log(ctx, string(e.Type), opts...)
	}
}

// GateObserver records denied requests. Requests without any session are
// not recorded; they are ordinary anonymous traffic.
func GateObserver(l *Logger) gate.Observer {
	return func(ctx context.Context, r *http.Request, d gate.Decision) {
		if d.Outcome == gate.Forward || d.Reason == gate.ReasonNoSession {
			return
		}
		opts := []EventOption{
			WithResult(ResultFailure),
			WithReason(string(d.Reason)),
			WithResource("path", r.URL.Path),
			WithClient(device.ClientIP(r), r.UserAgent()),
		}
		if d.Identity != nil {
			opts = append(opts, WithActor(d.Identity.UserID, d.Identity.SessionID, d.Identity.Role))
		}
		_ = l.Log(ctx, ActionAccessDenied, opts...)
	}
}
