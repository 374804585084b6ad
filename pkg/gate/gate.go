package gate

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dmitrymomot/portalgate/pkg/logger"
	"github.com/dmitrymomot/portalgate/pkg/rbac"
	"github.com/dmitrymomot/portalgate/pkg/session"
)

// Identity headers set on forwarded requests.
const (
	HeaderSessionID = "x-session-id"
	HeaderUserID    = "x-user-id"
	HeaderUserRole  = "x-user-role"
	HeaderIsDemo    = "x-is-demo"
)

var identityHeaders = []string{HeaderSessionID, HeaderUserID, HeaderUserRole, HeaderIsDemo}

// Sessions validates session ids. *session.Manager implements it.
type Sessions interface {
	ValidateSession(ctx context.Context, id string) *session.Record
}

// Permissions answers permission checks. *rbac.Resolver implements it.
type Permissions interface {
	HasPermission(userID string, pc rbac.PermissionContext) bool
}

// Observer is notified of every decision, e.g. to count outcomes.
type Observer func(ctx context.Context, r *http.Request, d Decision)

// Gate decides whether a request is forwarded or redirected.
type Gate struct {
	cfg       Config
	routes    routeTable
	cookies   CookieReader
	sessions  Sessions
	perms     Permissions
	log       *slog.Logger
	now       func() time.Time
	observers []Observer
}

// Option configures a Gate.
type Option func(*Gate)

// WithLogger sets the gate logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gate) {
		if l != nil {
			g.log = l
		}
	}
}

// WithObservers registers decision observers.
func WithObservers(obs ...Observer) Option {
	return func(g *Gate) {
		for _, o := range obs {
			if o != nil {
				g.observers = append(g.observers, o)
			}
		}
	}
}

// WithClock replaces time.Now for demo cookie expiry checks.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

// New creates a Gate.
func New(cfg Config, cookies CookieReader, sessions Sessions, perms Permissions, opts ...Option) (*Gate, error) {
	if cookies == nil || sessions == nil || perms == nil {
		return nil, ErrMissingDependency
	}
	if cfg.LoginPath == "" || cfg.AdminDeniedPath == "" || cfg.CookieName == "" {
		return nil, errors.Join(ErrInvalidConfig, errors.New("login path, admin denied path and cookie name are required"))
	}

	routes, err := newRouteTable(cfg)
	if err != nil {
		return nil, err
	}

	g := &Gate{
		cfg:      cfg,
		routes:   routes,
		cookies:  cookies,
		sessions: sessions,
		perms:    perms,
		log:      logger.Discard(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.log = g.log.With(logger.Component("gate"))

	return g, nil
}

// Decide classifies the request. It never fails: anything that cannot be
// authenticated ends in a redirect.
func (g *Gate) Decide(r *http.Request) Decision {
	d := g.decide(r)
	for _, o := range g.observers {
		o(r.Context(), r, d)
	}
	return d
}

func (g *Gate) decide(r *http.Request) Decision {
	ctx := r.Context()
	p := r.URL.Path

	if g.routes.isPublic(p) {
		return Decision{Outcome: Forward, Reason: ReasonPublic}
	}
	if !g.routes.isProtected(p) {
		return Decision{Outcome: Forward, Reason: ReasonUnprotected}
	}

	c, sessionID := ExtractSessionID(r, g.cookies, g.cfg.CookieName)
	if sessionID == "" {
		return g.toLogin(p, ReasonNoSession, false)
	}

	// Pre-provisioned demo identities are trusted on the strength of the
	// signed cookie alone and never reach the session manager.
	if g.cfg.DemoEnabled && c.validDemo(g.cfg.DemoRoles, g.now()) {
		return Decision{
			Outcome: Forward,
			Reason:  ReasonDemo,
			Identity: &Identity{
				SessionID: c.SessionID,
				UserID:    c.UserID,
				Role:      c.UserRole,
				Email:     c.Email,
				FirmID:    c.FirmID,
				IsDemo:    true,
			},
		}
	}

	rec := g.sessions.ValidateSession(ctx, sessionID)
	if rec == nil {
		return g.toLogin(p, ReasonInvalidSession, false)
	}

	id := &Identity{
		SessionID: rec.ID,
		UserID:    rec.UserID,
		Role:      rec.Role,
		Email:     rec.Email,
		FirmID:    rec.FirmID,
	}

	if g.routes.isAdmin(p) && !g.perms.HasPermission(rec.UserID, rbac.PermissionContext{Action: rbac.SystemAdmin}) {
		g.log.WarnContext(ctx, "admin route denied",
			logger.UserID(rec.UserID), logger.Role(rec.Role), logger.Path(p))
		return Decision{
			Outcome:  RedirectAdminDenied,
			Reason:   ReasonNotAdmin,
			Location: g.cfg.AdminDeniedPath,
			Identity: id,
			Session:  rec,
		}
	}

	if g.routes.requiresMFA(p) && !rec.MFASatisfied() {
		d := g.toLogin(p, ReasonMFARequired, true)
		d.Identity = id
		d.Session = rec
		return d
	}

	return Decision{Outcome: Forward, Reason: ReasonAuthenticated, Identity: id, Session: rec}
}

func (g *Gate) toLogin(originalPath string, reason Reason, mfa bool) Decision {
	q := url.Values{}
	q.Set("redirect", originalPath)
	if mfa {
		q.Set("mfa", "required")
	}
	return Decision{
		Outcome:  RedirectLogin,
		Reason:   reason,
		Location: g.cfg.LoginPath + "?" + q.Encode(),
	}
}

// Middleware gates every request. Forwarded requests carry the identity
// headers and the identity in their context; client-supplied identity
// headers are always removed first.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, h := range identityHeaders {
			r.Header.Del(h)
		}

		d := g.Decide(r)

		switch d.Outcome {
		case Forward:
			if d.Identity != nil {
				r = withIdentity(r, d)
			}
			next.ServeHTTP(w, r)
		default:
			http.Redirect(w, r, d.Location, http.StatusFound)
		}
	})
}

func withIdentity(r *http.Request, d Decision) *http.Request {
	id := d.Identity
	r.Header.Set(HeaderSessionID, id.SessionID)
	r.Header.Set(HeaderUserID, id.UserID)
	r.Header.Set(HeaderUserRole, id.Role)
	if id.IsDemo {
		r.Header.Set(HeaderIsDemo, strconv.FormatBool(true))
	}

	ctx := WithIdentity(r.Context(), id)
	ctx = rbac.SetUserIDToContext(ctx, id.UserID)
	if d.Session != nil {
		ctx = session.WithSession(ctx, d.Session)
	}
	return r.WithContext(ctx)
}
