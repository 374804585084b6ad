package portal

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/dmitrymomot/portalgate/pkg/audit"
	"github.com/dmitrymomot/portalgate/pkg/cookie"
	"github.com/dmitrymomot/portalgate/pkg/logger"
	"github.com/dmitrymomot/portalgate/pkg/rbac"
	"github.com/dmitrymomot/portalgate/pkg/session"
	"github.com/dmitrymomot/portalgate/pkg/totp"
)

// AuditReader queries recorded audit events. *audit.MemoryStorage implements it.
type AuditReader interface {
	Query(ctx context.Context, c audit.Criteria) ([]audit.Event, error)
}

// Portal serves the authentication endpoints and the session and
// permission API on top of the access-control core.
type Portal struct {
	cfg       Config
	sessions  *session.Manager
	resolver  *rbac.Resolver
	cookies   *cookie.Manager
	directory Directory
	verifier  *totp.Verifier
	audit     *audit.Logger
	auditRead AuditReader
	log       *slog.Logger
	now       func() time.Time
}

// Option configures a Portal.
type Option func(*Portal)

// WithLogger sets the portal logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Portal) {
		if l != nil {
			p.log = l
		}
	}
}

// WithAudit records logins, MFA and permission changes.
func WithAudit(l *audit.Logger) Option {
	return func(p *Portal) { p.audit = l }
}

// WithAuditReader enables GET /admin/api/audit.
func WithAuditReader(r AuditReader) Option {
	return func(p *Portal) { p.auditRead = r }
}

// WithVerifier replaces the default TOTP verifier.
func WithVerifier(v *totp.Verifier) Option {
	return func(p *Portal) {
		if v != nil {
			p.verifier = v
		}
	}
}

// WithClock replaces time.Now for cookie expiry and TOTP checks.
func WithClock(now func() time.Time) Option {
	return func(p *Portal) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a Portal.
func New(cfg Config, sessions *session.Manager, resolver *rbac.Resolver, cookies *cookie.Manager, dir Directory, opts ...Option) (*Portal, error) {
	if sessions == nil || resolver == nil || cookies == nil || dir == nil {
		return nil, ErrMissingDependency
	}
	p := &Portal{
		cfg:       cfg,
		sessions:  sessions,
		resolver:  resolver,
		cookies:   cookies,
		directory: dir,
		log:       logger.Discard(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.verifier == nil {
		p.verifier = totp.NewVerifier(totp.WithClock(p.now))
	}
	p.log = p.log.With(logger.Component("portal"))
	return p, nil
}

// Mount registers the portal routes on r. r is expected to sit behind the
// gate middleware: /auth/ is public, /api/ needs a session and /admin/
// additionally needs system:admin. Demo identities may read /api/me and
// check permissions but cannot list or revoke sessions.
func (p *Portal) Mount(r chi.Router) {
	limit := httprate.LimitByIP(p.cfg.LoginRateLimit, p.cfg.LoginRateWindow)

	r.Route("/auth", func(r chi.Router) {
		r.With(limit).Post("/login", p.login)
		r.With(limit).Post("/demo", p.demo)
		r.Post("/logout", p.logout)
		r.Post("/mfa", p.verifyMFA)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(p.requireIdentity)
		r.Get("/me", p.me)
		r.Get("/permissions/check", p.checkPermission)
		r.With(p.requireSession).Get("/sessions", p.listSessions)
		r.With(p.requireSession).Delete("/sessions/{sessionID}", p.revokeSession)
	})

	r.Route("/admin/api", func(r chi.Router) {
		r.Use(p.requireIdentity, p.requireAdmin)
		r.Get("/roles", p.listRoles)
		r.Get("/audit", p.queryAudit)
		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/permissions", p.userPermissions)
			r.Put("/roles/{role}", p.assignRole)
			r.Delete("/roles/{role}", p.removeRole)
			r.Put("/grants/{permission}", p.grantPermission)
			r.Delete("/grants/{permission}", p.revokePermission)
			r.Put("/denials/{permission}", p.denyPermission)
			r.Delete("/denials/{permission}", p.allowPermission)
			r.Put("/resources/{resourceType}/{resourceID}/{permission}", p.grantResourcePermission)
			r.Delete("/resources/{resourceType}/{resourceID}/{permission}", p.revokeResourcePermission)
			r.Get("/sessions", p.userSessions)
			r.Delete("/sessions", p.destroyUserSessions)
		})
	})
}

// Handler returns a router with only the portal routes mounted.
func (p *Portal) Handler() http.Handler {
	r := chi.NewRouter()
	p.Mount(r)
	return r
}

func (p *Portal) record(ctx context.Context, action string, opts ...audit.EventOption) {
	if p.audit == nil {
		return
	}
	if err := p.audit.Log(ctx, action, opts...); err != nil {
		p.log.WarnContext(ctx, "audit event dropped", logger.Event(action), logger.Error(err))
	}
}
