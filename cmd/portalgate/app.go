package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dmitrymomot/portalgate/pkg/async"
	"github.com/dmitrymomot/portalgate/pkg/audit"
	"github.com/dmitrymomot/portalgate/pkg/config"
	"github.com/dmitrymomot/portalgate/pkg/cookie"
	"github.com/dmitrymomot/portalgate/pkg/gate"
	"github.com/dmitrymomot/portalgate/pkg/httpserver"
	"github.com/dmitrymomot/portalgate/pkg/metrics"
	"github.com/dmitrymomot/portalgate/pkg/portal"
	"github.com/dmitrymomot/portalgate/pkg/rbac"
	"github.com/dmitrymomot/portalgate/pkg/session"
)

// app is the wired access-control service.
type app struct {
	handler     http.Handler
	sessions    *session.Manager
	resolver    *rbac.Resolver
	auditWriter *async.Writer
	stores      *stores
}

func newApp(ctx context.Context, cfg appConfig, log *slog.Logger, opts ...config.Option) (*app, error) {
	source := rbac.NewDefaultRoleSource()
	if cfg.RolesPath != "" {
		source = rbac.NewYAMLRoleSource(cfg.RolesPath)
	}
	registry, err := rbac.NewRegistry(ctx, source)
	if err != nil {
		return nil, err
	}

	st, err := openStores(ctx, cfg.Store, log, opts...)
	if err != nil {
		return nil, err
	}
	a := &app{stores: st}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	auditStore := audit.NewMemoryStorage(cfg.AuditRetention)
	a.auditWriter = async.NewWriter(
		async.WithLogger(log),
		async.WithBufferSize(cfg.AuditBuffer),
	)
	auditLog, err := audit.NewLogger(
		audit.MultiStorage{auditStore, audit.NewSlogStorage(log)},
		audit.WithAsync(a.auditWriter),
		audit.WithRequestIDExtractor(requestID),
		audit.WithUserIDExtractor(identityField(func(id *gate.Identity) string { return id.UserID })),
		audit.WithSessionIDExtractor(identityField(func(id *gate.Identity) string { return id.SessionID })),
	)
	if err != nil {
		return nil, errors.Join(err, a.close(ctx))
	}

	resolverOpts := []rbac.Option{rbac.WithLogger(log)}
	if st.profiles != nil {
		resolverOpts = append(resolverOpts, rbac.WithStore(st.profiles))
	}
	a.resolver = rbac.NewResolver(registry, resolverOpts...)

	sessionOpts := []session.Option{
		session.WithLogger(log),
		session.WithHooks(m.SessionHook(), audit.SessionHook(auditLog)),
	}
	if st.sessions != nil {
		sessionOpts = append(sessionOpts, session.WithStore(st.sessions))
	}
	a.sessions = session.NewFromConfig(cfg.Session, sessionOpts...)
	m.ActiveSessions(a.sessions.ActiveCount)

	if err := a.resolver.Load(ctx); err != nil {
		return nil, errors.Join(err, a.close(ctx))
	}
	if err := a.sessions.Load(ctx); err != nil {
		return nil, errors.Join(err, a.close(ctx))
	}

	cookies, err := cookie.NewFromConfig(cfg.Cookie)
	if err != nil {
		return nil, errors.Join(err, a.close(ctx))
	}

	g, err := gate.New(cfg.Gate, cookies, a.sessions, a.resolver,
		gate.WithLogger(log),
		gate.WithObservers(m.GateObserver(), audit.GateObserver(auditLog)),
	)
	if err != nil {
		return nil, errors.Join(err, a.close(ctx))
	}

	dir, err := portal.NewYAMLDirectory(cfg.Portal.DirectoryPath)
	if err != nil {
		return nil, errors.Join(err, a.close(ctx))
	}
	p, err := portal.New(cfg.Portal, a.sessions, a.resolver, cookies, dir,
		portal.WithLogger(log),
		portal.WithAudit(auditLog),
		portal.WithAuditReader(auditStore),
	)
	if err != nil {
		return nil, errors.Join(err, a.close(ctx))
	}

	probes := st.probes
	if len(probes) == 0 {
		// in-memory state is ready once loaded
		probes = []httpserver.Probe{func(context.Context) error { return nil }}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, m.Middleware)
	r.Get("/health/live", httpserver.HealthCheckHandler(log))
	r.Get("/health/ready", httpserver.HealthCheckHandler(log, probes...))
	r.Handle("/metrics", m.Handler())
	r.Group(func(r chi.Router) {
		r.Use(g.Middleware)
		p.Mount(r)
	})
	a.handler = r

	return a, nil
}

// close flushes the write-behind queues, then releases the stores.
func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.sessions != nil {
		errs = append(errs, a.sessions.Close(ctx))
	}
	if a.resolver != nil {
		errs = append(errs, a.resolver.Close(ctx))
	}
	if a.auditWriter != nil {
		errs = append(errs, a.auditWriter.Close(ctx))
	}
	if a.stores != nil {
		a.stores.close()
	}
	return errors.Join(errs...)
}

func requestID(ctx context.Context) (string, bool) {
	id := middleware.GetReqID(ctx)
	return id, id != ""
}

func identityField(field func(*gate.Identity) string) func(context.Context) (string, bool) {
	return func(ctx context.Context) (string, bool) {
		id, ok := gate.IdentityFromContext(ctx)
		if !ok {
			return "", false
		}
		return field(id), true
	}
}
