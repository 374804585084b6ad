// Package httpserver wraps net/http with context-driven graceful shutdown
// and health-check handlers.
//
//	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
//	g.Go(func() error { return srv.Run(ctx, router) })
//
// Run blocks until ctx is cancelled, then shuts down within the configured
// timeout. HealthCheckHandler serves liveness ("ALIVE") without probes and
// readiness ("READY" / 503 "NOT_READY") with them.
package httpserver
