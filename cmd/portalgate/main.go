// Command portalgate serves the portal's authentication API behind the
// request gate.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/portalgate/pkg/config"
	"github.com/dmitrymomot/portalgate/pkg/gate"
	"github.com/dmitrymomot/portalgate/pkg/httpserver"
	"github.com/dmitrymomot/portalgate/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		slog.Default().Error("load config", logger.Error(err))
		os.Exit(1)
	}

	log := logger.New(
		logger.WithEnvironment(cfg.Env, "portalgate"),
		logger.WithContextExtractors(gate.LoggerExtractor(), requestIDAttr),
	)
	logger.SetAsDefault(log)

	if err := run(ctx, cfg, log); err != nil {
		log.Error("portalgate stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}

	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error { return srv.Run(egCtx, a.handler) })
	eg.Go(func() error { return a.sessions.RunCleanup(egCtx) })
	runErr := eg.Wait()

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	if err := a.close(closeCtx); err != nil {
		log.Error("flush pending writes", logger.Error(err))
	}
	return runErr
}

func requestIDAttr(ctx context.Context) (slog.Attr, bool) {
	id, ok := requestID(ctx)
	if !ok {
		return slog.Attr{}, false
	}
	return slog.String("request_id", id), true
}
