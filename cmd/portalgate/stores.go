package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/portalgate/pkg/config"
	"github.com/dmitrymomot/portalgate/pkg/httpserver"
	"github.com/dmitrymomot/portalgate/pkg/logger"
	"github.com/dmitrymomot/portalgate/pkg/pg"
	"github.com/dmitrymomot/portalgate/pkg/rbac"
	redisstore "github.com/dmitrymomot/portalgate/pkg/redis"
	"github.com/dmitrymomot/portalgate/pkg/session"
)

// stores bundles the durable backends for sessions and permission profiles.
// Both are nil for the memory driver.
type stores struct {
	sessions session.Store
	profiles rbac.ProfileStore
	probes   []httpserver.Probe
	close    func()
}

func openStores(ctx context.Context, driver string, log *slog.Logger, opts ...config.Option) (*stores, error) {
	switch driver {
	case storeMemory, "":
		return &stores{close: func() {}}, nil

	case storeRedis:
		var cfg redisstore.Config
		if err := config.Load(&cfg, opts...); err != nil {
			return nil, err
		}
		client, err := redisstore.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &stores{
			sessions: redisstore.NewSessionStore(client, cfg),
			profiles: redisstore.NewProfileStore(client, cfg),
			probes:   []httpserver.Probe{redisstore.Healthcheck(client)},
			close: func() {
				if err := client.Close(); err != nil {
					log.Warn("redis close", logger.Error(err))
				}
			},
		}, nil

	case storePostgres:
		var cfg pg.Config
		if err := config.Load(&cfg, opts...); err != nil {
			return nil, err
		}
		pool, err := pg.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx, pool, cfg, log); err != nil {
			pool.Close()
			return nil, err
		}
		sessions := pg.NewSessionStore(pool)
		if n, err := sessions.PurgeExpired(ctx); err != nil {
			log.WarnContext(ctx, "purge expired sessions", logger.Error(err))
		} else if n > 0 {
			log.InfoContext(ctx, "purged expired sessions", slog.Int64("count", n))
		}
		return &stores{
			sessions: sessions,
			profiles: pg.NewProfileStore(pool),
			probes:   []httpserver.Probe{pg.Healthcheck(pool)},
			close:    pool.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", driver)
}
