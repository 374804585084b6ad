package main

import (
	"github.com/dmitrymomot/portalgate/pkg/cookie"
	"github.com/dmitrymomot/portalgate/pkg/gate"
	"github.com/dmitrymomot/portalgate/pkg/httpserver"
	"github.com/dmitrymomot/portalgate/pkg/portal"
	"github.com/dmitrymomot/portalgate/pkg/session"
)

// Store drivers.
const (
	storeMemory   = "memory"
	storeRedis    = "redis"
	storePostgres = "postgres"
)

type appConfig struct {
	Env       string `env:"APP_ENV" envDefault:"development"`
	Store     string `env:"STORE_DRIVER" envDefault:"memory"`
	RolesPath string `env:"ROLES_PATH"`

	// AuditRetention bounds the in-memory audit trail served by the admin API.
	AuditRetention int `env:"AUDIT_RETENTION" envDefault:"10000"`
	AuditBuffer    int `env:"AUDIT_BUFFER_SIZE" envDefault:"1024"`

	HTTP    httpserver.Config
	Session session.Config
	Gate    gate.Config
	Cookie  cookie.Config
	Portal  portal.Config
}
