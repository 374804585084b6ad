package session

import "time"

// Config holds session policy.
type Config struct {
	// MaxAge is the absolute lifetime of a session.
	MaxAge time.Duration `env:"SESSION_MAX_AGE" envDefault:"8h"`

	// MaxInactivity ends a session that saw no activity for this long.
	MaxInactivity time.Duration `env:"SESSION_MAX_INACTIVITY" envDefault:"30m"`

	// MaxConcurrentSessions caps active sessions per user (0 disables the cap).
	MaxConcurrentSessions int `env:"SESSION_MAX_CONCURRENT" envDefault:"3"`

	// TrustDeviceDuration is how long a device stays trusted after MFA.
	TrustDeviceDuration time.Duration `env:"SESSION_TRUST_DEVICE_DURATION" envDefault:"720h"`

	// RequireMFA turns on MFA enforcement for SensitiveActions.
	RequireMFA bool `env:"SESSION_REQUIRE_MFA" envDefault:"true"`

	// SensitiveActions require a verified MFA session when RequireMFA is on.
	SensitiveActions []string `env:"SESSION_SENSITIVE_ACTIONS" envSeparator:"," envDefault:"documents:delete,documents:download,reports:export,users:manage,firm:manage,system:admin"`

	// CleanupInterval for the background expiry sweep (0 disables it).
	CleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"5m"`

	// ActivityPersistThreshold is the minimum time between persisted
	// activity updates for one session. Zero persists every validation.
	ActivityPersistThreshold time.Duration `env:"SESSION_ACTIVITY_PERSIST_THRESHOLD" envDefault:"0s"`
}

// DefaultConfig returns default session configuration.
func DefaultConfig() Config {
	return Config{
		MaxAge:                8 * time.Hour,
		MaxInactivity:         30 * time.Minute,
		MaxConcurrentSessions: 3,
		TrustDeviceDuration:   30 * 24 * time.Hour,
		RequireMFA:            true,
		SensitiveActions: []string{
			"documents:delete",
			"documents:download",
			"reports:export",
			"users:manage",
			"firm:manage",
			"system:admin",
		},
		CleanupInterval: 5 * time.Minute,
	}
}

// NewFromConfig creates a new Manager from the provided Config.
func NewFromConfig(cfg Config, opts ...Option) *Manager {
	configOpts := []Option{
		WithConfig(cfg),
	}

	configOpts = append(configOpts, opts...)

	return New(configOpts...)
}
