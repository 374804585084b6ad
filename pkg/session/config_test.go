package session_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/portalgate/pkg/config"
	"github.com/dmitrymomot/portalgate/pkg/session"
)

func TestConfig_EnvDefaultsMatchDefaultConfig(t *testing.T) {
	t.Parallel()

	var cfg session.Config
	require.NoError(t, config.Load(&cfg, config.WithEnvironment(map[string]string{})))
	assert.Equal(t, session.DefaultConfig(), cfg)
}

func TestConfig_FromEnvironment(t *testing.T) {
	t.Parallel()

	var cfg session.Config
	require.NoError(t, config.Load(&cfg, config.WithEnvironment(map[string]string{
		"SESSION_MAX_AGE":           "1h",
		"SESSION_MAX_INACTIVITY":    "5m",
		"SESSION_MAX_CONCURRENT":    "1",
		"SESSION_REQUIRE_MFA":       "false",
		"SESSION_SENSITIVE_ACTIONS": "wire:approve,users:manage",
	})))

	assert.Equal(t, time.Hour, cfg.MaxAge)
	assert.Equal(t, 5*time.Minute, cfg.MaxInactivity)
	assert.Equal(t, 1, cfg.MaxConcurrentSessions)
	assert.False(t, cfg.RequireMFA)
	assert.Equal(t, []string{"wire:approve", "users:manage"}, cfg.SensitiveActions)
	assert.Equal(t, 5*time.Minute, cfg.CleanupInterval)
}

func TestConfig_InvalidValue(t *testing.T) {
	t.Parallel()

	var cfg session.Config
	err := config.Load(&cfg, config.WithEnvironment(map[string]string{"SESSION_MAX_AGE": "soon"}))
	assert.ErrorIs(t, err, config.ErrParsingConfig)
}
