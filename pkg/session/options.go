package session

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/portalgate/pkg/async"
)

// Option is a functional option for configuring the Manager
type Option func(*Manager)

// WithStore sets the durable store sessions are written behind to.
func WithStore(store Store) Option {
	return func(m *Manager) {
		m.store = store
	}
}

// WithWriter sets the write-behind queue. Without it the Manager starts and
// owns its own queue when a store is configured.
func WithWriter(w *async.Writer) Option {
	return func(m *Manager) {
		m.writer = w
	}
}

// WithConfig sets custom configuration
func WithConfig(config Config) Option {
	return func(m *Manager) {
		m.config = config
	}
}

// WithMaxAge sets the absolute session lifetime.
func WithMaxAge(d time.Duration) Option {
	return func(m *Manager) {
		m.config.MaxAge = d
	}
}

// WithMaxInactivity sets the inactivity window.
func WithMaxInactivity(d time.Duration) Option {
	return func(m *Manager) {
		m.config.MaxInactivity = d
	}
}

// WithMaxConcurrentSessions sets the per-user session cap.
func WithMaxConcurrentSessions(n int) Option {
	return func(m *Manager) {
		m.config.MaxConcurrentSessions = n
	}
}

// WithCleanupInterval sets the cleanup interval for expired sessions
func WithCleanupInterval(interval time.Duration) Option {
	return func(m *Manager) {
		m.config.CleanupInterval = interval
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithHooks registers functions called after every lifecycle event.
func WithHooks(hooks ...Hook) Option {
	return func(m *Manager) {
		for _, h := range hooks {
			if h != nil {
				m.hooks = append(m.hooks, h)
			}
		}
	}
}
