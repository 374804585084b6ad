package portal

import "time"

// Config holds the portal API settings.
type Config struct {
	SessionCookie       string        `env:"GATE_COOKIE_NAME" envDefault:"portal_session"`
	TrustedDeviceCookie string        `env:"PORTAL_TRUSTED_DEVICE_COOKIE" envDefault:"portal_trusted_device"`
	CookieSecure        bool          `env:"PORTAL_COOKIE_SECURE" envDefault:"true"`
	LoginRateLimit      int           `env:"PORTAL_LOGIN_RATE_LIMIT" envDefault:"10"`
	LoginRateWindow     time.Duration `env:"PORTAL_LOGIN_RATE_WINDOW" envDefault:"1m"`
	DefaultRedirect     string        `env:"PORTAL_DEFAULT_REDIRECT" envDefault:"/dashboard"`
	DirectoryPath       string        `env:"PORTAL_DIRECTORY_PATH" envDefault:"users.yaml"`

	// Demo settings mirror the gate's so POST /auth/demo only issues
	// cookies the gate will accept.
	DemoEnabled bool          `env:"GATE_DEMO_ENABLED" envDefault:"false"`
	DemoRoles   []string      `env:"GATE_DEMO_ROLES" envSeparator:"," envDefault:"investor,analyst,manager,viewer"`
	DemoTTL     time.Duration `env:"PORTAL_DEMO_TTL" envDefault:"1h"`
}

// DefaultConfig returns default portal configuration.
func DefaultConfig() Config {
	return Config{
		SessionCookie:       "portal_session",
		TrustedDeviceCookie: "portal_trusted_device",
		CookieSecure:        true,
		LoginRateLimit:      10,
		LoginRateWindow:     time.Minute,
		DefaultRedirect:     "/dashboard",
		DirectoryPath:       "users.yaml",
		DemoRoles:           []string{"investor", "analyst", "manager", "viewer"},
		DemoTTL:             time.Hour,
	}
}
