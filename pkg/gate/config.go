package gate

// Config describes which routes the gate protects and where it redirects.
type Config struct {
	// PublicRoutes are served without a session. An entry ending in "/"
	// matches as a prefix (except "/" itself); other entries match exactly.
	PublicRoutes []string `env:"GATE_PUBLIC_ROUTES" envSeparator:"," envDefault:"/,/login,/signup,/forgot-password,/auth/,/static/,/health/,/favicon.ico"`

	// ProtectedPrefixes require a session. Paths outside every prefix pass through.
	ProtectedPrefixes []string `env:"GATE_PROTECTED_PREFIXES" envSeparator:"," envDefault:"/"`

	// AdminPrefixes additionally require the system:admin permission.
	AdminPrefixes []string `env:"GATE_ADMIN_PREFIXES" envSeparator:"," envDefault:"/admin"`

	// MFARoutes are glob patterns where "*" matches exactly one path segment.
	// A pattern also covers every path below the route it matches.
	MFARoutes []string `env:"GATE_MFA_ROUTES" envSeparator:"," envDefault:"/screens/*/data-rooms,/data-rooms/*/documents,/admin/users"`

	LoginPath       string `env:"GATE_LOGIN_PATH" envDefault:"/login"`
	AdminDeniedPath string `env:"GATE_ADMIN_DENIED_PATH" envDefault:"/dashboard"`
	CookieName      string `env:"GATE_COOKIE_NAME" envDefault:"portal_session"`

	// DemoEnabled turns on the demo bypass: a signed cookie flagged isDemo
	// whose role is in DemoRoles is forwarded without a session lookup.
	DemoEnabled bool     `env:"GATE_DEMO_ENABLED" envDefault:"false"`
	DemoRoles   []string `env:"GATE_DEMO_ROLES" envSeparator:"," envDefault:"investor,analyst,manager,viewer"`
}

// DefaultConfig returns default gate configuration.
func DefaultConfig() Config {
	return Config{
		PublicRoutes:      []string{"/", "/login", "/signup", "/forgot-password", "/auth/", "/static/", "/health/", "/favicon.ico"},
		ProtectedPrefixes: []string{"/"},
		AdminPrefixes:     []string{"/admin"},
		MFARoutes:         []string{"/screens/*/data-rooms", "/data-rooms/*/documents", "/admin/users"},
		LoginPath:         "/login",
		AdminDeniedPath:   "/dashboard",
		CookieName:        "portal_session",
		DemoRoles:         []string{"investor", "analyst", "manager", "viewer"},
	}
}
