package cookie

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Config holds cookie manager configuration.
// The first secret signs and encrypts new cookies; the rest only read.
type Config struct {
	Secrets  []string      `env:"COOKIE_SECRETS,required" envSeparator:","`
	Path     string        `env:"COOKIE_PATH" envDefault:"/"`
	Domain   string        `env:"COOKIE_DOMAIN"`
	MaxAge   time.Duration `env:"COOKIE_MAX_AGE" envDefault:"0s"`
	Secure   bool          `env:"COOKIE_SECURE" envDefault:"true"`
	SameSite string        `env:"COOKIE_SAME_SITE" envDefault:"lax"`
}

// DefaultConfig returns default cookie configuration without secrets.
func DefaultConfig() Config {
	return Config{
		Path:     "/",
		Secure:   true,
		SameSite: "lax",
	}
}

// NewFromConfig creates a Manager from cfg; opts are applied after it.
// Session cookies are always HttpOnly.
func NewFromConfig(cfg Config, opts ...Option) (*Manager, error) {
	sameSite, err := parseSameSite(cfg.SameSite)
	if err != nil {
		return nil, err
	}

	secrets := make([]string, 0, len(cfg.Secrets))
	for _, s := range cfg.Secrets {
		if s = strings.TrimSpace(s); s != "" {
			secrets = append(secrets, s)
		}
	}

	configOpts := []Option{
		WithPath(cfg.Path),
		WithDomain(cfg.Domain),
		WithMaxAge(cfg.MaxAge),
		WithSecure(cfg.Secure),
		WithHTTPOnly(true),
		WithSameSite(sameSite),
	}
	return New(secrets, append(configOpts, opts...)...)
}

func parseSameSite(s string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	}
	return 0, fmt.Errorf("%w: same-site mode %q", ErrInvalidConfig, s)
}
