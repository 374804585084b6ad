package cookie

import (
	"net/http"
	"time"
)

// Attributes are the cookie attributes applied on write.
type Attributes struct {
	Path     string
	Domain   string
	MaxAge   time.Duration
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite
}

// cookie builds an http.Cookie carrying a.
func (a Attributes) cookie(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     a.Path,
		Domain:   a.Domain,
		MaxAge:   int(a.MaxAge / time.Second),
		Secure:   a.Secure,
		HttpOnly: a.HTTPOnly,
		SameSite: a.SameSite,
	}
}

// Option overrides one attribute, either as a Manager default or per write.
type Option func(*Attributes)

// WithPath sets the cookie path.
func WithPath(path string) Option {
	return func(a *Attributes) { a.Path = path }
}

// WithDomain sets the cookie domain.
func WithDomain(domain string) Option {
	return func(a *Attributes) { a.Domain = domain }
}

// WithMaxAge sets the cookie lifetime, truncated to whole seconds.
// Zero makes a browser-session cookie.
func WithMaxAge(d time.Duration) Option {
	return func(a *Attributes) { a.MaxAge = d }
}

// WithSecure toggles the Secure attribute.
func WithSecure(secure bool) Option {
	return func(a *Attributes) { a.Secure = secure }
}

// WithHTTPOnly toggles the HttpOnly attribute.
func WithHTTPOnly(httpOnly bool) Option {
	return func(a *Attributes) { a.HTTPOnly = httpOnly }
}

// WithSameSite sets the SameSite mode.
func WithSameSite(sameSite http.SameSite) Option {
	return func(a *Attributes) { a.SameSite = sameSite }
}

func (a Attributes) with(opts []Option) Attributes {
	for _, opt := range opts {
		opt(&a)
	}
	return a
}
