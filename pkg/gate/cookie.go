package gate

import (
	"net/http"
	"slices"
	"strings"
	"time"
)

// SessionCookie is the JSON payload of the structured session cookie.
// A regular login carries only SessionID; a demo cookie is self-contained.
type SessionCookie struct {
	SessionID string     `json:"sessionId"`
	IsDemo    bool       `json:"isDemo,omitempty"`
	UserID    string     `json:"userId,omitempty"`
	UserRole  string     `json:"userRole,omitempty"`
	Email     string     `json:"email,omitempty"`
	FirmID    string     `json:"firmId,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// CookieReader decodes signed JSON cookies. *cookie.Manager implements it.
type CookieReader interface {
	GetSignedJSON(r *http.Request, name string, dest any) error
}

// validDemo checks the structure of a demo cookie: every identity field is
// present, the role is allowed and an expiry, when given, lies in the future.
func (c SessionCookie) validDemo(allowed []string, now time.Time) bool {
	if !c.IsDemo || c.SessionID == "" || c.UserID == "" || c.UserRole == "" {
		return false
	}
	if !slices.Contains(allowed, c.UserRole) {
		return false
	}
	return c.ExpiresAt == nil || now.Before(*c.ExpiresAt)
}

// ExtractSessionID reads the session id from the signed session cookie
// named name, falling back to the bearer token. A cookie that fails
// verification is treated as absent. The decoded cookie is returned as
// well; it is zero when the id came from the header.
func ExtractSessionID(r *http.Request, cookies CookieReader, name string) (SessionCookie, string) {
	var c SessionCookie
	if err := cookies.GetSignedJSON(r, name, &c); err != nil {
		c = SessionCookie{}
	}
	if c.SessionID != "" {
		return c, c.SessionID
	}
	return SessionCookie{}, bearerToken(r)
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
// The scheme is matched case-insensitively.
func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
