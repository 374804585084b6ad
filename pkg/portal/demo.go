package portal

import (
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/portalgate/pkg/audit"
	"github.com/dmitrymomot/portalgate/pkg/cookie"
	"github.com/dmitrymomot/portalgate/pkg/device"
	"github.com/dmitrymomot/portalgate/pkg/gate"
	"github.com/dmitrymomot/portalgate/pkg/logger"
)

const demoIDPrefix = "demo-"

type demoRequest struct {
	Role     string `json:"role"`
	Redirect string `json:"redirect,omitempty"`
}

type demoResponse struct {
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	IsDemo    bool      `json:"is_demo"`
	ExpiresAt time.Time `json:"expires_at"`
	Redirect  string    `json:"redirect"`
}

// demo issues a signed, self-contained demo cookie. Each call gets fresh
// ids, so a demo identity never names a real account.
func (p *Portal) demo(w http.ResponseWriter, r *http.Request) {
	if !p.cfg.DemoEnabled {
		writeError(w, errNotFound)
		return
	}

	var req demoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, errBadRequest)
		return
	}
	if !slices.Contains(p.cfg.DemoRoles, req.Role) || !p.resolver.Registry().HasRole(req.Role) {
		writeError(w, errUnprocessable)
		return
	}

	ttl := p.cfg.DemoTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	expiresAt := p.now().Add(ttl)
	c := gate.SessionCookie{
		SessionID: demoIDPrefix + uuid.NewString(),
		IsDemo:    true,
		UserID:    demoIDPrefix + uuid.NewString(),
		UserRole:  req.Role,
		ExpiresAt: &expiresAt,
	}
	if err := p.cookies.SetSignedJSON(w, p.cfg.SessionCookie, c,
		cookie.WithMaxAge(ttl), cookie.WithSecure(p.cfg.CookieSecure)); err != nil {
		p.log.ErrorContext(r.Context(), "set demo cookie", logger.Error(err))
		writeError(w, errInternal)
		return
	}

	info := device.FromRequest(r)
	p.record(r.Context(), audit.ActionDemoIssued,
		audit.WithActor(c.UserID, c.SessionID, c.UserRole),
		audit.WithClient(info.IP, info.UserAgent),
	)

	writeJSON(w, http.StatusOK, demoResponse{
		UserID:    c.UserID,
		Role:      c.UserRole,
		IsDemo:    true,
		ExpiresAt: expiresAt,
		Redirect:  p.safeRedirect(req.Redirect),
	})
}
