package portal

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/portalgate/pkg/device"
	"github.com/dmitrymomot/portalgate/pkg/gate"
	"github.com/dmitrymomot/portalgate/pkg/rbac"
	"github.com/dmitrymomot/portalgate/pkg/session"
)

type meResponse struct {
	UserID        string   `json:"user_id"`
	SessionID     string   `json:"session_id"`
	Role          string   `json:"role"`
	Email         string   `json:"email,omitempty"`
	FirmID        string   `json:"firm_id,omitempty"`
	IsDemo        bool     `json:"is_demo"`
	Roles         []string `json:"roles"`
	Permissions   []string `json:"permissions"`
	MFAVerified   bool     `json:"mfa_verified"`
	TrustedDevice bool     `json:"trusted_device"`
}

type sessionView struct {
	ID            string    `json:"id"`
	Current       bool      `json:"current"`
	Device        string    `json:"device"`
	IPAddress     string    `json:"ip_address,omitempty"`
	UserAgent     string    `json:"user_agent,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	LastActivity  time.Time `json:"last_activity"`
	ExpiresAt     time.Time `json:"expires_at"`
	MFAVerified   bool      `json:"mfa_verified"`
	TrustedDevice bool      `json:"trusted_device"`
}

func newSessionView(rec session.Record, currentID string) sessionView {
	return sessionView{
		ID:            rec.ID,
		Current:       rec.ID == currentID,
		Device:        device.ParseUserAgent(rec.UserAgent).Label(),
		IPAddress:     rec.IPAddress,
		UserAgent:     rec.UserAgent,
		CreatedAt:     rec.CreatedAt,
		LastActivity:  rec.LastActivity,
		ExpiresAt:     rec.ExpiresAt,
		MFAVerified:   rec.MFAVerified,
		TrustedDevice: rec.TrustedDevice,
	}
}

func sessionViews(recs []session.Record, currentID string) []sessionView {
	out := make([]sessionView, 0, len(recs))
	for _, rec := range recs {
		out = append(out, newSessionView(rec, currentID))
	}
	return out
}

func (p *Portal) me(w http.ResponseWriter, r *http.Request) {
	id, _ := gate.IdentityFromContext(r.Context())

	resp := meResponse{
		UserID:    id.UserID,
		SessionID: id.SessionID,
		Role:      id.Role,
		Email:     id.Email,
		FirmID:    id.FirmID,
		IsDemo:    id.IsDemo,
	}

	if id.IsDemo {
		// demo identities have no profile; they see their role's closure
		resp.Roles = []string{id.Role}
		resp.Permissions = p.resolver.GetRolePermissions(id.Role).Strings()
	} else {
		resp.Roles = p.resolver.UserRoles(id.UserID)
		resp.Permissions = p.resolver.EffectivePermissions(id.UserID).Strings()
		if rec := p.currentSession(r); rec != nil {
			resp.MFAVerified = rec.MFAVerified
			resp.TrustedDevice = rec.TrustedDevice
		}
	}
	if resp.Roles == nil {
		resp.Roles = []string{}
	}

	writeJSON(w, http.StatusOK, resp)
}

// checkPermission answers whether the caller may perform action, optionally
// on one resource, and whether the session must pass MFA first.
func (p *Portal) checkPermission(w http.ResponseWriter, r *http.Request) {
	id, _ := gate.IdentityFromContext(r.Context())
	q := r.URL.Query()

	action := rbac.Permission(q.Get("action"))
	if action == "" {
		writeError(w, errBadRequest)
		return
	}
	pc := rbac.PermissionContext{
		ResourceType: q.Get("resource_type"),
		ResourceID:   q.Get("resource_id"),
		Action:       action,
	}

	var allowed, mfaRequired bool
	if id.IsDemo {
		allowed = p.resolver.GetRolePermissions(id.Role).Has(action)
	} else {
		allowed = p.resolver.HasPermission(id.UserID, pc)
		mfaRequired = allowed && p.sessions.RequiresMFAForAction(p.currentSession(r), string(action))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"action":       action,
		"allowed":      allowed,
		"mfa_required": mfaRequired,
	})
}

func (p *Portal) listSessions(w http.ResponseWriter, r *http.Request) {
	id, _ := gate.IdentityFromContext(r.Context())
	writeJSON(w, http.StatusOK, sessionViews(p.sessions.GetUserSessions(id.UserID), id.SessionID))
}

// revokeSession ends one of the caller's own sessions. Ids belonging to
// other users are reported as not found.
func (p *Portal) revokeSession(w http.ResponseWriter, r *http.Request) {
	id, _ := gate.IdentityFromContext(r.Context())
	target := chi.URLParam(r, "sessionID")

	for _, rec := range p.sessions.GetUserSessions(id.UserID) {
		if rec.ID == target {
			p.sessions.RevokeSession(r.Context(), target)
			if target == id.SessionID {
				p.cookies.Delete(w, p.cfg.SessionCookie)
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeError(w, errNotFound)
}
