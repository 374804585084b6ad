package portal

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrymomot/portalgate/pkg/audit"
	"github.com/dmitrymomot/portalgate/pkg/cookie"
	"github.com/dmitrymomot/portalgate/pkg/device"
	"github.com/dmitrymomot/portalgate/pkg/gate"
	"github.com/dmitrymomot/portalgate/pkg/logger"
	"github.com/dmitrymomot/portalgate/pkg/session"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Code     string `json:"code,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

type loginResponse struct {
	SessionID   string `json:"session_id"`
	UserID      string `json:"user_id"`
	Role        string `json:"role"`
	MFARequired bool   `json:"mfa_required"`
	Redirect    string `json:"redirect"`
}

type mfaRequest struct {
	Code        string `json:"code"`
	TrustDevice bool   `json:"trust_device,omitempty"`
}

// trustedDevice is the encrypted payload of the trusted-device cookie.
type trustedDevice struct {
	UserID      string    `json:"uid"`
	Fingerprint string    `json:"fp"`
	ExpiresAt   time.Time `json:"exp"`
}

func (p *Portal) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, errBadRequest)
		return
	}
	info := device.FromRequest(r)

	user, err := p.directory.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		p.record(ctx, audit.ActionLoginFailed,
			audit.WithResult(audit.ResultFailure),
			audit.WithReason(err.Error()),
			audit.WithClient(info.IP, info.UserAgent),
			audit.WithMetadata("email", req.Email),
			audit.WithMetadata("device", info.Client.Label()),
		)
		if errors.Is(err, ErrUserDisabled) {
			writeError(w, errForbidden)
			return
		}
		writeError(w, errUnauthorized)
		return
	}

	// The directory role seeds the profile on first login. Later changes
	// belong to the admin API.
	seeded, err := p.resolver.SeedRole(user.ID, user.Role)
	if err != nil {
		p.log.ErrorContext(ctx, "login with unknown role",
			logger.UserID(user.ID), logger.Role(user.Role), logger.Error(err))
		writeError(w, errInternal)
		return
	}
	if seeded {
		p.record(ctx, audit.ActionRoleChanged,
			audit.WithResource("user", user.ID),
			audit.WithMetadata("assigned", user.Role),
			audit.WithMetadata("source", "directory"))
	}

	data := session.Data{
		UserID:            user.ID,
		Role:              user.Role,
		Email:             user.Email,
		FirmID:            user.FirmID,
		DeviceFingerprint: info.Fingerprint,
		IPAddress:         info.IP,
		UserAgent:         info.UserAgent,
		TrustedDevice:     p.isTrustedDevice(r, user.ID, info.Fingerprint),
		Permissions:       p.resolver.EffectivePermissions(user.ID).Strings(),
	}
	if req.Code != "" && user.MFAEnrolled() {
		ok, err := p.verifier.Verify(user.ID, user.TOTPSecret, req.Code)
		if err != nil || !ok {
			writeError(w, errInvalidCode)
			return
		}
		data.MFAVerified = true
	}

	id, err := p.sessions.CreateSession(ctx, data)
	if err != nil {
		p.log.ErrorContext(ctx, "create session", logger.UserID(user.ID), logger.Error(err))
		writeError(w, errInternal)
		return
	}

	if err := p.cookies.SetSignedJSON(w, p.cfg.SessionCookie, gate.SessionCookie{SessionID: id}, p.sessionCookieOptions()...); err != nil {
		p.log.ErrorContext(ctx, "set session cookie", logger.Error(err))
		writeError(w, errInternal)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		SessionID:   id,
		UserID:      user.ID,
		Role:        user.Role,
		MFARequired: user.MFAEnrolled() && !data.MFAVerified && !data.TrustedDevice,
		Redirect:    p.safeRedirect(req.Redirect),
	})
}

func (p *Portal) logout(w http.ResponseWriter, r *http.Request) {
	if rec := p.currentSession(r); rec != nil {
		p.sessions.DestroySession(r.Context(), rec.ID)
	}
	p.cookies.Delete(w, p.cfg.SessionCookie)
	w.WriteHeader(http.StatusNoContent)
}

func (p *Portal) verifyMFA(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rec := p.currentSession(r)
	if rec == nil {
		writeError(w, errUnauthorized)
		return
	}

	var req mfaRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, errBadRequest)
		return
	}

	user, err := p.directory.User(ctx, rec.UserID)
	if err != nil {
		writeError(w, errUnauthorized)
		return
	}
	if !user.MFAEnrolled() {
		writeError(w, errMFANotEnrolled)
		return
	}

	ok, err := p.verifier.Verify(user.ID, user.TOTPSecret, req.Code)
	if err != nil || !ok {
		p.record(ctx, audit.ActionSessionMFAVerified,
			audit.WithResult(audit.ResultFailure),
			audit.WithActor(rec.UserID, rec.ID, rec.Role),
		)
		writeError(w, errInvalidCode)
		return
	}

	if !p.sessions.UpdateMFAStatus(ctx, rec.ID, true) {
		p.cookies.Delete(w, p.cfg.SessionCookie)
		writeError(w, errUnauthorized)
		return
	}

	if req.TrustDevice {
		p.sessions.MarkTrustedDevice(ctx, rec.ID)
		ttl := p.sessions.Config().TrustDeviceDuration
		td := trustedDevice{
			UserID:      user.ID,
			Fingerprint: device.Fingerprint(r),
			ExpiresAt:   p.now().Add(ttl),
		}
		if err := p.cookies.SetEncryptedJSON(w, p.cfg.TrustedDeviceCookie, td,
			cookie.WithMaxAge(ttl), cookie.WithSecure(p.cfg.CookieSecure)); err != nil {
			p.log.WarnContext(ctx, "set trusted device cookie", logger.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, map[string]bool{
		"mfa_verified":   true,
		"trusted_device": req.TrustDevice,
	})
}

// currentSession resolves the caller's session. Behind the gate the record
// validated for this request is in the context; on public routes the
// cookie or bearer token is validated directly.
func (p *Portal) currentSession(r *http.Request) *session.Record {
	ctx := r.Context()
	if id, ok := gate.IdentityFromContext(ctx); ok {
		if id.IsDemo {
			return nil
		}
		if rec, ok := session.FromContext(ctx); ok && rec.ID == id.SessionID {
			return rec
		}
		return p.sessions.ValidateSession(ctx, id.SessionID)
	}
	c, sid := gate.ExtractSessionID(r, p.cookies, p.cfg.SessionCookie)
	if sid == "" || c.IsDemo {
		return nil
	}
	return p.sessions.ValidateSession(ctx, sid)
}

func (p *Portal) isTrustedDevice(r *http.Request, userID, fingerprint string) bool {
	var td trustedDevice
	if err := p.cookies.GetEncryptedJSON(r, p.cfg.TrustedDeviceCookie, &td); err != nil {
		return false
	}
	return td.UserID == userID && td.Fingerprint == fingerprint && p.now().Before(td.ExpiresAt)
}

func (p *Portal) sessionCookieOptions() []cookie.Option {
	return []cookie.Option{
		cookie.WithMaxAge(p.sessions.Config().MaxAge),
		cookie.WithSecure(p.cfg.CookieSecure),
	}
}

// safeRedirect only allows local absolute paths.
func (p *Portal) safeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, "\\") {
		return p.cfg.DefaultRedirect
	}
	return target
}
