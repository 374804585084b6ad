package gate

import "github.com/dmitrymomot/portalgate/pkg/session"

// Outcome is what the gate does with a request.
type Outcome string

const (
	// Forward passes the request on, annotated with identity headers when
	// a session was found.
	Forward Outcome = "forward"
	// RedirectLogin sends the client to the login page.
	RedirectLogin Outcome = "redirect_login"
	// RedirectAdminDenied sends an authenticated non-admin to the landing page.
	RedirectAdminDenied Outcome = "redirect_admin_denied"
)

// Reason explains an Outcome.
type Reason string

const (
	ReasonPublic         Reason = "public"
	ReasonUnprotected    Reason = "unprotected"
	ReasonAuthenticated  Reason = "authenticated"
	ReasonDemo           Reason = "demo"
	ReasonNoSession      Reason = "no_session"
	ReasonInvalidSession Reason = "invalid_session"
	ReasonNotAdmin       Reason = "not_admin"
	ReasonMFARequired    Reason = "mfa_required"
)

// Decision is the result of gating one request. Location is set for
// redirects; Identity is set when the request was authenticated. Session
// is the validated record and stays nil for demo identities.
type Decision struct {
	Outcome  Outcome
	Reason   Reason
	Location string
	Identity *Identity
	Session  *session.Record
}

// Identity is who a forwarded request belongs to.
type Identity struct {
	SessionID string
	UserID    string
	Role      string
	Email     string
	FirmID    string
	IsDemo    bool
}
