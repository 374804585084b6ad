package portal

import (
	"net/http"

	"github.com/dmitrymomot/portalgate/pkg/gate"
	"github.com/dmitrymomot/portalgate/pkg/rbac"
)

// requireIdentity rejects requests the gate did not attach an identity to.
// It guards against the router being mounted without the gate.
func (p *Portal) requireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := gate.IdentityFromContext(r.Context()); !ok {
			writeError(w, errUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireSession rejects demo identities. They carry no session record, and
// their user id comes from the cookie rather than a login.
func (p *Portal) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := gate.IdentityFromContext(r.Context())
		if id == nil || id.IsDemo {
			writeError(w, errForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAdmin repeats the gate's admin check so the admin API stays closed
// when the admin prefix is reconfigured.
func (p *Portal) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := gate.IdentityFromContext(r.Context())
		if id == nil || id.IsDemo || !p.resolver.Can(id.UserID, rbac.SystemAdmin) {
			writeError(w, errForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
