package portal

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/portalgate/pkg/audit"
	"github.com/dmitrymomot/portalgate/pkg/rbac"
)

type permissionsResponse struct {
	Profile   rbac.Profile `json:"profile"`
	Effective []string     `json:"effective"`
}

func (p *Portal) listRoles(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, p.resolver.Registry().Roles())
}

func (p *Portal) userPermissions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	prof, ok := p.resolver.Profile(userID)
	if !ok {
		writeError(w, errNotFound)
		return
	}
	writeJSON(w, http.StatusOK, permissionsResponse{
		Profile:   prof,
		Effective: p.resolver.EffectivePermissions(userID).Strings(),
	})
}

func (p *Portal) assignRole(w http.ResponseWriter, r *http.Request) {
	userID, role := chi.URLParam(r, "userID"), chi.URLParam(r, "role")
	if err := p.resolver.AssignRole(userID, role); err != nil {
		p.mutationError(w, err)
		return
	}
	p.record(r.Context(), audit.ActionRoleChanged,
		audit.WithResource("user", userID), audit.WithMetadata("assigned", role))
	p.respondProfile(w, userID)
}

func (p *Portal) removeRole(w http.ResponseWriter, r *http.Request) {
	userID, role := chi.URLParam(r, "userID"), chi.URLParam(r, "role")
	p.resolver.RemoveRole(userID, role)
	p.record(r.Context(), audit.ActionRoleChanged,
		audit.WithResource("user", userID), audit.WithMetadata("removed", role))
	p.respondProfile(w, userID)
}

func (p *Portal) grantPermission(w http.ResponseWriter, r *http.Request) {
	p.changePermission(w, r, "granted", p.resolver.GrantPermission)
}

func (p *Portal) revokePermission(w http.ResponseWriter, r *http.Request) {
	p.changePermission(w, r, "revoked", func(userID string, perm rbac.Permission) error {
		p.resolver.RevokePermission(userID, perm)
		return nil
	})
}

func (p *Portal) denyPermission(w http.ResponseWriter, r *http.Request) {
	p.changePermission(w, r, "denied", p.resolver.DenyPermission)
}

func (p *Portal) allowPermission(w http.ResponseWriter, r *http.Request) {
	p.changePermission(w, r, "allowed", func(userID string, perm rbac.Permission) error {
		p.resolver.AllowPermission(userID, perm)
		return nil
	})
}

// permissionParam reads the {permission} segment. Several permissions may
// be given separated by commas.
func permissionParam(r *http.Request) []rbac.Permission {
	return rbac.ParsePermissions(strings.Split(chi.URLParam(r, "permission"), ",")...)
}

func (p *Portal) changePermission(w http.ResponseWriter, r *http.Request, change string, apply func(string, rbac.Permission) error) {
	userID := chi.URLParam(r, "userID")
	perms := permissionParam(r)
	if len(perms) == 0 {
		writeError(w, errBadRequest)
		return
	}
	for _, perm := range perms {
		if err := apply(userID, perm); err != nil {
			p.mutationError(w, err)
			return
		}
		p.record(r.Context(), audit.ActionPermissionChanged,
			audit.WithResource("user", userID), audit.WithMetadata(change, string(perm)))
	}
	p.respondProfile(w, userID)
}

func (p *Portal) grantResourcePermission(w http.ResponseWriter, r *http.Request) {
	p.changeResourcePermission(w, r, "granted", func(userID, typ, rid string, perm rbac.Permission) error {
		return p.resolver.GrantContextualPermission(userID, typ, rid, perm)
	})
}

func (p *Portal) revokeResourcePermission(w http.ResponseWriter, r *http.Request) {
	p.changeResourcePermission(w, r, "revoked", func(userID, typ, rid string, perm rbac.Permission) error {
		p.resolver.RevokeContextualPermission(userID, typ, rid, perm)
		return nil
	})
}

func (p *Portal) changeResourcePermission(w http.ResponseWriter, r *http.Request, change string, apply func(userID, typ, rid string, perm rbac.Permission) error) {
	userID := chi.URLParam(r, "userID")
	typ, rid := chi.URLParam(r, "resourceType"), chi.URLParam(r, "resourceID")
	perms := permissionParam(r)
	if len(perms) == 0 {
		writeError(w, errBadRequest)
		return
	}
	for _, perm := range perms {
		if err := apply(userID, typ, rid, perm); err != nil {
			p.mutationError(w, err)
			return
		}
		p.record(r.Context(), audit.ActionPermissionChanged,
			audit.WithResource(typ, rid),
			audit.WithMetadata("user_id", userID),
			audit.WithMetadata(change, string(perm)))
	}
	p.respondProfile(w, userID)
}

func (p *Portal) userSessions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	writeJSON(w, http.StatusOK, sessionViews(p.sessions.GetUserSessions(userID), ""))
}

func (p *Portal) destroyUserSessions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	n := p.sessions.DestroyAllUserSessions(r.Context(), userID)
	writeJSON(w, http.StatusOK, map[string]int{"destroyed": n})
}

func (p *Portal) queryAudit(w http.ResponseWriter, r *http.Request) {
	if p.auditRead == nil {
		writeError(w, errAuditNotEnabled)
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	events, err := p.auditRead.Query(r.Context(), audit.Criteria{
		UserID:    q.Get("user_id"),
		SessionID: q.Get("session_id"),
		Action:    q.Get("action"),
		Result:    audit.Result(q.Get("result")),
		Limit:     limit,
	})
	if err != nil {
		writeError(w, errInternal)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (p *Portal) respondProfile(w http.ResponseWriter, userID string) {
	prof, _ := p.resolver.Profile(userID)
	writeJSON(w, http.StatusOK, permissionsResponse{
		Profile:   prof,
		Effective: p.resolver.EffectivePermissions(userID).Strings(),
	})
}

func (p *Portal) mutationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, rbac.ErrInvalidRole), errors.Is(err, rbac.ErrInvalidArgument):
		writeError(w, errUnprocessable)
	default:
		writeError(w, errInternal)
	}
}
