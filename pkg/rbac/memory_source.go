package rbac

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// RoleSource provides role definitions to a Registry.
type RoleSource interface {
	Load(ctx context.Context) ([]Role, error)
}

// inMemRoleSource is a RoleSource backed by a slice of roles.
type inMemRoleSource struct {
	mu    sync.RWMutex
	roles []Role
}

// NewInMemRoleSource creates a role source from the given roles.
// The input is copied so later changes by the caller have no effect.
func NewInMemRoleSource(roles ...Role) RoleSource {
	cp := make([]Role, 0, len(roles))
	for _, r := range roles {
		cp = append(cp, r.clone())
	}
	return &inMemRoleSource{roles: cp}
}

func (s *inMemRoleSource) Load(ctx context.Context) ([]Role, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Role, 0, len(s.roles))
	for _, r := range s.roles {
		out = append(out, r.clone())
	}
	return out, nil
}

// DefaultRoles returns the built-in portal roles.
//
//	viewer        read-only document and report access
//	investor      viewer + data rooms and messaging
//	analyst       viewer + screens and report export
//	manager       documents:view, documents:edit
//	compliance    viewer + compliance review and user listing
//	firm_admin    manager, analyst, investor + firm and user management
//	system_admin  firm_admin, compliance + system:admin
func DefaultRoles() []Role {
	roles := []Role{
		{
			ID:          "viewer",
			Name:        "Viewer",
			Description: "Read-only access to documents and reports",
			Permissions: []Permission{DocumentsView, ReportsView},
		},
		{
			ID:          "investor",
			Name:        "Investor",
			Description: "Limited partner with data room access",
			Permissions: []Permission{DocumentsDownload, DataRoomsAccess, MessagesView, MessagesSend},
			Inherits:    []string{"viewer"},
		},
		{
			ID:          "analyst",
			Name:        "Analyst",
			Description: "Runs screens and exports reports",
			Permissions: []Permission{ScreensView, ScreensManage, ReportsExport, DocumentsDownload},
			Inherits:    []string{"viewer"},
		},
		{
			ID:          "manager",
			Name:        "Manager",
			Description: "Maintains fund documents",
			Permissions: []Permission{DocumentsView, DocumentsEdit},
		},
		{
			ID:          "compliance",
			Name:        "Compliance Officer",
			Description: "Reviews activity across the firm",
			Permissions: []Permission{ComplianceReview, UsersView, ReportsExport},
			Inherits:    []string{"viewer"},
		},
		{
			ID:          "firm_admin",
			Name:        "Firm Administrator",
			Description: "Manages the firm, its users and data rooms",
			Permissions: []Permission{
				DocumentsUpload, DocumentsDelete, DataRoomsManage,
				UsersView, UsersManage, FirmManage,
			},
			Inherits: []string{"manager", "analyst", "investor"},
		},
		{
			ID:          "system_admin",
			Name:        "System Administrator",
			Description: "Full platform access",
			Permissions: []Permission{SystemAdmin},
			Inherits:    []string{"firm_admin", "compliance"},
		},
	}
	return roles
}

// NewDefaultRoleSource returns a RoleSource serving DefaultRoles.
func NewDefaultRoleSource() RoleSource {
	return NewInMemRoleSource(DefaultRoles()...)
}

// normalizeRole trims identifiers and drops empty entries.
func normalizeRole(r Role) Role {
	r.ID = strings.TrimSpace(r.ID)
	if r.Name == "" {
		r.Name = r.ID
	}
	perms := make([]Permission, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		if p = Permission(strings.TrimSpace(string(p))); p != "" {
			perms = append(perms, p)
		}
	}
	r.Permissions = perms

	parents := make([]string, 0, len(r.Inherits))
	for _, id := range r.Inherits {
		if id = strings.TrimSpace(id); id != "" && !slices.Contains(parents, id) {
			parents = append(parents, id)
		}
	}
	r.Inherits = parents
	return r
}
