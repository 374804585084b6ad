package rbac

import (
	"maps"
	"slices"
	"strings"
)

// MaxInheritanceDepth is the maximum allowed depth of role inheritance.
const MaxInheritanceDepth = 10

// Permission is an atomic, named capability such as "documents:edit".
type Permission string

// Portal permissions.
const (
	DocumentsView     Permission = "documents:view"
	DocumentsEdit     Permission = "documents:edit"
	DocumentsDelete   Permission = "documents:delete"
	DocumentsUpload   Permission = "documents:upload"
	DocumentsDownload Permission = "documents:download"
	DataRoomsAccess   Permission = "data_rooms:access"
	DataRoomsManage   Permission = "data_rooms:manage"
	MessagesView      Permission = "messages:view"
	MessagesSend      Permission = "messages:send"
	ScreensView       Permission = "screens:view"
	ScreensManage     Permission = "screens:manage"
	ReportsView       Permission = "reports:view"
	ReportsExport     Permission = "reports:export"
	UsersView         Permission = "users:view"
	UsersManage       Permission = "users:manage"
	FirmManage        Permission = "firm:manage"
	ComplianceReview  Permission = "compliance:review"
	SystemAdmin       Permission = "system:admin"
)

// Role is a named bundle of permissions that may inherit other roles.
// Roles are immutable once a Registry has been built from them.
type Role struct {
	ID          string       `json:"id" yaml:"id"`
	Name        string       `json:"name" yaml:"name"`
	Description string       `json:"description,omitempty" yaml:"description"`
	Permissions []Permission `json:"permissions" yaml:"permissions"`
	Inherits    []string     `json:"inherits,omitempty" yaml:"inherits"`
}

func (r Role) clone() Role {
	r.Permissions = slices.Clone(r.Permissions)
	r.Inherits = slices.Clone(r.Inherits)
	return r
}

// PermissionContext is the query for a single authorization check.
// ResourceType and ResourceID are optional; when both are set, grants scoped
// to that resource are considered.
type PermissionContext struct {
	ResourceType string
	ResourceID   string
	Action       Permission
}

func (c PermissionContext) hasResource() bool {
	return c.ResourceType != "" && c.ResourceID != ""
}

// PermissionSet is a deduplicated set of permissions.
type PermissionSet map[Permission]struct{}

// NewPermissionSet builds a set from the given permissions, skipping empty values.
func NewPermissionSet(perms ...Permission) PermissionSet {
	s := make(PermissionSet, len(perms))
	for _, p := range perms {
		s.Add(p)
	}
	return s
}

func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

func (s PermissionSet) Add(p Permission) {
	if p != "" {
		s[p] = struct{}{}
	}
}

func (s PermissionSet) AddAll(other PermissionSet) {
	for p := range other {
		s[p] = struct{}{}
	}
}

func (s PermissionSet) Remove(p Permission) {
	delete(s, p)
}

func (s PermissionSet) Clone() PermissionSet {
	return maps.Clone(s)
}

// Slice returns the permissions sorted lexically.
func (s PermissionSet) Slice() []Permission {
	return slices.Sorted(maps.Keys(s))
}

// Strings returns the permissions as sorted strings.
func (s PermissionSet) Strings() []string {
	out := make([]string, 0, len(s))
	for _, p := range s.Slice() {
		out = append(out, string(p))
	}
	return out
}

// ParsePermissions converts raw strings into permissions, trimming
// whitespace and dropping empty entries.
func ParsePermissions(raw ...string) []Permission {
	out := make([]Permission, 0, len(raw))
	for _, r := range raw {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, Permission(r))
		}
	}
	return out
}
