package rbac

import (
	"cmp"
	"maps"
	"slices"
)

// Profile is a snapshot of a user's permission state.
type Profile struct {
	UserID  string        `json:"user_id"`
	Roles   []string      `json:"roles,omitempty"`
	Granted []Permission  `json:"granted,omitempty"`
	Denied  []Permission  `json:"denied,omitempty"`
	Scoped  []ScopedGrant `json:"scoped,omitempty"`
}

// ScopedGrant holds permissions granted on a single resource.
type ScopedGrant struct {
	ResourceType string       `json:"resource_type"`
	ResourceID   string       `json:"resource_id"`
	Permissions  []Permission `json:"permissions"`
}

type resourceKey struct {
	typ string
	id  string
}

// profile is the mutable per-user record guarded by the Resolver lock.
type profile struct {
	roles   map[string]struct{}
	granted PermissionSet
	denied  PermissionSet
	scoped  map[resourceKey]PermissionSet
}

func newProfile() *profile {
	return &profile{
		roles:   make(map[string]struct{}),
		granted: PermissionSet{},
		denied:  PermissionSet{},
		scoped:  make(map[resourceKey]PermissionSet),
	}
}

func profileFromSnapshot(p Profile) *profile {
	pr := newProfile()
	for _, r := range p.Roles {
		pr.roles[r] = struct{}{}
	}
	for _, g := range p.Granted {
		pr.granted.Add(g)
	}
	for _, d := range p.Denied {
		pr.denied.Add(d)
	}
	for _, s := range p.Scoped {
		if s.ResourceType == "" || s.ResourceID == "" || len(s.Permissions) == 0 {
			continue
		}
		pr.scoped[resourceKey{s.ResourceType, s.ResourceID}] = NewPermissionSet(s.Permissions...)
	}
	return pr
}

func (p *profile) snapshot(userID string) Profile {
	out := Profile{
		UserID:  userID,
		Roles:   slices.Sorted(maps.Keys(p.roles)),
		Granted: p.granted.Slice(),
		Denied:  p.denied.Slice(),
	}
	for key, set := range p.scoped {
		out.Scoped = append(out.Scoped, ScopedGrant{
			ResourceType: key.typ,
			ResourceID:   key.id,
			Permissions:  set.Slice(),
		})
	}
	slices.SortFunc(out.Scoped, func(a, b ScopedGrant) int {
		return cmp.Or(cmp.Compare(a.ResourceType, b.ResourceType), cmp.Compare(a.ResourceID, b.ResourceID))
	})
	return out
}
