package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/dmitrymomot/portalgate/pkg/async"
	"github.com/dmitrymomot/portalgate/pkg/logger"
)

// Resolver answers permission checks for users and owns their profiles.
// All profile state lives in memory behind a single lock. When a
// ProfileStore is configured, every mutation is persisted in the background
// and never delays a check.
type Resolver struct {
	registry *Registry
	log      *slog.Logger

	store      ProfileStore
	writer     *async.Writer
	ownsWriter bool

	mu       sync.RWMutex
	profiles map[string]*profile
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithStore persists profiles to store.
func WithStore(store ProfileStore) Option {
	return func(r *Resolver) { r.store = store }
}

// WithWriter sets the write-behind queue used for persistence.
// Without it the Resolver starts and owns its own queue.
func WithWriter(w *async.Writer) Option {
	return func(r *Resolver) { r.writer = w }
}

// WithLogger sets the resolver logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// NewResolver creates a Resolver over the given registry.
func NewResolver(registry *Registry, opts ...Option) *Resolver {
	r := &Resolver{
		registry: registry,
		log:      logger.Discard(),
		profiles: make(map[string]*profile),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With(logger.Component("rbac"))

	if r.store != nil && r.writer == nil {
		r.writer = async.NewWriter(async.WithLogger(r.log))
		r.ownsWriter = true
	}
	return r
}

// Load populates the profile table from the configured store.
// Profiles already present in memory are kept.
func (r *Resolver) Load(ctx context.Context) error {
	if r.store == nil {
		return nil
	}

	stored, err := r.store.LoadProfiles(ctx)
	if err != nil {
		return fmt.Errorf("load profiles: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range stored {
		if p.UserID == "" {
			continue
		}
		if _, ok := r.profiles[p.UserID]; !ok {
			r.profiles[p.UserID] = profileFromSnapshot(p)
		}
	}
	r.log.InfoContext(ctx, "permission profiles loaded", slog.Int("count", len(stored)))
	return nil
}

// Close flushes pending profile writes when the Resolver owns the queue.
func (r *Resolver) Close(ctx context.Context) error {
	if r.ownsWriter {
		return r.writer.Close(ctx)
	}
	return nil
}

// Registry returns the role registry the Resolver was built with.
func (r *Resolver) Registry() *Registry {
	return r.registry
}

// HasPermission decides whether the user may perform pc.Action.
// The checks run in a fixed order and the first match wins:
// an explicit denial, a custom grant, a grant on the requested resource,
// then the closure of every assigned role. Unknown users are denied.
func (r *Resolver) HasPermission(userID string, pc PermissionContext) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[userID]
	if !ok || pc.Action == "" {
		return false
	}
	return r.allowed(p, pc)
}

func (r *Resolver) allowed(p *profile, pc PermissionContext) bool {
	if p.denied.Has(pc.Action) {
		return false
	}
	if p.granted.Has(pc.Action) {
		return true
	}
	if pc.hasResource() && p.scoped[resourceKey{pc.ResourceType, pc.ResourceID}].Has(pc.Action) {
		return true
	}
	for role := range p.roles {
		if r.registry.RoleHas(role, pc.Action) {
			return true
		}
	}
	return false
}

// Can is a shorthand for HasPermission without a resource.
func (r *Resolver) Can(userID string, action Permission) bool {
	return r.HasPermission(userID, PermissionContext{Action: action})
}

// HasAny reports whether the user holds at least one of the permissions.
func (r *Resolver) HasAny(userID string, actions ...Permission) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[userID]
	if !ok {
		return false
	}
	for _, a := range actions {
		if r.allowed(p, PermissionContext{Action: a}) {
			return true
		}
	}
	return false
}

// HasAll reports whether the user holds every one of the permissions.
func (r *Resolver) HasAll(userID string, actions ...Permission) bool {
	if len(actions) == 0 {
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[userID]
	if !ok {
		return false
	}
	for _, a := range actions {
		if !r.allowed(p, PermissionContext{Action: a}) {
			return false
		}
	}
	return true
}

// HasPermissionFromContext checks the user stored with SetUserIDToContext.
func (r *Resolver) HasPermissionFromContext(ctx context.Context, pc PermissionContext) bool {
	userID, ok := GetUserIDFromContext(ctx)
	if !ok {
		return false
	}
	return r.HasPermission(userID, pc)
}

// AssignRole adds a role to the user, creating the profile if needed.
func (r *Resolver) AssignRole(userID, roleID string) error {
	if userID == "" || roleID == "" {
		return ErrInvalidArgument
	}
	if !r.registry.HasRole(roleID) {
		return errors.Join(ErrInvalidRole, fmt.Errorf("role %q is not defined", roleID))
	}

	r.mutate(userID, true, func(p *profile) bool {
		if _, ok := p.roles[roleID]; ok {
			return false
		}
		p.roles[roleID] = struct{}{}
		return true
	})
	return nil
}

// SeedRole assigns roleID only when the user has no profile yet and
// reports whether it did. Users that already have a profile, including
// one whose roles were all removed, are left alone.
func (r *Resolver) SeedRole(userID, roleID string) (bool, error) {
	if userID == "" || roleID == "" {
		return false, ErrInvalidArgument
	}
	if !r.registry.HasRole(roleID) {
		return false, errors.Join(ErrInvalidRole, fmt.Errorf("role %q is not defined", roleID))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.profiles[userID]; ok {
		return false, nil
	}
	p := newProfile()
	p.roles[roleID] = struct{}{}
	r.profiles[userID] = p
	r.persistSave(p.snapshot(userID))
	return true, nil
}

// RemoveRole removes a role from the user. Unknown users and roles are ignored.
func (r *Resolver) RemoveRole(userID, roleID string) {
	r.mutate(userID, false, func(p *profile) bool {
		if _, ok := p.roles[roleID]; !ok {
			return false
		}
		delete(p.roles, roleID)
		return true
	})
}

// GrantPermission adds a custom permission to the user.
func (r *Resolver) GrantPermission(userID string, perm Permission) error {
	if userID == "" || perm == "" {
		return ErrInvalidArgument
	}
	r.mutate(userID, true, func(p *profile) bool {
		if p.granted.Has(perm) {
			return false
		}
		p.granted.Add(perm)
		return true
	})
	return nil
}

// RevokePermission removes a custom permission. It does not affect
// permissions that come from roles or resource grants.
func (r *Resolver) RevokePermission(userID string, perm Permission) {
	r.mutate(userID, false, func(p *profile) bool {
		if !p.granted.Has(perm) {
			return false
		}
		p.granted.Remove(perm)
		return true
	})
}

// DenyPermission blocks a permission for the user regardless of any grant.
func (r *Resolver) DenyPermission(userID string, perm Permission) error {
	if userID == "" || perm == "" {
		return ErrInvalidArgument
	}
	r.mutate(userID, true, func(p *profile) bool {
		if p.denied.Has(perm) {
			return false
		}
		p.denied.Add(perm)
		return true
	})
	return nil
}

// AllowPermission lifts a denial added by DenyPermission.
func (r *Resolver) AllowPermission(userID string, perm Permission) {
	r.mutate(userID, false, func(p *profile) bool {
		if !p.denied.Has(perm) {
			return false
		}
		p.denied.Remove(perm)
		return true
	})
}

// GrantContextualPermission grants a permission on a single resource.
func (r *Resolver) GrantContextualPermission(userID, resourceType, resourceID string, perm Permission) error {
	if userID == "" || resourceType == "" || resourceID == "" || perm == "" {
		return ErrInvalidArgument
	}
	key := resourceKey{resourceType, resourceID}
	r.mutate(userID, true, func(p *profile) bool {
		set, ok := p.scoped[key]
		if !ok {
			set = PermissionSet{}
			p.scoped[key] = set
		}
		if set.Has(perm) {
			return false
		}
		set.Add(perm)
		return true
	})
	return nil
}

// RevokeContextualPermission removes a resource-scoped grant.
func (r *Resolver) RevokeContextualPermission(userID, resourceType, resourceID string, perm Permission) {
	key := resourceKey{resourceType, resourceID}
	r.mutate(userID, false, func(p *profile) bool {
		set, ok := p.scoped[key]
		if !ok || !set.Has(perm) {
			return false
		}
		set.Remove(perm)
		if len(set) == 0 {
			delete(p.scoped, key)
		}
		return true
	})
}

// GetResourcePermissions returns every permission the user holds on the
// resource: role closures, custom grants and grants scoped to the resource,
// minus denials. With an empty resource reference no scoped grants apply.
func (r *Resolver) GetResourcePermissions(userID, resourceType, resourceID string) PermissionSet {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[userID]
	if !ok {
		return PermissionSet{}
	}

	set := p.granted.Clone()
	for role := range p.roles {
		set.AddAll(r.registry.closure[role])
	}
	if resourceType != "" && resourceID != "" {
		set.AddAll(p.scoped[resourceKey{resourceType, resourceID}])
	}
	for d := range p.denied {
		set.Remove(d)
	}
	return set
}

// EffectivePermissions returns the user's permissions outside any resource.
func (r *Resolver) EffectivePermissions(userID string) PermissionSet {
	return r.GetResourcePermissions(userID, "", "")
}

// GetRolePermissions returns the deduplicated closure of a role.
func (r *Resolver) GetRolePermissions(roleID string) PermissionSet {
	return r.registry.Permissions(roleID)
}

// UserRoles returns the roles assigned to the user, sorted.
func (r *Resolver) UserRoles(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[userID]
	if !ok {
		return nil
	}
	return slices.Sorted(maps.Keys(p.roles))
}

// Profile returns a snapshot of the user's profile.
func (r *Resolver) Profile(userID string) (Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[userID]
	if !ok {
		return Profile{}, false
	}
	return p.snapshot(userID), true
}

// RemoveProfile deletes the user's profile entirely.
func (r *Resolver) RemoveProfile(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.profiles[userID]; !ok {
		return
	}
	delete(r.profiles, userID)
	r.persistDelete(userID)
}

// mutate applies fn to the user's profile under the write lock.
// With create set, a missing profile is created first; otherwise missing
// users are a no-op. fn reports whether it changed anything.
func (r *Resolver) mutate(userID string, create bool, fn func(p *profile) bool) {
	if userID == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.profiles[userID]
	if !ok {
		if !create {
			return
		}
		p = newProfile()
		r.profiles[userID] = p
	}

	if fn(p) {
		r.persistSave(p.snapshot(userID))
	}
}

// persistSave and persistDelete are called with r.mu held so queued writes
// keep the order of the mutations that produced them.
func (r *Resolver) persistSave(snap Profile) {
	if r.store == nil {
		return
	}
	err := r.writer.Submit(async.Job{
		Name: "rbac.save_profile",
		Run: func(ctx context.Context) error {
			return r.store.SaveProfile(ctx, snap)
		},
	})
	if err != nil {
		r.log.Warn("profile write not queued", logger.UserID(snap.UserID), logger.Error(err))
	}
}

func (r *Resolver) persistDelete(userID string) {
	if r.store == nil {
		return
	}
	err := r.writer.Submit(async.Job{
		Name: "rbac.delete_profile",
		Run: func(ctx context.Context) error {
			return r.store.DeleteProfile(ctx, userID)
		},
	})
	if err != nil {
		r.log.Warn("profile delete not queued", logger.UserID(userID), logger.Error(err))
	}
}
