package rbac_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/portalgate/pkg/async"
	"github.com/dmitrymomot/portalgate/pkg/rbac"
)

func newResolver(t *testing.T, opts ...rbac.Option) *rbac.Resolver {
	t.Helper()
	reg, err := rbac.NewRegistry(context.Background(), rbac.NewInMemRoleSource(
		rbac.Role{ID: "viewer", Permissions: []rbac.Permission{"documents:view", "reports:view"}},
		rbac.Role{ID: "manager", Permissions: []rbac.Permission{"documents:view", "documents:edit"}},
		rbac.Role{ID: "editor", Permissions: []rbac.Permission{"documents:upload"}, Inherits: []string{"viewer"}},
		rbac.Role{ID: "system_admin", Permissions: []rbac.Permission{"system:admin"}, Inherits: []string{"editor"}},
	))
	require.NoError(t, err)
	return rbac.NewResolver(reg, opts...)
}

func TestResolver_ManagerGrantDenyScenario(t *testing.T) {
	t.Parallel()
	res := newResolver(t)

	require.NoError(t, res.AssignRole("u", "manager"))
	del := rbac.PermissionContext{Action: rbac.DocumentsDelete}

	assert.False(t, res.HasPermission("u", del))

	require.NoError(t, res.GrantPermission("u", rbac.DocumentsDelete))
	assert.True(t, res.HasPermission("u", del))

	require.NoError(t, res.DenyPermission("u", rbac.DocumentsDelete))
	assert.False(t, res.HasPermission("u", del))
}

func TestResolver_DenialWins(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(t *testing.T, res *rbac.Resolver)
		pc    rbac.PermissionContext
	}{
		{
			name: "custom grant",
			setup: func(t *testing.T, res *rbac.Resolver) {
				require.NoError(t, res.GrantPermission("u", "reports:export"))
			},
			pc: rbac.PermissionContext{Action: "reports:export"},
		},
		{
			name: "role derived",
			setup: func(t *testing.T, res *rbac.Resolver) {
				require.NoError(t, res.AssignRole("u", "editor"))
			},
			pc: rbac.PermissionContext{Action: "documents:view"},
		},
		{
			name: "resource scoped",
			setup: func(t *testing.T, res *rbac.Resolver) {
				require.NoError(t, res.GrantContextualPermission("u", "data_room", "dr-1", "documents:download"))
			},
			pc: rbac.PermissionContext{ResourceType: "data_room", ResourceID: "dr-1", Action: "documents:download"},
		},
		{
			name: "all sources at once",
			setup: func(t *testing.T, res *rbac.Resolver) {
				require.NoError(t, res.AssignRole("u", "manager"))
				require.NoError(t, res.GrantPermission("u", "documents:edit"))
				require.NoError(t, res.GrantContextualPermission("u", "fund", "f-1", "documents:edit"))
			},
			pc: rbac.PermissionContext{ResourceType: "fund", ResourceID: "f-1", Action: "documents:edit"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := newResolver(t)
			tt.setup(t, res)
			require.True(t, res.HasPermission("u", tt.pc))

			require.NoError(t, res.DenyPermission("u", tt.pc.Action))
			assert.False(t, res.HasPermission("u", tt.pc))
			assert.False(t, res.GetResourcePermissions("u", tt.pc.ResourceType, tt.pc.ResourceID).Has(tt.pc.Action))

			res.AllowPermission("u", tt.pc.Action)
			assert.True(t, res.HasPermission("u", tt.pc))
		})
	}
}

func TestResolver_UnknownUserFailsClosed(t *testing.T) {
	t.Parallel()
	res := newResolver(t)

	assert.False(t, res.HasPermission("ghost", rbac.PermissionContext{Action: "documents:view"}))
	assert.False(t, res.HasAny("ghost", "documents:view"))
	assert.False(t, res.HasAll("ghost", "documents:view"))
	assert.Empty(t, res.GetResourcePermissions("ghost", "", ""))
	assert.Nil(t, res.UserRoles("ghost"))

	_, ok := res.Profile("ghost")
	assert.False(t, ok)

	// removals on unknown users do not create profiles
	res.RemoveRole("ghost", "viewer")
	res.RevokePermission("ghost", "documents:view")
	res.AllowPermission("ghost", "documents:view")
	res.RevokeContextualPermission("ghost", "fund", "f-1", "documents:view")
	res.RemoveProfile("ghost")
	_, ok = res.Profile("ghost")
	assert.False(t, ok)
}

func TestResolver_ScopedGrantOnlyMatchesResource(t *testing.T) {
	t.Parallel()
	res := newResolver(t)

	require.NoError(t, res.GrantContextualPermission("u", "data_room", "dr-1", "documents:download"))

	assert.True(t, res.HasPermission("u", rbac.PermissionContext{ResourceType: "data_room", ResourceID: "dr-1", Action: "documents:download"}))
	assert.False(t, res.HasPermission("u", rbac.PermissionContext{ResourceType: "data_room", ResourceID: "dr-2", Action: "documents:download"}))
	assert.False(t, res.HasPermission("u", rbac.PermissionContext{ResourceType: "fund", ResourceID: "dr-1", Action: "documents:download"}))
	assert.False(t, res.HasPermission("u", rbac.PermissionContext{Action: "documents:download"}))

	res.RevokeContextualPermission("u", "data_room", "dr-1", "documents:download")
	assert.False(t, res.HasPermission("u", rbac.PermissionContext{ResourceType: "data_room", ResourceID: "dr-1", Action: "documents:download"}))

	p, ok := res.Profile("u")
	require.True(t, ok)
	assert.Empty(t, p.Scoped)
}

func TestResolver_RolesAndInheritance(t *testing.T) {
	t.Parallel()
	res := newResolver(t)

	require.NoError(t, res.AssignRole("u", "system_admin"))
	assert.True(t, res.Can("u", rbac.SystemAdmin))
	assert.True(t, res.Can("u", "documents:upload"))
	assert.True(t, res.Can("u", "reports:view"))
	assert.False(t, res.Can("u", "documents:edit"))

	res.RemoveRole("u", "system_admin")
	assert.False(t, res.Can("u", rbac.SystemAdmin))
	assert.Empty(t, res.UserRoles("u"))

	err := res.AssignRole("u", "ghost")
	assert.ErrorIs(t, err, rbac.ErrInvalidRole)

	assert.ErrorIs(t, res.AssignRole("", "viewer"), rbac.ErrInvalidArgument)
	assert.ErrorIs(t, res.GrantPermission("u", ""), rbac.ErrInvalidArgument)
	assert.ErrorIs(t, res.DenyPermission("", "documents:view"), rbac.ErrInvalidArgument)
	assert.ErrorIs(t, res.GrantContextualPermission("u", "fund", "", "documents:view"), rbac.ErrInvalidArgument)
}

func TestResolver_IdempotentMutations(t *testing.T) {
	t.Parallel()
	res := newResolver(t)

	for range 3 {
		require.NoError(t, res.AssignRole("u", "viewer"))
		require.NoError(t, res.GrantPermission("u", "reports:export"))
	}
	p, ok := res.Profile("u")
	require.True(t, ok)
	assert.Equal(t, []string{"viewer"}, p.Roles)
	assert.Equal(t, []rbac.Permission{"reports:export"}, p.Granted)

	res.RevokePermission("u", "reports:export")
	res.RevokePermission("u", "reports:export")
	assert.False(t, res.Can("u", "reports:export"))
}

func TestResolver_SeedRole(t *testing.T) {
	t.Parallel()
	res := newResolver(t)

	seeded, err := res.SeedRole("u", "viewer")
	require.NoError(t, err)
	assert.True(t, seeded)
	assert.Equal(t, []string{"viewer"}, res.UserRoles("u"))

	// an existing profile wins over the seed, even once it has no roles left
	res.RemoveRole("u", "viewer")
	seeded, err = res.SeedRole("u", "manager")
	require.NoError(t, err)
	assert.False(t, seeded)
	assert.Empty(t, res.UserRoles("u"))

	_, err = res.SeedRole("u2", "ghost")
	assert.ErrorIs(t, err, rbac.ErrInvalidRole)
	_, err = res.SeedRole("", "viewer")
	assert.ErrorIs(t, err, rbac.ErrInvalidArgument)
	_, ok := res.Profile("u2")
	assert.False(t, ok)
}

func TestParsePermissions(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		[]rbac.Permission{"documents:view", "documents:edit"},
		rbac.ParsePermissions(" documents:view", "", "documents:edit ", "  "))
	assert.Empty(t, rbac.ParsePermissions(""))
}

func TestResolver_GetResourcePermissions(t *testing.T) {
	t.Parallel()
	res := newResolver(t)

	require.NoError(t, res.AssignRole("u", "manager"))
	require.NoError(t, res.GrantPermission("u", "reports:export"))
	require.NoError(t, res.GrantContextualPermission("u", "fund", "f-1", "documents:delete"))
	require.NoError(t, res.DenyPermission("u", "documents:edit"))

	assert.Equal(t,
		[]rbac.Permission{"documents:delete", "documents:view", "reports:export"},
		res.GetResourcePermissions("u", "fund", "f-1").Slice())
	assert.Equal(t,
		[]rbac.Permission{"documents:view", "reports:export"},
		res.EffectivePermissions("u").Slice())

	// boolean and set paths agree
	for _, p := range []rbac.Permission{"documents:view", "documents:edit", "documents:delete", "reports:export"} {
		pc := rbac.PermissionContext{ResourceType: "fund", ResourceID: "f-1", Action: p}
		assert.Equal(t, res.HasPermission("u", pc), res.GetResourcePermissions("u", "fund", "f-1").Has(p), p)
	}
}

func TestResolver_HasAnyHasAll(t *testing.T) {
	t.Parallel()
	res := newResolver(t)
	require.NoError(t, res.AssignRole("u", "viewer"))

	assert.True(t, res.HasAny("u", "system:admin", "documents:view"))
	assert.False(t, res.HasAny("u", "system:admin"))
	assert.True(t, res.HasAll("u", "documents:view", "reports:view"))
	assert.False(t, res.HasAll("u", "documents:view", "system:admin"))
	assert.False(t, res.HasAll("u"))
}

func TestResolver_FromContext(t *testing.T) {
	t.Parallel()
	res := newResolver(t)
	require.NoError(t, res.AssignRole("u", "viewer"))

	pc := rbac.PermissionContext{Action: "documents:view"}
	assert.False(t, res.HasPermissionFromContext(context.Background(), pc))

	ctx := rbac.SetUserIDToContext(context.Background(), "u")
	id, ok := rbac.GetUserIDFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "u", id)
	assert.True(t, res.HasPermissionFromContext(ctx, pc))
}

func TestResolver_PersistsThroughStore(t *testing.T) {
	t.Parallel()
	store := rbac.NewMemoryProfileStore()
	res := newResolver(t, rbac.WithStore(store))

	require.NoError(t, res.AssignRole("u1", "manager"))
	require.NoError(t, res.DenyPermission("u1", "documents:edit"))
	require.NoError(t, res.GrantContextualPermission("u1", "fund", "f-1", "documents:delete"))
	require.NoError(t, res.AssignRole("u2", "viewer"))
	res.RemoveProfile("u2")

	require.NoError(t, res.Close(context.Background()))

	stored, err := store.LoadProfiles(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, rbac.Profile{
		UserID: "u1",
		Roles:  []string{"manager"},
		Denied: []rbac.Permission{"documents:edit"},
		Scoped: []rbac.ScopedGrant{{ResourceType: "fund", ResourceID: "f-1", Permissions: []rbac.Permission{"documents:delete"}}},
	}, stored[0])

	// a fresh resolver restores the same decisions
	restored := newResolver(t, rbac.WithStore(store))
	require.NoError(t, restored.Load(context.Background()))
	assert.True(t, restored.Can("u1", "documents:view"))
	assert.False(t, restored.Can("u1", "documents:edit"))
	assert.True(t, restored.HasPermission("u1", rbac.PermissionContext{ResourceType: "fund", ResourceID: "f-1", Action: "documents:delete"}))
	assert.False(t, restored.Can("u2", "documents:view"))
	require.NoError(t, restored.Close(context.Background()))
}

func TestResolver_SharedWriter(t *testing.T) {
	t.Parallel()
	store := rbac.NewMemoryProfileStore()
	w := async.NewWriter()
	res := newResolver(t, rbac.WithStore(store), rbac.WithWriter(w))

	require.NoError(t, res.AssignRole("u", "viewer"))

	// the resolver does not close a writer it does not own
	require.NoError(t, res.Close(context.Background()))
	require.NoError(t, w.Submit(async.Job{Name: "noop", Run: func(context.Context) error { return nil }}))

	require.NoError(t, w.Close(context.Background()))
	assert.Equal(t, 1, store.Len())
}

func TestResolver_ConcurrentAccess(t *testing.T) {
	t.Parallel()
	res := newResolver(t)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			user := fmt.Sprintf("u%d", i%4)
			for j := range 50 {
				perm := rbac.Permission(fmt.Sprintf("custom:%d", j%5))
				_ = res.AssignRole(user, "viewer")
				_ = res.GrantPermission(user, perm)
				_ = res.HasPermission(user, rbac.PermissionContext{Action: perm})
				_ = res.GetResourcePermissions(user, "", "")
				if j%7 == 0 {
					res.RevokePermission(user, perm)
				}
			}
		}()
	}
	wg.Wait()

	for i := range 4 {
		assert.True(t, res.Can(fmt.Sprintf("u%d", i), "documents:view"))
	}
}
