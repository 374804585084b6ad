package audit_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/portalgate/pkg/async"
	"github.com/dmitrymomot/portalgate/pkg/audit"
	"github.com/dmitrymomot/portalgate/pkg/gate"
	"github.com/dmitrymomot/portalgate/pkg/session"
)

type userKey struct{}

func userFromCtx(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userKey{}).(string)
	return v, ok
}

func TestLogger_Log(t *testing.T) {
	t.Parallel()

	store := audit.NewMemoryStorage(0)
	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	l, err := audit.NewLogger(store,
		audit.WithUserIDExtractor(userFromCtx),
		audit.WithClock(func() time.Time { return at }),
	)
	require.NoError(t, err)

	ctx := context.WithValue(context.Background(), userKey{}, "user-1")
	require.NoError(t, l.Log(ctx, audit.ActionRoleChanged,
		audit.WithResource("user", "user-2"),
		audit.WithMetadata("role", "manager"),
	))

	events, err := store.Query(ctx, audit.Criteria{})
	require.NoError(t, err)
	require.Len(t, events, 1)

	e := events[0]
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, audit.ActionRoleChanged, e.Action)
	assert.Equal(t, audit.ResultSuccess, e.Result)
	assert.Equal(t, "user-1", e.UserID)
	assert.Equal(t, "user-2", e.ResourceID)
	assert.Equal(t, at, e.CreatedAt)
	assert.Equal(t, "manager", e.Metadata["role"])
}

func TestLogger_LogError(t *testing.T) {
	t.Parallel()

	store := audit.NewMemoryStorage(0)
	l, err := audit.NewLogger(store)
	require.NoError(t, err)

	require.NoError(t, l.LogError(context.Background(), audit.ActionLoginFailed, errors.New("bad password")))

	events, _ := store.Query(context.Background(), audit.Criteria{Result: audit.ResultError})
	require.Len(t, events, 1)
	assert.Equal(t, "bad password", events[0].Error)
}

func TestLogger_Validation(t *testing.T) {
	t.Parallel()

	_, err := audit.NewLogger(nil)
	assert.ErrorIs(t, err, audit.ErrStorageNotAvailable)

	l, err := audit.NewLogger(audit.NewMemoryStorage(0))
	require.NoError(t, err)
	assert.ErrorIs(t, l.Log(context.Background(), ""), audit.ErrInvalidEvent)
}

func TestLogger_MetadataFilter(t *testing.T) {
	t.Parallel()

	store := audit.NewMemoryStorage(0)
	l, err := audit.NewLogger(store)
	require.NoError(t, err)

	require.NoError(t, l.Log(context.Background(), audit.ActionLoginFailed,
		audit.WithMetadata("password", "hunter2"),
		audit.WithMetadata("email", "lp@example.com"),
		audit.WithMetadata("phone", "+15551234567"),
		audit.WithMetadata("firm", "firm-1"),
	))

	events, _ := store.Query(context.Background(), audit.Criteria{})
	require.Len(t, events, 1)
	md := events[0].Metadata

	assert.NotContains(t, md, "password")
	assert.NotEqual(t, "lp@example.com", md["email"])
	assert.Len(t, md["email"], 16)
	assert.Equal(t, "********4567", md["phone"])
	assert.Equal(t, "firm-1", md["firm"])
}

func TestLogger_Async(t *testing.T) {
	t.Parallel()

	store := audit.NewMemoryStorage(0)
	w := async.NewWriter()
	l, err := audit.NewLogger(store, audit.WithAsync(w))
	require.NoError(t, err)

	for range 5 {
		require.NoError(t, l.Log(context.Background(), audit.ActionSessionCreated))
	}
	require.NoError(t, w.Close(context.Background()))
	assert.Equal(t, 5, store.Len())
}

func TestMemoryStorage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := audit.NewMemoryStorage(3)
	for i, u := range []string{"a", "b", "a", "c"} {
		require.NoError(t, store.Store(ctx, audit.Event{ID: string(rune('0' + i)), Action: "x", UserID: u}))
	}

	assert.Equal(t, 3, store.Len())

	all, _ := store.Query(ctx, audit.Criteria{})
	require.Len(t, all, 3)
	assert.Equal(t, "3", all[0].ID, "newest first")
	assert.Equal(t, "1", all[2].ID, "oldest event dropped")

	onlyA, _ := store.Query(ctx, audit.Criteria{UserID: "a"})
	require.Len(t, onlyA, 1)
	assert.Equal(t, "2", onlyA[0].ID)

	limited, _ := store.Query(ctx, audit.Criteria{Limit: 2})
	assert.Len(t, limited, 2)
}

func TestSessionHook(t *testing.T) {
	t.Parallel()

	store := audit.NewMemoryStorage(0)
	l, err := audit.NewLogger(store)
	require.NoError(t, err)

	ctx := context.Background()
	m := session.New(session.WithHooks(audit.SessionHook(l)), session.WithCleanupInterval(0))
	id, err := m.CreateSession(ctx, session.Data{UserID: "user-1", Role: "investor"})
	require.NoError(t, err)
	m.DestroySession(ctx, id)

	created, _ := store.Query(ctx, audit.Criteria{Action: audit.ActionSessionCreated})
	require.Len(t, created, 1)
	assert.Equal(t, "user-1", created[0].UserID)
	assert.Equal(t, id, created[0].SessionID)
	assert.Equal(t, "investor", created[0].Role)

	destroyed, _ := store.Query(ctx, audit.Criteria{Action: audit.ActionSessionDestroyed})
	require.Len(t, destroyed, 1)
	assert.Equal(t, string(session.ReasonLogout), destroyed[0].Reason)
}

func TestGateObserver(t *testing.T) {
	t.Parallel()

	store := audit.NewMemoryStorage(0)
	l, err := audit.NewLogger(store)
	require.NoError(t, err)
	observe := audit.GateObserver(l)

	r := httptest.NewRequest("GET", "/admin/users", nil)
	r.RemoteAddr = "203.0.113.9:4000"

	observe(r.Context(), r, gate.Decision{Outcome: gate.Forward, Reason: gate.ReasonAuthenticated})
	observe(r.Context(), r, gate.Decision{Outcome: gate.RedirectLogin, Reason: gate.ReasonNoSession})
	assert.Equal(t, 0, store.Len())

	observe(r.Context(), r, gate.Decision{
		Outcome:  gate.RedirectAdminDenied,
		Reason:   gate.ReasonNotAdmin,
		Identity: &gate.Identity{UserID: "user-1", SessionID: "s1", Role: "firm_admin"},
	})

	events, _ := store.Query(r.Context(), audit.Criteria{Action: audit.ActionAccessDenied})
	require.Len(t, events, 1)
	e := events[0]
	assert.Equal(t, audit.ResultFailure, e.Result)
	assert.Equal(t, "not_admin", e.Reason)
	assert.Equal(t, "/admin/users", e.ResourceID)
	assert.Equal(t, "203.0.113.9", e.IP)
	assert.Equal(t, "user-1", e.UserID)
}

func TestMultiStorage(t *testing.T) {
	t.Parallel()

	a, b := audit.NewMemoryStorage(0), audit.NewMemoryStorage(0)
	ms := audit.MultiStorage{a, b, audit.NewSlogStorage(nil)}
	require.NoError(t, ms.Store(context.Background(), audit.Event{Action: "x", Result: audit.ResultSuccess}))
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 1, b.Len())
}
