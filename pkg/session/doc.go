// Package session manages authenticated portal sessions.
//
// A Manager keeps every live session in memory together with a per-user
// index. Sessions have an absolute lifetime (MaxAge) and an inactivity
// window (MaxInactivity); each user may hold at most MaxConcurrentSessions,
// and creating one more evicts the least recently active session.
//
// # Lifecycle
//
//	Active ──► Expired ───────┐
//	   │                      ├──► Destroyed
//	   ├────► Idle-Timed-Out ─┘
//	   └──────────────────────────► Destroyed (logout, eviction, revoke)
//
// ValidateSession is the only read path. It either extends the session or
// destroys it; there is no read-only lookup by id. Destroyed sessions never
// come back; a new login always creates a new record.
//
// # Persistence
//
// A Store (memory, Redis or Postgres) receives writes in the background
// through an async.Writer. The in-memory table is the source of truth and is
// updated before a write is queued, so a slow or failing store never changes
// a decision. Load restores live sessions at startup.
//
// # Usage
//
//	mgr := session.NewFromConfig(cfg,
//		session.WithStore(redis.NewSessionStore(client)),
//		session.WithLogger(log),
//	)
//	if err := mgr.Load(ctx); err != nil {
//		return err
//	}
//	go mgr.RunCleanup(ctx)
//
//	id, err := mgr.CreateSession(ctx, session.Data{UserID: "u-1", Role: "investor"})
//	rec := mgr.ValidateSession(ctx, id) // nil when expired or idle
//
// Lifecycle events can be observed with WithHooks, which is how metrics and
// the audit trail are attached.
package session
