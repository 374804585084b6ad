// Package audit records security-relevant access events: session
// lifecycle transitions, gate denials, failed logins and permission
// changes.
//
// A Logger turns calls into Events (uuid ids, context-derived actor,
// filtered metadata) and stores them in a Storage. MemoryStorage keeps a
// queryable window, SlogStorage emits structured log records, MultiStorage
// fans out to several. WithAsync moves storage writes onto an async.Writer.
//
//	store := audit.NewMemoryStorage(10_000)
//	al, _ := audit.NewLogger(audit.MultiStorage{store, audit.NewSlogStorage(log)}, audit.WithAsync(nil))
//	defer al.Close(ctx)
//
//	sessions := session.New(session.WithHooks(audit.SessionHook(al)))
//	g, _ := gate.New(cfg, cookies, sessions, resolver, gate.WithObservers(audit.GateObserver(al)))
package audit
