package session

import (
	"cmp"
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/dmitrymomot/portalgate/pkg/async"
	"github.com/dmitrymomot/portalgate/pkg/logger"
)

// Manager owns the session table and the per-user session index.
// Both are guarded by one lock, so count-evict-insert on create and
// check-then-touch on validate are atomic. Durable writes are queued on an
// async.Writer after the in-memory state changes and never block callers.
type Manager struct {
	config     Config
	store      Store
	writer     *async.Writer
	ownsWriter bool
	now        func() time.Time
	log        *slog.Logger
	hooks      []Hook
	sensitive  map[string]struct{}

	mu       sync.RWMutex
	sessions map[string]*entry
	byUser   map[string]map[string]struct{}
	seq      uint64
}

// entry wraps a record with its creation sequence, which breaks ties
// between sessions with the same LastActivity during eviction.
type entry struct {
	rec         Record
	seq         uint64
	persistedAt time.Time
}

// New creates a new session manager with the given options
func New(opts ...Option) *Manager {
	m := &Manager{
		config:   DefaultConfig(),
		now:      time.Now,
		log:      logger.Discard(),
		sessions: make(map[string]*entry),
		byUser:   make(map[string]map[string]struct{}),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.log = m.log.With(logger.Component("session"))
	m.sensitive = make(map[string]struct{}, len(m.config.SensitiveActions))
	for _, a := range m.config.SensitiveActions {
		m.sensitive[a] = struct{}{}
	}

	if m.store != nil && m.writer == nil {
		m.writer = async.NewWriter(async.WithLogger(m.log))
		m.ownsWriter = true
	}

	return m
}

// Config returns the policy the manager runs with.
func (m *Manager) Config() Config {
	return m.config
}

// CreateSession registers a new session for data.UserID and returns its id.
// When the user already holds MaxConcurrentSessions sessions, the least
// recently active ones are destroyed first (ties go to the oldest created).
func (m *Manager) CreateSession(ctx context.Context, data Data) (string, error) {
	if data.UserID == "" {
		return "", errors.Join(ErrInvalidData, errors.New("user id is required"))
	}

	id, err := generateToken()
	if err != nil {
		return "", err
	}

	now := m.now()
	rec := Record{
		ID:                id,
		UserID:            data.UserID,
		Role:              data.Role,
		Email:             data.Email,
		FirmID:            data.FirmID,
		DeviceFingerprint: data.DeviceFingerprint,
		IPAddress:         data.IPAddress,
		UserAgent:         data.UserAgent,
		CreatedAt:         now,
		LastActivity:      now,
		ExpiresAt:         now.Add(m.config.MaxAge),
		MFAVerified:       data.MFAVerified,
		TrustedDevice:     data.TrustedDevice,
		Permissions:       slices.Clone(data.Permissions),
		Metadata:          maps.Clone(data.Metadata),
	}

	var events []Event

	m.mu.Lock()
	if limit := m.config.MaxConcurrentSessions; limit > 0 {
		for len(m.byUser[rec.UserID]) >= limit {
			victim, ok := m.leastRecentlyActiveLocked(rec.UserID)
			if !ok {
				break
			}
			if ev, ok := m.removeLocked(victim, ReasonEvicted, now); ok {
				events = append(events, ev)
			}
		}
	}

	m.seq++
	m.sessions[id] = &entry{rec: rec, seq: m.seq, persistedAt: now}
	m.indexLocked(rec.UserID, id)
	m.persistSaveLocked(rec)
	m.mu.Unlock()

	events = append(events, newEvent(EventCreated, "", rec, now))
	m.emit(ctx, events...)

	return id, nil
}

// ValidateSession returns a copy of the session and extends its activity
// window. Unknown ids yield nil. Expired or idle sessions are destroyed and
// yield nil.
func (m *Manager) ValidateSession(ctx context.Context, id string) *Record {
	if id == "" {
		return nil
	}
	now := m.now()

	m.mu.Lock()
	e, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return nil
	}

	if reason := m.endReason(e.rec, now); reason != "" {
		ev, _ := m.removeLocked(id, reason, now)
		m.mu.Unlock()
		m.emit(ctx, ev)
		return nil
	}

	e.rec.touch(now)
	if m.config.ActivityPersistThreshold <= 0 || now.Sub(e.persistedAt) >= m.config.ActivityPersistThreshold {
		m.persistSaveLocked(e.rec)
		e.persistedAt = now
	}
	rec := e.rec.Clone()
	m.mu.Unlock()

	return &rec
}

// DestroySession ends a session on logout. Unknown ids are ignored.
func (m *Manager) DestroySession(ctx context.Context, id string) {
	m.destroy(ctx, id, ReasonLogout)
}

// RevokeSession ends a session on behalf of its owner or an administrator.
func (m *Manager) RevokeSession(ctx context.Context, id string) {
	m.destroy(ctx, id, ReasonRevoked)
}

func (m *Manager) destroy(ctx context.Context, id string, reason Reason) {
	now := m.now()

	m.mu.Lock()
	ev, ok := m.removeLocked(id, reason, now)
	m.mu.Unlock()

	if ok {
		m.emit(ctx, ev)
	}
}

// DestroyAllUserSessions ends every session of the user and returns how
// many were removed.
func (m *Manager) DestroyAllUserSessions(ctx context.Context, userID string) int {
	now := m.now()
	var events []Event

	m.mu.Lock()
	for id := range m.byUser[userID] {
		if ev, ok := m.removeLocked(id, ReasonRevoked, now); ok {
			events = append(events, ev)
		}
	}
	// drop the entry even if it only held stale ids
	delete(m.byUser, userID)
	m.mu.Unlock()

	m.emit(ctx, events...)
	return len(events)
}

// GetUserSessions returns copies of the user's sessions, oldest first.
func (m *Manager) GetUserSessions(userID string) []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.byUser[userID]
	entries := make([]*entry, 0, len(ids))
	for id := range ids {
		if e, ok := m.sessions[id]; ok {
			entries = append(entries, e)
		}
	}
	slices.SortFunc(entries, func(a, b *entry) int {
		return cmp.Compare(a.seq, b.seq)
	})

	out := make([]Record, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.rec.Clone())
	}
	return out
}

// UpdateMFAStatus sets the MFA flag of a session and counts as activity.
// It reports whether the session exists and is still usable; an expired or
// idle session is destroyed instead.
func (m *Manager) UpdateMFAStatus(ctx context.Context, id string, verified bool) bool {
	return m.update(ctx, id, EventMFAVerified, verified, func(r *Record) {
		r.MFAVerified = verified
	})
}

// MarkTrustedDevice flags the session as running on a trusted device,
// which satisfies MFA-protected routes.
func (m *Manager) MarkTrustedDevice(ctx context.Context, id string) bool {
	return m.update(ctx, id, EventDeviceTrusted, true, func(r *Record) {
		r.TrustedDevice = true
	})
}

func (m *Manager) update(ctx context.Context, id string, evt EventType, notify bool, fn func(r *Record)) bool {
	now := m.now()

	m.mu.Lock()
	e, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return false
	}
	if reason := m.endReason(e.rec, now); reason != "" {
		ev, _ := m.removeLocked(id, reason, now)
		m.mu.Unlock()
		m.emit(ctx, ev)
		return false
	}
	fn(&e.rec)
	e.rec.touch(now)
	m.persistSaveLocked(e.rec)
	e.persistedAt = now
	rec := e.rec
	m.mu.Unlock()

	if notify {
		m.emit(ctx, newEvent(evt, "", rec, now))
	}
	return true
}

// endReason returns why rec can no longer be used at now, or "" while it
// is active.
func (m *Manager) endReason(rec Record, now time.Time) Reason {
	switch {
	case rec.IsExpired(now):
		return ReasonExpired
	case rec.IsIdle(now, m.config.MaxInactivity):
		return ReasonIdle
	}
	return ""
}

// RequiresMFAForAction reports whether the action needs MFA verification
// that the session does not have yet. It is true only when MFA enforcement
// is on and the action is sensitive.
func (m *Manager) RequiresMFAForAction(rec *Record, action string) bool {
	if !m.config.RequireMFA {
		return false
	}
	if _, ok := m.sensitive[action]; !ok {
		return false
	}
	return rec == nil || !rec.MFAVerified
}

// CleanupExpiredSessions destroys every session past its expiry and returns
// the number removed. Ids are collected first; each removal takes the lock
// on its own so a large sweep does not stall request handling.
func (m *Manager) CleanupExpiredSessions(ctx context.Context) int {
	now := m.now()

	m.mu.RLock()
	ids := make([]string, 0)
	for id, e := range m.sessions {
		if e.rec.IsExpired(now) {
			ids = append(ids, id)
		}
	}
	m.mu.RUnlock()

	events := make([]Event, 0, len(ids))
	for _, id := range ids {
		m.mu.Lock()
		if e, ok := m.sessions[id]; ok && e.rec.IsExpired(now) {
			if ev, ok := m.removeLocked(id, ReasonExpired, now); ok {
				events = append(events, ev)
			}
		}
		m.mu.Unlock()
	}

	m.emit(ctx, events...)
	if len(events) > 0 {
		m.log.DebugContext(ctx, "expired sessions removed", slog.Int("count", len(events)))
	}
	return len(events)
}

// RunCleanup calls CleanupExpiredSessions every CleanupInterval until ctx
// is done. It returns nil on cancellation so it can run under an errgroup.
func (m *Manager) RunCleanup(ctx context.Context) error {
	if m.config.CleanupInterval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(m.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.CleanupExpiredSessions(ctx)
		}
	}
}

// Load restores sessions from the store. Expired and idle records are
// deleted from the store instead of being restored.
func (m *Manager) Load(ctx context.Context) error {
	if m.store == nil {
		return nil
	}

	records, err := m.store.LoadAll(ctx)
	if err != nil {
		return errors.Join(ErrStoreFailure, fmt.Errorf("load sessions: %w", err))
	}
	slices.SortFunc(records, func(a, b Record) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	now := m.now()
	restored := 0

	m.mu.Lock()
	for _, rec := range records {
		if rec.ID == "" || rec.UserID == "" {
			continue
		}
		if _, exists := m.sessions[rec.ID]; exists {
			continue
		}
		if rec.IsExpired(now) || rec.IsIdle(now, m.config.MaxInactivity) {
			m.persistDeleteLocked(rec.ID)
			continue
		}
		m.seq++
		m.sessions[rec.ID] = &entry{rec: rec.Clone(), seq: m.seq, persistedAt: now}
		m.indexLocked(rec.UserID, rec.ID)
		restored++
	}
	m.mu.Unlock()

	m.log.InfoContext(ctx, "sessions restored", slog.Int("count", restored), slog.Int("stored", len(records)))
	return nil
}

// ActiveCount returns the number of sessions in the table.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close flushes pending writes when the manager owns its queue.
func (m *Manager) Close(ctx context.Context) error {
	if m.ownsWriter {
		return m.writer.Close(ctx)
	}
	return nil
}

// leastRecentlyActiveLocked picks the eviction victim for a user. Index ids
// without a table entry are dropped on the way.
func (m *Manager) leastRecentlyActiveLocked(userID string) (string, bool) {
	var victim *entry
	for id := range m.byUser[userID] {
		e, ok := m.sessions[id]
		if !ok {
			m.log.Error("session index out of sync, dropping id",
				logger.UserID(userID), logger.SessionID(id))
			m.unindexLocked(userID, id)
			continue
		}
		if victim == nil || olderActivity(e, victim) {
			victim = e
		}
	}
	if victim == nil {
		return "", false
	}
	return victim.rec.ID, true
}

func olderActivity(a, b *entry) bool {
	if c := a.rec.LastActivity.Compare(b.rec.LastActivity); c != 0 {
		return c < 0
	}
	return a.seq < b.seq
}

// removeLocked deletes the session from the table and the index and queues
// the durable delete.
func (m *Manager) removeLocked(id string, reason Reason, now time.Time) (Event, bool) {
	e, ok := m.sessions[id]
	if !ok {
		return Event{}, false
	}
	delete(m.sessions, id)
	m.unindexLocked(e.rec.UserID, id)
	m.persistDeleteLocked(id)
	return newEvent(EventDestroyed, reason, e.rec, now), true
}

func (m *Manager) indexLocked(userID, id string) {
	ids, ok := m.byUser[userID]
	if !ok {
		ids = make(map[string]struct{})
		m.byUser[userID] = ids
	}
	ids[id] = struct{}{}
}

func (m *Manager) unindexLocked(userID, id string) {
	ids, ok := m.byUser[userID]
	if !ok {
		return
	}
	delete(ids, id)
	if len(ids) == 0 {
		delete(m.byUser, userID)
	}
}

// persistSaveLocked and persistDeleteLocked run with m.mu held so queued
// writes for one session keep their order.
func (m *Manager) persistSaveLocked(rec Record) {
	if m.store == nil {
		return
	}
	snap := rec.Clone()
	err := m.writer.Submit(async.Job{
		Name: "session.save",
		Run: func(ctx context.Context) error {
			return m.store.Save(ctx, snap)
		},
	})
	if err != nil {
		m.log.Warn("session write not queued", logger.SessionID(rec.ID), logger.Error(err))
	}
}

func (m *Manager) persistDeleteLocked(id string) {
	if m.store == nil {
		return
	}
	err := m.writer.Submit(async.Job{
		Name: "session.delete",
		Run: func(ctx context.Context) error {
			return m.store.Delete(ctx, id)
		},
	})
	if err != nil {
		m.log.Warn("session delete not queued", logger.SessionID(id), logger.Error(err))
	}
}

func (m *Manager) emit(ctx context.Context, events ...Event) {
	for _, ev := range events {
		switch ev.Type {
		case EventDestroyed:
			m.log.InfoContext(ctx, "session destroyed",
				logger.SessionID(ev.SessionID),
				logger.UserID(ev.UserID),
				logger.Reason(string(ev.Reason)),
			)
		case EventCreated:
			m.log.InfoContext(ctx, "session created",
				logger.SessionID(ev.SessionID),
				logger.UserID(ev.UserID),
				logger.Role(ev.Role),
			)
		default:
			m.log.DebugContext(ctx, "session updated",
				logger.SessionID(ev.SessionID),
				logger.Event(string(ev.Type)),
			)
		}
		for _, h := range m.hooks {
			h(ctx, ev)
		}
	}
}

// generateToken creates a cryptographically secure session id
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(ErrTokenGeneration, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
