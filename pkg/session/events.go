package session

import (
	"context"
	"time"
)

// EventType names a session lifecycle transition.
type EventType string

const (
	EventCreated       EventType = "session.created"
	EventDestroyed     EventType = "session.destroyed"
	EventMFAVerified   EventType = "session.mfa_verified"
	EventDeviceTrusted EventType = "session.device_trusted"
)

// Reason explains why a session was destroyed.
type Reason string

const (
	ReasonLogout  Reason = "logout"
	ReasonEvicted Reason = "evicted"
	ReasonExpired Reason = "expired"
	ReasonIdle    Reason = "idle_timeout"
	ReasonRevoked Reason = "revoked"
)

// Event describes a lifecycle transition of one session.
type Event struct {
	Type      EventType
	Reason    Reason
	SessionID string
	UserID    string
	Role      string
	At        time.Time
}

// Hook observes lifecycle events. Hooks run synchronously after the
// Manager has released its lock and must not block.
type Hook func(ctx context.Context, e Event)

func newEvent(t EventType, reason Reason, rec Record, at time.Time) Event {
	return Event{
		Type:      t,
		Reason:    reason,
		SessionID: rec.ID,
		UserID:    rec.UserID,
		Role:      rec.Role,
		At:        at,
	}
}
