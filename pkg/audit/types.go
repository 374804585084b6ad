package audit

import (
	"errors"
	"time"
)

// Result represents the outcome of an audited action.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
	ResultError   Result = "error"
)

// Actions recorded by the hooks in this package and by the portal API.
const (
	ActionSessionCreated       = "session.created"
	ActionSessionDestroyed     = "session.destroyed"
	ActionSessionMFAVerified   = "session.mfa_verified"
	ActionSessionDeviceTrusted = "session.device_trusted"
	ActionAccessDenied         = "gate.denied"
	ActionLoginFailed          = "auth.login_failed"
	ActionDemoIssued           = "auth.demo_issued"
	ActionPermissionChanged    = "rbac.permission_changed"
	ActionRoleChanged          = "rbac.role_changed"
)

// Event is a single audit log entry.
type Event struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	Result     Result         `json:"result"`
	Reason     string         `json:"reason,omitempty"`
	UserID     string         `json:"user_id,omitempty"`
	SessionID  string         `json:"session_id,omitempty"`
	Role       string         `json:"role,omitempty"`
	Resource   string         `json:"resource,omitempty"`
	ResourceID string         `json:"resource_id,omitempty"`
	Error      string         `json:"error,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	IP         string         `json:"ip,omitempty"`
	UserAgent  string         `json:"user_agent,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Validate checks if the event has all required fields.
func (e *Event) Validate() error {
	if e.Action == "" {
		return errors.Join(ErrInvalidEvent, errors.New("action is required"))
	}
	return nil
}

// EventOption applies configuration to an Event during creation.
type EventOption func(*Event)

// WithResource sets the resource type and ID.
func WithResource(resource, id string) EventOption {
	return func(e *Event) {
		e.Resource = resource
		e.ResourceID = id
	}
}

// WithMetadata adds a metadata key to the event.
func WithMetadata(key string, value any) EventOption {
	return func(e *Event) {
		if e.Metadata == nil {
			e.Metadata = make(map[string]any)
		}
		e.Metadata[key] = value
	}
}

// WithResult sets the event outcome.
func WithResult(result Result) EventOption {
	return func(e *Event) { e.Result = result }
}

// WithReason explains a failure or denial.
func WithReason(reason string) EventOption {
	return func(e *Event) { e.Reason = reason }
}

// WithActor sets the user, session and role explicitly, overriding the
// context extractors.
func WithActor(userID, sessionID, role string) EventOption {
	return func(e *Event) {
		if userID != "" {
			e.UserID = userID
		}
		if sessionID != "" {
			e.SessionID = sessionID
		}
		if role != "" {
			e.Role = role
		}
	}
}

// WithClient sets the client address and user agent.
func WithClient(ip, userAgent string) EventOption {
	return func(e *Event) {
		e.IP = ip
		e.UserAgent = userAgent
	}
}

// WithTime overrides the event timestamp.
func WithTime(t time.Time) EventOption {
	return func(e *Event) {
		if !t.IsZero() {
			e.CreatedAt = t
		}
	}
}
