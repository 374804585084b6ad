package session

import (
	"maps"
	"slices"
	"time"
)

// Record is an authenticated user session.
//
// ExpiresAt is fixed at creation to CreatedAt + MaxAge. LastActivity only
// moves forward. A record is usable while now < ExpiresAt and
// now - LastActivity < MaxInactivity.
type Record struct {
	ID                string         `json:"id"`
	UserID            string         `json:"user_id"`
	Role              string         `json:"role"`
	Email             string         `json:"email,omitempty"`
	FirmID            string         `json:"firm_id,omitempty"`
	DeviceFingerprint string         `json:"device_fingerprint,omitempty"`
	IPAddress         string         `json:"ip_address,omitempty"`
	UserAgent         string         `json:"user_agent,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	LastActivity      time.Time      `json:"last_activity"`
	ExpiresAt         time.Time      `json:"expires_at"`
	MFAVerified       bool           `json:"mfa_verified"`
	TrustedDevice     bool           `json:"trusted_device"`
	Permissions       []string       `json:"permissions,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

// Data describes the session to create. Timestamps and the id are
// assigned by the Manager.
type Data struct {
	UserID            string
	Role              string
	Email             string
	FirmID            string
	DeviceFingerprint string
	IPAddress         string
	UserAgent         string
	MFAVerified       bool
	TrustedDevice     bool
	Permissions       []string
	Metadata          map[string]any
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	r.Permissions = slices.Clone(r.Permissions)
	r.Metadata = maps.Clone(r.Metadata)
	return r
}

// IsExpired reports whether the absolute lifetime has ended at now.
func (r Record) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// IsIdle reports whether the inactivity window has elapsed at now.
// A non-positive window disables the check.
func (r Record) IsIdle(now time.Time, maxInactivity time.Duration) bool {
	return maxInactivity > 0 && now.Sub(r.LastActivity) >= maxInactivity
}

// MFASatisfied reports whether the session passed MFA or runs on a trusted device.
func (r Record) MFASatisfied() bool {
	return r.MFAVerified || r.TrustedDevice
}

// HasPermission reports whether the permission was part of the snapshot
// taken at login.
func (r Record) HasPermission(p string) bool {
	return slices.Contains(r.Permissions, p)
}

// touch advances LastActivity, never moving it backwards.
func (r *Record) touch(now time.Time) {
	if now.After(r.LastActivity) {
		r.LastActivity = now
	}
}
