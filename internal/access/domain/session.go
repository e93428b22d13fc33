package domain

import "time"

// SessionStatus is the lifecycle state of a login session.
type SessionStatus string

const (
	SessionActive     SessionStatus = "active"
	SessionExpired    SessionStatus = "expired"
	SessionTerminated SessionStatus = "terminated"
	SessionBlocked    SessionStatus = "blocked"
)

// Terminal reports whether the status can never be left again.
func (s SessionStatus) Terminal() bool {
	return s == SessionTerminated || s == SessionBlocked
}

// DeviceType classifies the client device a session was opened from.
type DeviceType string

const (
	DeviceDesktop DeviceType = "desktop"
	DeviceMobile  DeviceType = "mobile"
	DeviceTablet  DeviceType = "tablet"
	DeviceUnknown DeviceType = "unknown"
)

// Session represents one authenticated device/browser instance. The id doubles
// as the session token identifier carried in access credentials.
type Session struct {
	ID         string        `json:"id"`
	IdentityID string        `json:"identity_id"`
	Status     SessionStatus `json:"status"`

	// Role is the identity's role captured at creation. Access tokens minted
	// for this session always carry this role, never a caller-asserted one.
	Role Role `json:"role"`

	// RefreshFingerprint is the SHA-256 fingerprint of the opaque refresh
	// credential; the credential itself is never stored.
	RefreshFingerprint string `json:"-"`

	DeviceType        DeviceType `json:"device_type"`
	DeviceFingerprint string     `json:"device_fingerprint,omitempty"`
	ClientAgent       string     `json:"client_agent,omitempty"`
	SourceAddress     string     `json:"source_address,omitempty"`
	ApproxLocation    string     `json:"approx_location,omitempty"`

	IsSuspicious       bool `json:"is_suspicious"`
	FailedAttemptCount int  `json:"failed_attempt_count"`

	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// IsLive reports whether the session may authorize requests: status active and
// not yet past its expiry. No other code path may treat a session as live.
func (s Session) IsLive(now time.Time) bool {
	return s.Status == SessionActive && now.Before(s.ExpiresAt)
}

// DeviceInfo is the descriptive client metadata captured at session creation.
type DeviceInfo struct {
	DeviceType        DeviceType `json:"device_type"`
	DeviceFingerprint string     `json:"device_fingerprint,omitempty"`
	ClientAgent       string     `json:"client_agent,omitempty"`
	SourceAddress     string     `json:"source_address,omitempty"`
	ApproxLocation    string     `json:"approx_location,omitempty"`
}

// Normalize maps unrecognised device types to DeviceUnknown.
func (d DeviceInfo) Normalize() DeviceInfo {
	switch d.DeviceType {
	case DeviceDesktop, DeviceMobile, DeviceTablet:
	default:
		d.DeviceType = DeviceUnknown
	}
	return d
}
