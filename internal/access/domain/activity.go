package domain

import "time"

// ActivityType classifies a SessionActivity row. The set is open; these are
// the values this core emits.
type ActivityType string

const (
	ActivityRequest        ActivityType = "request"
	ActivityLogin          ActivityType = "login"
	ActivityLogout         ActivityType = "logout"
	ActivityRefresh        ActivityType = "refresh"
	ActivityPasswordChange ActivityType = "password_change"
	ActivityFlagged        ActivityType = "flagged"
)

// SessionActivity is one append-only row per notable request against a
// session, written on every authorization decision point, allow and deny
// alike. Never mutated after creation.
type SessionActivity struct {
	ID         string `json:"id"`
	SessionID  string `json:"session_id,omitempty"`
	IdentityID string `json:"identity_id,omitempty"` // denormalized for query convenience

	ActivityType ActivityType `json:"activity_type"`
	Endpoint     string       `json:"endpoint"`
	Method       string       `json:"method"`
	Query        string       `json:"query,omitempty"`

	SourceAddress string `json:"source_address,omitempty"`
	ClientAgent   string `json:"client_agent,omitempty"`

	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message,omitempty"`
	StatusCode   int    `json:"status_code,omitempty"`
	DurationMS   int64  `json:"duration_ms,omitempty"`

	// Metadata is a schema-less key-value blob. Known keys include
	// "permission", "resource_type" and "resource_id", but the set is open.
	Metadata map[string]any `json:"metadata,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}
