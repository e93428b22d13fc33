package domain

import "time"

// AlertSeverity orders security alerts by urgency.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// Escalates reports whether an alert of this severity must block the session
// it is tied to.
func (s AlertSeverity) Escalates() bool {
	return s == SeverityHigh || s == SeverityCritical
}

// SecurityAlert is a stored anomaly tied to an identity and optionally a
// session. Detection heuristics live in collaborating subsystems; this core
// stores alerts and tracks their resolution. Resolved exactly once; immutable
// afterwards except for the resolution fields.
type SecurityAlert struct {
	ID         string `json:"id"`
	IdentityID string `json:"identity_id"`
	SessionID  string `json:"session_id,omitempty"`

	AlertType   string        `json:"alert_type"`
	Severity    AlertSeverity `json:"severity"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`

	SourceAddress string         `json:"source_address,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`

	IsResolved bool       `json:"is_resolved"`
	ResolvedBy string     `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
