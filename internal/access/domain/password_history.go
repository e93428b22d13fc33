package domain

import "time"

// PasswordHistory is an append-only record of a password hash at the time it
// was set. Used only for reuse prevention; a plaintext can never be
// reconstructed from it.
type PasswordHistory struct {
	ID         string `json:"id"`
	IdentityID string `json:"identity_id"`

	// PasswordHash is the PHC-encoded argon2id hash.
	PasswordHash string `json:"-"`

	ChangedByUser bool   `json:"changed_by_user"`
	SourceAddress string `json:"source_address,omitempty"`
	ClientAgent   string `json:"client_agent,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
