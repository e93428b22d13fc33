package domain

// Role is the closed set of principal roles. Role-to-permission resolution is
// owned by the authorization-rules subsystem; this core only carries the name.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "client"
	RoleUser   Role = "user"
)

// Identity is an authenticated principal. Owned by the user-management
// subsystem; this core only ever reads it.
type Identity struct {
	ID       string `json:"id"`
	Role     Role   `json:"role"`
	IsActive bool   `json:"is_active"`
	Contact  string `json:"contact,omitempty"` // email, for audit records
}
