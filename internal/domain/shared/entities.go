package shared

import (
	"github.com/google/uuid"
)

// Role is the coarse authorization role supplied by the identity service
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User represents an authenticated user as supplied by the external identity
// service. The auction engine only reads users; it never creates or edits
// them outside of seed helpers.
type User struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Role     Role      `json:"role"`
	Phone    string    `json:"phone,omitempty"`
	WhatsApp string    `json:"whatsapp,omitempty"`
}

// IsAdmin returns true if the user carries the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Identity is the per-request caller identity extracted from the bearer
// token. It is passed explicitly into services and sessions; there is no
// process-wide ambient auth state.
type Identity struct {
	UserID uuid.UUID
	Role   Role
}

// IsAdmin returns true if the identity carries the admin role
func (id Identity) IsAdmin() bool {
	return id.Role == RoleAdmin
}
