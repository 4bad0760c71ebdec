package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is the permission level of a user.
type Role string

// Role constants.
const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// User is an account. Moderators and admins are the handlers tickets get assigned to.
// Handlers are provisioned out of band; triage only reads them.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Skills    []string  `json:"skills"`
	CreatedAt time.Time `json:"created_at"`
}

// IsHandler reports whether the user may be assigned tickets.
func (u *User) IsHandler() bool {
	return u.Role == RoleModerator || u.Role == RoleAdmin
}
