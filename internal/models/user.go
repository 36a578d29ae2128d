package models

import "time"

// Role is the workspace access level carried by invitations and users.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

var recognizedRoles = map[Role]struct{}{
	RoleOwner:  {},
	RoleAdmin:  {},
	RoleMember: {},
	RoleViewer: {},
}

// IsValidRole reports whether r is one of the recognized roles.
func IsValidRole(r Role) bool {
	_, ok := recognizedRoles[r]
	return ok
}

// CanManageExpiry reports whether the role may extend invitation deadlines.
func (r Role) CanManageExpiry() bool {
	return r == RoleOwner || r == RoleAdmin
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}
