package domain

import "time"

// Role enumerates the closed set of account roles.
type Role string

const (
	RoleUser    Role = "user"
	RoleSupport Role = "support"
	RoleAdmin   Role = "admin"
)

// Roles lists every role in display order.
var Roles = []Role{RoleUser, RoleSupport, RoleAdmin}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleSupport, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role belongs to support or admin staff.
func (r Role) IsStaff() bool {
	return r == RoleSupport || r == RoleAdmin
}

// User is an account that can file or work tickets.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Company      string
	Phone        string
	IsActive     bool
	LastLogin    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
