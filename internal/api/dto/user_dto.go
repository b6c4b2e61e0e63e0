package dto

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// UserResponse is the public representation of an account. The password hash
// is never serialised.
type UserResponse struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	Company   string      `json:"company,omitempty"`
	Phone     string      `json:"phone,omitempty"`
	IsActive  bool        `json:"isActive"`
	LastLogin *time.Time  `json:"lastLogin"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// AuthUser is the account summary returned by register and login.
type AuthUser struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Email   string      `json:"email"`
	Role    domain.Role `json:"role"`
	Company string      `json:"company,omitempty"`
}

// RecentUser is an entry in the stats overview.
type RecentUser struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`
}

// UserStatsResponse summarises the account population.
type UserStatsResponse struct {
	Total    int                 `json:"total"`
	Active   int                 `json:"active"`
	Inactive int                 `json:"inactive"`
	ByRole   map[domain.Role]int `json:"byRole"`
	Recent   []RecentUser        `json:"recent"`
}

// NewUserResponse presents u.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		Company:   u.Company,
		Phone:     u.Phone,
		IsActive:  u.IsActive,
		LastLogin: u.LastLogin,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// NewUserResponses presents a slice of users.
func NewUserResponses(users []domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, NewUserResponse(&users[i]))
	}
	return out
}

// NewAuthUser presents the account returned alongside a token.
func NewAuthUser(u *domain.User) AuthUser {
	return AuthUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, Company: u.Company}
}

// NewStaffMembers presents the support directory.
func NewStaffMembers(users []domain.User) []AuthUser {
	out := make([]AuthUser, 0, len(users))
	for i := range users {
		out = append(out, NewAuthUser(&users[i]))
	}
	return out
}

// NewUserStatsResponse presents the stats overview.
func NewUserStatsResponse(total, active, inactive int, byRole map[domain.Role]int, recent []domain.User) UserStatsResponse {
	items := make([]RecentUser, 0, len(recent))
	for _, u := range recent {
		items = append(items, RecentUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt})
	}
	return UserStatsResponse{Total: total, Active: active, Inactive: inactive, ByRole: byRole, Recent: items}
}
