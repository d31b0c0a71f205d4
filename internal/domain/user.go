package domain

import "time"

// Role represents a user's role in the marketplace.
type Role string

// Roles.
const (
	RoleCandidate Role = "candidate"
	RoleEmployer  Role = "employer"
	RoleAdmin     Role = "admin"
)

// IsValid checks if the role is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleCandidate, RoleEmployer, RoleAdmin:
		return true
	}
	return false
}

// IsSelfAssignable reports whether a user may switch themself to this role.
// Admin is never reachable through self-service.
func (r Role) IsSelfAssignable() bool {
	return r == RoleCandidate || r == RoleEmployer
}

// User represents a registered account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	ResumeURL    string    `json:"resume_url"`
	IsVerified   bool      `json:"is_verified"`
	IsFlagged    bool      `json:"is_flagged"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin returns true if the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
