// Package domain contains the core business entities for gatekeep.
package domain

import (
	"time"
)

// Role controls what a caller may do through the management API.
type Role string

const (
	// RoleAdmin has full access, including user management and audit logs.
	RoleAdmin Role = "admin"
	// RoleUser may manage only its own resources.
	RoleUser Role = "user"
)

// ValidRole reports whether r is a known role.
func ValidRole(r Role) bool {
	return r == RoleAdmin || r == RoleUser
}

// User is an account holder. Users are never hard-deleted; revocation
// flips Active off so audit rows keep a resolvable identity.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // bcrypt hash, never serialized
	Role         Role      `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Todo is the sample business entity gated by the accounting core.
type Todo struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Done        bool      `json:"done"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
