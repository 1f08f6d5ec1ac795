package domain

import (
	"time"
)

// APIKeyPrefix distinguishes machine credentials from JWTs in the
// Authorization header. Issued keys always start with it.
const APIKeyPrefix = "gk_"

// APIKey is a machine credential. Only the SHA-256 hash of the key is
// stored; the raw value is shown once at creation time.
type APIKey struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Name       string     `json:"name"`       // Human-readable label, e.g. "ci-deploy-key"
	KeyHash    string     `json:"-"`          // SHA-256 hash of the key (never store raw)
	KeyPrefix  string     `json:"key_prefix"` // First 8 chars for identification
	Role       Role       `json:"role"`
	Active     bool       `json:"active"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// Identity is the resolved principal of an authenticated request.
type Identity struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}
