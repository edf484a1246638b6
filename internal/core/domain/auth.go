package domain

import (
	"time"
)

type Role string

const (
	RoleAdmin  Role = "admin"  // registry management plus everything below
	RoleIssuer Role = "issuer" // assign/return keys, read access
	RoleReader Role = "reader" // read-only access
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleIssuer, RoleReader:
		return true
	}
	return false
}

// APIToken is a bearer credential tied to a user identity. The raw token is
// shown once at mint time; only its SHA-256 hash is stored.
type APIToken struct {
	ID          string     `json:"id"`
	UserID      int64      `json:"user_id"`
	Name        string     `json:"name"`         // human-readable label, e.g. "front-desk"
	TokenHash   string     `json:"-"`            // SHA-256 hash of the token (never store raw)
	TokenPrefix string     `json:"token_prefix"` // first 8 chars for identification
	Role        Role       `json:"role"`
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}
