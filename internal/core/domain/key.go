// Package domain contains the core business entities for keyward.
package domain

import (
	"time"
)

// Key is a physical or logical asset under custody tracking (badge, device,
// credential). The registry owns the catalog; the ledger only references keys.
type Key struct {
	ID        int64     `json:"id"`
	Label     string    `json:"label"` // e.g. "K-100"
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`

	// Assigned reports whether an open assignment currently exists for the
	// key. Populated by list queries, not stored.
	Assigned bool `json:"assigned"`
}

// User is a member of the population keys are assigned to. Records are owned
// by the identity collaborator; the ledger references user ids as holder and
// actor but never mutates them.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
