package domain

import (
	"time"
)

// Assignment records one custody transfer of a key. Rows are append-mostly:
// created open by an assign, closed exactly once by a return, then immutable
// forever as audit history.
//
// Single-holder invariant: for any key, at most one Assignment with a nil
// ReturnedAt may exist at any instant. Enforced by a partial unique index in
// the backing store, not by application-level checks.
type Assignment struct {
	ID         int64      `json:"id"`
	KeyID      int64      `json:"key_id"`
	AssignedTo int64      `json:"assigned_to"`
	AssignedBy int64      `json:"assigned_by"`
	AssignedAt time.Time  `json:"assigned_at"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`

	// Joined display fields (populated by history queries).
	AssignedToEmail string `json:"assigned_to_email,omitempty"`
	AssignedByEmail string `json:"assigned_by_email,omitempty"`
}

// Open reports whether the key is still out with its holder.
func (a *Assignment) Open() bool {
	return a.ReturnedAt == nil
}
