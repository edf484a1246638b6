package domain

import "errors"

// Sentinel errors for the custody ledger and its collaborators. Handlers and
// services match these with errors.Is; the repository maps storage-level
// constraint violations onto them so callers never see driver errors.
var (
	// ErrUnauthenticated means the request carried no valid bearer token.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrKeyNotFound means the referenced key does not exist in the registry.
	ErrKeyNotFound = errors.New("key not found")

	// ErrKeyRetired means the key exists but is no longer active.
	ErrKeyRetired = errors.New("key is retired")

	// ErrKeyAlreadyAssigned means an open assignment already exists for the key.
	// This is an expected, frequent outcome under contention, not a fault.
	ErrKeyAlreadyAssigned = errors.New("key already assigned")

	// ErrInvalidHolder means the requested holder user id does not exist.
	ErrInvalidHolder = errors.New("holder does not exist")

	// ErrInvalidActor means the acting user id does not exist.
	ErrInvalidActor = errors.New("actor does not exist")

	// ErrNoOpenAssignment means a return targeted a key with nothing out.
	// The HTTP boundary treats this as success; it exists so tests and
	// instrumentation can observe the missed precondition.
	ErrNoOpenAssignment = errors.New("no open assignment for key")

	// ErrKeyAssigned blocks retirement of a key while it is out with a holder.
	ErrKeyAssigned = errors.New("key has an open assignment")

	// ErrDuplicateLabel means a key with the same label already exists.
	ErrDuplicateLabel = errors.New("key label already exists")

	// ErrDuplicateEmail means a user with the same email already exists.
	ErrDuplicateEmail = errors.New("email already exists")
)
