package ports

import (
	"context"
	"time"

	"github.com/keyward/keyward/internal/core/domain"
)

// Repository is the storage boundary for the ledger, the key registry, and
// the bearer-token store. All invariant enforcement lives behind this
// interface: CreateAssignment must reject a second open assignment for the
// same key atomically at the storage layer, never via check-then-insert.
type Repository interface {
	// CreateAssignment inserts a new open assignment and fills in its id.
	// Returns domain.ErrKeyAlreadyAssigned when an open assignment already
	// exists for the key, domain.ErrKeyNotFound / ErrInvalidHolder /
	// ErrInvalidActor on broken references.
	CreateAssignment(ctx context.Context, a *domain.Assignment) error
	// CloseOpenAssignment stamps returned_at on the single open assignment
	// for the key. Returns domain.ErrNoOpenAssignment when nothing is out.
	CloseOpenAssignment(ctx context.Context, keyID int64, returnedAt time.Time) error
	// ListAssignmentsForKey returns the full custody history, newest first
	// (assigned_at desc, id desc), with holder/actor emails joined in.
	ListAssignmentsForKey(ctx context.Context, keyID int64) ([]domain.Assignment, error)
	GetOpenAssignment(ctx context.Context, keyID int64) (*domain.Assignment, error)

	CreateKey(ctx context.Context, key *domain.Key) error
	GetKey(ctx context.Context, id int64) (*domain.Key, error)
	ListKeys(ctx context.Context) ([]domain.Key, error)
	// RetireKey deactivates a key. Returns domain.ErrKeyAssigned while an
	// open assignment exists, domain.ErrKeyNotFound for unknown ids.
	RetireKey(ctx context.Context, id int64) error

	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id int64) (*domain.User, error)

	CreateAPIToken(ctx context.Context, token *domain.APIToken) error
	GetAPITokenByHash(ctx context.Context, hash string) (*domain.APIToken, error)
	ListAPITokens(ctx context.Context, userID int64) ([]domain.APIToken, error)
	RevokeAPIToken(ctx context.Context, id string) error

	Ping(ctx context.Context) error
}

// KeyCache is a read-through cache for registry lookups. Implementations may
// lose entries at any time; the repository stays the source of truth.
type KeyCache interface {
	GetKey(ctx context.Context, id int64) (*domain.Key, bool)
	SetKey(ctx context.Context, key *domain.Key, ttl time.Duration)
	Invalidate(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
}

// LedgerService arbitrates custody transfers.
type LedgerService interface {
	Assign(ctx context.Context, keyID, holderID, actorID int64) (int64, error)
	Return(ctx context.Context, keyID, actorID int64) error
	History(ctx context.Context, keyID int64) ([]domain.Assignment, error)
	ListKeys(ctx context.Context) ([]domain.Key, error)
	HealthCheck(ctx context.Context) map[string]error
}

// RegistryService manages the key catalog.
type RegistryService interface {
	CreateKey(ctx context.Context, label string) (*domain.Key, error)
	GetKey(ctx context.Context, id int64) (*domain.Key, error)
	RetireKey(ctx context.Context, id int64) error
}
