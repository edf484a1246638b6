package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/keyward/keyward/internal/core/domain"
	"github.com/keyward/keyward/internal/core/ports"
	"github.com/keyward/keyward/internal/infrastructure/metrics"
)

// registry lookups served from the cache stay fresh for this long
const keyCacheTTL = 30 * time.Second

type ledgerService struct {
	repo   ports.Repository
	cache  ports.KeyCache
	logger *slog.Logger
}

// NewLedgerService creates the custody arbiter. cache may be nil; logger nil
// falls back to slog.Default().
func NewLedgerService(repo ports.Repository, cache ports.KeyCache, logger *slog.Logger) ports.LedgerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ledgerService{repo: repo, cache: cache, logger: logger}
}

// Assign grants custody of keyID to holderID on behalf of actorID. The
// no-open-assignment check and the insert happen as one atomic unit inside
// the repository; under a race the loser surfaces ErrKeyAlreadyAssigned.
func (s *ledgerService) Assign(ctx context.Context, keyID, holderID, actorID int64) (int64, error) {
	if err := domain.ValidateUserID(holderID); err != nil {
		return 0, domain.ErrInvalidHolder
	}
	if err := domain.ValidateUserID(actorID); err != nil {
		return 0, domain.ErrInvalidActor
	}

	key, err := s.lookupKey(ctx, keyID)
	if err != nil {
		metrics.AssignmentsTotal.WithLabelValues(metrics.ResultError).Inc()
		return 0, err
	}
	if key == nil {
		metrics.AssignmentsTotal.WithLabelValues(metrics.ResultKeyNotFound).Inc()
		return 0, domain.ErrKeyNotFound
	}
	if !key.Active {
		metrics.AssignmentsTotal.WithLabelValues(metrics.ResultKeyNotFound).Inc()
		return 0, domain.ErrKeyRetired
	}

	a := &domain.Assignment{
		KeyID:      keyID,
		AssignedTo: holderID,
		AssignedBy: actorID,
		AssignedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateAssignment(ctx, a); err != nil {
		switch {
		case errors.Is(err, domain.ErrKeyAlreadyAssigned):
			metrics.AssignmentsTotal.WithLabelValues(metrics.ResultAlreadyAssigned).Inc()
		case errors.Is(err, domain.ErrInvalidHolder), errors.Is(err, domain.ErrInvalidActor):
			metrics.AssignmentsTotal.WithLabelValues(metrics.ResultInvalidUser).Inc()
		case errors.Is(err, domain.ErrKeyNotFound), errors.Is(err, domain.ErrKeyRetired):
			metrics.AssignmentsTotal.WithLabelValues(metrics.ResultKeyNotFound).Inc()
		default:
			metrics.AssignmentsTotal.WithLabelValues(metrics.ResultError).Inc()
		}
		return 0, err
	}

	metrics.AssignmentsTotal.WithLabelValues(metrics.ResultOK).Inc()
	s.logger.Info("key assigned",
		"key_id", keyID,
		"assignment_id", a.ID,
		"assigned_to", holderID,
		"assigned_by", actorID)
	return a.ID, nil
}

// Return closes the open assignment for keyID, if any. A return against a
// key with nothing out is reported as success to the caller; the missed
// precondition is still logged and counted.
func (s *ledgerService) Return(ctx context.Context, keyID, actorID int64) error {
	err := s.repo.CloseOpenAssignment(ctx, keyID, time.Now().UTC())
	if errors.Is(err, domain.ErrNoOpenAssignment) {
		metrics.ReturnsTotal.WithLabelValues(metrics.ResultNoOpen).Inc()
		s.logger.Warn("return on key with no open assignment",
			"key_id", keyID,
			"actor", actorID)
		return nil
	}
	if err != nil {
		metrics.ReturnsTotal.WithLabelValues(metrics.ResultError).Inc()
		return err
	}

	metrics.ReturnsTotal.WithLabelValues(metrics.ResultOK).Inc()
	s.logger.Info("key returned", "key_id", keyID, "actor", actorID)
	return nil
}

func (s *ledgerService) History(ctx context.Context, keyID int64) ([]domain.Assignment, error) {
	key, err := s.lookupKey(ctx, keyID)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, domain.ErrKeyNotFound
	}
	// retired keys keep their audit trail readable
	return s.repo.ListAssignmentsForKey(ctx, keyID)
}

func (s *ledgerService) ListKeys(ctx context.Context) ([]domain.Key, error) {
	return s.repo.ListKeys(ctx)
}

func (s *ledgerService) HealthCheck(ctx context.Context) map[string]error {
	checks := map[string]error{
		"database": s.repo.Ping(ctx),
	}
	if s.cache != nil {
		checks["cache"] = s.cache.Ping(ctx)
	}
	return checks
}

func (s *ledgerService) lookupKey(ctx context.Context, keyID int64) (*domain.Key, error) {
	if s.cache != nil {
		if key, ok := s.cache.GetKey(ctx, keyID); ok {
			metrics.CacheOperations.WithLabelValues(metrics.ResultHit).Inc()
			return key, nil
		}
		metrics.CacheOperations.WithLabelValues(metrics.ResultMiss).Inc()
	}

	key, err := s.repo.GetKey(ctx, keyID)
	if err != nil {
		return nil, err
	}
	if key != nil && s.cache != nil {
		// A copy read before a concurrent retire's Invalidate can land here
		// and report active=true for up to the TTL. The repository's insert
		// guard on keys.active stays authoritative for assigns.
		s.cache.SetKey(ctx, key, keyCacheTTL)
	}
	return key, nil
}
