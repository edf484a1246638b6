package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/keyward/keyward/internal/core/domain"
	"github.com/keyward/keyward/internal/core/ports"
)

type registryService struct {
	repo   ports.Repository
	cache  ports.KeyCache
	logger *slog.Logger
}

// NewRegistryService creates the key catalog manager. cache may be nil.
func NewRegistryService(repo ports.Repository, cache ports.KeyCache, logger *slog.Logger) ports.RegistryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &registryService{repo: repo, cache: cache, logger: logger}
}

func (s *registryService) CreateKey(ctx context.Context, label string) (*domain.Key, error) {
	if err := domain.ValidateKeyLabel(label); err != nil {
		return nil, fmt.Errorf("invalid key label: %w", err)
	}

	key := &domain.Key{
		Label:     label,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateKey(ctx, key); err != nil {
		return nil, err
	}

	s.logger.Info("key created", "key_id", key.ID, "label", key.Label)
	return key, nil
}

func (s *registryService) GetKey(ctx context.Context, id int64) (*domain.Key, error) {
	key, err := s.repo.GetKey(ctx, id)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, domain.ErrKeyNotFound
	}
	return key, nil
}

// RetireKey deactivates a key. Retirement while the key is out with a holder
// is rejected; the key must be returned first.
func (s *registryService) RetireKey(ctx context.Context, id int64) error {
	if err := s.repo.RetireKey(ctx, id); err != nil {
		return err
	}

	// the cached copy still says active; drop it
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, id); err != nil {
			s.logger.Warn("failed to invalidate key cache", "key_id", id, "error", err)
		}
	}

	s.logger.Info("key retired", "key_id", id)
	return nil
}
