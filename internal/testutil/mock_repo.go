package testutil

import (
	"context"
	"time"

	"github.com/keyward/keyward/internal/core/domain"
	"github.com/stretchr/testify/mock"
)

// MockRepo is a testify double for ports.Repository.
type MockRepo struct {
	mock.Mock
}

func (m *MockRepo) CreateAssignment(ctx context.Context, a *domain.Assignment) error {
	args := m.Called(a)
	return args.Error(0)
}

func (m *MockRepo) CloseOpenAssignment(ctx context.Context, keyID int64, returnedAt time.Time) error {
	args := m.Called(keyID, returnedAt)
	return args.Error(0)
}

func (m *MockRepo) ListAssignmentsForKey(ctx context.Context, keyID int64) ([]domain.Assignment, error) {
	args := m.Called(keyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Assignment), args.Error(1)
}

func (m *MockRepo) GetOpenAssignment(ctx context.Context, keyID int64) (*domain.Assignment, error) {
	args := m.Called(keyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Assignment), args.Error(1)
}

func (m *MockRepo) CreateKey(ctx context.Context, key *domain.Key) error {
	args := m.Called(key)
	return args.Error(0)
}

func (m *MockRepo) GetKey(ctx context.Context, id int64) (*domain.Key, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Key), args.Error(1)
}

func (m *MockRepo) ListKeys(ctx context.Context) ([]domain.Key, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Key), args.Error(1)
}

func (m *MockRepo) RetireKey(ctx context.Context, id int64) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockRepo) CreateUser(ctx context.Context, user *domain.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockRepo) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockRepo) CreateAPIToken(ctx context.Context, token *domain.APIToken) error {
	args := m.Called(token)
	return args.Error(0)
}

func (m *MockRepo) GetAPITokenByHash(ctx context.Context, hash string) (*domain.APIToken, error) {
	args := m.Called(hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.APIToken), args.Error(1)
}

func (m *MockRepo) ListAPITokens(ctx context.Context, userID int64) ([]domain.APIToken, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.APIToken), args.Error(1)
}

func (m *MockRepo) RevokeAPIToken(ctx context.Context, id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockRepo) Ping(ctx context.Context) error {
	args := m.Called()
	return args.Error(0)
}
