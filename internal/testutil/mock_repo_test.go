package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/keyward/keyward/internal/core/domain"
)

func TestMockRepo_CreateAssignment(t *testing.T) {
	m := new(MockRepo)
	m.On("CreateAssignment", &domain.Assignment{}).Return(nil)
	_ = m.CreateAssignment(context.Background(), &domain.Assignment{})
}

func TestMockRepo_CloseOpenAssignment(t *testing.T) {
	m := new(MockRepo)
	now := time.Now()
	m.On("CloseOpenAssignment", int64(1), now).Return(nil)
	_ = m.CloseOpenAssignment(context.Background(), 1, now)
}

func TestMockRepo_ListAssignmentsForKey(t *testing.T) {
	m := new(MockRepo)
	m.On("ListAssignmentsForKey", int64(1)).Return([]domain.Assignment{}, nil)
	_, _ = m.ListAssignmentsForKey(context.Background(), 1)
}

func TestMockRepo_GetOpenAssignment(t *testing.T) {
	m := new(MockRepo)
	m.On("GetOpenAssignment", int64(1)).Return(nil, nil)
	_, _ = m.GetOpenAssignment(context.Background(), 1)
}

func TestMockRepo_Keys(t *testing.T) {
	m := new(MockRepo)
	m.On("CreateKey", &domain.Key{}).Return(nil)
	m.On("GetKey", int64(1)).Return(&domain.Key{}, nil)
	m.On("ListKeys").Return([]domain.Key{}, nil)
	m.On("RetireKey", int64(1)).Return(nil)
	_ = m.CreateKey(context.Background(), &domain.Key{})
	_, _ = m.GetKey(context.Background(), 1)
	_, _ = m.ListKeys(context.Background())
	_ = m.RetireKey(context.Background(), 1)
}

func TestMockRepo_Users(t *testing.T) {
	m := new(MockRepo)
	m.On("CreateUser", &domain.User{}).Return(nil)
	m.On("GetUser", int64(1)).Return(&domain.User{}, nil)
	_ = m.CreateUser(context.Background(), &domain.User{})
	_, _ = m.GetUser(context.Background(), 1)
}

func TestMockRepo_APITokens(t *testing.T) {
	m := new(MockRepo)
	m.On("CreateAPIToken", &domain.APIToken{}).Return(nil)
	m.On("GetAPITokenByHash", "hash").Return(&domain.APIToken{}, nil)
	m.On("ListAPITokens", int64(0)).Return([]domain.APIToken{}, nil)
	m.On("RevokeAPIToken", "id").Return(nil)
	_ = m.CreateAPIToken(context.Background(), &domain.APIToken{})
	_, _ = m.GetAPITokenByHash(context.Background(), "hash")
	_, _ = m.ListAPITokens(context.Background(), 0)
	_ = m.RevokeAPIToken(context.Background(), "id")
}

func TestMockRepo_Ping(t *testing.T) {
	m := new(MockRepo)
	m.On("Ping").Return(nil)
	_ = m.Ping(context.Background())
}
