package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/poyrazK/gatekeep/internal/core/domain"
)

// MockRepo implements ports.Repository for testing.
type MockRepo struct {
	mock.Mock
}

func (m *MockRepo) CreateUser(ctx context.Context, user *domain.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockRepo) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(id)
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockRepo) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(username)
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	args := m.Called()
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *MockRepo) UpdateUserRole(ctx context.Context, id string, role domain.Role) error {
	args := m.Called(id, role)
	return args.Error(0)
}

func (m *MockRepo) DeactivateUser(ctx context.Context, id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockRepo) CreateTodo(ctx context.Context, todo *domain.Todo) error {
	args := m.Called(todo)
	return args.Error(0)
}

func (m *MockRepo) GetTodo(ctx context.Context, id string, userID string) (*domain.Todo, error) {
	args := m.Called(id, userID)
	return args.Get(0).(*domain.Todo), args.Error(1)
}

func (m *MockRepo) ListTodosForUser(ctx context.Context, userID string) ([]domain.Todo, error) {
	args := m.Called(userID)
	return args.Get(0).([]domain.Todo), args.Error(1)
}

func (m *MockRepo) UpdateTodo(ctx context.Context, todo *domain.Todo) error {
	args := m.Called(todo)
	return args.Error(0)
}

func (m *MockRepo) DeleteTodo(ctx context.Context, id string, userID string) error {
	args := m.Called(id, userID)
	return args.Error(0)
}

func (m *MockRepo) CreateAPIKey(ctx context.Context, key *domain.APIKey) error {
	args := m.Called(key)
	return args.Error(0)
}

func (m *MockRepo) GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	args := m.Called(keyHash)
	return args.Get(0).(*domain.APIKey), args.Error(1)
}

func (m *MockRepo) ListAPIKeys(ctx context.Context, userID string) ([]domain.APIKey, error) {
	args := m.Called(userID)
	return args.Get(0).([]domain.APIKey), args.Error(1)
}

func (m *MockRepo) DeactivateAPIKey(ctx context.Context, id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockRepo) TouchAPIKey(ctx context.Context, id string, usedAt time.Time) error {
	args := m.Called(id, usedAt)
	return args.Error(0)
}

func (m *MockRepo) SaveRequestLog(ctx context.Context, entry *domain.RequestLog) error {
	args := m.Called(entry)
	return args.Error(0)
}

func (m *MockRepo) ListRequestLogs(ctx context.Context, limit int) ([]domain.RequestLog, error) {
	args := m.Called(limit)
	return args.Get(0).([]domain.RequestLog), args.Error(1)
}

func (m *MockRepo) GetUsageStats(ctx context.Context) ([]domain.UsageStat, error) {
	args := m.Called()
	return args.Get(0).([]domain.UsageStat), args.Error(1)
}

func (m *MockRepo) DeleteExpiredWindows(ctx context.Context, olderThan time.Time, limit int) (int64, error) {
	args := m.Called(olderThan, limit)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepo) DeleteOldRequestLogs(ctx context.Context, olderThan time.Time, limit int) (int64, error) {
	args := m.Called(olderThan, limit)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepo) Ping(ctx context.Context) error {
	args := m.Called()
	return args.Error(0)
}
