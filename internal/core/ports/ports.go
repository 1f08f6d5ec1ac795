package ports

import (
	"context"
	"time"

	"github.com/poyrazK/gatekeep/internal/core/domain"
)

// Repository is the persistence boundary. All cross-request state
// (users, todos, keys, counters, logs) lives behind it.
type Repository interface {
	// Users
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	UpdateUserRole(ctx context.Context, id string, role domain.Role) error
	DeactivateUser(ctx context.Context, id string) error

	// Todos
	CreateTodo(ctx context.Context, todo *domain.Todo) error
	GetTodo(ctx context.Context, id string, userID string) (*domain.Todo, error)
	ListTodosForUser(ctx context.Context, userID string) ([]domain.Todo, error)
	UpdateTodo(ctx context.Context, todo *domain.Todo) error
	DeleteTodo(ctx context.Context, id string, userID string) error

	// API keys
	CreateAPIKey(ctx context.Context, key *domain.APIKey) error
	GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error)
	ListAPIKeys(ctx context.Context, userID string) ([]domain.APIKey, error)
	DeactivateAPIKey(ctx context.Context, id string) error
	TouchAPIKey(ctx context.Context, id string, usedAt time.Time) error

	// Request accounting
	SaveRequestLog(ctx context.Context, entry *domain.RequestLog) error
	ListRequestLogs(ctx context.Context, limit int) ([]domain.RequestLog, error)
	GetUsageStats(ctx context.Context) ([]domain.UsageStat, error)

	// Retention. Both deletes are bounded and idempotent; they return
	// the number of rows removed so sweeps can drain in batches.
	DeleteExpiredWindows(ctx context.Context, olderThan time.Time, limit int) (int64, error)
	DeleteOldRequestLogs(ctx context.Context, olderThan time.Time, limit int) (int64, error)

	Ping(ctx context.Context) error
}

// WindowCounter is the atomic increment-and-read capability backing the
// rate limiter. Increment must return the post-increment count for the
// window in a single store operation; separate read-then-write is a
// lost-update race under concurrency.
type WindowCounter interface {
	Increment(ctx context.Context, identifier, endpoint string, windowStart time.Time, window time.Duration) (int64, error)
}

// RateLimitService admits or rejects requests against all configured caps.
type RateLimitService interface {
	CheckAndIncrement(ctx context.Context, identifier, endpoint string, now time.Time) (domain.Decision, error)
}

// AuthService resolves bearer credentials and issues tokens.
type AuthService interface {
	Authenticate(ctx context.Context, credential string) (*domain.Identity, error)
	Login(ctx context.Context, username, password string) (string, error)
}

// AuditRecorder accepts one entry per request. Record never blocks and
// never returns an error into the request path.
type AuditRecorder interface {
	Record(entry *domain.RequestLog)
}

// UserService handles account lifecycle.
type UserService interface {
	Register(ctx context.Context, username, email, password string) (*domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	ChangeRole(ctx context.Context, id string, role domain.Role) error
	Deactivate(ctx context.Context, id string) error
}

// TodoService handles the gated business CRUD, scoped per user.
type TodoService interface {
	Create(ctx context.Context, userID, title, description string) (*domain.Todo, error)
	Get(ctx context.Context, id, userID string) (*domain.Todo, error)
	List(ctx context.Context, userID string) ([]domain.Todo, error)
	Update(ctx context.Context, id, userID string, title, description *string, done *bool) (*domain.Todo, error)
	Delete(ctx context.Context, id, userID string) error
}
