package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/poyrazK/gatekeep/internal/core/domain"
)

// PostgresRepository implements ports.Repository and ports.WindowCounter
// using PostgreSQL. updated_at columns are owned by triggers in the
// schema; the repository never writes client-supplied timestamps there.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates and returns a new PostgresRepository instance.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// --- Users ---

func (r *PostgresRepository) CreateUser(ctx context.Context, user *domain.User) error {
	query := `INSERT INTO users (id, username, email, password_hash, role, is_active, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, query, user.ID, user.Username, user.Email, user.PasswordHash, string(user.Role), user.Active, user.CreatedAt)
	return err
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT id, username, email, password_hash, role, is_active, created_at, updated_at FROM users WHERE id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT id, username, email, password_hash, role, is_active, created_at, updated_at FROM users WHERE LOWER(username) = LOWER($1)`
	return r.scanUser(r.db.QueryRowContext(ctx, query, username))
}

func (r *PostgresRepository) scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	var role string
	errRow := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(errRow, sql.ErrNoRows) {
		return nil, nil
	}
	if errRow != nil {
		return nil, errRow
	}
	u.Role = domain.Role(role)
	return &u, nil
}

func (r *PostgresRepository) ListUsers(ctx context.Context) ([]domain.User, error) {
	query := `SELECT id, username, email, password_hash, role, is_active, created_at, updated_at FROM users ORDER BY created_at`
	rows, errQuery := r.db.QueryContext(ctx, query)
	if errQuery != nil {
		return nil, errQuery
	}
	defer func() {
		if errClose := rows.Close(); errClose != nil {
			log.Printf("failed to close rows: %v", errClose)
		}
	}()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		var role string
		if errScan := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role, &u.Active, &u.CreatedAt, &u.UpdatedAt); errScan != nil {
			return nil, errScan
		}
		u.Role = domain.Role(role)
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *PostgresRepository) UpdateUserRole(ctx context.Context, id string, role domain.Role) error {
	query := `UPDATE users SET role = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, string(role), id)
	return err
}

func (r *PostgresRepository) DeactivateUser(ctx context.Context, id string) error {
	query := `UPDATE users SET is_active = FALSE WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// --- Todos ---

func (r *PostgresRepository) CreateTodo(ctx context.Context, todo *domain.Todo) error {
	query := `INSERT INTO todos (id, user_id, title, description, done, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, query, todo.ID, todo.UserID, todo.Title, todo.Description, todo.Done, todo.CreatedAt)
	return err
}

func (r *PostgresRepository) GetTodo(ctx context.Context, id string, userID string) (*domain.Todo, error) {
	query := `SELECT id, user_id, title, description, done, created_at, updated_at FROM todos WHERE id = $1 AND user_id = $2`
	var t domain.Todo
	errRow := r.db.QueryRowContext(ctx, query, id, userID).Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Done, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(errRow, sql.ErrNoRows) {
		return nil, nil
	}
	if errRow != nil {
		return nil, errRow
	}
	return &t, nil
}

func (r *PostgresRepository) ListTodosForUser(ctx context.Context, userID string) ([]domain.Todo, error) {
	query := `SELECT id, user_id, title, description, done, created_at, updated_at FROM todos WHERE user_id = $1 ORDER BY created_at`
	rows, errQuery := r.db.QueryContext(ctx, query, userID)
	if errQuery != nil {
		return nil, errQuery
	}
	defer func() {
		if errClose := rows.Close(); errClose != nil {
			log.Printf("failed to close rows: %v", errClose)
		}
	}()

	var todos []domain.Todo
	for rows.Next() {
		var t domain.Todo
		if errScan := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Done, &t.CreatedAt, &t.UpdatedAt); errScan != nil {
			return nil, errScan
		}
		todos = append(todos, t)
	}
	return todos, rows.Err()
}

func (r *PostgresRepository) UpdateTodo(ctx context.Context, todo *domain.Todo) error {
	query := `UPDATE todos SET title = $1, description = $2, done = $3 WHERE id = $4 AND user_id = $5`
	_, err := r.db.ExecContext(ctx, query, todo.Title, todo.Description, todo.Done, todo.ID, todo.UserID)
	return err
}

func (r *PostgresRepository) DeleteTodo(ctx context.Context, id string, userID string) error {
	query := `DELETE FROM todos WHERE id = $1 AND user_id = $2`
	_, err := r.db.ExecContext(ctx, query, id, userID)
	return err
}

// --- API keys ---

func (r *PostgresRepository) CreateAPIKey(ctx context.Context, key *domain.APIKey) error {
	query := `INSERT INTO api_keys (id, user_id, name, key_hash, key_prefix, role, is_active, created_at, expires_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, query, key.ID, key.UserID, key.Name, key.KeyHash, key.KeyPrefix, string(key.Role), key.Active, key.CreatedAt, key.ExpiresAt)
	return err
}

func (r *PostgresRepository) GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	query := `SELECT id, user_id, name, key_hash, key_prefix, role, is_active, created_at, expires_at, last_used_at
	          FROM api_keys WHERE key_hash = $1`
	var k domain.APIKey
	var role string
	errRow := r.db.QueryRowContext(ctx, query, keyHash).Scan(&k.ID, &k.UserID, &k.Name, &k.KeyHash, &k.KeyPrefix, &role, &k.Active, &k.CreatedAt, &k.ExpiresAt, &k.LastUsedAt)
	if errors.Is(errRow, sql.ErrNoRows) {
		return nil, nil
	}
	if errRow != nil {
		return nil, errRow
	}
	k.Role = domain.Role(role)
	return &k, nil
}

func (r *PostgresRepository) ListAPIKeys(ctx context.Context, userID string) ([]domain.APIKey, error) {
	query := `SELECT id, user_id, name, key_hash, key_prefix, role, is_active, created_at, expires_at, last_used_at FROM api_keys`
	var rows *sql.Rows
	var errQuery error

	if userID != "" {
		query += ` WHERE user_id = $1`
		rows, errQuery = r.db.QueryContext(ctx, query, userID)
	} else {
		rows, errQuery = r.db.QueryContext(ctx, query)
	}
	if errQuery != nil {
		return nil, errQuery
	}
	defer func() {
		if errClose := rows.Close(); errClose != nil {
			log.Printf("failed to close rows: %v", errClose)
		}
	}()

	var keys []domain.APIKey
	for rows.Next() {
		var k domain.APIKey
		var role string
		if errScan := rows.Scan(&k.ID, &k.UserID, &k.Name, &k.KeyHash, &k.KeyPrefix, &role, &k.Active, &k.CreatedAt, &k.ExpiresAt, &k.LastUsedAt); errScan != nil {
			return nil, errScan
		}
		k.Role = domain.Role(role)
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (r *PostgresRepository) DeactivateAPIKey(ctx context.Context, id string) error {
	query := `UPDATE api_keys SET is_active = FALSE WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *PostgresRepository) TouchAPIKey(ctx context.Context, id string, usedAt time.Time) error {
	query := `UPDATE api_keys SET last_used_at = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, usedAt, id)
	return err
}

// --- Rate-limit windows ---

// Increment is the atomic check-and-increment primitive behind the rate
// limiter. The upsert increments and returns the post-increment count
// in one statement, so two concurrent requests can never both observe
// a pre-limit count and slip past the cap.
func (r *PostgresRepository) Increment(ctx context.Context, identifier, endpoint string, windowStart time.Time, window time.Duration) (int64, error) {
	query := `INSERT INTO rate_limit_windows (id, identifier, endpoint, window_start, window_end, request_count)
	          VALUES ($1, $2, $3, $4, $5, 1)
	          ON CONFLICT (identifier, endpoint, window_start, window_end)
	          DO UPDATE SET request_count = rate_limit_windows.request_count + 1
	          RETURNING request_count`
	var count int64
	windowEnd := windowStart.Add(window)
	err := r.db.QueryRowContext(ctx, query, uuid.New().String(), identifier, endpoint, windowStart, windowEnd).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PostgresRepository) DeleteExpiredWindows(ctx context.Context, olderThan time.Time, limit int) (int64, error) {
	query := `DELETE FROM rate_limit_windows WHERE id IN (
	              SELECT id FROM rate_limit_windows WHERE window_start < $1 LIMIT $2)`
	res, err := r.db.ExecContext(ctx, query, olderThan, limit)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --- Request logs ---

func (r *PostgresRepository) SaveRequestLog(ctx context.Context, entry *domain.RequestLog) error {
	query := `INSERT INTO request_logs (id, endpoint, method, identifier, user_id, status, latency_ms, request_body, response_body, error, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.db.ExecContext(ctx, query, entry.ID, entry.Endpoint, entry.Method, entry.Identifier, entry.UserID, entry.Status, entry.LatencyMs, entry.RequestBody, entry.ResponseBody, entry.Error, entry.CreatedAt)
	return err
}

func (r *PostgresRepository) ListRequestLogs(ctx context.Context, limit int) ([]domain.RequestLog, error) {
	query := `SELECT id, endpoint, method, identifier, user_id, status, latency_ms, request_body, response_body, error, created_at
	          FROM request_logs ORDER BY created_at DESC LIMIT $1`
	rows, errQuery := r.db.QueryContext(ctx, query, limit)
	if errQuery != nil {
		return nil, errQuery
	}
	defer func() {
		if errClose := rows.Close(); errClose != nil {
			log.Printf("failed to close rows: %v", errClose)
		}
	}()

	var logs []domain.RequestLog
	for rows.Next() {
		var l domain.RequestLog
		if errScan := rows.Scan(&l.ID, &l.Endpoint, &l.Method, &l.Identifier, &l.UserID, &l.Status, &l.LatencyMs, &l.RequestBody, &l.ResponseBody, &l.Error, &l.CreatedAt); errScan != nil {
			return nil, errScan
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (r *PostgresRepository) DeleteOldRequestLogs(ctx context.Context, olderThan time.Time, limit int) (int64, error) {
	query := `DELETE FROM request_logs WHERE id IN (
	              SELECT id FROM request_logs WHERE created_at < $1 LIMIT $2)`
	res, err := r.db.ExecContext(ctx, query, olderThan, limit)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *PostgresRepository) GetUsageStats(ctx context.Context) ([]domain.UsageStat, error) {
	query := `SELECT endpoint, method, total_requests, rate_limited, unauthorized, failed, avg_latency_ms, max_latency_ms
	          FROM usage_stats ORDER BY total_requests DESC`
	rows, errQuery := r.db.QueryContext(ctx, query)
	if errQuery != nil {
		return nil, errQuery
	}
	defer func() {
		if errClose := rows.Close(); errClose != nil {
			log.Printf("failed to close rows: %v", errClose)
		}
	}()

	var stats []domain.UsageStat
	for rows.Next() {
		var s domain.UsageStat
		if errScan := rows.Scan(&s.Endpoint, &s.Method, &s.TotalRequests, &s.RateLimited, &s.Unauthorized, &s.Failed, &s.AvgLatencyMs, &s.MaxLatencyMs); errScan != nil {
			return nil, errScan
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
