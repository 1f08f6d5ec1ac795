package repository

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/poyrazK/gatekeep/internal/core/domain"
)

func setupTestDB(t *testing.T) (*sql.DB, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("gatekeep_test"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("5432").
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start container: %s", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %s", err)
	}

	db, err := sql.Open("pgx", connStr)
	if err != nil {
		t.Fatalf("failed to open db: %s", err)
	}

	schemaPath := filepath.Join(".", "schema.sql")
	schema, err := os.ReadFile(schemaPath)
	if err != nil {
		t.Fatalf("failed to read schema: %s", err)
	}

	if _, err := db.Exec(string(schema)); err != nil {
		t.Fatalf("failed to apply schema: %s", err)
	}

	return db, func() {
		db.Close()
		pgContainer.Terminate(ctx)
	}
}

func TestPostgresRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPostgresRepository(db)
	ctx := context.Background()

	// 1. Users round-trip
	user := &domain.User{
		ID:           "550e8400-e29b-41d4-a716-446655440000",
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		Role:         domain.RoleAdmin,
		Active:       true,
		CreatedAt:    time.Now(),
	}
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	found, err := repo.GetUserByUsername(ctx, "ALICE")
	if err != nil || found == nil {
		t.Fatalf("Expected user via mixed-case lookup, got %v (err %v)", found, err)
	}
	if found.Role != domain.RoleAdmin {
		t.Errorf("Role = %q, want admin", found.Role)
	}

	// 2. Todos scoped by owner
	todo := &domain.Todo{
		ID:        "550e8400-e29b-41d4-a716-446655440001",
		UserID:    user.ID,
		Title:     "rotate keys",
		CreatedAt: time.Now(),
	}
	if err := repo.CreateTodo(ctx, todo); err != nil {
		t.Fatalf("CreateTodo failed: %v", err)
	}
	if got, _ := repo.GetTodo(ctx, todo.ID, "someone-else"); got != nil {
		t.Errorf("Foreign user can see the todo: %+v", got)
	}

	// updated_at is trigger-owned: an update must advance it.
	before, _ := repo.GetTodo(ctx, todo.ID, user.ID)
	time.Sleep(10 * time.Millisecond)
	todo.Done = true
	if err := repo.UpdateTodo(ctx, todo); err != nil {
		t.Fatalf("UpdateTodo failed: %v", err)
	}
	after, _ := repo.GetTodo(ctx, todo.ID, user.ID)
	if !after.UpdatedAt.After(before.UpdatedAt) {
		t.Errorf("updated_at did not advance: %v -> %v", before.UpdatedAt, after.UpdatedAt)
	}

	// 3. API keys
	key := &domain.APIKey{
		ID:        "550e8400-e29b-41d4-a716-446655440002",
		UserID:    user.ID,
		Name:      "ci",
		KeyHash:   "deadbeef",
		KeyPrefix: "gk_1234",
		Role:      domain.RoleUser,
		Active:    true,
		CreatedAt: time.Now(),
	}
	if err := repo.CreateAPIKey(ctx, key); err != nil {
		t.Fatalf("CreateAPIKey failed: %v", err)
	}
	if got, _ := repo.GetAPIKeyByHash(ctx, "deadbeef"); got == nil || got.ID != key.ID {
		t.Errorf("GetAPIKeyByHash returned %+v", got)
	}
	if err := repo.DeactivateAPIKey(ctx, key.ID); err != nil {
		t.Errorf("DeactivateAPIKey failed: %v", err)
	}
	if got, _ := repo.GetAPIKeyByHash(ctx, "deadbeef"); got == nil || got.Active {
		t.Errorf("Key still active after revoke: %+v", got)
	}

	// 4. Window counters: sequential then concurrent
	start := time.Now().UTC().Truncate(time.Minute)
	for i := int64(1); i <= 3; i++ {
		count, err := repo.Increment(ctx, "1.2.3.4", "/todos", start, time.Minute)
		if err != nil {
			t.Fatalf("Increment failed: %v", err)
		}
		if count != i {
			t.Errorf("count = %d, want %d", count, i)
		}
	}

	const workers = 32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Increment(ctx, "5.6.7.8", "/todos", start, time.Minute); err != nil {
				t.Errorf("concurrent Increment failed: %v", err)
			}
		}()
	}
	wg.Wait()
	final, err := repo.Increment(ctx, "5.6.7.8", "/todos", start, time.Minute)
	if err != nil {
		t.Fatalf("final Increment failed: %v", err)
	}
	if final != workers+1 {
		t.Errorf("lost updates: final count = %d, want %d", final, workers+1)
	}

	// 5. Request logs and the usage_stats view
	logEntry := &domain.RequestLog{
		ID:         "550e8400-e29b-41d4-a716-446655440003",
		Endpoint:   "/todos",
		Method:     "GET",
		Identifier: "1.2.3.4",
		UserID:     &user.ID,
		Status:     429,
		LatencyMs:  3,
		CreatedAt:  time.Now(),
	}
	if err := repo.SaveRequestLog(ctx, logEntry); err != nil {
		t.Fatalf("SaveRequestLog failed: %v", err)
	}
	logs, err := repo.ListRequestLogs(ctx, 10)
	if err != nil || len(logs) != 1 {
		t.Errorf("ListRequestLogs failed: %v, count %d", err, len(logs))
	}
	stats, err := repo.GetUsageStats(ctx)
	if err != nil || len(stats) != 1 {
		t.Fatalf("GetUsageStats failed: %v, count %d", err, len(stats))
	}
	if stats[0].RateLimited != 1 {
		t.Errorf("rate_limited = %d, want 1", stats[0].RateLimited)
	}

	// 6. Retention deletes are bounded and idempotent
	cutoff := time.Now().Add(time.Hour)
	n, err := repo.DeleteExpiredWindows(ctx, cutoff, 1)
	if err != nil || n != 1 {
		t.Errorf("DeleteExpiredWindows batch = %d (err %v), want 1", n, err)
	}
	n, err = repo.DeleteExpiredWindows(ctx, cutoff, 100)
	if err != nil || n != 1 {
		t.Errorf("DeleteExpiredWindows drained = %d (err %v), want 1", n, err)
	}
	n, err = repo.DeleteExpiredWindows(ctx, cutoff, 100)
	if err != nil || n != 0 {
		t.Errorf("DeleteExpiredWindows replay = %d (err %v), want 0", n, err)
	}

	// 7. Soft-deleting the user keeps the audit row resolvable
	if err := repo.DeactivateUser(ctx, user.ID); err != nil {
		t.Errorf("DeactivateUser failed: %v", err)
	}
	logs, _ = repo.ListRequestLogs(ctx, 10)
	if len(logs) != 1 || logs[0].UserID == nil {
		t.Errorf("Request log lost its identity after deactivation: %+v", logs)
	}
}
