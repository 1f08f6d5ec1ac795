// Command bench measures window-counter throughput against a disposable
// postgres (and optionally redis) container, and cross-checks that no
// increments were lost under concurrency.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/poyrazK/gatekeep/internal/adapters/counter"
	"github.com/poyrazK/gatekeep/internal/adapters/repository"
	"github.com/poyrazK/gatekeep/internal/core/ports"
)

type stats struct {
	total     uint64
	errors    uint64
	latencies chan time.Duration
}

func main() {
	count := flag.Int("n", 10000, "Total number of increments")
	concurrency := flag.Int("c", 100, "Concurrency level")
	backend := flag.String("backend", "postgres", "Counter backend: postgres or redis")
	schemaPath := flag.String("schema", "internal/adapters/repository/schema.sql", "Path to schema.sql")
	flag.Parse()

	ctx := context.Background()

	var windowCounter ports.WindowCounter
	switch *backend {
	case "postgres":
		dbURL, terminate := startPostgres(ctx, *schemaPath)
		defer terminate()
		db, err := sql.Open("pgx", dbURL)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()
		db.SetMaxOpenConns(*concurrency)
		windowCounter = repository.NewPostgresRepository(db)
	case "redis":
		addr, terminate := startRedis(ctx)
		defer terminate()
		windowCounter = counter.NewRedisCounter(addr, "", 0)
	default:
		log.Fatalf("unknown backend: %s", *backend)
	}

	fmt.Printf("Benchmarking %s backend: %d increments | %d concurrency\n", *backend, *count, *concurrency)

	s := stats{latencies: make(chan time.Duration, *count)}
	windowStart := time.Now().Truncate(time.Minute)

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(*concurrency)
	per := *count / *concurrency
	for w := 0; w < *concurrency; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < per; i++ {
				t0 := time.Now()
				_, err := windowCounter.Increment(ctx, "bench-client", "/bench", windowStart, time.Minute)
				atomic.AddUint64(&s.total, 1)
				if err != nil {
					atomic.AddUint64(&s.errors, 1)
					continue
				}
				s.latencies <- time.Since(t0)
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)
	close(s.latencies)

	final, err := windowCounter.Increment(ctx, "bench-client", "/bench", windowStart, time.Minute)
	if err != nil {
		log.Fatalf("final read failed: %v", err)
	}
	expected := int64(atomic.LoadUint64(&s.total)-atomic.LoadUint64(&s.errors)) + 1

	var lats []time.Duration
	for l := range s.latencies {
		lats = append(lats, l)
	}
	sort.Slice(lats, func(i, j int) bool { return lats[i] < lats[j] })

	fmt.Printf("Elapsed:    %s\n", elapsed)
	fmt.Printf("Throughput: %.0f incr/s\n", float64(s.total)/elapsed.Seconds())
	fmt.Printf("Errors:     %d\n", s.errors)
	if len(lats) > 0 {
		fmt.Printf("p50:        %s\n", lats[len(lats)/2])
		fmt.Printf("p99:        %s\n", lats[len(lats)*99/100])
	}
	if final != expected {
		fmt.Printf("LOST UPDATES: final counter %d, expected %d\n", final, expected)
		os.Exit(1)
	}
	fmt.Printf("Counter consistent: %d\n", final)
}

func startPostgres(ctx context.Context, schemaPath string) (string, func()) {
	fmt.Println("Starting PostgreSQL container...")
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "password",
			"POSTGRES_DB":       "gatekeep",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp"),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		log.Fatalf("failed to start postgres: %v", err)
	}

	host, _ := c.Host(ctx)
	port, _ := c.MappedPort(ctx, "5432")
	dbURL := fmt.Sprintf("postgres://postgres:password@%s:%s/gatekeep?sslmode=disable", host, port.Port())

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()
	schema, err := os.ReadFile(schemaPath)
	if err != nil {
		log.Fatalf("failed to read schema: %v", err)
	}
	if _, err := db.ExecContext(ctx, string(schema)); err != nil {
		log.Fatalf("failed to apply schema: %v", err)
	}

	return dbURL, func() {
		if err := c.Terminate(ctx); err != nil {
			log.Printf("failed to terminate postgres: %v", err)
		}
	}
}

func startRedis(ctx context.Context) (string, func()) {
	fmt.Println("Starting Redis container...")
	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp"),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		log.Fatalf("failed to start redis: %v", err)
	}

	host, _ := c.Host(ctx)
	port, _ := c.MappedPort(ctx, "6379")
	return fmt.Sprintf("%s:%s", host, port.Port()), func() {
		if err := c.Terminate(ctx); err != nil {
			log.Printf("failed to terminate redis: %v", err)
		}
	}
}
