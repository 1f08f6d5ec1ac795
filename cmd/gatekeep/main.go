package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/poyrazK/gatekeep/internal/adapters/api"
	"github.com/poyrazK/gatekeep/internal/adapters/counter"
	"github.com/poyrazK/gatekeep/internal/adapters/repository"
	"github.com/poyrazK/gatekeep/internal/core/ports"
	"github.com/poyrazK/gatekeep/internal/core/services"
	"github.com/poyrazK/gatekeep/internal/infrastructure/config"
	"github.com/poyrazK/gatekeep/internal/infrastructure/metrics"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("unable to open database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()
	db.SetMaxOpenConns(25)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		logger.Warn("could not ping database", "error", err)
	}

	repo := repository.NewPostgresRepository(db)

	// Counters live in postgres unless a redis address is configured.
	var windowCounter ports.WindowCounter = repo
	if cfg.RedisAddr != "" {
		rc := counter.NewRedisCounter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := rc.Ping(context.Background()); err != nil {
			log.Fatalf("unable to reach redis: %v", err)
		}
		windowCounter = rc
		logger.Info("using redis window counter", "addr", cfg.RedisAddr)
	}

	limiter := services.NewRateLimitService(windowCounter, cfg.ShortCap, cfg.LongCap)
	authSvc := services.NewAuthService(repo, cfg.JWTSecret, cfg.JWTTTL, logger)
	userSvc := services.NewUserService(repo)
	todoSvc := services.NewTodoService(repo)

	recorder := services.NewAuditRecorder(repo, logger, cfg.AuditBuffer)
	defer recorder.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweeper := services.NewSweeper(repo, logger, cfg.SweepInterval, cfg.WindowRetention, cfg.LogRetention)
	go sweeper.Run(ctx)

	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				metrics.DBConnectionsActive.Set(float64(db.Stats().OpenConnections))
			}
		}
	}()

	handler := api.NewAPIHandler(authSvc, userSvc, todoSvc, repo, limiter, recorder, logger)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("gatekeep listening", "addr", cfg.ListenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("HTTP server failed: %v", err)
	}
}
