package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/poyrazK/gatekeep/internal/core/ports"
	"github.com/poyrazK/gatekeep/internal/infrastructure/metrics"
)

// Sweeper removes expired rate-limit windows and aged-out request logs
// on a fixed schedule, independent of request handling. Deletes run in
// bounded batches so the sweep never holds long row locks against live
// traffic, and replaying a sweep with no new activity is a no-op.
type Sweeper struct {
	repo            ports.Repository
	logger          *slog.Logger
	interval        time.Duration
	windowRetention time.Duration
	logRetention    time.Duration
	batchSize       int
}

func NewSweeper(repo ports.Repository, logger *slog.Logger, interval, windowRetention, logRetention time.Duration) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		repo:            repo,
		logger:          logger,
		interval:        interval,
		windowRetention: windowRetention,
		logRetention:    logRetention,
		batchSize:       1000,
	}
}

// Run sweeps until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			windows, logs, err := s.SweepOnce(ctx, time.Now())
			if err != nil {
				s.logger.Error("retention sweep failed", "error", err)
				continue
			}
			if windows > 0 || logs > 0 {
				s.logger.Info("retention sweep completed", "windows_deleted", windows, "logs_deleted", logs)
			}
		}
	}
}

// SweepOnce drains both retention queues and returns the row counts.
func (s *Sweeper) SweepOnce(ctx context.Context, now time.Time) (int64, int64, error) {
	windows, err := s.drain(ctx, now.Add(-s.windowRetention), s.repo.DeleteExpiredWindows)
	metrics.SweptRows.WithLabelValues("rate_limit_windows").Add(float64(windows))
	if err != nil {
		return windows, 0, err
	}
	logs, err := s.drain(ctx, now.Add(-s.logRetention), s.repo.DeleteOldRequestLogs)
	metrics.SweptRows.WithLabelValues("request_logs").Add(float64(logs))
	return windows, logs, err
}

func (s *Sweeper) drain(ctx context.Context, olderThan time.Time, del func(context.Context, time.Time, int) (int64, error)) (int64, error) {
	var total int64
	for {
		n, err := del(ctx, olderThan, s.batchSize)
		total += n
		if err != nil {
			return total, err
		}
		if n < int64(s.batchSize) {
			return total, nil
		}
	}
}
