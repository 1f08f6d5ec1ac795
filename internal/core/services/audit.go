package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/poyrazK/gatekeep/internal/core/domain"
	"github.com/poyrazK/gatekeep/internal/core/ports"
	"github.com/poyrazK/gatekeep/internal/infrastructure/metrics"
)

// AuditRecorder writes request logs through a buffered channel so the
// request path never waits on the store. Entries that cannot be
// buffered or persisted land in the fallback slog sink instead; no
// failure here ever reaches the caller.
type AuditRecorder struct {
	repo    ports.Repository
	logger  *slog.Logger
	entries chan *domain.RequestLog
	wg      sync.WaitGroup

	closeOnce sync.Once

	// WriteTimeout bounds each store insert.
	WriteTimeout time.Duration
}

// NewAuditRecorder starts the writer goroutine immediately. Close must
// be called to drain the buffer on shutdown.
func NewAuditRecorder(repo ports.Repository, logger *slog.Logger, buffer int) *AuditRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	if buffer <= 0 {
		buffer = 1024
	}
	r := &AuditRecorder{
		repo:         repo,
		logger:       logger,
		entries:      make(chan *domain.RequestLog, buffer),
		WriteTimeout: 5 * time.Second,
	}
	r.wg.Add(1)
	go r.writeLoop()
	return r
}

// Record enqueues one entry. It never blocks: on a full buffer the
// entry is dumped to the fallback sink and counted as dropped.
func (r *AuditRecorder) Record(entry *domain.RequestLog) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	select {
	case r.entries <- entry:
	default:
		metrics.AuditDropped.Inc()
		r.fallback("audit buffer full", entry)
	}
}

// Close stops accepting entries and waits for the buffer to drain.
func (r *AuditRecorder) Close() {
	r.closeOnce.Do(func() { close(r.entries) })
	r.wg.Wait()
}

func (r *AuditRecorder) writeLoop() {
	defer r.wg.Done()
	for entry := range r.entries {
		ctx, cancel := context.WithTimeout(context.Background(), r.WriteTimeout)
		err := r.repo.SaveRequestLog(ctx, entry)
		cancel()
		if err != nil {
			metrics.AuditDropped.Inc()
			r.fallback("audit write failed: "+err.Error(), entry)
		}
	}
}

func (r *AuditRecorder) fallback(reason string, entry *domain.RequestLog) {
	r.logger.Error(reason,
		"endpoint", entry.Endpoint,
		"method", entry.Method,
		"identifier", entry.Identifier,
		"status", entry.Status,
		"latency_ms", entry.LatencyMs,
	)
}
