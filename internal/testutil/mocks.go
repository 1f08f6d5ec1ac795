package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/poyrazK/gatekeep/internal/core/domain"
)

// FakeCounter implements ports.WindowCounter in memory. It mirrors the
// store's atomicity guarantee with a mutex so concurrency tests against
// the rate limiter behave like the real adapters.
type FakeCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	Err    error // returned by Increment when set
}

func NewFakeCounter() *FakeCounter {
	return &FakeCounter{counts: make(map[string]int64)}
}

func (c *FakeCounter) Increment(_ context.Context, identifier, endpoint string, windowStart time.Time, window time.Duration) (int64, error) {
	if c.Err != nil {
		return 0, c.Err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	key := identifier + "|" + endpoint + "|" + windowStart.UTC().Format(time.RFC3339) + "|" + window.String()
	c.counts[key]++
	return c.counts[key], nil
}

// Count returns the current counter for a window, zero when absent.
func (c *FakeCounter) Count(identifier, endpoint string, windowStart time.Time, window time.Duration) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := identifier + "|" + endpoint + "|" + windowStart.UTC().Format(time.RFC3339) + "|" + window.String()
	return c.counts[key]
}

// FakeRecorder implements ports.AuditRecorder, collecting entries for
// assertions.
type FakeRecorder struct {
	mu      sync.Mutex
	entries []*domain.RequestLog
}

func (r *FakeRecorder) Record(entry *domain.RequestLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

// Entries returns a snapshot of everything recorded so far.
func (r *FakeRecorder) Entries() []*domain.RequestLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.RequestLog, len(r.entries))
	copy(out, r.entries)
	return out
}
