package services

import (
	"context"
	"fmt"
	"time"

	"github.com/poyrazK/gatekeep/internal/core/domain"
	"github.com/poyrazK/gatekeep/internal/core/ports"
)

type rateLimitService struct {
	counter ports.WindowCounter
	caps    []domain.WindowCap
}

// NewRateLimitService enforces every cap simultaneously: a request is
// admitted only if no cap's post-increment count exceeds its limit.
func NewRateLimitService(counter ports.WindowCounter, caps ...domain.WindowCap) ports.RateLimitService {
	if len(caps) == 0 {
		caps = []domain.WindowCap{domain.DefaultShortCap, domain.DefaultLongCap}
	}
	return &rateLimitService{counter: counter, caps: caps}
}

// CheckAndIncrement counts the request against every cap before
// comparing, so N concurrent arrivals always leave counters at exactly
// N regardless of how many were rejected. On rejection RetryAfter is
// the remaining time of the longest violated window, rounded up to
// whole seconds for the Retry-After header.
func (s *rateLimitService) CheckAndIncrement(ctx context.Context, identifier, endpoint string, now time.Time) (domain.Decision, error) {
	var retryAfter time.Duration
	allowed := true

	for _, c := range s.caps {
		windowStart := c.WindowStart(now)
		count, err := s.counter.Increment(ctx, identifier, endpoint, windowStart, c.Window)
		if err != nil {
			return domain.Decision{}, fmt.Errorf("increment window counter: %w", err)
		}
		if count > int64(c.Limit) {
			allowed = false
			if remaining := windowStart.Add(c.Window).Sub(now); remaining > retryAfter {
				retryAfter = remaining
			}
		}
	}

	if allowed {
		return domain.Decision{Allowed: true}, nil
	}
	return domain.Decision{Allowed: false, RetryAfter: ceilSeconds(retryAfter)}, nil
}

func ceilSeconds(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Second
	}
	secs := d / time.Second
	if d%time.Second != 0 {
		secs++
	}
	return secs * time.Second
}
