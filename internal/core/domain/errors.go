package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors forming the request-level taxonomy. Handlers map
// these onto HTTP statuses; anything unrecognized becomes a 500 with
// no internal detail leaked.
var (
	// ErrUnauthorized covers every authentication failure. Bad
	// signature, expired token, revoked key and unknown key all
	// collapse to this one value so callers cannot enumerate keys.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound is returned for missing or foreign-owned resources.
	ErrNotFound = errors.New("not found")
)

// RateLimitError rejects a request that exceeded a window cap.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter)
}

// ValidationError rejects malformed input before any store mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
