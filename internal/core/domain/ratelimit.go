package domain

import (
	"time"
)

// WindowCap is one fixed-window rate cap: at most Limit requests per
// Window for a given (identifier, endpoint) pair.
type WindowCap struct {
	Limit  int
	Window time.Duration
}

// Default caps match the reference deployment: a short burst cap and a
// long sustained cap, enforced simultaneously.
var (
	DefaultShortCap = WindowCap{Limit: 60, Window: 60 * time.Second}
	DefaultLongCap  = WindowCap{Limit: 1000, Window: time.Hour}
)

// WindowStart returns the fixed-window boundary containing t.
func (c WindowCap) WindowStart(t time.Time) time.Time {
	return t.Truncate(c.Window)
}

// RateLimitWindow is one counter row. At most one row exists per
// (identifier, endpoint, window_start, window_end); the count is only
// ever moved by an atomic increment in the store.
type RateLimitWindow struct {
	ID           string    `json:"id"`
	Identifier   string    `json:"identifier"` // client IP or user id
	Endpoint     string    `json:"endpoint"`
	WindowStart  time.Time `json:"window_start"`
	WindowEnd    time.Time `json:"window_end"`
	RequestCount int64     `json:"request_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Decision is the outcome of a rate-limit check. RetryAfter is only
// meaningful when Allowed is false.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}
