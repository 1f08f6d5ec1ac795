package domain

import (
	"time"
)

// BodyCaptureLimit caps how many bytes of request and response bodies
// are kept in a RequestLog row.
const BodyCaptureLimit = 2048

// RequestLog is one append-only audit row. Every request produces
// exactly one, including requests rejected before authentication; in
// that case UserID stays nil. Rows are never updated after insert.
type RequestLog struct {
	ID           string    `json:"id"`
	Endpoint     string    `json:"endpoint"`
	Method       string    `json:"method"`
	Identifier   string    `json:"identifier"` // client IP
	UserID       *string   `json:"user_id,omitempty"`
	Status       int       `json:"status"`
	LatencyMs    int64     `json:"latency_ms"`
	RequestBody  string    `json:"request_body,omitempty"`
	ResponseBody string    `json:"response_body,omitempty"`
	Error        string    `json:"error,omitempty"` // server-side detail, never sent to clients
	CreatedAt    time.Time `json:"created_at"`
}

// UsageStat is one row of the usage_stats view: per-endpoint request
// accounting aggregated from request_logs.
type UsageStat struct {
	Endpoint      string  `json:"endpoint"`
	Method        string  `json:"method"`
	TotalRequests int64   `json:"total_requests"`
	RateLimited   int64   `json:"rate_limited"`
	Unauthorized  int64   `json:"unauthorized"`
	Failed        int64   `json:"failed"`
	AvgLatencyMs  float64 `json:"avg_latency_ms"`
	MaxLatencyMs  int64   `json:"max_latency_ms"`
}

// Truncate clips s to BodyCaptureLimit bytes for forensic capture.
func Truncate(s string) string {
	if len(s) <= BodyCaptureLimit {
		return s
	}
	return s[:BodyCaptureLimit]
}
