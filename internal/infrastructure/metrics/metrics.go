package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks every HTTP request by outcome
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatekeep_requests_total",
		Help: "Total number of HTTP requests processed",
	}, []string{"method", "endpoint", "status"})

	// RequestDuration tracks end-to-end request handling time
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gatekeep_request_duration_seconds",
		Help:    "Histogram of request handling duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	// RateLimitRejections counts requests rejected at the gate
	RateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatekeep_ratelimit_rejections_total",
		Help: "Total number of requests rejected by the rate limiter",
	}, []string{"endpoint"})

	// AuthFailures counts credential rejections
	AuthFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatekeep_auth_failures_total",
		Help: "Total number of rejected authentication attempts",
	})

	// AuditDropped counts audit entries that fell through to the fallback sink
	AuditDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatekeep_audit_dropped_total",
		Help: "Total number of audit entries not persisted to the store",
	})

	// SweptRows counts rows removed by the retention sweeper
	SweptRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatekeep_swept_rows_total",
		Help: "Total number of rows removed by retention sweeps",
	}, []string{"table"})

	// DBConnectionsActive tracks open database connections
	DBConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gatekeep_db_connections_active",
		Help: "Number of active database connections",
	})
)
