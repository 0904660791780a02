package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "risk_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Business metrics
	RiskRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_runs_total",
			Help: "Total number of risk runs by method and terminal status",
		},
		[]string{"method", "status"},
	)

	RiskRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "risk_run_duration_seconds",
			Help:    "Risk run execution time in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method"},
	)

	ReturnSeriesLength = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "risk_return_series_length",
			Help:    "Length of the portfolio return series used for a run",
			Buckets: []float64{20, 60, 120, 252, 504, 1260},
		},
	)

	// System metrics
	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "risk_database_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"operation", "table"},
	)

	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_cache_hits_total",
			Help: "Risk run cache lookups by outcome",
		},
		[]string{"outcome"}, // hit, miss, error
	)
)

// RecordHTTPRequest records metrics for an HTTP request
func RecordHTTPRequest(method, endpoint, statusCode string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordRiskRun records a completed or failed risk run
func RecordRiskRun(method, status string, duration float64) {
	RiskRunsTotal.WithLabelValues(method, status).Inc()
	RiskRunDuration.WithLabelValues(method).Observe(duration)
}

// RecordDatabaseQuery records database query metrics
func RecordDatabaseQuery(operation, table string, duration float64) {
	DatabaseQueryDuration.WithLabelValues(operation, table).Observe(duration)
}

// RecordCacheLookup records a cache lookup outcome
func RecordCacheLookup(outcome string) {
	CacheHitsTotal.WithLabelValues(outcome).Inc()
}
