package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lobbytrack_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lobbytrack_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	syncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lobbytrack_sync_runs_total",
		Help: "Sync lane evaluations by lane and result (skipped, success, failure)",
	}, []string{"lane", "result"})

	syncDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lobbytrack_sync_duration_seconds",
		Help:    "Duration of sync lanes that ran",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"lane", "result"})

	syncRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lobbytrack_sync_records_total",
		Help: "Records processed by the reconciler by lane and outcome (synced, failed, skipped)",
	}, []string{"lane", "outcome"})

	upstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lobbytrack_upstream_requests_total",
		Help: "Outbound requests to directory providers by integration, call and status class",
	}, []string{"integration", "call", "status"})

	lastSuccess = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "lobbytrack_sync_last_success_timestamp_seconds",
		Help: "Unix time of the last successful run per lane",
	}, []string{"lane"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveSyncSkipped counts a lane that was evaluated but not due.
func ObserveSyncSkipped(lane string) {
	syncRuns.WithLabelValues(lane, "skipped").Inc()
}

// ObserveSyncRun records a lane that ran, with result "success" or "failure".
func ObserveSyncRun(lane, result string, duration time.Duration) {
	syncRuns.WithLabelValues(lane, result).Inc()
	syncDuration.WithLabelValues(lane, result).Observe(duration.Seconds())
	if result == "success" {
		lastSuccess.WithLabelValues(lane).SetToCurrentTime()
	}
}

// ObserveRecords adds n to the record counter for an outcome.
func ObserveRecords(lane, outcome string, n int) {
	if n <= 0 {
		return
	}
	syncRecords.WithLabelValues(lane, outcome).Add(float64(n))
}

// ObserveUpstream counts an outbound provider call. status is a class such
// as "2xx", "4xx" or "error".
func ObserveUpstream(integration, call, status string) {
	upstreamRequests.WithLabelValues(integration, call, status).Inc()
}

// StatusClass maps an HTTP status code to its metric label.
func StatusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	default:
		return "error"
	}
}
