package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	TargetDataLayer = "data_layer"
	TargetAuthStore = "auth_store"
)

var (
	registerOnce sync.Once

	migrationOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "identity_migration",
			Subsystem: "records",
			Name:      "outcomes_total",
			Help:      "Per-record migration outcomes.",
		},
		[]string{"strategy", "kind"},
	)
	migrationRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "identity_migration",
			Subsystem: "runs",
			Name:      "total",
			Help:      "Migration runs by result.",
		},
		[]string{"strategy", "result"},
	)
	externalCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "identity_migration",
			Subsystem: "external",
			Name:      "call_duration_seconds",
			Help:      "Latency of calls to the data layer and auth store.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"target", "operation", "status"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "identity_migration",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "identity_migration",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(migrationOutcomes, migrationRuns, externalCallDuration, httpRequests, httpDuration)
	})
}

func RecordOutcome(strategy, kind string) {
	RegisterMetrics()
	migrationOutcomes.WithLabelValues(strategy, kind).Inc()
}

func RecordRun(strategy, result string) {
	RegisterMetrics()
	migrationRuns.WithLabelValues(strategy, result).Inc()
}

// RecordExternalCall takes status 0 for transport failures.
func RecordExternalCall(target, operation string, status int, duration time.Duration) {
	RegisterMetrics()
	externalCallDuration.WithLabelValues(target, operation, strconv.Itoa(status)).Observe(duration.Seconds())
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}
