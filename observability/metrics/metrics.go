package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics records engine operation activity exposed on /metrics.
type EngineMetrics struct {
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

var (
	engineOnce     sync.Once
	engineRegistry *EngineMetrics
)

// Engine returns the lazily-initialised engine metrics registry.
func Engine() *EngineMetrics {
	engineOnce.Do(func() {
		engineRegistry = &EngineMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "missionledger",
				Subsystem: "engine",
				Name:      "requests_total",
				Help:      "Total engine operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "missionledger",
				Subsystem: "engine",
				Name:      "errors_total",
				Help:      "Total engine operation failures segmented by operation and numeric code.",
			}, []string{"operation", "code"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "missionledger",
				Subsystem: "engine",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for engine operations.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
		}
		prometheus.MustRegister(engineRegistry.requests, engineRegistry.errors, engineRegistry.latency)
	})
	return engineRegistry
}

// ObserveSuccess records a completed operation with its latency.
func (m *EngineMetrics) ObserveSuccess(operation string, started time.Time) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(operation, "ok").Inc()
	m.latency.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// ObserveFailure records a failed operation with its numeric code, when one
// applies.
func (m *EngineMetrics) ObserveFailure(operation string, code int, started time.Time) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(operation, "error").Inc()
	m.errors.WithLabelValues(operation, strconv.Itoa(code)).Inc()
	m.latency.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}
