package observability

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LaunchMetrics records launchpad operation activity for Prometheus scraping.
type LaunchMetrics struct {
	operations *prometheus.CounterVec
	failures   *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

var (
	launchMetricsOnce sync.Once
	launchRegistry    *LaunchMetrics
)

// Metrics returns the lazily-initialised launchpad metrics registry.
func Metrics() *LaunchMetrics {
	launchMetricsOnce.Do(func() {
		launchRegistry = &LaunchMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "launchpad",
				Subsystem: "engine",
				Name:      "operations_total",
				Help:      "Total engine operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			failures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "launchpad",
				Subsystem: "engine",
				Name:      "failures_total",
				Help:      "Engine guard and fault failures segmented by operation and kind.",
			}, []string{"operation", "kind"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "launchpad",
				Subsystem: "engine",
				Name:      "operation_seconds",
				Help:      "Engine operation latency in seconds.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
		}
		prometheus.MustRegister(launchRegistry.operations, launchRegistry.failures, launchRegistry.latency)
	})
	return launchRegistry
}

// ObserveOperation records one completed operation.
func (m *LaunchMetrics) ObserveOperation(operation string, err error, started time.Time) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
		m.failures.WithLabelValues(operation, rootError(err).Error()).Inc()
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// rootError unwraps to the sentinel so failure labels stay low-cardinality.
func rootError(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
