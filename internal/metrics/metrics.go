// Package metrics exposes Prometheus collectors for the regrade batch engine.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	itemsProcessedTotal *prometheus.CounterVec
	itemDurationSeconds *prometheus.HistogramVec
	activeWorkers       prometheus.Gauge
	runsTotal           *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus collectors. It is safe to call multiple
// times; only the first call registers anything.
func Init() {
	once.Do(func() {
		itemsProcessedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regrade_items_processed_total",
				Help: "Total items attempted, labeled by result.",
			},
			[]string{"result"},
		)

		itemDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "regrade_item_duration_seconds",
				Help:    "Histogram of per-item processing latency, labeled by result.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15},
			},
			[]string{"result"},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "regrade_active_workers",
				Help: "Number of workers currently running a claim loop.",
			},
		)

		runsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regrade_runs_total",
				Help: "Total engine runs, labeled by terminal state.",
			},
			[]string{"state"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveItem records one item attempt. All helpers are no-ops until Init
// runs, so library users and tests need not register collectors.
func ObserveItem(result string, duration time.Duration) {
	if itemsProcessedTotal == nil {
		return
	}
	itemsProcessedTotal.WithLabelValues(result).Inc()
	itemDurationSeconds.WithLabelValues(result).Observe(duration.Seconds())
}

// ObserveRun increments the run counter for the given terminal state.
func ObserveRun(state string) {
	if runsTotal == nil {
		return
	}
	runsTotal.WithLabelValues(state).Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	if activeWorkers == nil {
		return
	}
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	if activeWorkers == nil {
		return
	}
	activeWorkers.Dec()
}
