// Package metrics provides Prometheus metrics for the quote engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "quotes"

// Operation labels.
const (
	OpSave    = "save"
	OpRestore = "restore"
	OpCompare = "compare"
	OpStatus  = "status"
	OpDelete  = "delete"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	// OperationsTotal counts engine operations by op and outcome (ok, error).
	OperationsTotal *prometheus.CounterVec
	// VersionsCreated counts snapshots written.
	VersionsCreated prometheus.Counter
	// LockWaitSeconds measures time spent waiting for a quote lock.
	LockWaitSeconds prometheus.Histogram
	// LockTimeouts counts acquisitions that gave up.
	LockTimeouts prometheus.Counter
}

// New creates and registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		OperationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Quote engine operations by outcome.",
		}, []string{"op", "outcome"}),
		VersionsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "versions_created_total",
			Help:      "Version snapshots written.",
		}),
		LockWaitSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lock_wait_seconds",
			Help:      "Time spent waiting for a per-quote lock.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 2.5, 5},
		}),
		LockTimeouts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lock_timeouts_total",
			Help:      "Per-quote lock acquisitions that timed out.",
		}),
	}
}

// Discard returns metrics registered on a throwaway registry.
func Discard() *Metrics {
	return New(prometheus.NewRegistry())
}

// Observe records the outcome of op.
func (m *Metrics) Observe(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.OperationsTotal.WithLabelValues(op, outcome).Inc()
}

// LockWaited records a lock wait; timedOut marks a failed acquisition.
func (m *Metrics) LockWaited(d time.Duration, timedOut bool) {
	m.LockWaitSeconds.Observe(d.Seconds())
	if timedOut {
		m.LockTimeouts.Inc()
	}
}
