// Package metrics adapts a flock.Pool's Stats() snapshot into Prometheus
// collectors, the way this pool's ancestor exported task-runner snapshots
// to Prometheus gauges.
package metrics

import (
	prom "github.com/prometheus/client_golang/prometheus"
)

// StatsProvider is implemented by the wrapper PoolProvider returns for a
// *flock.Pool; kept as an interface so that only adapter.go depends on the
// root package and callers can wire in a fake for tests.
type StatsProvider interface {
	Stats() Snapshot
}

// Snapshot mirrors the subset of flock.Stats this package exports. Kept
// as its own type so metrics has no compile-time dependency on the root
// package's internal layout.
type Snapshot struct {
	Submitted       uint64
	Completed       uint64
	Panicked        uint64
	Overflows       uint64
	OverflowDepth   int
	NumWorkers      int
	TotalQueueDepth int
	TotalCapacity   int
}

// Exporter registers and updates a fixed set of Prometheus collectors from
// repeated Pool.Stats() snapshots.
//
// Stats() reports cumulative lifetime totals, not per-interval deltas, so
// the monotonic counters below are exported as gauges set to the absolute
// value on every Observe rather than CounterVecs that would double-count
// on each poll.
type Exporter struct {
	submitted *prom.GaugeVec
	completed *prom.GaugeVec
	panicked  *prom.GaugeVec
	overflows *prom.GaugeVec

	overflowDepth *prom.GaugeVec
	numWorkers    *prom.GaugeVec
	queueDepth    *prom.GaugeVec
	queueCapacity *prom.GaugeVec
	queueUtilPct  *prom.GaugeVec
}

// NewExporter creates an Exporter and registers its collectors against reg.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewExporter(reg prom.Registerer, namespace string) (*Exporter, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}

	e := &Exporter{
		submitted: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace, Name: "tasks_submitted_total",
			Help: "Total tasks submitted to the pool (cumulative, externally tracked).",
		}, []string{"pool"}),
		completed: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace, Name: "tasks_completed_total",
			Help: "Total tasks that returned normally (cumulative, externally tracked).",
		}, []string{"pool"}),
		panicked: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace, Name: "tasks_panicked_total",
			Help: "Total tasks that panicked during execution (cumulative, externally tracked).",
		}, []string{"pool"}),
		overflows: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace, Name: "overflow_submissions_total",
			Help: "Total submissions that spilled into the shared overflow queue (cumulative, externally tracked).",
		}, []string{"pool"}),
		overflowDepth: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace, Name: "overflow_depth",
			Help: "Current length of the shared overflow queue.",
		}, []string{"pool"}),
		numWorkers: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace, Name: "workers",
			Help: "Current worker count.",
		}, []string{"pool"}),
		queueDepth: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace, Name: "queue_depth_total",
			Help: "Sum of every worker's private queue depth.",
		}, []string{"pool"}),
		queueCapacity: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace, Name: "queue_capacity_total",
			Help: "Sum of every worker's private queue capacity.",
		}, []string{"pool"}),
		queueUtilPct: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace, Name: "queue_utilization_percent",
			Help: "TotalQueueDepth / TotalCapacity * 100.",
		}, []string{"pool"}),
	}

	collectors := []prom.Collector{
		e.submitted, e.completed, e.panicked, e.overflows,
		e.overflowDepth, e.numWorkers, e.queueDepth, e.queueCapacity, e.queueUtilPct,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Observe records snapshot s under the given pool label, updating every
// registered collector.
func (e *Exporter) Observe(poolLabel string, s Snapshot) {
	e.submitted.WithLabelValues(poolLabel).Set(float64(s.Submitted))
	e.completed.WithLabelValues(poolLabel).Set(float64(s.Completed))
	e.panicked.WithLabelValues(poolLabel).Set(float64(s.Panicked))
	e.overflows.WithLabelValues(poolLabel).Set(float64(s.Overflows))

	e.overflowDepth.WithLabelValues(poolLabel).Set(float64(s.OverflowDepth))
	e.numWorkers.WithLabelValues(poolLabel).Set(float64(s.NumWorkers))
	e.queueDepth.WithLabelValues(poolLabel).Set(float64(s.TotalQueueDepth))
	e.queueCapacity.WithLabelValues(poolLabel).Set(float64(s.TotalCapacity))

	util := 0.0
	if s.TotalCapacity > 0 {
		util = float64(s.TotalQueueDepth) / float64(s.TotalCapacity) * 100
	}
	e.queueUtilPct.WithLabelValues(poolLabel).Set(util)
}
