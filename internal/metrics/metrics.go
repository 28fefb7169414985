// Package metrics exposes the process-wide Prometheus instrumentation for a
// running tree: lock wait telemetry, flush duration and open tree count.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/pwrlabs/merkletree/lock"
)

var (
	// LockUnhealthyWaitTotal counts lock acquisitions whose wait time
	// exceeded a tree's configured UnhealthyWaitThreshold, by lock mode.
	LockUnhealthyWaitTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "merkletree_lock_unhealthy_wait_total",
		Help: "Count of lock acquisitions that waited past the unhealthy threshold.",
	}, []string{"mode"})

	// OpenTrees is a gauge tracking the number of currently open Tree
	// instances in the process-wide registry.
	OpenTrees = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "merkletree_open_trees",
		Help: "Number of Tree instances currently open in this process.",
	})

	// FlushSeconds observes the wall-clock duration of flushToDisk calls.
	FlushSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "merkletree_flush_seconds",
		Help:    "Distribution of flushToDisk call durations.",
		Buckets: prometheus.DefBuckets,
	})
)

// Register adds every collector in this package to reg. Call once at
// process startup, typically with prometheus.DefaultRegisterer.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{LockUnhealthyWaitTotal, OpenTrees, FlushSeconds} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// OnUnhealthyWait adapts lock.UnhealthyWaitFunc to increment
// LockUnhealthyWaitTotal, for wiring into merkletree.Config.OnUnhealthyWait.
func OnUnhealthyWait(mode string, _ lock.Priority, _ time.Duration) {
	LockUnhealthyWaitTotal.WithLabelValues(mode).Inc()
}

// ObserveFlush records a completed flushToDisk call's duration.
func ObserveFlush(d time.Duration) {
	FlushSeconds.Observe(d.Seconds())
}
