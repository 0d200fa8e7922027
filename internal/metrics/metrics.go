// Package metrics exports flush statistics as Prometheus metrics.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lamtanloc512/mini-hibernate-sub001/internal/session"
)

const (
	namespace = "minihib"
	subsystem = "session"
)

// FlushCollector records session flushes. It implements session.FlushObserver
// and is safe for use by concurrent sessions.
type FlushCollector struct {
	actions  *prometheus.CounterVec
	flushes  *prometheus.CounterVec
	duration prometheus.Histogram
}

var _ session.FlushObserver = (*FlushCollector)(nil)

// NewFlushCollector creates the flush metrics and registers them on reg.
// A nil reg leaves the metrics unregistered.
func NewFlushCollector(reg prometheus.Registerer) (*FlushCollector, error) {
	c := &FlushCollector{
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "actions_total",
			Help:      "Actions handed to the persister, by kind.",
		}, []string{"kind"}),
		flushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "flushes_total",
			Help:      "Flushes that reached the persister, by result.",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "flush_duration_seconds",
			Help:      "Wall time spent in the persister per flush.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
	}

	// Pre-create both result series.
	c.flushes.WithLabelValues(resultOK)
	c.flushes.WithLabelValues(resultError)

	if reg == nil {
		return c, nil
	}
	for _, m := range []prometheus.Collector{c.actions, c.flushes, c.duration} {
		if err := reg.Register(m); err != nil {
			return nil, fmt.Errorf("register flush metrics: %w", err)
		}
	}
	return c, nil
}

const (
	resultOK    = "ok"
	resultError = "error"
)

// ObserveFlush records one flush.
func (c *FlushCollector) ObserveFlush(st session.FlushStats) {
	c.actions.WithLabelValues(string(session.ActionInsert)).Add(float64(st.Inserts))
	c.actions.WithLabelValues(string(session.ActionUpdate)).Add(float64(st.Updates))
	c.actions.WithLabelValues(string(session.ActionDelete)).Add(float64(st.Deletes))

	result := resultOK
	if st.Err != nil {
		result = resultError
	}
	c.flushes.WithLabelValues(result).Inc()
	c.duration.Observe(st.Duration.Seconds())
}

// Collectors returns the underlying collectors, for callers that register
// them on their own registry.
func (c *FlushCollector) Collectors() []prometheus.Collector {
	return []prometheus.Collector{c.actions, c.flushes, c.duration}
}
