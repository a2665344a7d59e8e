package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/gray-logic-zwave/internal/zwave"
)

// Namespace prefixes every metric name.
const Namespace = "graylogic_zwave"

// Collector records dispatcher activity. It implements zwave.Metrics.
type Collector struct {
	notifications  *prometheus.CounterVec
	reactions      *prometheus.CounterVec
	lookupFailures prometheus.Counter
	nodes          prometheus.Gauge
	handleLatency  prometheus.Histogram
}

var _ zwave.Metrics = (*Collector)(nil)

// NewCollector creates the collectors and registers them on reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "notifications_total",
			Help:      "Notifications handled by the dispatcher, by type.",
		}, []string{"type"}),
		reactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sensor_reactions_total",
			Help:      "Sensor-triggered switch reactions, by outcome.",
		}, []string{"outcome"}),
		lookupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "lookup_failures_total",
			Help:      "Reactions abandoned because a sensor or switch node or value was not registered.",
		}),
		nodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "nodes",
			Help:      "Nodes currently in the registry.",
		}),
		handleLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "notification_handle_seconds",
			Help:      "Time spent handling one notification, including any switch command.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
	}

	for _, col := range []prometheus.Collector{
		c.notifications, c.reactions, c.lookupFailures, c.nodes, c.handleLatency,
	} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("registering metrics: %w", err)
		}
	}

	// Export every known outcome at zero so alerts see the series before
	// the first failure.
	for _, outcome := range []string{
		zwave.ReactionApplied,
		zwave.ReactionLookupFailed,
		zwave.ReactionReadFailed,
		zwave.ReactionCommandFailed,
		zwave.ReactionReadBackFailed,
	} {
		c.reactions.WithLabelValues(outcome)
	}

	return c, nil
}

// ObserveNotification counts one handled notification and its latency.
// Unknown types share a single label value to bound cardinality.
func (c *Collector) ObserveNotification(t zwave.NotificationType, took time.Duration) {
	label := string(t)
	if !t.IsKnown() {
		label = "unknown"
	}
	c.notifications.WithLabelValues(label).Inc()
	c.handleLatency.Observe(took.Seconds())
}

// ObserveReaction counts one sensor reaction outcome.
func (c *Collector) ObserveReaction(outcome string) {
	c.reactions.WithLabelValues(outcome).Inc()
	if outcome == zwave.ReactionLookupFailed {
		c.lookupFailures.Inc()
	}
}

// SetNodeCount records the registry size.
func (c *Collector) SetNodeCount(n int) {
	c.nodes.Set(float64(n))
}
