package observe

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metricsConfig struct {
	namespace string
	labels    prometheus.Labels
	registry  prometheus.Registerer
}

// MetricsOption changes where and how the collectors are registered.
type MetricsOption func(*metricsConfig)

// WithNamespace prefixes metric names with namespace instead of "imp".
func WithNamespace(namespace string) MetricsOption {
	return func(c *metricsConfig) {
		c.namespace = namespace
	}
}

// WithLabels attaches labels carrying the same value on every sample.
func WithLabels(labels prometheus.Labels) MetricsOption {
	return func(c *metricsConfig) {
		c.labels = labels
	}
}

// WithRegistry registers the collectors with registry rather than the
// process-wide default.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *metricsConfig) {
		c.registry = registry
	}
}

// Metrics holds the collectors fed by the Prometheus observer.
type Metrics struct {
	// EventsTotal counts events by group and kind.
	EventsTotal *prometheus.CounterVec

	// LiveStorage gauges, per group, storage constructed but not yet
	// released.
	LiveStorage *prometheus.GaugeVec
}

// NewMetrics registers the collectors described by opts.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := metricsConfig{namespace: "imp", registry: prometheus.DefaultRegisterer}
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.registry)

	return &Metrics{
		EventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.namespace,
			Name:        "events_total",
			Help:        "Total number of handle lifecycle events",
			ConstLabels: config.labels,
		}, []string{"group", "kind"}),

		LiveStorage: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.namespace,
			Name:        "live_storage",
			Help:        "Number of shared storage cells not yet released",
			ConstLabels: config.labels,
		}, []string{"group"}),
	}
}

// Observer returns an Observer updating this.
func (this *Metrics) Observer() Observer {
	return func(event Event) {
		this.EventsTotal.WithLabelValues(event.Group, event.Kind.String()).Inc()

		switch event.Kind {
		case Construct:
			this.LiveStorage.WithLabelValues(event.Group).Inc()
		case Release:
			this.LiveStorage.WithLabelValues(event.Group).Dec()
		}
	}
}

// Prometheus registers new collectors and returns an Observer feeding
// them.
//
// Metrics collected:
//   - imp_events_total: Counter of events by group and kind
//   - imp_live_storage: Gauge of unreleased storage by group
func Prometheus(opts ...MetricsOption) Observer {
	return NewMetrics(opts...).Observer()
}
