package querysync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus collectors of a Metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "querysync").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for intents per flush.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures a Metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the intents-per-flush histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "querysync",
		Buckets:   []float64{1, 2, 4, 8, 16, 32, 64},
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the Prometheus collectors shared by every Binding that is
// given it. A nil *Metrics records nothing.
type Metrics struct {
	writes           *prometheus.CounterVec
	flushes          prometheus.Counter
	redundantFlushes prometheus.Counter
	intentsPerFlush  prometheus.Histogram
	collisions       prometheus.Counter
	synchronizers    prometheus.Gauge
}

// NewMetrics registers the querysync collectors. Registering twice on the
// same registry panics, so create one Metrics per registry and share it.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		writes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "writes_requested_total",
			Help:        "Query writes requested from the coalescer, by operation",
			ConstLabels: config.ConstLabels,
		}, []string{"op"}),

		flushes: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flushes_total",
			Help:        "Coalesced router replaces issued",
			ConstLabels: config.ConstLabels,
		}),

		redundantFlushes: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "redundant_flushes_total",
			Help:        "Coalesced replaces that left the query unchanged",
			ConstLabels: config.ConstLabels,
		}),

		intentsPerFlush: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "intents_per_flush",
			Help:        "Pending upserts and deletes applied by one flush",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		collisions: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "key_collisions_total",
			Help:        "Synchronizers mounted on a query key that was already active",
			ConstLabels: config.ConstLabels,
		}),

		synchronizers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_synchronizers",
			Help:        "Synchronizers currently mounted",
			ConstLabels: config.ConstLabels,
		}),
	}
}

func (m *Metrics) recordWrite(op string) {
	if m == nil {
		return
	}
	m.writes.WithLabelValues(op).Inc()
}

func (m *Metrics) recordFlush(intents int, redundant bool) {
	if m == nil {
		return
	}
	m.flushes.Inc()
	m.intentsPerFlush.Observe(float64(intents))
	if redundant {
		m.redundantFlushes.Inc()
	}
}

func (m *Metrics) recordCollision() {
	if m == nil {
		return
	}
	m.collisions.Inc()
}

func (m *Metrics) mounted(delta float64) {
	if m == nil {
		return
	}
	m.synchronizers.Add(delta)
}
