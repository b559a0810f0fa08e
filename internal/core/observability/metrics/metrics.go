package metrics

import (
	"maps"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/zeusync/collider/internal/core/events/bus"
	"github.com/zeusync/collider/internal/core/signal"
)

// Config configures the collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "collider").
	Namespace string

	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for pass duration.
	Buckets []float64

	// Registry defaults to prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

type Option func(*Config)

func WithNamespace(namespace string) Option {
	return func(c *Config) { c.Namespace = namespace }
}

func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) { c.ConstLabels = labels }
}

func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) { c.Registry = registry }
}

func defaultConfig() Config {
	return Config{
		Namespace: "collider",
		Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Collector exports graph and bus activity. It is a signal.Observer and a
// bus.EventBusObserver.
type Collector struct {
	config Config

	passes       prometheus.Counter
	passDuration prometheus.Histogram
	recomputed   prometheus.Counter
	changed      prometheus.Counter
	notified     prometheus.Counter

	published *prometheus.CounterVec
	delivered prometheus.Counter
	errors    prometheus.Counter
}

func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	counter := func(subsystem, name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		})
	}

	return &Collector{
		config:     config,
		passes:     counter("graph", "passes_total", "Propagation passes run"),
		recomputed: counter("graph", "recomputed_total", "Derived signals recomputed"),
		changed:    counter("graph", "changed_total", "Signals whose value changed in a pass"),
		notified:   counter("graph", "notified_total", "Signals whose subscribers were notified"),
		passDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   "graph",
			Name:        "pass_duration_seconds",
			Help:        "Propagation pass duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		published: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   "bus",
			Name:        "events_total",
			Help:        "Events published, by type (edge.enter, edge.exit)",
			ConstLabels: config.ConstLabels,
		}, []string{"event_type"}),
		delivered: counter("bus", "deliveries_total", "Handler invocations"),
		errors:    counter("bus", "errors_total", "Publishes with at least one failing handler"),
	}
}

func (c *Collector) OnPass(stats signal.PassStats) {
	c.passes.Inc()
	c.recomputed.Add(float64(stats.Recomputed))
	c.changed.Add(float64(stats.Changed))
	c.notified.Add(float64(stats.Notified))
	c.passDuration.Observe(stats.Duration.Seconds())
}

func (c *Collector) OnPublish(_, eventType string, _ bus.Event) {
	c.published.WithLabelValues(eventType).Inc()
}

func (c *Collector) OnDelivered(_, _ string, handlers int, err error, _ time.Duration) {
	c.delivered.Add(float64(handlers))
	if err != nil {
		c.errors.Inc()
	}
}

// EntityStates exports a gauge per resolution state read from stats at
// scrape time.
func (c *Collector) EntityStates(stats func() (pending, ready, failed int)) {
	factory := promauto.With(c.config.Registry)
	for i, state := range []string{"pending", "ready", "failed"} {
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   c.config.Namespace,
			Subsystem:   "registry",
			Name:        "entities",
			Help:        "Registered entities by resolution state",
			ConstLabels: mergeLabels(c.config.ConstLabels, prometheus.Labels{"state": state}),
		}, func() float64 {
			p, r, f := stats()
			return float64([]int{p, r, f}[i])
		})
	}
}

func mergeLabels(a, b prometheus.Labels) prometheus.Labels {
	out := make(prometheus.Labels, len(a)+len(b))
	maps.Copy(out, a)
	maps.Copy(out, b)
	return out
}

var (
	_ signal.Observer      = (*Collector)(nil)
	_ bus.EventBusObserver = (*Collector)(nil)
)
