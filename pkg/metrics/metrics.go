// Package metrics records reactive engine activity.
//
// The engine reports through the Recorder interface; Nop discards everything
// and Prometheus exports counters through a prometheus.Registerer:
//
//	rec := metrics.NewPrometheus(metrics.WithNamespace("shop"))
//	center := reactive.NewCenter(reactive.CenterOptions{Metrics: rec})
//	http.Handle("/metrics", promhttp.Handler())
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Notification kinds.
const (
	KindValue    = "value"
	KindList     = "list"
	KindChildren = "children"
	KindSweep    = "sweep"
)

// List reconciliation operations.
const (
	ListGrow   = "grow"
	ListShrink = "shrink"
	ListReset  = "reset"
)

// Recorder receives engine events.
type Recorder interface {
	// Notification counts one subject dispatch of the given kind.
	Notification(kind string)

	// Binding counts one compiled directive.
	Binding(directive string)

	// BindingError counts one failed directive evaluation.
	BindingError(directive string)

	// ListChange counts one list reconciliation step.
	ListChange(op string, nodes int)

	// LiveEvent counts one client event handled by the live server.
	LiveEvent(event string, err error)

	// LiveClients moves the connected client gauge by delta.
	LiveClients(delta int)
}

// Nop is a Recorder that discards everything.
type Nop struct{}

func (Nop) Notification(string)     {}
func (Nop) Binding(string)          {}
func (Nop) BindingError(string)     {}
func (Nop) ListChange(string, int)  {}
func (Nop) LiveEvent(string, error) {}
func (Nop) LiveClients(int)         {}

// Or returns r, or Nop when r is nil.
func Or(r Recorder) Recorder {
	if r == nil {
		return Nop{}
	}
	return r
}

// Config configures the Prometheus recorder.
type Config struct {
	// Namespace is the metrics namespace (default: "vbind").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the Prometheus recorder.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "vbind",
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Prometheus is a Recorder backed by prometheus collectors.
type Prometheus struct {
	notifications *prometheus.CounterVec
	bindings      *prometheus.CounterVec
	bindingErrors *prometheus.CounterVec
	listChanges   *prometheus.CounterVec
	listNodes     *prometheus.CounterVec
	liveEvents    *prometheus.CounterVec
	liveClients   prometheus.Gauge
}

// NewPrometheus registers the collectors and returns the recorder.
// Registering twice against the same registry panics, as promauto does.
func NewPrometheus(opts ...Option) *Prometheus {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Prometheus{
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "notifications_total",
			Help:        "Total number of subject dispatches by kind",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		bindings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "bindings_total",
			Help:        "Total number of compiled directives",
			ConstLabels: config.ConstLabels,
		}, []string{"directive"}),

		bindingErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "binding_errors_total",
			Help:        "Total number of failed directive evaluations",
			ConstLabels: config.ConstLabels,
		}, []string{"directive"}),

		listChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "list_changes_total",
			Help:        "Total number of list reconciliation steps",
			ConstLabels: config.ConstLabels,
		}, []string{"op"}),

		listNodes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "list_nodes_total",
			Help:        "Total number of list clones added or removed",
			ConstLabels: config.ConstLabels,
		}, []string{"op"}),

		liveEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "live_events_total",
			Help:        "Total number of live client events by type and status",
			ConstLabels: config.ConstLabels,
		}, []string{"event", "status"}),

		liveClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "live_clients",
			Help:        "Number of connected live clients",
			ConstLabels: config.ConstLabels,
		}),
	}
}

func (p *Prometheus) Notification(kind string) {
	p.notifications.WithLabelValues(kind).Inc()
}

func (p *Prometheus) Binding(directive string) {
	p.bindings.WithLabelValues(directive).Inc()
}

func (p *Prometheus) BindingError(directive string) {
	p.bindingErrors.WithLabelValues(directive).Inc()
}

func (p *Prometheus) ListChange(op string, nodes int) {
	p.listChanges.WithLabelValues(op).Inc()
	p.listNodes.WithLabelValues(op).Add(float64(nodes))
}

func (p *Prometheus) LiveEvent(event string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	p.liveEvents.WithLabelValues(event, status).Inc()
}

func (p *Prometheus) LiveClients(delta int) {
	p.liveClients.Add(float64(delta))
}
