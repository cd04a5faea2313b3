// Package metrics exposes resolver activity and derived console flags in
// Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eugenenazirov/rmq-console/internal/config"
)

const namespace = "rmq_console"

// Metrics implements config.Recorder on top of a dedicated registry.
type Metrics struct {
	registry *prometheus.Registry
	updates  *prometheus.CounterVec
	latches  prometheus.Counter
}

// New creates the metric set and registers it, together with the Go runtime
// collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "config_updates_total",
			Help:      "Calls to propagating configuration setters by field and result.",
		}, []string{"field", "result"}),
		latches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_latched_total",
			Help:      "Times the login requirement was forced on by the environment.",
		}),
	}

	m.registry.MustRegister(
		m.updates,
		m.latches,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RecordUpdate counts a setter outcome.
func (m *Metrics) RecordUpdate(field string, result config.SetResult) {
	m.updates.WithLabelValues(field, result.String()).Inc()
}

// RecordLoginLatch counts a login latch.
func (m *Metrics) RecordLoginLatch() {
	m.latches.Inc()
}

// ObserveResolver exports the resolver's derived flags as gauges evaluated at
// scrape time. The login gauge uses the side-effect free resolution.
func (m *Metrics) ObserveResolver(r *config.Resolver) {
	m.registry.MustRegister(
		flagGauge("login_required", "Whether console login is required.", r.ResolveLoginRequired),
		flagGauge("acl_enabled", "Whether both ACL keys resolve to non-blank values.", r.IsACLEnabled),
		flagGauge("use_tls", "Whether TLS is used towards the brokers.", r.UseTLS),
		flagGauge("dashboard_collect_enabled", "Whether dashboard data collection is enabled.", r.EnableDashBoardCollect),
	)
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func flagGauge(name, help string, fn func() bool) prometheus.GaugeFunc {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, func() float64 {
		if fn() {
			return 1
		}
		return 0
	})
}
