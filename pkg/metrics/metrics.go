// Package metrics exposes Prometheus collectors for configuration sessions.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "guildsettings"

type Metrics struct {
	registry *prometheus.Registry

	sessionsStarted *prometheus.CounterVec
	sessionsEnded   *prometheus.CounterVec
	sessionsActive  prometheus.Gauge
	saves           *prometheus.CounterVec
	lockRejections  prometheus.Counter
	lockExpiries    prometheus.Counter
	cacheLookups    *prometheus.CounterVec
}

// New registers every collector on a private registry, plus the Go runtime
// and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Configuration menus opened, by settings kind.",
		}, []string{"kind"}),
		sessionsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_ended_total",
			Help:      "Configuration menus closed, by settings kind and terminal reason.",
		}, []string{"kind", "reason"}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Configuration flows currently open.",
		}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saves_total",
			Help:      "Settings save attempts, by kind and result.",
		}, []string{"kind", "result"}),
		lockRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lock_rejections_total",
			Help:      "Configuration commands refused because the guild was locked.",
		}),
		lockExpiries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lock_expiries_total",
			Help:      "Guild locks reclaimed by the TTL instead of an explicit release.",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Settings cache lookups, by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.sessionsStarted,
		m.sessionsEnded,
		m.sessionsActive,
		m.saves,
		m.lockRejections,
		m.lockExpiries,
		m.cacheLookups,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) SessionStarted(kind string) {
	if m == nil {
		return
	}
	m.sessionsStarted.WithLabelValues(kind).Inc()
}

func (m *Metrics) SessionEnded(kind, reason string) {
	if m == nil {
		return
	}
	m.sessionsEnded.WithLabelValues(kind, reason).Inc()
}

// FlowOpened and FlowClosed track open flows, selector phase included.
func (m *Metrics) FlowOpened() {
	if m == nil {
		return
	}
	m.sessionsActive.Inc()
}

func (m *Metrics) FlowClosed() {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
}

func (m *Metrics) SaveResult(kind string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.saves.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) LockRejected() {
	if m == nil {
		return
	}
	m.lockRejections.Inc()
}

func (m *Metrics) LockExpired() {
	if m == nil {
		return
	}
	m.lockExpiries.Inc()
}

// CacheLookup satisfies storage.LookupObserver.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}
