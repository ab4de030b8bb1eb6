package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	failures   *prometheus.CounterVec
	warnings   prometheus.Counter
	compiles   prometheus.Counter
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "narcorisks",
			Name:      "operations_total",
			Help:      "Checklist operations applied to the session.",
		}, []string{"op"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "narcorisks",
			Name:      "operation_failures_total",
			Help:      "Checklist operations rejected with an error.",
		}, []string{"op"}),
		warnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "narcorisks",
			Name:      "warnings_total",
			Help:      "Non-fatal warnings raised while applying operations.",
		}),
		compiles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "narcorisks",
			Name:      "summary_compiles_total",
			Help:      "Summary documents compiled.",
		}),
	}
	m.registry.MustRegister(m.operations, m.failures, m.warnings, m.compiles)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
