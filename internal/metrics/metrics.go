package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the tool router
type Metrics struct {
	registry *prometheus.Registry

	// Tool call metrics
	ToolCallsTotal      *prometheus.CounterVec
	ToolCallDuration    *prometheus.HistogramVec
	ToolCallErrorsTotal *prometheus.CounterVec

	// Backend metrics
	BackendsConnected  prometheus.Gauge
	ToolsDiscovered    prometheus.Gauge
	ConfigReloadsTotal *prometheus.CounterVec

	// Confirmation metrics
	ConfirmationsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		ToolCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_calls_total",
				Help: "Total number of tool calls dispatched to backends",
			},
			[]string{"tool", "status"},
		),
		ToolCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tool_call_duration_seconds",
				Help:    "Duration of tool calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
		ToolCallErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_call_errors_total",
				Help: "Total number of tool call errors",
			},
			[]string{"tool", "error_type"},
		),

		BackendsConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "backends_connected",
				Help: "Number of currently connected tool backends",
			},
		),
		ToolsDiscovered: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tools_discovered",
				Help: "Number of tools in the current catalog",
			},
		),
		ConfigReloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "config_reloads_total",
				Help: "Total number of configuration reload cycles",
			},
			[]string{"outcome"},
		),

		ConfirmationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "confirmations_total",
				Help: "Total number of confirmation prompts by outcome",
			},
			[]string{"outcome"},
		),
	}

	m.registerMetrics()

	return m
}

// registerMetrics registers all metrics with the registry
func (m *Metrics) registerMetrics() {
	m.registry.MustRegister(m.ToolCallsTotal)
	m.registry.MustRegister(m.ToolCallDuration)
	m.registry.MustRegister(m.ToolCallErrorsTotal)
	m.registry.MustRegister(m.BackendsConnected)
	m.registry.MustRegister(m.ToolsDiscovered)
	m.registry.MustRegister(m.ConfigReloadsTotal)
	m.registry.MustRegister(m.ConfirmationsTotal)
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
