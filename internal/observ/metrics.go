package observ

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Metrics holds the controller's prometheus collectors. One instance is
// created at startup and threaded to the components that record into it.
type Metrics struct {
	registry *prometheus.Registry

	CommandsQueued   *prometheus.CounterVec
	CommandsDropped  prometheus.Counter
	CommandsDrained  prometheus.Counter
	DedupeSuppressed *prometheus.CounterVec
	GateSuppressed   *prometheus.CounterVec
	Evaluations      *prometheus.CounterVec
	Connected        prometheus.Gauge
	DrawdownPct      prometheus.Gauge
	QueueDepth       prometheus.Gauge
}

// NewMetrics builds and registers all collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CommandsQueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tradepilot",
			Name:      "commands_queued_total",
		}, []string{"action"}),
		CommandsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tradepilot",
			Name:      "commands_dropped_total",
		}),
		CommandsDrained: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tradepilot",
			Name:      "commands_drained_total",
		}),
		DedupeSuppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tradepilot",
			Name:      "dedupe_suppressed_total",
		}, []string{"key"}),
		GateSuppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tradepilot",
			Name:      "gate_suppressed_total",
		}, []string{"gate"}),
		Evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tradepilot",
			Name:      "evaluations_total",
		}, []string{"decision"}),
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tradepilot",
			Name:      "agent_connected",
		}),
		DrawdownPct: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tradepilot",
			Name:      "daily_drawdown_pct",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tradepilot",
			Name:      "command_queue_depth",
		}),
	}
	m.registry.MustRegister(
		m.CommandsQueued, m.CommandsDropped, m.CommandsDrained,
		m.DedupeSuppressed, m.GateSuppressed, m.Evaluations,
		m.Connected, m.DrawdownPct, m.QueueDepth,
	)
	return m
}

// Serve exposes /metrics on addr. Runs until the listener fails; intended to
// be launched on its own goroutine from main.
func (m *Metrics) Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Str("addr", addr).Msg("metrics listener stopped")
	}
}
