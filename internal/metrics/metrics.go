package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry         *prometheus.Registry
	commands         *prometheus.CounterVec
	commandDuration  *prometheus.HistogramVec
	commitRetries    prometheus.Counter
	broadcastDropped *prometheus.CounterVec
	connections      prometheus.Gauge
}

// New creates the metrics on a dedicated registry so that several servers
// can live in one process (tests).
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watchsync_commands_total",
				Help: "Video sync commands processed",
			},
			[]string{"action", "outcome"},
		),
		commandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "watchsync_command_duration_seconds",
				Help:    "Time spent processing a video sync command",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"action"},
		),
		commitRetries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "watchsync_commit_retries_total",
				Help: "Commits retried after a version conflict",
			},
		),
		broadcastDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watchsync_broadcast_dropped_total",
				Help: "Broadcast messages dropped",
			},
			[]string{"reason"},
		),
		connections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "watchsync_ws_connections",
				Help: "Open websocket connections",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.commands,
		m.commandDuration,
		m.commitRetries,
		m.broadcastDropped,
		m.connections,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveCommand(action, outcome string, took time.Duration) {
	m.commands.WithLabelValues(action, outcome).Inc()
	m.commandDuration.WithLabelValues(action).Observe(took.Seconds())
}

func (m *Metrics) CommitRetried() {
	m.commitRetries.Inc()
}

func (m *Metrics) BroadcastDropped(reason string) {
	m.broadcastDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) ConnectionOpened() {
	m.connections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	m.connections.Dec()
}
