package session

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Session-level Prometheus instrumentation: connection lifecycle, message
// traffic by kind, and handshake stage latency.
var (
	sessionConnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chartstream_session_connects_total",
			Help: "Total number of session connect attempts",
		},
		[]string{"status"}, // "success", "failed"
	)

	sessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chartstream_sessions_active",
			Help: "Number of currently running sessions",
		},
	)

	messagesReadTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chartstream_messages_read_total",
			Help: "Total number of parsed messages read from the transport",
		},
		[]string{"kind"},
	)

	messagesWrittenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chartstream_messages_written_total",
			Help: "Total number of protocol requests written to the transport",
		},
		[]string{"method"},
	)

	handshakeStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chartstream_handshake_stage_duration_seconds",
			Help:    "Duration of each handshake stage",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		},
		[]string{"stage"},
	)

	// reconnectsTotal is registered but never incremented by the core itself:
	// reconnect/backoff is out of scope here. A wrapper that adds
	// reconnection can reuse it.
	reconnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chartstream_session_reconnects_total",
			Help: "Total number of session reconnection attempts",
		},
		[]string{"name"},
	)
)

func recordConnect(success bool) {
	status := "success"
	if !success {
		status = "failed"
	}
	sessionConnectsTotal.WithLabelValues(status).Inc()
	if success {
		sessionsActive.Inc()
	}
}

func recordDisconnect() {
	sessionsActive.Dec()
}

func recordMessageRead(kind string) {
	messagesReadTotal.WithLabelValues(kind).Inc()
}

func recordMessageWritten(method string) {
	messagesWrittenTotal.WithLabelValues(method).Inc()
}

func recordHandshakeStage(stage string, d time.Duration) {
	handshakeStageDuration.WithLabelValues(stage).Observe(d.Seconds())
}
