// Package metrics defines the Prometheus collectors of the bridge.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Turn outcomes
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeDeclined  = "declined"
	OutcomeAborted   = "aborted"
)

// Metrics groups bridge collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry       *prometheus.Registry
	SessionsActive prometheus.Gauge
	TurnsTotal     *prometheus.CounterVec
	TurnDuration   prometheus.Histogram
	TokenRefresh   *prometheus.CounterVec
	Elicitations   *prometheus.CounterVec
	StreamErrors   prometheus.Counter
}

// New creates and registers bridge collectors on a dedicated registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "afmcp_sessions_active",
			Help: "Number of open bridge sessions",
		}),
		TurnsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "afmcp_turns_total",
				Help: "Conversation turns processed, by outcome",
			},
			[]string{"outcome"},
		),
		TurnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "afmcp_turn_duration_seconds",
			Help:    "Turn latency including elicitation waits",
			Buckets: prometheus.DefBuckets,
		}),
		TokenRefresh: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "afmcp_token_refresh_total",
				Help: "OAuth2 token requests, by result",
			},
			[]string{"result"},
		),
		Elicitations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "afmcp_elicitations_total",
				Help: "Elicitations raised by the agent, by outcome",
			},
			[]string{"outcome"},
		),
		StreamErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "afmcp_stream_errors_total",
			Help: "Error events decoded from upstream streams",
		}),
	}
	m.registry.MustRegister(m.SessionsActive, m.TurnsTotal, m.TurnDuration, m.TokenRefresh, m.Elicitations, m.StreamErrors)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SessionOpened() {
	if m != nil {
		m.SessionsActive.Inc()
	}
}

func (m *Metrics) SessionClosed() {
	if m != nil {
		m.SessionsActive.Dec()
	}
}

func (m *Metrics) Turn(outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.TurnsTotal.WithLabelValues(outcome).Inc()
	m.TurnDuration.Observe(time.Since(started).Seconds())
}

func (m *Metrics) Token(result string) {
	if m != nil {
		m.TokenRefresh.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) Elicitation(outcome string) {
	if m != nil {
		m.Elicitations.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) StreamError() {
	if m != nil {
		m.StreamErrors.Inc()
	}
}
