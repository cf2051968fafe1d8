// Package metrics exposes Prometheus collectors for the session host.
//
// Label values are limited to registered level codes and fixed status and
// reason strings, so cardinality is bounded by the level registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionsActive tracks sessions currently bound to a level.
	SessionsActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mazed_sessions_active",
		Help: "Current number of active sessions, by level.",
	}, []string{"level"})

	// SessionsAdmitted counts sessions that passed admission and got level state.
	SessionsAdmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mazed_sessions_admitted_total",
		Help: "Total number of admitted sessions, by level.",
	}, []string{"level"})

	// SessionsRejected counts refused session creations.
	SessionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mazed_sessions_rejected_total",
		Help: "Total number of refused session creations, by level and reason.",
	}, []string{"level", "reason"})

	// SessionsEnded counts sessions that reached a terminal state.
	SessionsEnded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mazed_sessions_ended_total",
		Help: "Total number of ended sessions, by level and terminal status.",
	}, []string{"level", "status"})

	// Moves counts mutating calls dispatched to levels.
	Moves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mazed_moves_total",
		Help: "Total number of moves dispatched, by level.",
	}, []string{"level"})

	// SessionDuration observes wall-clock session lifetimes.
	SessionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mazed_session_duration_seconds",
		Help:    "Session lifetime from admission to teardown, by level.",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
	}, []string{"level"})

	// ConnectionsOpen tracks client connections currently served, by transport.
	ConnectionsOpen = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mazed_connections_open",
		Help: "Current number of open client connections, by transport.",
	}, []string{"transport"})
)

// Rejection reasons.
const (
	ReasonLimit      = "limit"
	ReasonAllocation = "allocation"
	ReasonUnknown    = "unknown_level"
)

// RecordAdmit marks a session as admitted and active.
func RecordAdmit(level string) {
	SessionsAdmitted.WithLabelValues(level).Inc()
	SessionsActive.WithLabelValues(level).Inc()
}

// RecordReject increments the rejection counter.
func RecordReject(level, reason string) {
	SessionsRejected.WithLabelValues(level, reason).Inc()
}

// RecordEnd marks a session as ended with the given terminal status.
func RecordEnd(level, status string, lifetime time.Duration) {
	SessionsActive.WithLabelValues(level).Dec()
	SessionsEnded.WithLabelValues(level, status).Inc()
	SessionDuration.WithLabelValues(level).Observe(lifetime.Seconds())
}

// RecordMove increments the move counter.
func RecordMove(level string) {
	Moves.WithLabelValues(level).Inc()
}

// TrackConnection marks a connection on transport as open and returns the
// function that marks it closed.
func TrackConnection(transport string) func() {
	g := ConnectionsOpen.WithLabelValues(transport)
	g.Inc()
	return g.Dec
}
