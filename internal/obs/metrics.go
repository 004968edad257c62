package obs

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Client-side metrics: outbound API traffic plus core state transitions.
var (
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "novus_api_requests_total",
			Help: "Total number of outbound API requests.",
		},
		[]string{"endpoint", "outcome"},
	)

	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "novus_api_request_duration_seconds",
			Help:    "Outbound API request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	sessionTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "novus_session_transitions_total",
			Help: "Session status transitions observed by the auth state machine.",
		},
		[]string{"from", "to"},
	)

	synthesisTurns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "novus_synthesis_turns_total",
			Help: "Completed synthesis turns by outcome.",
		},
		[]string{"outcome"},
	)
)

// Init registers all metrics in the default registry.
func Init() {
	prometheus.MustRegister(apiRequestsTotal, apiRequestDuration, sessionTransitions, synthesisTurns)
}

// Handler exposes the default registry, used by the optional debug listener.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveAPIRequest records one outbound request.
func ObserveAPIRequest(endpoint, outcome string, d time.Duration) {
	apiRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	apiRequestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// CountSessionTransition records a session status change.
func CountSessionTransition(from, to string) {
	sessionTransitions.WithLabelValues(from, to).Inc()
}

// CountSynthesisTurn records a finished synthesis turn.
func CountSynthesisTurn(outcome string) {
	synthesisTurns.WithLabelValues(outcome).Inc()
}
