// Package metrics exposes Prometheus collectors for the HTTP layer and the
// quiz session engine.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizstack_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quizstack_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.005, 0.025, 0.1, 0.5, 1, 2},
		},
		[]string{"method", "route"},
	)

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "quizstack_active_sessions",
			Help: "Number of quiz sessions currently held in memory",
		},
	)

	SessionEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizstack_session_events_total",
			Help: "Quiz events received, by kind and whether they changed state",
		},
		[]string{"event", "applied"},
	)

	SessionsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizstack_sessions_finished_total",
			Help: "Finished quiz sessions by outcome",
		},
		[]string{"outcome"},
	)
)

var registerOnce sync.Once

// Init registers all collectors with the default registry. Safe to call more
// than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestCounter, RequestDuration, ActiveSessions, SessionEvents, SessionsFinished)
	})
}

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
