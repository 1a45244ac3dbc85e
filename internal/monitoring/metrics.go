package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Simulation progress metrics
	daysSimulated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtester_days_simulated_total",
			Help: "Total number of trading days evaluated",
		},
		[]string{"outcome"},
	)

	sessionsExecuted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtester_sessions_executed_total",
			Help: "Total number of sessions executed",
		},
		[]string{"market"},
	)

	dayReturn = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "backtester_day_return",
			Help:    "Distribution of daily returns",
			Buckets: prometheus.LinearBuckets(-0.1, 0.02, 11),
		},
	)

	// Batch stage metrics
	monteCarloPaths = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "backtester_monte_carlo_paths_total",
			Help: "Total number of Monte Carlo paths simulated",
		},
	)

	walkForwardWindows = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "backtester_walk_forward_windows_total",
			Help: "Total number of walk-forward windows evaluated",
		},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtester_errors_total",
			Help: "Total number of errors",
		},
		[]string{"category"},
	)
)

func init() {
	// Register metrics
	prometheus.MustRegister(daysSimulated)
	prometheus.MustRegister(sessionsExecuted)
	prometheus.MustRegister(dayReturn)
	prometheus.MustRegister(monteCarloPaths)
	prometheus.MustRegister(walkForwardWindows)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler handles Prometheus metrics endpoint
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordDay records one evaluated trading day; outcome is "simulated" or
// "skipped".
func RecordDay(outcome string, ret float64) {
	daysSimulated.WithLabelValues(outcome).Inc()
	if outcome == "simulated" {
		dayReturn.Observe(ret)
	}
}

// RecordSession records one executed session for a market.
func RecordSession(market string) {
	sessionsExecuted.WithLabelValues(market).Inc()
}

// RecordMonteCarloPaths adds completed Monte Carlo paths.
func RecordMonteCarloPaths(n int) {
	monteCarloPaths.Add(float64(n))
}

// RecordWalkForwardWindows adds completed walk-forward windows.
func RecordWalkForwardWindows(n int) {
	walkForwardWindows.Add(float64(n))
}

// RecordError records an error metric by category
func RecordError(category string) {
	errorsTotal.WithLabelValues(category).Inc()
}
