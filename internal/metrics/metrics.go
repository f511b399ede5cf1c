// Package metrics provides the centralized Prometheus registry for the
// prediction pipeline.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "f1_predictor"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	SessionsLoadedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_loaded_total",
		Help:      "Total number of session loads by session kind and outcome",
	}, []string{"kind", "outcome"})
	FeatureRowsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feature_rows_total",
		Help:      "Total number of feature rows assembled by session kind",
	}, []string{"kind"})
	ProviderRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_requests_total",
		Help:      "Total number of HTTP requests to external providers by outcome",
	}, []string{"provider", "outcome"})
	CircuitBreakerTripsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "circuit_breaker_trips_total",
		Help:      "Total number of provider circuit breaker trips",
	})
)

// Gauge metrics
var (
	HistoryEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "history_entries",
		Help:      "Number of session results held in the history log",
	})
	SessionCacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "session_cache_hit_ratio",
		Help:      "Hit ratio of the session cache",
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(SessionsLoadedTotal)
		registry.MustRegister(FeatureRowsTotal)
		registry.MustRegister(ProviderRequestsTotal)
		registry.MustRegister(CircuitBreakerTripsTotal)

		registry.MustRegister(HistoryEntries)
		registry.MustRegister(SessionCacheHitRatio)

		// Estimator and prediction metrics
		registry.MustRegister(EstimatorFitDuration)
		registry.MustRegister(EstimatorFitsTotal)
		registry.MustRegister(PredictionsTotal)
		registry.MustRegister(PredictionDuration)
		registry.MustRegister(PredictionFallbacksTotal)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordSessionLoad records a session load attempt.
func RecordSessionLoad(kind, outcome string) {
	SessionsLoadedTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordFeatureRows records assembled feature rows.
func RecordFeatureRows(kind string, n int) {
	FeatureRowsTotal.WithLabelValues(kind).Add(float64(n))
}

// RecordProviderRequest records one HTTP request to a provider.
func RecordProviderRequest(provider, outcome string) {
	ProviderRequestsTotal.WithLabelValues(provider, outcome).Inc()
}

// RecordCircuitBreakerTrip records a circuit breaker trip event.
func RecordCircuitBreakerTrip() {
	CircuitBreakerTripsTotal.Inc()
}

// UpdateHistoryEntries sets the history log size.
func UpdateHistoryEntries(n int) {
	HistoryEntries.Set(float64(n))
}

// UpdateSessionCacheHitRatio sets the session cache hit ratio.
func UpdateSessionCacheHitRatio(ratio float64) {
	SessionCacheHitRatio.Set(ratio)
}
