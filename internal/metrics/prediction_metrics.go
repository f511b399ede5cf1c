package metrics

import "github.com/prometheus/client_golang/prometheus"

// Estimator metrics
var (
	EstimatorFitDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "estimator_fit_duration_seconds",
		Help:      "Duration of estimator training by model",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	}, []string{"model"})
	EstimatorFitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "estimator_fits_total",
		Help:      "Total number of estimator fits by model and status",
	}, []string{"model", "status"})
)

// Prediction metrics
var (
	PredictionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "predictions_total",
		Help:      "Total number of race predictions by final event state",
	}, []string{"state"})
	PredictionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "prediction_duration_seconds",
		Help:      "Duration of a full race prediction in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	PredictionFallbacksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "prediction_fallbacks_total",
		Help:      "Total number of degraded inputs used during prediction by reason",
	}, []string{"reason"})
)

// RecordEstimatorFit records an estimator training run.
func RecordEstimatorFit(model, status string, durationSeconds float64) {
	EstimatorFitsTotal.WithLabelValues(model, status).Inc()
	EstimatorFitDuration.WithLabelValues(model).Observe(durationSeconds)
}

// RecordPrediction records a completed race prediction.
func RecordPrediction(state string, durationSeconds float64) {
	PredictionsTotal.WithLabelValues(state).Inc()
	PredictionDuration.Observe(durationSeconds)
}

// RecordPredictionFallback records a degraded input.
func RecordPredictionFallback(reason string) {
	PredictionFallbacksTotal.WithLabelValues(reason).Inc()
}
