package logger

import (
	"github.com/sirupsen/logrus"
)

// PredictionLogger provides dedicated logging for prediction runs.
type PredictionLogger struct {
	*logrus.Entry
}

// NewPredictionLogger creates a new prediction logger.
func NewPredictionLogger(baseLogger *logrus.Logger) *PredictionLogger {
	return &PredictionLogger{
		Entry: baseLogger.WithField("component", "prediction"),
	}
}

// LogStateTransition logs the event state decided by the qualifying lookup.
func (pl *PredictionLogger) LogStateTransition(season int, event, from, to string) {
	pl.WithFields(logrus.Fields{
		"season": season,
		"event":  event,
		"from":   from,
		"to":     to,
	}).Info("Event state transition")
}

// LogDriverPrediction logs the per-driver model outputs.
func (pl *PredictionLogger) LogDriverPrediction(driver string, qualifyingPosition float64, sprintClass string, raceScore float64) {
	pl.WithFields(logrus.Fields{
		"driver":              driver,
		"qualifying_position": qualifyingPosition,
		"sprint_class":        sprintClass,
		"race_score":          raceScore,
	}).Debug("Driver prediction computed")
}

// LogFallbackUsed logs a default substituted for unavailable data.
func (pl *PredictionLogger) LogFallbackUsed(reason, detail string) {
	pl.WithFields(logrus.Fields{
		"reason": reason,
		"detail": detail,
	}).Warn("Prediction fallback used")
}

// LogPredictionRun logs a completed prediction run.
func (pl *PredictionLogger) LogPredictionRun(runID string, season int, event, state string, drivers int, durationMs float64) {
	pl.WithFields(logrus.Fields{
		"run_id":      runID,
		"season":      season,
		"event":       event,
		"state":       state,
		"drivers":     drivers,
		"duration_ms": durationMs,
	}).Info("Prediction run completed")
}

// LogPredictionError logs an estimator failure.
func (pl *PredictionLogger) LogPredictionError(model string, err error) {
	pl.WithFields(logrus.Fields{
		"model": model,
	}).WithError(err).Error("Prediction failed")
}
