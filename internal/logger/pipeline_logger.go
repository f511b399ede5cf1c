package logger

import (
	"github.com/sirupsen/logrus"
)

// PipelineLogger provides dedicated logging for feature extraction and training.
type PipelineLogger struct {
	*logrus.Entry
}

// NewPipelineLogger creates a new pipeline logger.
func NewPipelineLogger(baseLogger *logrus.Logger) *PipelineLogger {
	return &PipelineLogger{
		Entry: baseLogger.WithField("component", "pipeline"),
	}
}

// LogSessionExtracted logs feature rows produced for one session.
func (pl *PipelineLogger) LogSessionExtracted(season, round int, event, session string, rows int) {
	pl.WithFields(logrus.Fields{
		"season":  season,
		"round":   round,
		"event":   event,
		"session": session,
		"rows":    rows,
	}).Info("Session features extracted")
}

// LogSessionSkipped logs a session that could not be loaded or had no results.
func (pl *PipelineLogger) LogSessionSkipped(season int, event, session, reason string) {
	pl.WithFields(logrus.Fields{
		"season":  season,
		"event":   event,
		"session": session,
		"reason":  reason,
	}).Warn("Session skipped")
}

// LogHistoryAppended logs race results added to the history log.
func (pl *PipelineLogger) LogHistoryAppended(season, round, added, total int) {
	pl.WithFields(logrus.Fields{
		"season":        season,
		"round":         round,
		"added":         added,
		"total_entries": total,
	}).Debug("History appended")
}

// LogSeasonCompleted logs the end of a season's extraction.
func (pl *PipelineLogger) LogSeasonCompleted(season, events, rows, skipped int, path string) {
	pl.WithFields(logrus.Fields{
		"season":  season,
		"events":  events,
		"rows":    rows,
		"skipped": skipped,
		"output":  path,
	}).Info("Season extraction completed")
}

// LogModelTrained logs a fitted and persisted estimator.
func (pl *PipelineLogger) LogModelTrained(model string, rows int, durationSeconds float64, path string) {
	pl.WithFields(logrus.Fields{
		"model":            model,
		"rows":             rows,
		"duration_seconds": durationSeconds,
		"path":             path,
	}).Info("Model trained")
}

// LogModelSkipped logs a model with no training rows.
func (pl *PipelineLogger) LogModelSkipped(model, reason string) {
	pl.WithFields(logrus.Fields{
		"model":  model,
		"reason": reason,
	}).Warn("Model training skipped")
}
