// Package predictor produces ranked race predictions for an event weekend,
// choosing inputs by how far the weekend has progressed.
package predictor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/f1-predictor/internal/datasource"
	"github.com/yourusername/f1-predictor/internal/estimator"
	"github.com/yourusername/f1-predictor/internal/features"
	"github.com/yourusername/f1-predictor/internal/logger"
	"github.com/yourusername/f1-predictor/internal/metrics"
	"github.com/yourusername/f1-predictor/internal/models"
	"github.com/yourusername/f1-predictor/internal/processor"
	"github.com/yourusername/f1-predictor/internal/repository"
	"github.com/yourusername/f1-predictor/internal/weather"
)

// FallbackTrackTemp is used when the qualifying session could not be loaded.
const FallbackTrackTemp = 30.0

// ErrDriverNotFound is returned when a requested driver is not in the field.
var ErrDriverNotFound = errors.New("driver not found in predictions")

// Fallback reasons reported to metrics and logs.
const (
	fallbackSchedule     = "schedule_unavailable"
	fallbackQualifying   = "qualifying_unavailable"
	fallbackPractice     = "practice_unavailable"
	fallbackDriverStats  = "driver_stats_default"
	fallbackFieldReused  = "field_reused"
	fallbackSprintModel  = "sprint_model_missing"
	fallbackWeather      = "weather_unavailable"
	fallbackPersistence  = "persist_failed"
	fallbackDefaultField = "default_driver_list"
)

// SprintClassifier predicts sprint outcome buckets.
type SprintClassifier interface {
	PredictClasses(X [][]float64) ([]models.SprintClass, error)
}

// Models are the restored estimators. Sprint may be nil.
type Models struct {
	Qualifying estimator.Estimator
	Sprint     SprintClassifier
	Race       estimator.Estimator
}

// ModelsFromSet adapts a restored estimator set.
func ModelsFromSet(set *estimator.Set) Models {
	m := Models{Qualifying: set.Qualifying, Race: set.Race}
	if set.Sprint != nil {
		m.Sprint = set.Sprint
	}
	return m
}

// Dependencies are the collaborators of a Predictor. Weather, Repository and
// History are optional.
type Dependencies struct {
	Provider   datasource.SessionProvider
	Weather    weather.Provider
	Models     Models
	History    []models.FeatureRow
	Repository repository.PredictionRepository
	Features   processor.Config
	Logger     *logrus.Logger
}

// Predictor assembles inference rows and runs the estimators.
type Predictor struct {
	provider datasource.SessionProvider
	weather  weather.Provider
	models   Models
	stats    *StatsIndex
	drivers  *DriverDirectory
	repo     repository.PredictionRepository
	track    *features.TrackLookup
	practice *features.PracticeCalculator
	log      *logger.PredictionLogger
	now      func() time.Time

	// lastDrivers is the most recently resolved field, reused when the
	// qualifying lookup fails.
	lastDrivers []string
}

// New creates a Predictor.
func New(deps Dependencies) (*Predictor, error) {
	if deps.Provider == nil {
		return nil, fmt.Errorf("session provider is required")
	}
	if deps.Models.Qualifying == nil || deps.Models.Race == nil {
		return nil, fmt.Errorf("qualifying and race models are required")
	}
	base := deps.Logger
	if base == nil {
		base = logrus.New()
	}
	cfg := deps.Features
	if cfg == (processor.Config{}) {
		cfg = processor.DefaultConfig()
	}
	w := deps.Weather
	if w == nil {
		w = weather.NewStaticProvider()
	}

	p := &Predictor{
		provider: deps.Provider,
		weather:  w,
		models:   deps.Models,
		stats:    NewStatsIndex(deps.History),
		drivers:  NewDriverDirectory(),
		repo:     deps.Repository,
		track:    features.NewTrackLookup(cfg.DefaultTrackTemp, cfg.DefaultOvertakeDifficulty),
		practice: features.NewPracticeCalculator(cfg.MinStintLaps, cfg.QuickLapThreshold, base),
		log:      logger.NewPredictionLogger(base),
		now:      time.Now,
	}
	if p.stats.Empty() {
		p.log.LogFallbackUsed(fallbackDriverStats, "no feature history loaded")
	} else {
		p.log.WithField("drivers", p.stats.Drivers()).Info("Loaded driver history")
	}
	return p, nil
}

// Drivers exposes the code→identifier directory.
func (p *Predictor) Drivers() *DriverDirectory { return p.drivers }

// weekend is the context shared by every driver of one prediction.
type weekend struct {
	meta            models.EventMetadata
	qualifying      *models.Session
	practice        *models.Session
	weatherOverride *float64
}

// PredictRace predicts the whole field for an event. An empty drivers list
// uses the qualifying classification, or the default field when qualifying
// has not run.
func (p *Predictor) PredictRace(ctx context.Context, season int, event string, drivers []string, weatherOverride *float64) (*models.PredictionRun, error) {
	meta := p.resolveEvent(ctx, season, event)
	qualifying, _ := p.lookupQualifying(ctx, meta)
	return p.predictWeekend(ctx, weekend{meta: meta, qualifying: qualifying, weatherOverride: weatherOverride}, drivers)
}

// PredictNextSession locates the next event and predicts it according to
// its state. With a driver, the returned run holds only that driver's
// record, ranked against the whole field.
func (p *Predictor) PredictNextSession(ctx context.Context, driver string, weatherOverride *float64) (*models.PredictionRun, error) {
	next, err := p.provider.NextEvent(ctx, p.now())
	if err != nil {
		return nil, err
	}
	meta := *next
	p.log.WithFields(logrus.Fields{
		"season": meta.Season,
		"event":  meta.EventName,
	}).Info("Next event identified")

	qualifying, lookupErr := p.lookupQualifying(ctx, meta)
	w := weekend{meta: meta, qualifying: qualifying, weatherOverride: weatherOverride}

	var field []string
	switch {
	case lookupErr != nil:
		// Keep predicting with whatever field was resolved last.
		p.log.LogFallbackUsed(fallbackFieldReused, lookupErr.Error())
		metrics.RecordPredictionFallback(fallbackFieldReused)
		field = append([]string(nil), p.lastDrivers...)
	case qualifying.HasClassification():
		p.log.LogStateTransition(meta.Season, meta.EventName,
			string(models.StateQualifyingPending), string(models.StateQualifyingDone))
		if w.weatherOverride == nil {
			w.weatherOverride = p.forecastRain(ctx, meta)
		}
	}
	// Without a classification the driver is ranked against the assumed
	// field, joining it when absent.
	if driver != "" && !qualifying.HasClassification() {
		if len(field) == 0 {
			field = p.field(qualifying)
		}
		field = withDriver(field, driver)
	}

	run, err := p.predictWeekend(ctx, w, field)
	if err != nil {
		return nil, err
	}
	if driver == "" {
		return run, nil
	}
	rec, ok := run.Find(driver)
	if !ok {
		return nil, fmt.Errorf("%s: %w", driver, ErrDriverNotFound)
	}
	run.Records = []models.PredictionRecord{*rec}
	return run, nil
}

func (p *Predictor) predictWeekend(ctx context.Context, w weekend, drivers []string) (*models.PredictionRun, error) {
	start := time.Now()
	run := models.NewPredictionRun(w.meta.Season, w.meta.EventName)

	if len(drivers) == 0 {
		drivers = p.field(w.qualifying)
	}
	p.lastDrivers = append([]string(nil), drivers...)

	if w.qualifying.HasClassification() {
		w.practice = p.loadPractice(ctx, w.meta)
	}

	records, err := p.predictDrivers(w, drivers)
	if err != nil {
		return nil, err
	}
	Rank(records)
	for i := range records {
		records[i].RunID = run.ID
	}
	run.Records = records

	if w.qualifying.HasClassification() {
		run.State = models.StateRacePredicted
		p.log.LogStateTransition(w.meta.Season, w.meta.EventName,
			string(models.StateQualifyingDone), string(models.StateRacePredicted))
	}

	elapsed := time.Since(start)
	metrics.RecordPrediction(string(run.State), elapsed.Seconds())
	p.log.LogPredictionRun(run.ID.String(), run.Season, run.Event, string(run.State),
		len(run.Records), float64(elapsed.Milliseconds()))

	if p.repo != nil {
		if err := p.repo.SaveRun(ctx, run); err != nil {
			p.log.LogFallbackUsed(fallbackPersistence, err.Error())
			metrics.RecordPredictionFallback(fallbackPersistence)
		}
	}
	return run, nil
}

// PredictDrivers computes one record per driver for an event whose sessions
// were loaded by the caller. Records are ranked. qualifying and practice
// may be nil.
func (p *Predictor) PredictDrivers(meta models.EventMetadata, qualifying, practice *models.Session, drivers []string, weatherOverride *float64) ([]models.PredictionRecord, error) {
	records, err := p.predictDrivers(weekend{
		meta:            meta,
		qualifying:      qualifying,
		practice:        practice,
		weatherOverride: weatherOverride,
	}, drivers)
	if err != nil {
		return nil, err
	}
	Rank(records)
	return records, nil
}

func (p *Predictor) predictDrivers(w weekend, drivers []string) ([]models.PredictionRecord, error) {
	if len(drivers) == 0 {
		return nil, nil
	}

	rows := make([]models.FeatureRow, len(drivers))
	actual := make([]*float64, len(drivers))
	for i, d := range drivers {
		rows[i] = p.buildRow(w, d)
		if res, ok := w.qualifying.Result(d); ok && res.FinishingPosition != nil {
			pos := float64(*res.FinishingPosition)
			actual[i] = &pos
		}
	}

	qPred, err := p.models.Qualifying.Predict(estimator.Matrix(rows, p.models.Qualifying.FeatureNames(), true))
	if err != nil {
		p.log.LogPredictionError(estimator.QualifyingModelName, err)
		return nil, fmt.Errorf("qualifying prediction: %w", err)
	}
	for i := range rows {
		grid := qPred[i]
		if actual[i] != nil {
			grid = *actual[i]
		}
		rows[i].GridPosition = &grid
	}

	sprint, err := p.predictSprint(w.meta, rows)
	if err != nil {
		return nil, err
	}

	scores, err := p.models.Race.Predict(estimator.Matrix(rows, p.models.Race.FeatureNames(), true))
	if err != nil {
		p.log.LogPredictionError(estimator.RaceModelName, err)
		return nil, fmt.Errorf("race prediction: %w", err)
	}

	records := make([]models.PredictionRecord, len(drivers))
	for i, row := range rows {
		rec := models.PredictionRecord{
			DriverID:           row.DriverID,
			QualifyingPosition: *row.GridPosition,
			SprintClass:        sprint[i],
			RaceScore:          scores[i],
			GridPosition:       *row.GridPosition,
			RacePace:           valueOrNaN(row.RacePace),
			TireDegradation:    valueOrNaN(row.TireDegradation),
			TopSpeed:           valueOrNaN(row.TopSpeed),
			RainProbability:    row.RainProbability,
		}
		p.log.LogDriverPrediction(rec.DriverID, rec.QualifyingPosition, string(rec.SprintClass), rec.RaceScore)
		records[i] = rec
	}
	return records, nil
}

func (p *Predictor) predictSprint(meta models.EventMetadata, rows []models.FeatureRow) ([]models.SprintClass, error) {
	out := make([]models.SprintClass, len(rows))
	for i := range out {
		out[i] = models.SprintNotApplicable
	}
	if !meta.IsSprintWeekend() {
		return out, nil
	}
	if p.models.Sprint == nil {
		p.log.LogFallbackUsed(fallbackSprintModel, meta.EventName)
		metrics.RecordPredictionFallback(fallbackSprintModel)
		return out, nil
	}
	classes, err := p.models.Sprint.PredictClasses(estimator.Matrix(rows, estimator.SprintFeatures, true))
	if err != nil {
		p.log.LogPredictionError(estimator.SprintModelName, err)
		return nil, fmt.Errorf("sprint prediction: %w", err)
	}
	return classes, nil
}

// buildRow assembles the inference features of one driver. Grid position is
// filled in after the qualifying model runs.
func (p *Predictor) buildRow(w weekend, driver string) models.FeatureRow {
	trackTemp := FallbackTrackTemp
	if w.qualifying != nil {
		trackTemp = p.track.TrackTempAverage(w.qualifying.Weather)
	}

	stats, found := p.stats.Stats(p.drivers.Candidates(driver)...)
	if !found && !p.stats.Empty() {
		p.log.LogFallbackUsed(fallbackDriverStats, driver)
		metrics.RecordPredictionFallback(fallbackDriverStats)
	}

	row := models.FeatureRow{
		DriverID:           driver,
		SeasonYear:         w.meta.Season,
		RoundNumber:        w.meta.RoundNumber,
		Circuit:            processor.CircuitKey(w.meta),
		TrackTemp:          trackTemp,
		OvertakeDifficulty: p.track.OvertakeDifficulty(processor.CircuitKey(w.meta)),
		DriverAvgPos:       stats.AvgPosition,
		DriverDNFRate:      stats.DNFRate,
		QualiDeltaTeammate: 0.0,
		ReliabilityScore:   stats.Reliability,
		SessionKind:        models.SessionRace,
	}
	if res, ok := w.qualifying.Result(driver); ok {
		row.ConstructorID = res.ConstructorID
	}

	rain := 0.0
	if w.practice != nil {
		pace := p.practice.Calculate(w.practice.Laps, w.practice.Weather, driver)
		row.RacePace = pace.RacePace
		row.TireDegradation = pace.TireDegradation
		row.TopSpeed = pace.TopSpeed
		rain = pace.RainProbability
	}
	if w.weatherOverride != nil {
		rain = *w.weatherOverride
	}
	row.RainProbability = rain
	return row
}

// resolveEvent looks the event up in the season schedule, degrading to
// bare metadata when the schedule is unavailable.
func (p *Predictor) resolveEvent(ctx context.Context, season int, event string) models.EventMetadata {
	schedule, err := p.provider.Schedule(ctx, season)
	if err == nil {
		meta, findErr := datasource.FindEvent(schedule, event)
		if findErr == nil {
			return meta
		}
		err = findErr
	}
	p.log.LogFallbackUsed(fallbackSchedule, fmt.Sprintf("%d %s: %v", season, event, err))
	metrics.RecordPredictionFallback(fallbackSchedule)
	return models.EventMetadata{Season: season, EventName: event, Format: models.FormatConventional}
}

// lookupQualifying decides the event state. Load errors are returned
// alongside a nil session so callers can degrade.
func (p *Predictor) lookupQualifying(ctx context.Context, meta models.EventMetadata) (*models.Session, error) {
	session, err := p.provider.Load(ctx, meta.Season, meta.EventName, models.SessionQualifying)
	if err != nil {
		p.log.LogFallbackUsed(fallbackQualifying, err.Error())
		metrics.RecordPredictionFallback(fallbackQualifying)
		return nil, err
	}
	state := models.StateQualifyingPending
	if session.HasClassification() {
		state = models.StateQualifyingDone
	}
	p.log.WithFields(logrus.Fields{
		"season": meta.Season,
		"event":  meta.EventName,
		"state":  state,
	}).Info("Qualifying lookup completed")
	return session, nil
}

// loadPractice returns FP2, falling back to FP1.
func (p *Predictor) loadPractice(ctx context.Context, meta models.EventMetadata) *models.Session {
	for _, kind := range []models.SessionKind{models.SessionPractice2, models.SessionPractice1} {
		session, err := p.provider.Load(ctx, meta.Season, meta.EventName, kind)
		if err == nil && session != nil && len(session.Laps) > 0 {
			return session
		}
	}
	p.log.LogFallbackUsed(fallbackPractice, meta.EventName)
	metrics.RecordPredictionFallback(fallbackPractice)
	return nil
}

func (p *Predictor) field(qualifying *models.Session) []string {
	if qualifying.HasClassification() {
		return qualifying.DriverIDs()
	}
	p.log.LogFallbackUsed(fallbackDefaultField, "qualifying classification unavailable")
	return append([]string(nil), DefaultDriverList...)
}

func withDriver(field []string, driver string) []string {
	for _, d := range field {
		if d == driver {
			return field
		}
	}
	return append(field, driver)
}

func (p *Predictor) forecastRain(ctx context.Context, meta models.EventMetadata) *float64 {
	circuit := meta.Location
	if circuit == "" {
		circuit = meta.EventName
	}
	var at *time.Time
	if t, ok := meta.StartOf(models.SessionRace); ok {
		at = &t
	}
	forecast, err := p.weather.Forecast(ctx, circuit, at)
	if err != nil || forecast.IsDefault() {
		p.log.LogFallbackUsed(fallbackWeather, circuit)
		metrics.RecordPredictionFallback(fallbackWeather)
	}
	if err != nil {
		forecast = weather.DefaultForecast(weather.DescriptionError)
	}
	p.log.WithFields(logrus.Fields{
		"circuit":     circuit,
		"description": forecast.Description,
		"temperature": forecast.Temperature,
		"rain":        forecast.RainProbability,
	}).Info("Race weather forecast")
	rain := forecast.RainProbability
	return &rain
}

func valueOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
