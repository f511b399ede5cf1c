// Package service runs the offline pipeline: season ingestion in round
// order, feature export and model training.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/f1-predictor/internal/datasource"
	"github.com/yourusername/f1-predictor/internal/estimator"
	"github.com/yourusername/f1-predictor/internal/features"
	"github.com/yourusername/f1-predictor/internal/history"
	"github.com/yourusername/f1-predictor/internal/logger"
	"github.com/yourusername/f1-predictor/internal/metrics"
	"github.com/yourusername/f1-predictor/internal/models"
	"github.com/yourusername/f1-predictor/internal/processor"
	"github.com/yourusername/f1-predictor/internal/repository"
)

// ErrNoFeatureRows is returned when there is nothing to train on.
var ErrNoFeatureRows = errors.New("no feature rows to train on")

// Session load outcomes reported to metrics.
const (
	outcomeSuccess = "success"
	outcomeEmpty   = "empty"
	outcomeError   = "error"
)

// SeasonReport summarises the ingestion of one season.
type SeasonReport struct {
	Season   int
	Events   int
	Rows     int
	Skipped  int
	Path     string
	Duration time.Duration
	// Standings is the constructors' table after the last scored round.
	Standings []features.StandingEntry
}

// RunReport summarises a full training run.
type RunReport struct {
	Seasons  []SeasonReport
	Rows     int
	Training *estimator.TrainingReport
}

// RunOptions selects what a run does.
type RunOptions struct {
	Seasons   []int
	SkipTrain bool
}

// TrainingService drives the offline pipeline.
type TrainingService struct {
	provider  datasource.SessionProvider
	assembler *processor.Assembler
	features  repository.FeatureRepository
	mirror    repository.FeatureRepository
	trainer   *estimator.Trainer
	modelsDir string
	log       *logger.PipelineLogger
}

// NewTrainingService creates a training service. mirror may be nil.
func NewTrainingService(
	provider datasource.SessionProvider,
	assembler *processor.Assembler,
	features repository.FeatureRepository,
	mirror repository.FeatureRepository,
	trainer *estimator.Trainer,
	modelsDir string,
	baseLogger *logrus.Logger,
) *TrainingService {
	if baseLogger == nil {
		baseLogger = logrus.New()
	}
	return &TrainingService{
		provider:  provider,
		assembler: assembler,
		features:  features,
		mirror:    mirror,
		trainer:   trainer,
		modelsDir: modelsDir,
		log:       logger.NewPipelineLogger(baseLogger),
	}
}

// Run ingests every season, persists its feature table and trains on the
// union unless SkipTrain is set. A season whose schedule cannot be loaded is
// skipped.
func (s *TrainingService) Run(ctx context.Context, opts RunOptions) (*RunReport, error) {
	report := &RunReport{}
	var all []models.FeatureRow

	for _, season := range opts.Seasons {
		rows, seasonReport, err := s.IngestSeason(ctx, season)
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			s.log.LogSessionSkipped(season, "", "schedule", err.Error())
			continue
		}

		if len(rows) > 0 {
			if err := s.features.SaveSeason(ctx, season, rows); err != nil {
				return report, fmt.Errorf("save season %d: %w", season, err)
			}
			if p, ok := s.features.(interface{ Path(int) string }); ok {
				seasonReport.Path = p.Path(season)
			}
			if s.mirror != nil {
				if err := s.mirror.SaveSeason(ctx, season, rows); err != nil {
					s.log.WithError(err).WithField("season", season).Warn("Failed to mirror feature rows")
				}
			}
		}

		s.log.LogSeasonCompleted(season, seasonReport.Events, seasonReport.Rows, seasonReport.Skipped, seasonReport.Path)
		report.Seasons = append(report.Seasons, seasonReport)
		report.Rows += len(rows)
		all = append(all, rows...)
	}

	if opts.SkipTrain {
		return report, nil
	}
	training, err := s.Train(all)
	report.Training = training
	return report, err
}

// IngestSeason extracts the qualifying, sprint and race rows of every event
// in round order. History and standings start empty for each season.
func (s *TrainingService) IngestSeason(ctx context.Context, season int) ([]models.FeatureRow, SeasonReport, error) {
	start := time.Now()
	report := SeasonReport{Season: season}

	schedule, err := s.provider.Schedule(ctx, season)
	if err != nil {
		return nil, report, fmt.Errorf("load %d schedule: %w", season, err)
	}
	models.SortEvents(schedule)

	store := history.NewSeasonLog()
	standings := features.NewStandingsTable()

	var rows []models.FeatureRow
	for _, meta := range schedule {
		if err := ctx.Err(); err != nil {
			return rows, report, err
		}
		extracted, skipped := s.ingestEvent(ctx, meta, store, standings)
		report.Events++
		report.Skipped += skipped
		rows = append(rows, extracted...)
	}

	report.Rows = len(rows)
	report.Duration = time.Since(start)
	report.Standings = standings.Latest()
	if len(report.Standings) > 0 {
		leader := report.Standings[0]
		s.log.WithFields(logrus.Fields{
			"season": season,
			"leader": leader.Team,
			"points": leader.Points.String(),
		}).Info("Constructors' standings leader")
	}
	return rows, report, nil
}

func (s *TrainingService) ingestEvent(ctx context.Context, meta models.EventMetadata, store *history.SeasonLog, standings *features.StandingsTable) ([]models.FeatureRow, int) {
	var (
		rows     []models.FeatureRow
		skipped  int
		practice *models.Session
	)

	for _, kind := range []models.SessionKind{models.SessionQualifying, models.SessionSprint, models.SessionRace} {
		if kind == models.SessionSprint && !meta.IsSprintWeekend() {
			continue
		}
		session := s.loadClassified(ctx, meta, kind)
		if session == nil {
			skipped++
			continue
		}

		if kind == models.SessionRace {
			practice = s.loadPractice(ctx, meta)
		}
		extracted, err := s.assembler.Assemble(session, store, standings, practice)
		if err != nil {
			s.log.LogSessionSkipped(meta.Season, meta.EventName, kind.Code(), err.Error())
			skipped++
			continue
		}
		rows = append(rows, extracted...)
		metrics.RecordFeatureRows(kind.Code(), len(extracted))
		s.log.LogSessionExtracted(meta.Season, meta.RoundNumber, meta.EventName, kind.Code(), len(extracted))

		switch kind {
		case models.SessionSprint:
			standings.AddSession(meta.RoundNumber, session.Classification)
		case models.SessionRace:
			standings.AddSession(meta.RoundNumber, session.Classification)
			if err := store.Append(session.Classification...); err != nil {
				s.log.WithError(err).WithField("event", meta.EventName).Warn("Failed to append race results to history")
				continue
			}
			metrics.UpdateHistoryEntries(store.Len())
			s.log.LogHistoryAppended(meta.Season, meta.RoundNumber, len(session.Classification), store.Len())
		}
	}
	return rows, skipped
}

// loadClassified returns the session when it loaded with a classification.
func (s *TrainingService) loadClassified(ctx context.Context, meta models.EventMetadata, kind models.SessionKind) *models.Session {
	session, err := s.provider.Load(ctx, meta.Season, meta.EventName, kind)
	if err != nil {
		metrics.RecordSessionLoad(kind.Code(), outcomeError)
		s.log.LogSessionSkipped(meta.Season, meta.EventName, kind.Code(), err.Error())
		return nil
	}
	if !session.HasClassification() {
		metrics.RecordSessionLoad(kind.Code(), outcomeEmpty)
		s.log.LogSessionSkipped(meta.Season, meta.EventName, kind.Code(), "no classification")
		return nil
	}
	metrics.RecordSessionLoad(kind.Code(), outcomeSuccess)
	return session
}

// loadPractice returns FP2, falling back to FP1, or nil when neither has
// laps.
func (s *TrainingService) loadPractice(ctx context.Context, meta models.EventMetadata) *models.Session {
	for _, kind := range []models.SessionKind{models.SessionPractice2, models.SessionPractice1} {
		session, err := s.provider.Load(ctx, meta.Season, meta.EventName, kind)
		switch {
		case err != nil:
			metrics.RecordSessionLoad(kind.Code(), outcomeError)
		case len(session.Laps) == 0:
			metrics.RecordSessionLoad(kind.Code(), outcomeEmpty)
		default:
			metrics.RecordSessionLoad(kind.Code(), outcomeSuccess)
			return session
		}
	}
	s.log.LogSessionSkipped(meta.Season, meta.EventName, "practice", "no practice laps")
	return nil
}

// Train fits every model on rows and reports per model.
func (s *TrainingService) Train(rows []models.FeatureRow) (*estimator.TrainingReport, error) {
	if len(rows) == 0 {
		return nil, ErrNoFeatureRows
	}
	start := time.Now()
	report, err := s.trainer.Train(rows)
	if err != nil {
		return report, fmt.Errorf("training failed: %w", err)
	}
	elapsed := time.Since(start).Seconds()

	trained := make(map[string]bool, len(report.Trained))
	for _, name := range report.Trained {
		trained[name] = true
		s.log.LogModelTrained(name, report.Rows[name], elapsed, estimator.ModelPath(s.modelsDir, name))
	}
	for _, name := range []string{estimator.QualifyingModelName, estimator.SprintModelName, estimator.RaceModelName} {
		if !trained[name] {
			s.log.LogModelSkipped(name, "no rows")
		}
	}
	return report, nil
}

// TrainFromFiles trains on previously exported feature tables. Missing
// files are skipped with a warning.
func (s *TrainingService) TrainFromFiles(paths []string) (*estimator.TrainingReport, error) {
	var all []models.FeatureRow
	for _, path := range paths {
		rows, err := readTable(path)
		if errors.Is(err, os.ErrNotExist) {
			s.log.WithField("path", path).Warn("Feature table not found")
			continue
		}
		if err != nil {
			return nil, err
		}
		s.log.WithFields(logrus.Fields{"path": path, "rows": len(rows)}).Info("Loaded feature table")
		all = append(all, rows...)
	}
	return s.Train(all)
}

// TrainFromStore trains on the seasons already persisted in the feature
// repository.
func (s *TrainingService) TrainFromStore(ctx context.Context, seasons []int) (*estimator.TrainingReport, error) {
	rows, err := s.features.LoadSeasons(ctx, seasons)
	if err != nil {
		return nil, fmt.Errorf("load feature tables: %w", err)
	}
	return s.Train(rows)
}

func readTable(path string) ([]models.FeatureRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := repository.ReadFeatureCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}
