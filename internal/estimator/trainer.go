package estimator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/f1-predictor/internal/metrics"
	"github.com/yourusername/f1-predictor/internal/models"
)

// ModelPath returns the parameter file of a model inside dir.
func ModelPath(dir, name string) string {
	return filepath.Join(dir, name+"_model.json")
}

// TrainingReport summarises one Train call.
type TrainingReport struct {
	Rows    map[string]int
	Trained []string
}

// Trainer splits a feature table by session kind and fits each model.
type Trainer struct {
	dir    string
	opts   Options
	logger *logrus.Logger
}

// NewTrainer creates a trainer persisting models into dir.
func NewTrainer(dir string, opts Options, logger *logrus.Logger) *Trainer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Trainer{dir: dir, opts: opts, logger: logger}
}

// Train fits every model with rows of its session kind. Kinds without rows
// are skipped. Estimator failures abort the run.
func (t *Trainer) Train(rows []models.FeatureRow) (*TrainingReport, error) {
	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create models dir: %w", err)
	}

	byKind := make(map[models.SessionKind][]models.FeatureRow)
	for _, r := range rows {
		byKind[r.SessionKind] = append(byKind[r.SessionKind], r)
	}

	report := &TrainingReport{Rows: make(map[string]int)}
	steps := []struct {
		name string
		kind models.SessionKind
		fn   func([]models.FeatureRow) error
	}{
		{QualifyingModelName, models.SessionQualifying, t.TrainQualifying},
		{SprintModelName, models.SessionSprint, t.TrainSprint},
		{RaceModelName, models.SessionRace, t.TrainRace},
	}
	for _, step := range steps {
		data := byKind[step.kind]
		report.Rows[step.name] = len(data)
		if len(data) == 0 {
			t.logger.WithField("model", step.name).Warn("No rows for model, skipping")
			continue
		}
		if err := step.fn(data); err != nil {
			return report, err
		}
		report.Trained = append(report.Trained, step.name)
	}
	return report, nil
}

// TrainQualifying fits and persists the qualifying model.
func (t *Trainer) TrainQualifying(rows []models.FeatureRow) error {
	labelled := WithTarget(rows)
	m := NewQualifyingModel(t.opts, t.logger)
	return t.run(QualifyingModelName, m, Matrix(labelled, QualifyingFeatures, true), Targets(labelled), nil)
}

// TrainSprint fits and persists the sprint model.
func (t *Trainer) TrainSprint(rows []models.FeatureRow) error {
	labelled := WithTarget(rows)
	m := NewSprintModel(t.opts, t.logger)
	return t.run(SprintModelName, m, Matrix(labelled, SprintFeatures, true), SprintLabels(labelled), nil)
}

// TrainRace fits and persists the race model. Unclassified drivers stay in
// the data with relevance 0.
func (t *Trainer) TrainRace(rows []models.FeatureRow) error {
	m := NewRaceModel(t.opts, t.logger)
	return t.run(RaceModelName, m, Matrix(rows, RaceFeatures, true), RelevanceLabels(rows), Groups(rows))
}

func (t *Trainer) run(name string, m Estimator, X [][]float64, y []float64, groups []int) error {
	log := t.logger.WithFields(logrus.Fields{"model": name, "rows": len(X)})
	log.Info("Training model")

	start := time.Now()
	err := m.Fit(X, y, groups)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		metrics.RecordEstimatorFit(name, "error", elapsed)
		return fmt.Errorf("train %s model: %w", name, err)
	}
	metrics.RecordEstimatorFit(name, "success", elapsed)

	path := ModelPath(t.dir, name)
	if err := m.Persist(path); err != nil {
		return fmt.Errorf("save %s model: %w", name, err)
	}
	log.WithFields(logrus.Fields{"path": path, "seconds": elapsed}).Info("Model trained and saved")
	return nil
}

// Set bundles the restored models used at inference time. Sprint is nil
// when no sprint model was ever trained.
type Set struct {
	Qualifying Estimator
	Sprint     *SprintModel
	Race       Estimator
}

// LoadSet restores the models persisted in dir. The qualifying and race
// models are required.
func LoadSet(dir string, opts Options, logger *logrus.Logger) (*Set, error) {
	q := NewQualifyingModel(opts, logger)
	if err := q.Restore(ModelPath(dir, QualifyingModelName)); err != nil {
		return nil, err
	}
	r := NewRaceModel(opts, logger)
	if err := r.Restore(ModelPath(dir, RaceModelName)); err != nil {
		return nil, err
	}

	set := &Set{Qualifying: q, Race: r}
	s := NewSprintModel(opts, logger)
	if err := s.Restore(ModelPath(dir, SprintModelName)); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		if logger != nil {
			logger.WithField("dir", dir).Warn("Sprint model not found, sprint predictions disabled")
		}
	} else {
		set.Sprint = s
	}
	return set, nil
}
