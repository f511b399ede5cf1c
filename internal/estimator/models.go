package estimator

import (
	"fmt"
	"io"

	"github.com/cdipaolo/goml/base"
	"github.com/cdipaolo/goml/linear"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/f1-predictor/internal/models"
)

// Model names, also used as persisted file stems and metric labels.
const (
	QualifyingModelName = "qualifying"
	SprintModelName     = "sprint"
	RaceModelName       = "race"
)

// QualifyingModel regresses the qualifying position.
type QualifyingModel struct {
	*leastSquares
}

// NewQualifyingModel creates an untrained qualifying model.
func NewQualifyingModel(opts Options, logger *logrus.Logger) *QualifyingModel {
	return &QualifyingModel{newLeastSquares(QualifyingModelName, QualifyingFeatures, opts, logger)}
}

// Fit trains on positions. groups is ignored.
func (m *QualifyingModel) Fit(X [][]float64, y []float64, _ []int) error { return m.fit(X, y) }

// Predict returns predicted qualifying positions.
func (m *QualifyingModel) Predict(X [][]float64) ([]float64, error) { return m.predict(X) }

// Persist writes the parameters to path.
func (m *QualifyingModel) Persist(path string) error { return m.persist(path) }

// Restore reads parameters written by Persist.
func (m *QualifyingModel) Restore(path string) error { return m.restore(path) }

// FeatureNames returns QualifyingFeatures.
func (m *QualifyingModel) FeatureNames() []string { return QualifyingFeatures }

// RaceModel scores drivers by relevance; higher is better.
type RaceModel struct {
	*leastSquares
}

// NewRaceModel creates an untrained race model.
func NewRaceModel(opts Options, logger *logrus.Logger) *RaceModel {
	return &RaceModel{newLeastSquares(RaceModelName, RaceFeatures, opts, logger)}
}

// Fit trains on relevance labels. groups holds the row count of each race in
// input order and must cover X exactly when given. Groups are only
// validated: the fit is pointwise least squares, so rows of one race are not
// compared with each other.
func (m *RaceModel) Fit(X [][]float64, y []float64, groups []int) error {
	if groups != nil {
		total := 0
		for _, g := range groups {
			if g <= 0 {
				return fmt.Errorf("%s: %w: empty group", RaceModelName, ErrShapeMismatch)
			}
			total += g
		}
		if total != len(X) {
			return fmt.Errorf("%s: %w: groups cover %d rows of %d", RaceModelName, ErrShapeMismatch, total, len(X))
		}
	}
	return m.fit(X, y)
}

// Predict returns relevance scores.
func (m *RaceModel) Predict(X [][]float64) ([]float64, error) { return m.predict(X) }

// Persist writes the parameters to path.
func (m *RaceModel) Persist(path string) error { return m.persist(path) }

// Restore reads parameters written by Persist.
func (m *RaceModel) Restore(path string) error { return m.restore(path) }

// FeatureNames returns RaceFeatures.
func (m *RaceModel) FeatureNames() []string { return RaceFeatures }

// SprintModel classifies sprint results into models.SprintClasses.
type SprintModel struct {
	opts   Options
	logger *logrus.Logger
	scaler *Scaler
	model  *linear.Softmax
}

// NewSprintModel creates an untrained sprint model.
func NewSprintModel(opts Options, logger *logrus.Logger) *SprintModel {
	if logger == nil {
		logger = logrus.New()
	}
	return &SprintModel{opts: opts.normalized(), logger: logger}
}

// Fit trains on class indices of models.SprintClasses. groups is ignored.
func (m *SprintModel) Fit(X [][]float64, y []float64, _ []int) error {
	if err := checkShape(X, y, len(SprintFeatures)); err != nil {
		return fmt.Errorf("%s: %w", SprintModelName, err)
	}
	k := len(models.SprintClasses)
	for i, label := range y {
		if label < 0 || int(label) >= k || label != float64(int(label)) {
			return fmt.Errorf("%s: %w: label %v at row %d", SprintModelName, ErrShapeMismatch, label, i)
		}
	}

	scaler := FitScaler(X)
	model := linear.NewSoftmax(base.BatchGA, m.opts.alpha(len(X)), m.opts.Regularization, k, m.opts.MaxIterations, scaler.Transform(X), y)

	out := m.logger.WriterLevel(logrus.DebugLevel)
	defer out.Close()
	model.Output = out

	if err := model.Learn(); err != nil {
		return fmt.Errorf("%s: learn: %w", SprintModelName, err)
	}
	model.Output = io.Discard
	m.scaler, m.model = scaler, model
	return nil
}

// Probabilities returns the class probabilities of each row.
func (m *SprintModel) Probabilities(X [][]float64) ([][]float64, error) {
	if m.model == nil {
		return nil, ErrNotTrained
	}
	out := make([][]float64, len(X))
	for i, x := range X {
		if len(x) != len(SprintFeatures) {
			return nil, fmt.Errorf("%s: %w: row %d has %d features", SprintModelName, ErrShapeMismatch, i, len(x))
		}
		p, err := m.model.Predict(m.scaler.TransformRow(x))
		if err != nil {
			return nil, fmt.Errorf("%s: predict: %w", SprintModelName, err)
		}
		out[i] = p
	}
	return out, nil
}

// Predict returns the most likely class index per row.
func (m *SprintModel) Predict(X [][]float64) ([]float64, error) {
	probs, err := m.Probabilities(X)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(probs))
	for i, p := range probs {
		best := 0
		for k := range p {
			if p[k] > p[best] {
				best = k
			}
		}
		out[i] = float64(best)
	}
	return out, nil
}

// PredictClasses maps Predict onto models.SprintClasses.
func (m *SprintModel) PredictClasses(X [][]float64) ([]models.SprintClass, error) {
	idx, err := m.Predict(X)
	if err != nil {
		return nil, err
	}
	out := make([]models.SprintClass, len(idx))
	for i, v := range idx {
		out[i] = ClassFromIndex(v)
	}
	return out, nil
}

// Persist writes the parameters to path.
func (m *SprintModel) Persist(path string) error {
	if m.model == nil {
		return ErrNotTrained
	}
	if err := m.model.PersistToFile(path); err != nil {
		return fmt.Errorf("%s: persist: %w", SprintModelName, err)
	}
	return writeMetadata(path, metadata{
		Model:    SprintModelName,
		Features: SprintFeatures,
		Classes:  len(models.SprintClasses),
		Scaler:   m.scaler,
	})
}

// Restore reads parameters written by Persist.
func (m *SprintModel) Restore(path string) error {
	meta, err := readMetadata(path, SprintModelName, SprintFeatures)
	if err != nil {
		return fmt.Errorf("%s: %w", SprintModelName, err)
	}
	k := len(models.SprintClasses)
	if meta.Classes != k {
		return fmt.Errorf("%s: %w: %d classes persisted", SprintModelName, ErrShapeMismatch, meta.Classes)
	}
	model := linear.NewSoftmax(base.BatchGA, 0, 0, k, 0, [][]float64{make([]float64, len(SprintFeatures))}, []float64{0})
	model.Output = io.Discard
	if err := model.RestoreFromFile(path); err != nil {
		return fmt.Errorf("%s: restore: %w", SprintModelName, err)
	}
	m.scaler, m.model = meta.Scaler, model
	return nil
}

// FeatureNames returns SprintFeatures.
func (m *SprintModel) FeatureNames() []string { return SprintFeatures }

// ClassFromIndex maps a class index back to a sprint class.
func ClassFromIndex(v float64) models.SprintClass {
	i := int(v)
	if i < 0 || i >= len(models.SprintClasses) {
		return models.SprintNotApplicable
	}
	return models.SprintClasses[i]
}

var (
	_ Estimator = (*QualifyingModel)(nil)
	_ Estimator = (*SprintModel)(nil)
	_ Estimator = (*RaceModel)(nil)
)
