// Package estimator holds the three trained models behind a common
// fit/predict/persist capability and the fixed feature ordering each one
// expects.
package estimator

import (
	"errors"
	"math"

	"github.com/yourusername/f1-predictor/internal/models"
)

var (
	// ErrNotTrained is returned when Predict or Persist is called before Fit
	// or Restore.
	ErrNotTrained = errors.New("estimator: model not trained")
	// ErrNoTrainingData is returned when Fit receives no usable rows.
	ErrNoTrainingData = errors.New("estimator: no training data")
	// ErrShapeMismatch is returned when a matrix does not match the declared
	// feature names or label count.
	ErrShapeMismatch = errors.New("estimator: shape mismatch")
)

// Estimator is a trained model with a fixed feature ordering. Callers build
// X with Matrix using FeatureNames.
type Estimator interface {
	Fit(X [][]float64, y []float64, groups []int) error
	Predict(X [][]float64) ([]float64, error)
	Persist(path string) error
	Restore(path string) error
	FeatureNames() []string
}

// Feature orderings per model.
var (
	QualifyingFeatures = []string{
		models.ColTrackTemp,
		models.ColOvertakeDifficulty,
		models.ColDriverAvgPos,
		models.ColDriverDNFRate,
		models.ColQualiDeltaTeammate,
		models.ColReliabilityScore,
	}
	SprintFeatures = []string{
		models.ColTrackTemp,
		models.ColOvertakeDifficulty,
		models.ColDriverAvgPos,
		models.ColDriverDNFRate,
		models.ColReliabilityScore,
	}
	RaceFeatures = []string{
		models.ColTrackTemp,
		models.ColOvertakeDifficulty,
		models.ColDriverAvgPos,
		models.ColDriverDNFRate,
		models.ColReliabilityScore,
		models.ColQualiDeltaTeammate,
		models.ColGridPosition,
		models.ColRacePace,
		models.ColTireDegradation,
		models.ColTopSpeed,
		models.ColRainProbability,
	}
)

// MaxRelevance is the relevance of a win plus one; an unclassified driver
// scores 0.
const MaxRelevance = 21.0

// Matrix extracts the named columns from rows. Missing values become 0 when
// fillMissing is set and stay NaN otherwise.
func Matrix(rows []models.FeatureRow, names []string, fillMissing bool) [][]float64 {
	X := make([][]float64, len(rows))
	for i, row := range rows {
		x := make([]float64, len(names))
		for j, name := range names {
			v, ok := row.Value(name)
			if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
				if fillMissing {
					v = 0
				} else if !ok {
					v = math.NaN()
				}
			}
			x[j] = v
		}
		X[i] = x
	}
	return X
}

// Vector builds a single input row from a name→value map, filling absent or
// NaN entries with 0.
func Vector(values map[string]float64, names []string) []float64 {
	x := make([]float64, len(names))
	for i, name := range names {
		if v, ok := values[name]; ok && !math.IsNaN(v) && !math.IsInf(v, 0) {
			x[i] = v
		}
	}
	return x
}

// WithTarget keeps only rows carrying a label.
func WithTarget(rows []models.FeatureRow) []models.FeatureRow {
	out := make([]models.FeatureRow, 0, len(rows))
	for _, r := range rows {
		if r.HasTarget() {
			out = append(out, r)
		}
	}
	return out
}

// Targets returns the target positions of rows.
func Targets(rows []models.FeatureRow) []float64 {
	y := make([]float64, len(rows))
	for i, r := range rows {
		y[i] = *r.TargetPosition
	}
	return y
}

// RelevanceLabels converts finishing positions into ranking relevance:
// 21 − position, clipped at 0, with unclassified drivers scoring 0.
func RelevanceLabels(rows []models.FeatureRow) []float64 {
	y := make([]float64, len(rows))
	for i, r := range rows {
		pos := MaxRelevance
		if r.HasTarget() {
			pos = *r.TargetPosition
		}
		y[i] = math.Max(MaxRelevance-pos, 0)
	}
	return y
}

// RelevanceToPosition inverts a relevance score back to a finishing
// position.
func RelevanceToPosition(score float64) float64 {
	return MaxRelevance - score
}

// SprintLabels converts sprint finishing positions into class indices of
// models.SprintClasses.
func SprintLabels(rows []models.FeatureRow) []float64 {
	y := make([]float64, len(rows))
	for i, r := range rows {
		class := models.SprintClassForPosition(*r.TargetPosition)
		for k, c := range models.SprintClasses {
			if c == class {
				y[i] = float64(k)
			}
		}
	}
	return y
}

// Groups counts rows per (season, round) in order of first appearance.
func Groups(rows []models.FeatureRow) []int {
	type key struct{ season, round int }
	index := make(map[key]int)
	var groups []int
	for _, r := range rows {
		k := key{r.SeasonYear, r.RoundNumber}
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, 0)
		}
		groups[i]++
	}
	return groups
}

func checkShape(X [][]float64, y []float64, width int) error {
	if len(X) == 0 {
		return ErrNoTrainingData
	}
	if y != nil && len(y) != len(X) {
		return ErrShapeMismatch
	}
	for _, x := range X {
		if len(x) != width {
			return ErrShapeMismatch
		}
	}
	return nil
}
