package estimator

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Scaler standardises features to zero mean and unit variance. Gradient
// ascent in goml diverges on raw lap times and speeds without it.
type Scaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// FitScaler computes per-column mean and standard deviation. Constant
// columns get a deviation of 1.
func FitScaler(X [][]float64) *Scaler {
	if len(X) == 0 {
		return &Scaler{}
	}
	width := len(X[0])
	s := &Scaler{Mean: make([]float64, width), Std: make([]float64, width)}
	n := float64(len(X))
	for _, x := range X {
		for j, v := range x {
			s.Mean[j] += v / n
		}
	}
	for _, x := range X {
		for j, v := range x {
			d := v - s.Mean[j]
			s.Std[j] += d * d / n
		}
	}
	for j := range s.Std {
		s.Std[j] = math.Sqrt(s.Std[j])
		if s.Std[j] < 1e-12 {
			s.Std[j] = 1
		}
	}
	return s
}

// TransformRow standardises one row.
func (s *Scaler) TransformRow(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		if j >= len(s.Mean) {
			out[j] = v
			continue
		}
		out[j] = (v - s.Mean[j]) / s.Std[j]
	}
	return out
}

// Transform standardises every row.
func (s *Scaler) Transform(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, x := range X {
		out[i] = s.TransformRow(x)
	}
	return out
}

// metadata is stored next to the goml parameter file.
type metadata struct {
	Model    string   `json:"model"`
	Features []string `json:"features"`
	Classes  int      `json:"classes,omitempty"`
	Scaler   *Scaler  `json:"scaler"`
}

func metadataPath(path string) string {
	return path + ".meta.json"
}

func writeMetadata(path string, meta metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode model metadata: %w", err)
	}
	if err := os.WriteFile(metadataPath(path), data, 0o644); err != nil {
		return fmt.Errorf("failed to write model metadata: %w", err)
	}
	return nil
}

func readMetadata(path, model string, features []string) (metadata, error) {
	var meta metadata
	data, err := os.ReadFile(metadataPath(path))
	if err != nil {
		return meta, fmt.Errorf("failed to read model metadata: %w", err)
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("failed to decode model metadata: %w", err)
	}
	if meta.Model != model {
		return meta, fmt.Errorf("%w: file holds %q model, want %q", ErrShapeMismatch, meta.Model, model)
	}
	if len(meta.Features) != len(features) {
		return meta, fmt.Errorf("%w: %d features persisted, want %d", ErrShapeMismatch, len(meta.Features), len(features))
	}
	for i := range features {
		if meta.Features[i] != features[i] {
			return meta, fmt.Errorf("%w: feature %d is %q, want %q", ErrShapeMismatch, i, meta.Features[i], features[i])
		}
	}
	if meta.Scaler == nil || len(meta.Scaler.Mean) != len(features) {
		return meta, fmt.Errorf("%w: scaler does not match features", ErrShapeMismatch)
	}
	return meta, nil
}
