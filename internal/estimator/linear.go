package estimator

import (
	"fmt"
	"io"

	"github.com/cdipaolo/goml/base"
	"github.com/cdipaolo/goml/linear"
	"github.com/sirupsen/logrus"
)

// Options tune the gradient ascent used by every model.
type Options struct {
	LearningRate   float64
	Regularization float64
	MaxIterations  int
}

// DefaultOptions converge on standardised features within a few thousand
// iterations.
func DefaultOptions() Options {
	return Options{LearningRate: 0.1, Regularization: 0, MaxIterations: 2000}
}

func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.LearningRate <= 0 {
		o.LearningRate = d.LearningRate
	}
	if o.Regularization < 0 {
		o.Regularization = d.Regularization
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = d.MaxIterations
	}
	return o
}

// alpha scales the learning rate by the sample count: goml sums the gradient
// over examples instead of averaging it.
func (o Options) alpha(n int) float64 {
	return o.LearningRate / float64(n)
}

// leastSquares is the regression shared by the qualifying and race models.
type leastSquares struct {
	name     string
	features []string
	opts     Options
	logger   *logrus.Logger
	scaler   *Scaler
	model    *linear.LeastSquares
}

func newLeastSquares(name string, features []string, opts Options, logger *logrus.Logger) *leastSquares {
	if logger == nil {
		logger = logrus.New()
	}
	return &leastSquares{name: name, features: features, opts: opts.normalized(), logger: logger}
}

func (m *leastSquares) fit(X [][]float64, y []float64) error {
	if err := checkShape(X, y, len(m.features)); err != nil {
		return fmt.Errorf("%s: %w", m.name, err)
	}
	scaler := FitScaler(X)
	model := linear.NewLeastSquares(base.BatchGA, m.opts.alpha(len(X)), m.opts.Regularization, m.opts.MaxIterations, scaler.Transform(X), y)

	out := m.logger.WriterLevel(logrus.DebugLevel)
	defer out.Close()
	model.Output = out

	if err := model.Learn(); err != nil {
		return fmt.Errorf("%s: learn: %w", m.name, err)
	}
	model.Output = io.Discard
	m.scaler, m.model = scaler, model
	return nil
}

func (m *leastSquares) predict(X [][]float64) ([]float64, error) {
	if m.model == nil {
		return nil, ErrNotTrained
	}
	out := make([]float64, len(X))
	for i, x := range X {
		if len(x) != len(m.features) {
			return nil, fmt.Errorf("%s: %w: row %d has %d features, want %d", m.name, ErrShapeMismatch, i, len(x), len(m.features))
		}
		p, err := m.model.Predict(m.scaler.TransformRow(x))
		if err != nil {
			return nil, fmt.Errorf("%s: predict: %w", m.name, err)
		}
		out[i] = p[0]
	}
	return out, nil
}

func (m *leastSquares) persist(path string) error {
	if m.model == nil {
		return ErrNotTrained
	}
	if err := m.model.PersistToFile(path); err != nil {
		return fmt.Errorf("%s: persist: %w", m.name, err)
	}
	return writeMetadata(path, metadata{Model: m.name, Features: m.features, Scaler: m.scaler})
}

func (m *leastSquares) restore(path string) error {
	meta, err := readMetadata(path, m.name, m.features)
	if err != nil {
		return fmt.Errorf("%s: %w", m.name, err)
	}
	// A single zero row sizes the parameter vector before it is overwritten.
	width := len(m.features)
	model := linear.NewLeastSquares(base.BatchGA, 0, 0, 0, [][]float64{make([]float64, width)}, []float64{0})
	model.Output = io.Discard
	if err := model.RestoreFromFile(path); err != nil {
		return fmt.Errorf("%s: restore: %w", m.name, err)
	}
	if len(model.Parameters) != width+1 {
		return fmt.Errorf("%s: %w: %d parameters restored", m.name, ErrShapeMismatch, len(model.Parameters))
	}
	m.scaler, m.model = meta.Scaler, model
	return nil
}
