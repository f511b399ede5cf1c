// Package features derives per-driver, per-constructor and per-circuit
// features from session results, lap tables and weather samples.
package features

import (
	"strings"

	"github.com/yourusername/f1-predictor/internal/models"
)

const (
	// DefaultTrackTemp is used when a session carries no weather samples.
	DefaultTrackTemp = 25.0
	// DefaultOvertakeDifficulty is used for circuits missing from the table.
	DefaultOvertakeDifficulty = 5
)

type circuitDifficulty struct {
	key   string
	score int
}

// Checked in order; the first key contained in the circuit name wins.
var overtakeDifficulty = []circuitDifficulty{
	{"Monaco", 10},
	{"Singapore", 8},
	{"Hungaroring", 7},
	{"Silverstone", 3},
	{"Spa-Francorchamps", 2},
	{"Monza", 1},
}

// TrackLookup resolves static circuit metadata.
type TrackLookup struct {
	defaultTemp       float64
	defaultDifficulty int
}

// NewTrackLookup creates a lookup with the given fallbacks.
func NewTrackLookup(defaultTemp float64, defaultDifficulty int) *TrackLookup {
	return &TrackLookup{defaultTemp: defaultTemp, defaultDifficulty: defaultDifficulty}
}

// DefaultTrackLookup uses the 25°C / difficulty 5 fallbacks.
func DefaultTrackLookup() *TrackLookup {
	return NewTrackLookup(DefaultTrackTemp, DefaultOvertakeDifficulty)
}

// OvertakeDifficulty returns a 0-10 score by substring match on the circuit
// or event name.
func (t *TrackLookup) OvertakeDifficulty(circuit string) int {
	for _, c := range overtakeDifficulty {
		if strings.Contains(circuit, c.key) {
			return c.score
		}
	}
	return t.defaultDifficulty
}

// TrackTempAverage is the mean track temperature over the session.
func (t *TrackLookup) TrackTempAverage(samples []models.WeatherSample) float64 {
	if len(samples) == 0 {
		return t.defaultTemp
	}
	sum := 0.0
	for _, s := range samples {
		sum += s.TrackTemp
	}
	return sum / float64(len(samples))
}
