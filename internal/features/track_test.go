package features

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yourusername/f1-predictor/internal/models"
)

func TestOvertakeDifficulty(t *testing.T) {
	lookup := DefaultTrackLookup()

	tests := []struct {
		circuit  string
		expected int
	}{
		{"Monaco", 10},
		{"Circuit de Monaco", 10},
		{"Marina Bay Street Circuit, Singapore", 8},
		{"Hungaroring", 7},
		{"Silverstone Circuit", 3},
		{"Circuit de Spa-Francorchamps", 2},
		{"Autodromo Nazionale Monza", 1},
		{"Bahrain International Circuit", 5},
		{"", 5},
	}

	for _, tt := range tests {
		t.Run(tt.circuit, func(t *testing.T) {
			assert.Equal(t, tt.expected, lookup.OvertakeDifficulty(tt.circuit))
		})
	}
}

func TestTrackTempAverage(t *testing.T) {
	lookup := DefaultTrackLookup()

	assert.Equal(t, 25.0, lookup.TrackTempAverage(nil))
	assert.Equal(t, 40.0, lookup.TrackTempAverage([]models.WeatherSample{
		{TrackTemp: 38}, {TrackTemp: 42},
	}))

	custom := NewTrackLookup(30, 4)
	assert.Equal(t, 30.0, custom.TrackTempAverage(nil))
	assert.Equal(t, 4, custom.OvertakeDifficulty("Yas Marina"))
}
