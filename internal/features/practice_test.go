package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/f1-predictor/internal/models"
)

func stintLaps(driver string, stint int, times ...float64) []models.Lap {
	laps := make([]models.Lap, len(times))
	for i, secs := range times {
		laps[i] = models.Lap{
			DriverID:    driver,
			LapNumber:   i + 1,
			LapTime:     models.LapDuration(secs),
			Stint:       stint,
			TrackStatus: models.GreenFlagStatus,
		}
	}
	return laps
}

func TestPracticeIdenticalLaps(t *testing.T) {
	calc := NewPracticeCalculator(5, 1.07, nil)
	laps := stintLaps("LEC", 1, 92.5, 92.5, 92.5, 92.5, 92.5, 92.5)

	pace := calc.Calculate(laps, nil, "LEC")

	require.NotNil(t, pace.RacePace)
	require.NotNil(t, pace.TireDegradation)
	assert.InDelta(t, 92.5, *pace.RacePace, 1e-6)
	assert.InDelta(t, 0.0, *pace.TireDegradation, 1e-9)
	assert.Equal(t, 0.0, pace.RainProbability)
}

func TestPracticeDegradationSign(t *testing.T) {
	calc := NewPracticeCalculator(5, 1.07, nil)

	rising := calc.Calculate(stintLaps("NOR", 1, 90.0, 90.2, 90.4, 90.6, 90.8, 91.0), nil, "NOR")
	require.NotNil(t, rising.TireDegradation)
	assert.Greater(t, *rising.TireDegradation, 0.0)
	assert.InDelta(t, 0.2, *rising.TireDegradation, 1e-6)

	falling := calc.Calculate(stintLaps("NOR", 1, 91.0, 90.8, 90.6, 90.4, 90.2, 90.0), nil, "NOR")
	require.NotNil(t, falling.TireDegradation)
	assert.Less(t, *falling.TireDegradation, 0.0)
}

func TestPracticeShortStintsIgnored(t *testing.T) {
	calc := NewPracticeCalculator(5, 1.07, nil)
	laps := stintLaps("PIA", 1, 90, 90.1, 90.2, 90.3)

	pace := calc.Calculate(laps, nil, "PIA")

	assert.Nil(t, pace.RacePace)
	assert.Nil(t, pace.TireDegradation)
}

func TestPracticeMultipleStints(t *testing.T) {
	calc := NewPracticeCalculator(5, 1.07, nil)
	laps := append(stintLaps("SAI", 2, 90, 90, 90, 90, 90),
		stintLaps("SAI", 3, 91, 91.1, 91.2, 91.3, 91.4)...)

	pace := calc.Calculate(laps, nil, "SAI")

	require.NotNil(t, pace.RacePace)
	assert.InDelta(t, (90.0+91.2)/2, *pace.RacePace, 1e-6)
	assert.InDelta(t, 0.05, *pace.TireDegradation, 1e-6)
}

func TestPracticeQuickLapFilter(t *testing.T) {
	calc := NewPracticeCalculator(5, 1.07, nil)
	laps := stintLaps("HAM", 1, 90, 90, 90, 90, 90, 90, 120)
	laps[2].TrackStatus = "4"
	laps[3].PitInLap = true

	pace := calc.Calculate(laps, nil, "HAM")

	// Two laps under neutralisation or in the pits, one far off the pace.
	assert.Nil(t, pace.RacePace)

	laps[2].TrackStatus = models.GreenFlagStatus
	pace = calc.Calculate(laps, nil, "HAM")
	require.NotNil(t, pace.RacePace)
	assert.InDelta(t, 90.0, *pace.RacePace, 1e-6)
}

func TestPracticeTopSpeed(t *testing.T) {
	calc := NewPracticeCalculator(5, 1.07, nil)
	laps := stintLaps("ALB", 1, 91, 90, 92)

	assert.Nil(t, calc.Calculate(laps, nil, "ALB").TopSpeed)

	laps[0].MaxSpeed = models.FloatPtr(330)
	laps[1].MaxSpeed = models.FloatPtr(325)
	top := calc.Calculate(laps, nil, "ALB").TopSpeed
	require.NotNil(t, top)
	assert.Equal(t, 325.0, *top, "telemetry of the fastest lap")

	laps[2].SpeedTrap = models.FloatPtr(338)
	laps[0].SpeedTrap = models.FloatPtr(334)
	top = calc.Calculate(laps, nil, "ALB").TopSpeed
	require.NotNil(t, top)
	assert.Equal(t, 338.0, *top)
}

func TestPracticeRainProbability(t *testing.T) {
	calc := NewPracticeCalculator(5, 1.07, nil)
	weather := []models.WeatherSample{{Rainfall: true}, {}, {}, {Rainfall: true}}

	pace := calc.Calculate(nil, weather, "RUS")

	assert.Equal(t, 0.5, pace.RainProbability)
	assert.Nil(t, pace.RacePace)
	assert.Nil(t, pace.TopSpeed)
	assert.Equal(t, 0.0, RainProbability(nil))
}

func TestPracticeUnknownDriver(t *testing.T) {
	calc := NewPracticeCalculator(0, 0, nil)
	pace := calc.Calculate(stintLaps("VER", 1, 90, 90, 90, 90, 90), nil, "XXX")
	assert.Equal(t, PracticePace{}, pace)
}
