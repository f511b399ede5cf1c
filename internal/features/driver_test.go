package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yourusername/f1-predictor/internal/models"
)

func result(round int, pos int, status string) models.SessionResult {
	r := models.SessionResult{
		DriverID:      "VER",
		ConstructorID: "Red Bull Racing",
		RoundNumber:   round,
		SeasonYear:    2023,
		Kind:          models.SessionRace,
		StatusText:    status,
	}
	if pos > 0 {
		r.FinishingPosition = models.IntPtr(pos)
	}
	return r
}

func TestAverageRecentPositionScenario(t *testing.T) {
	calc := NewDriverCalculator(5)
	history := []models.SessionResult{
		result(1, 3, "Finished"),
		result(2, 1, "Finished"),
		result(3, 5, "Finished"),
	}

	assert.Equal(t, 3.0, calc.AverageRecentPosition(history, 4))
}

func TestAverageRecentPositionEmpty(t *testing.T) {
	calc := NewDriverCalculator(5)
	assert.True(t, math.IsNaN(calc.AverageRecentPosition(nil, 4)))

	// Only current and future rounds: still no prior data.
	history := []models.SessionResult{result(4, 2, "Finished"), result(5, 1, "Finished")}
	assert.True(t, math.IsNaN(calc.AverageRecentPosition(history, 4)))
}

func TestAverageRecentPositionWindow(t *testing.T) {
	calc := NewDriverCalculator(3)
	// Out of order on purpose; the window is taken in round order.
	history := []models.SessionResult{
		result(5, 10, "Finished"),
		result(1, 20, "Finished"),
		result(4, 8, "Finished"),
		result(2, 18, "Finished"),
		result(3, 6, "Finished"),
	}

	assert.Equal(t, 8.0, calc.AverageRecentPosition(history, 6))
	assert.Equal(t, (18.0+6.0+8.0)/3, calc.AverageRecentPosition(history, 5))
}

func TestAverageRecentPositionSkipsUnclassified(t *testing.T) {
	calc := NewDriverCalculator(5)
	history := []models.SessionResult{
		result(1, 4, "Finished"),
		result(2, 0, "Collision"),
		result(3, 6, "Finished"),
	}
	assert.Equal(t, 5.0, calc.AverageRecentPosition(history, 4))

	allDNF := []models.SessionResult{result(1, 0, "Engine")}
	assert.True(t, math.IsNaN(calc.AverageRecentPosition(allDNF, 2)))
}

func TestDNFRate(t *testing.T) {
	calc := NewDriverCalculator(5)

	assert.Equal(t, 0.0, calc.DNFRate(nil, 1))

	history := []models.SessionResult{
		result(1, 1, "Finished"),
		result(2, 12, "+1 Lap"),
		result(3, 0, "Collision"),
		result(4, 0, "Engine"),
		result(5, 2, "Finished"),
	}
	assert.Equal(t, 2.0/5.0, calc.DNFRate(history, 6))
	assert.Equal(t, 1.0/3.0, calc.DNFRate(history, 4))
}

func TestQualifyingDeltaToTeammate(t *testing.T) {
	calc := NewDriverCalculator(5)
	laps := []models.Lap{
		{DriverID: "VER", LapTime: models.LapDuration(78.5)},
		{DriverID: "VER", LapTime: models.LapDuration(78.0)},
		{DriverID: "PER", LapTime: models.LapDuration(78.4)},
		{DriverID: "PER"},
	}

	assert.InDelta(t, -0.4, calc.QualifyingDeltaToTeammate(laps, "VER", "PER"), 1e-6)
	assert.InDelta(t, 0.4, calc.QualifyingDeltaToTeammate(laps, "PER", "VER"), 1e-6)
}

func TestQualifyingDeltaToTeammateDefaults(t *testing.T) {
	calc := NewDriverCalculator(5)
	laps := []models.Lap{
		{DriverID: "VER", LapTime: models.LapDuration(78.0)},
		{DriverID: "PER"},
	}

	assert.Equal(t, 0.0, calc.QualifyingDeltaToTeammate(laps, "VER", ""))
	assert.Equal(t, 0.0, calc.QualifyingDeltaToTeammate(laps, "VER", "PER"))
	assert.Equal(t, 0.0, calc.QualifyingDeltaToTeammate(laps, "HAM", "RUS"))
	assert.Equal(t, 0.0, calc.QualifyingDeltaToTeammate(nil, "VER", "PER"))
}
