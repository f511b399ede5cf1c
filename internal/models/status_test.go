package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status string
		want   StatusClass
	}{
		{"Finished", StatusFinished},
		{"+1 Lap", StatusLapped},
		{"+2 Laps", StatusLapped},
		{"Engine", StatusMechanicalFailure},
		{"Gearbox", StatusMechanicalFailure},
		{"Hydraulics", StatusMechanicalFailure},
		{"Mechanical", StatusMechanicalFailure},
		{"Power Unit ENGINE failure", StatusMechanicalFailure},
		{"Collision", StatusRetired},
		{"Accident", StatusRetired},
		{"", StatusRetired},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyStatus(tt.status))
		})
	}
}

func TestIsDNFStatus(t *testing.T) {
	assert.False(t, IsDNFStatus("Finished"))
	assert.False(t, IsDNFStatus("+1 Lap"))
	assert.True(t, IsDNFStatus("Collision"))
	assert.True(t, IsDNFStatus("Engine"))
	// Case matters for "Finished", as in the historical tables.
	assert.True(t, IsDNFStatus("finished"))
}

func TestParseSessionKind(t *testing.T) {
	tests := map[string]SessionKind{
		"Q":          SessionQualifying,
		"qualifying": SessionQualifying,
		"S":          SessionSprint,
		"R":          SessionRace,
		"Race":       SessionRace,
		"FP1":        SessionPractice1,
		"Practice 2": SessionPractice2,
		"fp3":        SessionPractice3,
	}
	for in, want := range tests {
		got, err := ParseSessionKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
		assert.Equal(t, got, mustParse(t, got.Code()))
	}

	_, err := ParseSessionKind("warmup")
	assert.ErrorIs(t, err, ErrUnknownSessionKind)
}

func mustParse(t *testing.T, s string) SessionKind {
	t.Helper()
	kind, err := ParseSessionKind(s)
	require.NoError(t, err)
	return kind
}

func TestSessionResultPosition(t *testing.T) {
	classified := SessionResult{FinishingPosition: IntPtr(4)}
	assert.Equal(t, 4.0, classified.Position())

	dnf := SessionResult{}
	assert.True(t, math.IsNaN(dnf.Position()))
}

func TestSprintClassForPosition(t *testing.T) {
	assert.Equal(t, SprintTop3, SprintClassForPosition(1))
	assert.Equal(t, SprintTop3, SprintClassForPosition(3))
	assert.Equal(t, SprintPoints, SprintClassForPosition(4))
	assert.Equal(t, SprintPoints, SprintClassForPosition(8))
	assert.Equal(t, SprintNoPoints, SprintClassForPosition(9))
}

func TestFastestLap(t *testing.T) {
	laps := []Lap{
		{DriverID: "VER", LapNumber: 1},
		{DriverID: "VER", LapNumber: 2, LapTime: LapDuration(91.2)},
		{DriverID: "VER", LapNumber: 3, LapTime: LapDuration(90.4)},
	}
	best, ok := FastestLap(laps)
	require.True(t, ok)
	assert.Equal(t, 3, best.LapNumber)

	_, ok = FastestLap([]Lap{{DriverID: "VER"}})
	assert.False(t, ok)
}
