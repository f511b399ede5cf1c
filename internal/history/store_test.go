package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/f1-predictor/internal/models"
)

func raceResult(season, round int, driver, team string, pos int) models.SessionResult {
	return models.SessionResult{
		DriverID:          driver,
		ConstructorID:     team,
		RoundNumber:       round,
		SeasonYear:        season,
		Kind:              models.SessionRace,
		FinishingPosition: models.IntPtr(pos),
		StatusText:        "Finished",
	}
}

func TestSeasonLogAppendAndSlice(t *testing.T) {
	log := NewSeasonLog()

	require.NoError(t, log.Append(
		raceResult(2023, 1, "VER", "Red Bull Racing", 1),
		raceResult(2023, 1, "PER", "Red Bull Racing", 2),
		raceResult(2023, 1, "ALO", "Aston Martin", 3),
	))
	require.NoError(t, log.Append(
		raceResult(2023, 2, "PER", "Red Bull Racing", 1),
		raceResult(2023, 2, "VER", "Red Bull Racing", 2),
	))

	assert.Equal(t, 5, log.Len())

	ver := log.SliceForDriver(2023, "VER", 3)
	require.Len(t, ver, 2)
	assert.Equal(t, 1, ver[0].RoundNumber)
	assert.Equal(t, 2, ver[1].RoundNumber)

	assert.Len(t, log.SliceForDriver(2023, "VER", 2), 1)
	assert.Empty(t, log.SliceForDriver(2023, "VER", 1))
	assert.Len(t, log.SliceForConstructor(2023, "Red Bull Racing", 3), 4)
	assert.Len(t, log.SliceForConstructor(2023, "Aston Martin", 3), 1)
}

func TestSeasonLogSeasonsAreIsolated(t *testing.T) {
	log := NewSeasonLog()
	require.NoError(t, log.Append(raceResult(2022, 22, "VER", "Red Bull Racing", 1)))
	require.NoError(t, log.Append(raceResult(2023, 1, "VER", "Red Bull Racing", 1)))

	assert.Len(t, log.SliceForDriver(2023, "VER", 23), 1)
	assert.Len(t, log.Season(2022), 1)
	assert.Equal(t, []int{2022, 2023}, log.Seasons())
}

func TestSeasonLogRejectsOutOfOrder(t *testing.T) {
	log := NewSeasonLog()
	require.NoError(t, log.Append(raceResult(2024, 3, "NOR", "McLaren", 2)))

	err := log.Append(
		raceResult(2024, 4, "NOR", "McLaren", 1),
		raceResult(2024, 2, "PIA", "McLaren", 4),
	)
	require.ErrorIs(t, err, ErrOutOfOrder)
	assert.Equal(t, 1, log.Len(), "a rejected batch must not be partially recorded")

	// Same round again is allowed.
	assert.NoError(t, log.Append(raceResult(2024, 3, "PIA", "McLaren", 5)))
}

func TestSeasonLogRejectsInvalid(t *testing.T) {
	log := NewSeasonLog()
	err := log.Append(models.SessionResult{SeasonYear: 2024, RoundNumber: 1})
	assert.ErrorIs(t, err, models.ErrInvalidSessionResult)
}

func TestSeasonLogReturnsCopies(t *testing.T) {
	log := NewSeasonLog()
	require.NoError(t, log.Append(raceResult(2024, 1, "LEC", "Ferrari", 1)))

	slice := log.SliceForDriver(2024, "LEC", 2)
	slice[0].StatusText = "Engine"

	assert.Equal(t, "Finished", log.Season(2024)[0].StatusText)
}
