package predictor

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/f1-predictor/internal/models"
)

func TestRankTwentyDrivers(t *testing.T) {
	records := make([]models.PredictionRecord, 20)
	for i := range records {
		records[i] = models.PredictionRecord{DriverID: fmt.Sprintf("D%02d", i), RaceScore: float64(i)}
	}
	rand.New(rand.NewSource(7)).Shuffle(len(records), func(i, j int) {
		records[i], records[j] = records[j], records[i]
	})

	Rank(records)

	for _, r := range records {
		assert.Equal(t, 20-int(r.RaceScore), r.PredictedPosition, r.DriverID)
	}
	assert.Equal(t, 19.0, records[0].RaceScore)
	assert.Equal(t, 0.0, records[19].RaceScore)
}

func TestRankIsStableAndIdempotent(t *testing.T) {
	records := []models.PredictionRecord{
		{DriverID: "ALO", RaceScore: 5},
		{DriverID: "STR", RaceScore: 7},
		{DriverID: "OCO", RaceScore: 5},
		{DriverID: "GAS", RaceScore: 5},
	}

	Rank(records)
	first := make(map[string]int)
	order := make([]string, len(records))
	for i, r := range records {
		first[r.DriverID] = r.PredictedPosition
		order[i] = r.DriverID
	}
	assert.Equal(t, []string{"STR", "ALO", "OCO", "GAS"}, order)

	Rank(records)
	for _, r := range records {
		require.Equal(t, first[r.DriverID], r.PredictedPosition)
	}
}

func TestRankEmpty(t *testing.T) {
	assert.NotPanics(t, func() { Rank(nil) })
}
