package predictor

import (
	"sort"

	"github.com/yourusername/f1-predictor/internal/models"
)

// Rank orders records by race score, best first, and assigns 1-based
// predicted positions. Equal scores keep their input order.
func Rank(records []models.PredictionRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].RaceScore > records[j].RaceScore
	})
	for i := range records {
		records[i].PredictedPosition = i + 1
	}
}
