package features

import (
	"math"

	"github.com/yourusername/f1-predictor/internal/models"
)

// DefaultReliabilityWindow is the number of races considered for
// reliability; each race contributes two entries, one per car.
const DefaultReliabilityWindow = 10

// ConstructorCalculator computes rolling per-constructor statistics.
type ConstructorCalculator struct {
	window int
}

// NewConstructorCalculator creates a calculator over window races.
func NewConstructorCalculator(window int) *ConstructorCalculator {
	if window <= 0 {
		window = DefaultReliabilityWindow
	}
	return &ConstructorCalculator{window: window}
}

// Standing returns the team's championship rank after the previous round.
// Round one yields 0; missing standings yield NaN.
func (c *ConstructorCalculator) Standing(standings *StandingsTable, team string, currentRound int) float64 {
	prev := currentRound - 1
	if prev < 1 {
		return 0
	}
	if standings == nil || standings.Empty() {
		return math.NaN()
	}
	rank, ok := standings.Rank(team, prev)
	if !ok {
		return math.NaN()
	}
	return float64(rank)
}

// ReliabilityScore is one minus the share of mechanical failures among the
// team's most recent window*2 entries before currentRound. Always in [0,1];
// 1.0 without prior entries.
func (c *ConstructorCalculator) ReliabilityScore(history []models.SessionResult, currentRound int) float64 {
	past := priorEntries(history, currentRound)
	if len(past) == 0 {
		return 1.0
	}
	if limit := c.window * 2; len(past) > limit {
		past = past[len(past)-limit:]
	}
	failures := 0
	for _, r := range past {
		if models.IsMechanicalFailure(r.StatusText) {
			failures++
		}
	}
	return 1.0 - float64(failures)/float64(len(past))
}
