package features

import (
	"math"
	"sort"

	"github.com/yourusername/f1-predictor/internal/models"
)

// DefaultRecentWindow is the number of prior rounds averaged for form.
const DefaultRecentWindow = 5

// DriverCalculator computes rolling per-driver statistics from a driver's
// history slice. The slice is never modified.
type DriverCalculator struct {
	window int
}

// NewDriverCalculator creates a calculator averaging over window rounds.
func NewDriverCalculator(window int) *DriverCalculator {
	if window <= 0 {
		window = DefaultRecentWindow
	}
	return &DriverCalculator{window: window}
}

// AverageRecentPosition is the mean finishing position over the last window
// entries before currentRound. Unclassified entries take a window slot but
// do not contribute to the mean. Returns NaN when there is no prior data.
func (c *DriverCalculator) AverageRecentPosition(history []models.SessionResult, currentRound int) float64 {
	past := priorEntries(history, currentRound)
	if len(past) == 0 {
		return math.NaN()
	}
	if len(past) > c.window {
		past = past[len(past)-c.window:]
	}

	sum, n := 0.0, 0
	for _, r := range past {
		pos := r.Position()
		if math.IsNaN(pos) {
			continue
		}
		sum += pos
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// DNFRate is the share of prior entries whose status is a non-finish.
// With no prior entries the rate is 0.0, not NaN.
func (c *DriverCalculator) DNFRate(history []models.SessionResult, currentRound int) float64 {
	past := priorEntries(history, currentRound)
	if len(past) == 0 {
		return 0.0
	}
	dnfs := 0
	for _, r := range past {
		if models.IsDNFStatus(r.StatusText) {
			dnfs++
		}
	}
	return float64(dnfs) / float64(len(past))
}

// QualifyingDeltaToTeammate is the gap in seconds between the driver's and the
// teammate's fastest lap in a session. Positive means the driver was slower.
// Missing teammate or lap data yields 0.0.
func (c *DriverCalculator) QualifyingDeltaToTeammate(laps []models.Lap, driver, teammate string) float64 {
	if teammate == "" {
		return 0.0
	}
	own, ok := models.FastestLap(models.LapsForDriver(laps, driver))
	if !ok {
		return 0.0
	}
	mate, ok := models.FastestLap(models.LapsForDriver(laps, teammate))
	if !ok {
		return 0.0
	}
	return (*own.LapTime - *mate.LapTime).Seconds()
}

// priorEntries returns entries with round < currentRound sorted by round,
// keeping the original order for equal rounds.
func priorEntries(history []models.SessionResult, currentRound int) []models.SessionResult {
	past := make([]models.SessionResult, 0, len(history))
	for _, r := range history {
		if r.RoundNumber < currentRound {
			past = append(past, r)
		}
	}
	sort.SliceStable(past, func(i, j int) bool {
		return past[i].RoundNumber < past[j].RoundNumber
	})
	return past
}
