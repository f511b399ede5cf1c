package predictor

import (
	"math"

	"github.com/yourusername/f1-predictor/internal/models"
)

const statsWindow = 5

// DriverStats are the rolling inputs used when no live session supplies them.
type DriverStats struct {
	AvgPosition float64
	DNFRate     float64
	Reliability float64
}

// DefaultDriverStats apply to drivers absent from the feature log.
var DefaultDriverStats = DriverStats{AvgPosition: 5.0, DNFRate: 0.1, Reliability: 0.95}

// StatsIndex answers per-driver stats from the persisted feature log. Rows
// are kept in load order, which is season then round.
type StatsIndex struct {
	byDriver map[string][]models.FeatureRow
}

// NewStatsIndex groups rows by driver.
func NewStatsIndex(rows []models.FeatureRow) *StatsIndex {
	idx := &StatsIndex{byDriver: make(map[string][]models.FeatureRow)}
	for _, r := range rows {
		idx.byDriver[r.DriverID] = append(idx.byDriver[r.DriverID], r)
	}
	return idx
}

// Empty reports whether the log holds no rows.
func (s *StatsIndex) Empty() bool {
	return s == nil || len(s.byDriver) == 0
}

// Drivers returns the number of distinct drivers in the log.
func (s *StatsIndex) Drivers() int {
	if s == nil {
		return 0
	}
	return len(s.byDriver)
}

// Stats returns the stats for the first identifier present in the log. The
// boolean is false when the defaults were used.
func (s *StatsIndex) Stats(ids ...string) (DriverStats, bool) {
	if s.Empty() {
		return DefaultDriverStats, false
	}
	var rows []models.FeatureRow
	for _, id := range ids {
		if rows = s.byDriver[id]; len(rows) > 0 {
			break
		}
	}
	if len(rows) == 0 {
		return DefaultDriverStats, false
	}

	var races []models.FeatureRow
	for _, r := range rows {
		if r.SessionKind == models.SessionRace {
			races = append(races, r)
		}
	}
	if len(races) == 0 {
		return DefaultDriverStats, false
	}

	var positions []float64
	missing := 0
	for _, r := range races {
		if r.HasTarget() {
			positions = append(positions, *r.TargetPosition)
		} else {
			missing++
		}
	}
	if len(positions) == 0 {
		return DefaultDriverStats, false
	}
	if len(positions) > statsWindow {
		positions = positions[len(positions)-statsWindow:]
	}
	sum := 0.0
	for _, p := range positions {
		sum += p
	}

	reliability := rows[len(rows)-1].ReliabilityScore
	if math.IsNaN(reliability) {
		reliability = DefaultDriverStats.Reliability
	}
	return DriverStats{
		AvgPosition: sum / float64(len(positions)),
		DNFRate:     float64(missing) / float64(len(races)),
		Reliability: reliability,
	}, true
}
