// Package history keeps the season-scoped log of past session results that
// the feature calculators read from.
package history

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/yourusername/f1-predictor/internal/models"
)

// ErrOutOfOrder is returned when a result is appended for a round earlier
// than one already recorded in the same season.
var ErrOutOfOrder = errors.New("history: round appended out of order")

// Store is an append-only log of session results partitioned by season.
// Slices returned by a Store are copies and may be modified by the caller.
type Store interface {
	Append(results ...models.SessionResult) error
	SliceForDriver(season int, driver string, beforeRound int) []models.SessionResult
	SliceForConstructor(season int, team string, beforeRound int) []models.SessionResult
	Season(year int) []models.SessionResult
	Len() int
}

// SeasonLog is the in-memory Store.
type SeasonLog struct {
	mu        sync.RWMutex
	seasons   map[int][]models.SessionResult
	lastRound map[int]int
	size      int
}

// NewSeasonLog creates an empty log.
func NewSeasonLog() *SeasonLog {
	return &SeasonLog{
		seasons:   make(map[int][]models.SessionResult),
		lastRound: make(map[int]int),
	}
}

// Append records results. The batch is validated as a whole; on error nothing
// is recorded.
func (l *SeasonLog) Append(results ...models.SessionResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	last := make(map[int]int, len(l.lastRound))
	for season, round := range l.lastRound {
		last[season] = round
	}
	for _, r := range results {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("append %s round %d: %w", r.DriverID, r.RoundNumber, err)
		}
		if r.RoundNumber < last[r.SeasonYear] {
			return fmt.Errorf("%w: season %d round %d after round %d",
				ErrOutOfOrder, r.SeasonYear, r.RoundNumber, last[r.SeasonYear])
		}
		last[r.SeasonYear] = r.RoundNumber
	}

	for _, r := range results {
		l.seasons[r.SeasonYear] = append(l.seasons[r.SeasonYear], r)
	}
	l.lastRound = last
	l.size += len(results)
	return nil
}

// SliceForDriver returns the driver's entries in season before beforeRound,
// in append order.
func (l *SeasonLog) SliceForDriver(season int, driver string, beforeRound int) []models.SessionResult {
	return l.filter(season, beforeRound, func(r models.SessionResult) bool {
		return r.DriverID == driver
	})
}

// SliceForConstructor returns the constructor's entries in season before
// beforeRound, in append order.
func (l *SeasonLog) SliceForConstructor(season int, team string, beforeRound int) []models.SessionResult {
	return l.filter(season, beforeRound, func(r models.SessionResult) bool {
		return r.ConstructorID == team
	})
}

// Season returns every entry recorded for year.
func (l *SeasonLog) Season(year int) []models.SessionResult {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.SessionResult(nil), l.seasons[year]...)
}

// Seasons lists the recorded season years in ascending order.
func (l *SeasonLog) Seasons() []int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	years := make([]int, 0, len(l.seasons))
	for y := range l.seasons {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Len is the total number of entries across seasons.
func (l *SeasonLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.size
}

func (l *SeasonLog) filter(season, beforeRound int, keep func(models.SessionResult) bool) []models.SessionResult {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.SessionResult, 0)
	for _, r := range l.seasons[season] {
		if r.RoundNumber < beforeRound && keep(r) {
			out = append(out, r)
		}
	}
	return out
}
