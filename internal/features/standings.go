package features

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/yourusername/f1-predictor/internal/models"
)

var (
	racePoints   = []int64{25, 18, 15, 12, 10, 8, 6, 4, 2, 1}
	sprintPoints = []int64{8, 7, 6, 5, 4, 3, 2, 1}
)

// StandingEntry is one constructor's championship position after a round.
type StandingEntry struct {
	Team     string
	Points   decimal.Decimal
	Wins     int
	Position int
}

// StandingsTable accumulates constructor championship points per season and
// snapshots the ranking after each round.
type StandingsTable struct {
	points    map[string]decimal.Decimal
	wins      map[string]int
	snapshots map[int][]StandingEntry
	lastRound int
}

// NewStandingsTable creates an empty table.
func NewStandingsTable() *StandingsTable {
	return &StandingsTable{
		points:    make(map[string]decimal.Decimal),
		wins:      make(map[string]int),
		snapshots: make(map[int][]StandingEntry),
	}
}

// AddSession awards points for a race or sprint classification and
// snapshots the ranking for its round. Other session kinds are ignored.
func (s *StandingsTable) AddSession(round int, results []models.SessionResult) {
	for _, r := range results {
		if _, seen := s.points[r.ConstructorID]; !seen && r.ConstructorID != "" {
			s.points[r.ConstructorID] = decimal.Zero
		}
		if r.FinishingPosition == nil {
			continue
		}
		pos := *r.FinishingPosition
		var table []int64
		switch r.Kind {
		case models.SessionRace:
			table = racePoints
			if pos == 1 {
				s.wins[r.ConstructorID]++
			}
		case models.SessionSprint:
			table = sprintPoints
		default:
			continue
		}
		if pos >= 1 && pos <= len(table) {
			s.points[r.ConstructorID] = s.points[r.ConstructorID].Add(decimal.NewFromInt(table[pos-1]))
		}
	}
	s.snapshot(round)
}

func (s *StandingsTable) snapshot(round int) {
	entries := make([]StandingEntry, 0, len(s.points))
	for team, pts := range s.points {
		entries = append(entries, StandingEntry{Team: team, Points: pts, Wins: s.wins[team]})
	}
	sort.Slice(entries, func(i, j int) bool {
		if c := entries[i].Points.Cmp(entries[j].Points); c != 0 {
			return c > 0
		}
		if entries[i].Wins != entries[j].Wins {
			return entries[i].Wins > entries[j].Wins
		}
		return entries[i].Team < entries[j].Team
	})
	for i := range entries {
		entries[i].Position = i + 1
	}
	s.snapshots[round] = entries
	if round > s.lastRound {
		s.lastRound = round
	}
}

// Rank returns the team's position in the snapshot taken after round.
func (s *StandingsTable) Rank(team string, round int) (int, bool) {
	for _, e := range s.snapshots[round] {
		if e.Team == team {
			return e.Position, true
		}
	}
	return 0, false
}

// After returns the snapshot taken after round.
func (s *StandingsTable) After(round int) []StandingEntry {
	return append([]StandingEntry(nil), s.snapshots[round]...)
}

// Latest returns the most recent snapshot.
func (s *StandingsTable) Latest() []StandingEntry {
	return s.After(s.lastRound)
}

// Empty reports whether no round has been recorded.
func (s *StandingsTable) Empty() bool {
	return len(s.snapshots) == 0
}
