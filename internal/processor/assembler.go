// Package processor turns a loaded session plus the season history into one
// feature row per classified driver.
package processor

import (
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/f1-predictor/internal/features"
	"github.com/yourusername/f1-predictor/internal/history"
	"github.com/yourusername/f1-predictor/internal/models"
)

// ErrNilSession is returned when Assemble is called without a session.
var ErrNilSession = errors.New("processor: nil session")

// Config holds the calculator windows and fallbacks.
type Config struct {
	RecentWindow              int
	ReliabilityWindow         int
	MinStintLaps              int
	QuickLapThreshold         float64
	DefaultTrackTemp          float64
	DefaultOvertakeDifficulty int
}

// DefaultConfig returns the windows and fallbacks the models were tuned on.
func DefaultConfig() Config {
	return Config{
		RecentWindow:              features.DefaultRecentWindow,
		ReliabilityWindow:         features.DefaultReliabilityWindow,
		MinStintLaps:              features.DefaultMinStintLaps,
		QuickLapThreshold:         features.DefaultQuickLapThreshold,
		DefaultTrackTemp:          features.DefaultTrackTemp,
		DefaultOvertakeDifficulty: features.DefaultOvertakeDifficulty,
	}
}

// Assembler joins track, driver, constructor and practice features.
type Assembler struct {
	track       *features.TrackLookup
	driver      *features.DriverCalculator
	constructor *features.ConstructorCalculator
	practice    *features.PracticeCalculator
	logger      *logrus.Logger
}

// NewAssembler creates an assembler.
func NewAssembler(cfg Config, logger *logrus.Logger) *Assembler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Assembler{
		track:       features.NewTrackLookup(cfg.DefaultTrackTemp, cfg.DefaultOvertakeDifficulty),
		driver:      features.NewDriverCalculator(cfg.RecentWindow),
		constructor: features.NewConstructorCalculator(cfg.ReliabilityWindow),
		practice:    features.NewPracticeCalculator(cfg.MinStintLaps, cfg.QuickLapThreshold, logger),
		logger:      logger,
	}
}

// Track exposes the circuit lookup used by the assembler.
func (a *Assembler) Track() *features.TrackLookup { return a.track }

// Driver exposes the driver calculator used by the assembler.
func (a *Assembler) Driver() *features.DriverCalculator { return a.driver }

// Constructor exposes the constructor calculator used by the assembler.
func (a *Assembler) Constructor() *features.ConstructorCalculator { return a.constructor }

// Practice exposes the practice calculator used by the assembler.
func (a *Assembler) Practice() *features.PracticeCalculator { return a.practice }

// Assemble emits one row per classified driver of session. standings and
// practice are optional. A session without classification yields no rows
// and no error; callers treat that as a skipped session.
func (a *Assembler) Assemble(session *models.Session, store history.Store, standings *features.StandingsTable, practice *models.Session) ([]models.FeatureRow, error) {
	if session == nil {
		return nil, ErrNilSession
	}
	if !session.HasClassification() {
		return []models.FeatureRow{}, nil
	}

	meta := session.Metadata
	round := meta.RoundNumber
	season := meta.Season
	trackTemp := a.track.TrackTempAverage(session.Weather)
	difficulty := a.track.OvertakeDifficulty(CircuitKey(meta))

	rows := make([]models.FeatureRow, 0, len(session.Classification))
	for i, res := range session.Classification {
		var driverHist, teamHist []models.SessionResult
		if store != nil {
			driverHist = store.SliceForDriver(season, res.DriverID, round)
			teamHist = store.SliceForConstructor(season, res.ConstructorID, round)
		}

		row := models.FeatureRow{
			DriverID:            res.DriverID,
			ConstructorID:       res.ConstructorID,
			SeasonYear:          season,
			RoundNumber:         round,
			Circuit:             meta.EventName,
			TrackTemp:           trackTemp,
			OvertakeDifficulty:  difficulty,
			DriverAvgPos:        a.driver.AverageRecentPosition(driverHist, round),
			DriverDNFRate:       a.driver.DNFRate(driverHist, round),
			QualiDeltaTeammate:  a.driver.QualifyingDeltaToTeammate(session.Laps, res.DriverID, Teammate(session.Classification, i)),
			ReliabilityScore:    a.constructor.ReliabilityScore(teamHist, round),
			ConstructorStanding: a.constructor.Standing(standings, res.ConstructorID, round),
			SessionKind:         session.Kind,
		}
		if res.GridPosition != nil {
			row.GridPosition = models.FloatPtr(float64(*res.GridPosition))
		}
		if res.FinishingPosition != nil {
			row.TargetPosition = models.FloatPtr(float64(*res.FinishingPosition))
		}
		if practice != nil {
			pace := a.practice.Calculate(practice.Laps, practice.Weather, res.DriverID)
			row.RacePace = pace.RacePace
			row.TireDegradation = pace.TireDegradation
			row.TopSpeed = pace.TopSpeed
			row.RainProbability = pace.RainProbability
		}
		rows = append(rows, row)
	}

	a.logger.WithFields(logrus.Fields{
		"season":  season,
		"round":   round,
		"session": session.Kind.Code(),
		"rows":    len(rows),
	}).Debug("Assembled feature rows")

	return rows, nil
}

// Teammate returns the first other driver in the classification sharing the
// constructor of entry i, or "" when there is none.
func Teammate(classification []models.SessionResult, i int) string {
	team := classification[i].ConstructorID
	for j, other := range classification {
		if j != i && other.ConstructorID == team && other.DriverID != classification[i].DriverID {
			return other.DriverID
		}
	}
	return ""
}

// CircuitKey joins the names an event is known by so that the circuit table
// matches both "Monaco Grand Prix" and "Silverstone Circuit".
func CircuitKey(meta models.EventMetadata) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{meta.EventName, meta.Circuit, meta.Location} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}
