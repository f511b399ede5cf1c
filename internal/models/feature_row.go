package models

import "math"

// FeatureRow is one training or inference example: one driver in one session.
type FeatureRow struct {
	DriverID            string      `json:"driver" db:"driver"`
	ConstructorID       string      `json:"team" db:"team"`
	SeasonYear          int         `json:"season" db:"season"`
	RoundNumber         int         `json:"round_number" db:"round_number"`
	Circuit             string      `json:"circuit" db:"circuit"`
	TrackTemp           float64     `json:"track_temp" db:"track_temp"`
	OvertakeDifficulty  int         `json:"overtake_difficulty" db:"overtake_difficulty"`
	DriverAvgPos        float64     `json:"driver_avg_pos" db:"driver_avg_pos"`
	DriverDNFRate       float64     `json:"driver_dnf_rate" db:"driver_dnf_rate"`
	QualiDeltaTeammate  float64     `json:"quali_delta_teammate" db:"quali_delta_teammate"`
	ReliabilityScore    float64     `json:"reliability_score" db:"reliability_score"`
	ConstructorStanding float64     `json:"constructor_standing" db:"constructor_standing"`
	GridPosition        *float64    `json:"grid_position" db:"grid_position"`
	RacePace            *float64    `json:"race_pace" db:"race_pace"`
	TireDegradation     *float64    `json:"tire_degradation" db:"tire_degradation"`
	TopSpeed            *float64    `json:"top_speed" db:"top_speed"`
	RainProbability     float64     `json:"rain_probability" db:"rain_probability"`
	TargetPosition      *float64    `json:"target_position" db:"target_position"`
	SessionKind         SessionKind `json:"session_type" db:"session_type"`
}

// Feature column names, shared by the persisted table and the estimators.
const (
	ColDriver              = "Driver"
	ColTeam                = "Team"
	ColSeason              = "Season"
	ColRoundNumber         = "RoundNumber"
	ColCircuit             = "Circuit"
	ColTrackTemp           = "TrackTemp"
	ColOvertakeDifficulty  = "OvertakeDifficulty"
	ColDriverAvgPos        = "DriverAvgPos"
	ColDriverDNFRate       = "DriverDNFRate"
	ColQualiDeltaTeammate  = "QualiDeltaTeammate"
	ColReliabilityScore    = "ReliabilityScore"
	ColConstructorStanding = "ConstructorStanding"
	ColGridPosition        = "GridPosition"
	ColRacePace            = "RacePace"
	ColTireDegradation     = "TireDegradation"
	ColTopSpeed            = "TopSpeed"
	ColRainProbability     = "RainProbability"
	ColTargetPosition      = "TargetPosition"
	ColSessionType         = "SessionType"
)

// FeatureColumns is the column order of the persisted feature table.
var FeatureColumns = []string{
	ColDriver, ColTeam, ColSeason, ColRoundNumber, ColCircuit,
	ColTrackTemp, ColOvertakeDifficulty, ColDriverAvgPos, ColDriverDNFRate,
	ColQualiDeltaTeammate, ColReliabilityScore, ColConstructorStanding,
	ColGridPosition, ColRacePace, ColTireDegradation, ColTopSpeed,
	ColRainProbability, ColTargetPosition, ColSessionType,
}

// Value returns the numeric value of a feature column. Absent optional
// features are reported as NaN; unknown names report ok=false.
func (r FeatureRow) Value(name string) (float64, bool) {
	switch name {
	case ColSeason:
		return float64(r.SeasonYear), true
	case ColRoundNumber:
		return float64(r.RoundNumber), true
	case ColTrackTemp:
		return r.TrackTemp, true
	case ColOvertakeDifficulty:
		return float64(r.OvertakeDifficulty), true
	case ColDriverAvgPos:
		return r.DriverAvgPos, true
	case ColDriverDNFRate:
		return r.DriverDNFRate, true
	case ColQualiDeltaTeammate:
		return r.QualiDeltaTeammate, true
	case ColReliabilityScore:
		return r.ReliabilityScore, true
	case ColConstructorStanding:
		return r.ConstructorStanding, true
	case ColGridPosition:
		return optional(r.GridPosition), true
	case ColRacePace:
		return optional(r.RacePace), true
	case ColTireDegradation:
		return optional(r.TireDegradation), true
	case ColTopSpeed:
		return optional(r.TopSpeed), true
	case ColRainProbability:
		return r.RainProbability, true
	case ColTargetPosition:
		return optional(r.TargetPosition), true
	default:
		return 0, false
	}
}

// HasTarget reports whether the row carries a label.
func (r FeatureRow) HasTarget() bool {
	return r.TargetPosition != nil && !math.IsNaN(*r.TargetPosition)
}

// Validate checks the identifying fields of the row.
func (r FeatureRow) Validate() error {
	if r.DriverID == "" || r.RoundNumber < 1 {
		return ErrInvalidFeatureRow
	}
	return nil
}

func optional(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
