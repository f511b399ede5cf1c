package models

import (
	"fmt"
	"math"
	"strings"
)

// SessionKind identifies a session within a race weekend.
type SessionKind string

const (
	SessionQualifying SessionKind = "Qualifying"
	SessionSprint     SessionKind = "Sprint"
	SessionRace       SessionKind = "Race"
	SessionPractice1  SessionKind = "Practice1"
	SessionPractice2  SessionKind = "Practice2"
	SessionPractice3  SessionKind = "Practice3"
)

var sessionAliases = map[string]SessionKind{
	"q":          SessionQualifying,
	"qualifying": SessionQualifying,
	"s":          SessionSprint,
	"sprint":     SessionSprint,
	"r":          SessionRace,
	"race":       SessionRace,
	"fp1":        SessionPractice1,
	"practice1":  SessionPractice1,
	"practice 1": SessionPractice1,
	"fp2":        SessionPractice2,
	"practice2":  SessionPractice2,
	"practice 2": SessionPractice2,
	"fp3":        SessionPractice3,
	"practice3":  SessionPractice3,
	"practice 3": SessionPractice3,
}

// ParseSessionKind accepts long names ("Qualifying", "Practice 2") and short
// codes ("Q", "FP2").
func ParseSessionKind(s string) (SessionKind, error) {
	if kind, ok := sessionAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return kind, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSessionKind, s)
}

// Code returns the short code used by the data provider and on the CLI.
func (k SessionKind) Code() string {
	switch k {
	case SessionQualifying:
		return "Q"
	case SessionSprint:
		return "S"
	case SessionRace:
		return "R"
	case SessionPractice1:
		return "FP1"
	case SessionPractice2:
		return "FP2"
	case SessionPractice3:
		return "FP3"
	default:
		return string(k)
	}
}

// IsPractice reports whether the session is a free practice session.
func (k SessionKind) IsPractice() bool {
	return k == SessionPractice1 || k == SessionPractice2 || k == SessionPractice3
}

// EventFormat is the weekend format of an event.
type EventFormat string

const (
	FormatConventional EventFormat = "conventional"
	FormatSprint       EventFormat = "sprint"
)

// SessionResult is one driver's classification in one session.
type SessionResult struct {
	DriverID          string      `json:"driver_id"`
	DriverNumber      string      `json:"driver_number,omitempty"`
	ConstructorID     string      `json:"constructor_id"`
	RoundNumber       int         `json:"round_number"`
	SeasonYear        int         `json:"season_year"`
	Kind              SessionKind `json:"session_kind"`
	FinishingPosition *int        `json:"finishing_position"`
	StatusText        string      `json:"status"`
	GridPosition      *int        `json:"grid_position"`
}

// Position returns the finishing position, or NaN when the driver was not
// classified.
func (r SessionResult) Position() float64 {
	if r.FinishingPosition == nil {
		return math.NaN()
	}
	return float64(*r.FinishingPosition)
}

// Validate checks the identifying fields of the result.
func (r SessionResult) Validate() error {
	if r.DriverID == "" || r.ConstructorID == "" {
		return ErrInvalidSessionResult
	}
	if r.RoundNumber < 1 {
		return ErrInvalidRound
	}
	return nil
}

// IntPtr is a small helper for optional integer fields.
func IntPtr(v int) *int {
	return &v
}

// FloatPtr is a small helper for optional float fields.
func FloatPtr(v float64) *float64 {
	return &v
}
