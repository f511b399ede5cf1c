package models

import (
	"math"
	"time"
)

// GreenFlagStatus is the track status code for racing under green flag.
const GreenFlagStatus = "1"

// Lap is one timed lap of one driver in a session.
type Lap struct {
	DriverID    string         `json:"driver_id"`
	LapNumber   int            `json:"lap_number"`
	LapTime     *time.Duration `json:"lap_time"`
	Stint       int            `json:"stint"`
	TrackStatus string         `json:"track_status"`
	SpeedTrap   *float64       `json:"speed_trap"`
	MaxSpeed    *float64       `json:"max_speed"`
	PitInLap    bool           `json:"pit_in_lap"`
	PitOutLap   bool           `json:"pit_out_lap"`
	StartedAt   time.Time      `json:"started_at"`
}

// Seconds returns the lap time in seconds and whether it was recorded.
func (l Lap) Seconds() (float64, bool) {
	if l.LapTime == nil {
		return 0, false
	}
	return l.LapTime.Seconds(), true
}

// WeatherSample is one weather station reading taken during a session.
type WeatherSample struct {
	Time      time.Time `json:"time"`
	TrackTemp float64   `json:"track_temp"`
	AirTemp   float64   `json:"air_temp"`
	Rainfall  bool      `json:"rainfall"`
}

// LapsForDriver returns the laps driven by driverID in their original order.
func LapsForDriver(laps []Lap, driverID string) []Lap {
	out := make([]Lap, 0)
	for _, lap := range laps {
		if lap.DriverID == driverID {
			out = append(out, lap)
		}
	}
	return out
}

// FastestLap returns the lap with the smallest recorded lap time.
func FastestLap(laps []Lap) (Lap, bool) {
	var best Lap
	found := false
	for _, lap := range laps {
		if lap.LapTime == nil {
			continue
		}
		if !found || *lap.LapTime < *best.LapTime {
			best = lap
			found = true
		}
	}
	return best, found
}

// LapDuration converts seconds into an optional lap time, rounded to the
// nearest nanosecond.
func LapDuration(seconds float64) *time.Duration {
	d := time.Duration(math.Round(seconds * float64(time.Second)))
	return &d
}
