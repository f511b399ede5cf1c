package models

import (
	"sort"
	"time"
)

// EventMetadata describes one race weekend.
type EventMetadata struct {
	Season      int                       `json:"season"`
	RoundNumber int                       `json:"round_number"`
	MeetingKey  int                       `json:"meeting_key"`
	EventName   string                    `json:"event_name"`
	Location    string                    `json:"location"`
	Circuit     string                    `json:"circuit"`
	Country     string                    `json:"country"`
	Format      EventFormat               `json:"format"`
	Sessions    map[SessionKind]time.Time `json:"sessions"`
	SessionKeys map[SessionKind]int       `json:"session_keys,omitempty"`
}

// IsSprintWeekend reports whether the event runs the sprint format.
func (e EventMetadata) IsSprintWeekend() bool {
	return e.Format == FormatSprint
}

// StartOf returns the scheduled start of a session.
func (e EventMetadata) StartOf(kind SessionKind) (time.Time, bool) {
	t, ok := e.Sessions[kind]
	return t, ok
}

// Start is the earliest scheduled session of the weekend.
func (e EventMetadata) Start() time.Time {
	var first time.Time
	for _, t := range e.Sessions {
		if first.IsZero() || t.Before(first) {
			first = t
		}
	}
	return first
}

// Session is one loaded session: its classification, laps and weather.
type Session struct {
	Metadata       EventMetadata   `json:"metadata"`
	Kind           SessionKind     `json:"kind"`
	Key            int             `json:"key"`
	Classification []SessionResult `json:"classification"`
	Laps           []Lap           `json:"laps"`
	Weather        []WeatherSample `json:"weather"`
}

// HasClassification reports whether the session has at least one result.
func (s *Session) HasClassification() bool {
	return s != nil && len(s.Classification) > 0
}

// Result returns the classification entry of a driver.
func (s *Session) Result(driverID string) (SessionResult, bool) {
	if s == nil {
		return SessionResult{}, false
	}
	for _, r := range s.Classification {
		if r.DriverID == driverID {
			return r, true
		}
	}
	return SessionResult{}, false
}

// DriverIDs lists the classified drivers in classification order.
func (s *Session) DriverIDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.Classification))
	for _, r := range s.Classification {
		ids = append(ids, r.DriverID)
	}
	return ids
}

// SortEvents orders a schedule by round.
func SortEvents(events []EventMetadata) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].RoundNumber < events[j].RoundNumber
	})
}
