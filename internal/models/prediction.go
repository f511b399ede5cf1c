package models

import (
	"time"

	"github.com/google/uuid"
)

// SprintClass is the sprint classifier's outcome bucket.
type SprintClass string

const (
	SprintTop3          SprintClass = "Top3"
	SprintPoints        SprintClass = "Points"
	SprintNoPoints      SprintClass = "NoPoints"
	SprintNotApplicable SprintClass = "N/A"
)

// SprintClasses is the classifier's class index order.
var SprintClasses = []SprintClass{SprintTop3, SprintPoints, SprintNoPoints}

// SprintClassForPosition buckets a sprint finishing position.
func SprintClassForPosition(pos float64) SprintClass {
	switch {
	case pos <= 3:
		return SprintTop3
	case pos <= 8:
		return SprintPoints
	default:
		return SprintNoPoints
	}
}

// EventState tracks how far an event weekend has progressed.
type EventState string

const (
	StateQualifyingPending EventState = "QUALIFYING_PENDING"
	StateQualifyingDone    EventState = "QUALIFYING_DONE"
	StateRacePredicted     EventState = "RACE_PREDICTED"
)

// PredictionRecord is the per-driver output of one prediction call.
type PredictionRecord struct {
	RunID              uuid.UUID   `db:"run_id" json:"run_id"`
	DriverID           string      `db:"driver" json:"driver"`
	QualifyingPosition float64     `db:"qualifying_position" json:"qualifying_position"`
	SprintClass        SprintClass `db:"sprint_class" json:"sprint_class"`
	RaceScore          float64     `db:"race_score" json:"race_score"`
	PredictedPosition  int         `db:"predicted_position" json:"predicted_position"`
	GridPosition       float64     `db:"grid_position" json:"grid_position"`
	RacePace           float64     `db:"race_pace" json:"race_pace"`
	TireDegradation    float64     `db:"tire_degradation" json:"tire_degradation"`
	TopSpeed           float64     `db:"top_speed" json:"top_speed"`
	RainProbability    float64     `db:"rain_probability" json:"rain_probability"`
}

// Validate checks the identifying fields of the record.
func (p *PredictionRecord) Validate() error {
	if p.DriverID == "" {
		return ErrInvalidPrediction
	}
	return nil
}

// PredictionRun groups the records produced for one event by one call.
type PredictionRun struct {
	ID        uuid.UUID          `db:"id" json:"id"`
	Season    int                `db:"season" json:"season"`
	Event     string             `db:"event" json:"event"`
	State     EventState         `db:"state" json:"state"`
	CreatedAt time.Time          `db:"created_at" json:"created_at"`
	Records   []PredictionRecord `db:"-" json:"records"`
}

// NewPredictionRun starts an empty run for an event.
func NewPredictionRun(season int, event string) *PredictionRun {
	return &PredictionRun{
		ID:        uuid.New(),
		Season:    season,
		Event:     event,
		State:     StateQualifyingPending,
		CreatedAt: time.Now().UTC(),
	}
}

// Find returns the record for a driver.
func (r *PredictionRun) Find(driverID string) (*PredictionRecord, bool) {
	for i := range r.Records {
		if r.Records[i].DriverID == driverID {
			return &r.Records[i], true
		}
	}
	return nil, false
}
