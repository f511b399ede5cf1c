// Package datasource loads session classifications, lap tables, weather
// samples and event schedules from the motorsport data provider.
package datasource

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/yourusername/f1-predictor/internal/models"
)

// SessionProvider loads sessions and schedules. Any error means "session
// unavailable" to the feature pipeline.
type SessionProvider interface {
	// Load returns one session of an event. event is a round number or a
	// name matched against the event, location, country or circuit.
	Load(ctx context.Context, year int, event string, kind models.SessionKind) (*models.Session, error)

	// Schedule returns the season's events ordered by round.
	Schedule(ctx context.Context, year int) ([]models.EventMetadata, error)

	// NextEvent returns the first event whose race has not started at now.
	NextEvent(ctx context.Context, now time.Time) (*models.EventMetadata, error)

	// Name returns the name of the data source
	Name() string
}

// DataSourceError represents errors from data source operations
type DataSourceError struct {
	Source  string // Data source name
	Code    string // Error code (e.g., "rate_limit_exceeded")
	Message string // Error message
	Err     error  // Underlying error
}

func (e DataSourceError) Error() string {
	if e.Err != nil {
		return e.Source + ": " + e.Code + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Source + ": " + e.Code + ": " + e.Message
}

// Unwrap returns the underlying error.
func (e DataSourceError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeRateLimitExceeded = "rate_limit_exceeded"
	ErrCodeNotFound          = "not_found"
	ErrCodeInvalidData       = "invalid_data"
	ErrCodeNetworkError      = "network_error"
	ErrCodeServerError       = "server_error"
	ErrCodeUnknown           = "unknown"
)

// Sentinel errors
var (
	ErrEventNotFound   = errors.New("event not found")
	ErrSessionNotFound = errors.New("session not scheduled for event")
	ErrNoUpcomingEvent = errors.New("no upcoming event")
)

// NewDataSourceError creates a new data source error
func NewDataSourceError(source, code, message string, err error) DataSourceError {
	return DataSourceError{
		Source:  source,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ErrorCode extracts the DataSourceError code, or ErrCodeUnknown.
func ErrorCode(err error) string {
	var dsErr DataSourceError
	if errors.As(err, &dsErr) {
		return dsErr.Code
	}
	return ErrCodeUnknown
}

// FindEvent resolves event against a schedule: a round number first, then
// an exact and finally a case-insensitive partial name match.
func FindEvent(schedule []models.EventMetadata, event string) (models.EventMetadata, error) {
	event = strings.TrimSpace(event)
	if round, err := strconv.Atoi(event); err == nil {
		for _, e := range schedule {
			if e.RoundNumber == round {
				return e, nil
			}
		}
		return models.EventMetadata{}, ErrEventNotFound
	}

	for _, e := range schedule {
		if e.EventName == event || e.Location == event {
			return e, nil
		}
	}
	needle := strings.ToLower(event)
	for _, e := range schedule {
		for _, name := range []string{e.EventName, e.Location, e.Country, e.Circuit} {
			if name != "" && strings.Contains(strings.ToLower(name), needle) {
				return e, nil
			}
		}
	}
	return models.EventMetadata{}, ErrEventNotFound
}

// NextFrom returns the first event in schedule whose race starts after now.
// Events without a race time fall back to their earliest session.
func NextFrom(schedule []models.EventMetadata, now time.Time) (models.EventMetadata, bool) {
	for _, e := range schedule {
		start, ok := e.StartOf(models.SessionRace)
		if !ok {
			start = e.Start()
		}
		if start.After(now) {
			return e, true
		}
	}
	return models.EventMetadata{}, false
}
