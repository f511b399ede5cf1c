// Package weather supplies race-day forecasts for upcoming sessions.
package weather

import (
	"context"
	"time"
)

const (
	// DefaultTemperature is reported when no forecast could be obtained.
	DefaultTemperature = 25.0

	DescriptionUnknown = "Unknown"
	DescriptionError   = "Error"
)

// Forecast is the weather expected at a circuit.
type Forecast struct {
	Temperature     float64
	RainProbability float64
	Description     string
}

// Provider returns a forecast for circuit at the given time, or the current
// conditions when at is nil.
type Provider interface {
	Forecast(ctx context.Context, circuit string, at *time.Time) (Forecast, error)
}

// DefaultForecast is the dry 25 degree fallback.
func DefaultForecast(description string) Forecast {
	return Forecast{
		Temperature:     DefaultTemperature,
		RainProbability: 0.0,
		Description:     description,
	}
}

// IsDefault reports whether f is a fallback rather than a real reading.
func (f Forecast) IsDefault() bool {
	return f.Description == DescriptionUnknown || f.Description == DescriptionError
}

// StaticProvider always returns the same forecast. Used when no API key is
// configured.
type StaticProvider struct {
	Value Forecast
}

// NewStaticProvider returns a provider answering with the unknown default.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{Value: DefaultForecast(DescriptionUnknown)}
}

// Forecast implements Provider.
func (p *StaticProvider) Forecast(context.Context, string, *time.Time) (Forecast, error) {
	return p.Value, nil
}
