package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/f1-predictor/internal/datasource"
)

// DefaultOpenWeatherBaseURL is the OpenWeatherMap 2.5 API root.
const DefaultOpenWeatherBaseURL = "https://api.openweathermap.org/data/2.5"

type owmCondition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

type owmMain struct {
	Temp float64 `json:"temp"`
}

type owmCurrent struct {
	Main    owmMain        `json:"main"`
	Weather []owmCondition `json:"weather"`
}

type owmForecastEntry struct {
	Dt      int64          `json:"dt"`
	Main    owmMain        `json:"main"`
	Pop     float64        `json:"pop"`
	Weather []owmCondition `json:"weather"`
}

type owmForecast struct {
	List []owmForecastEntry `json:"list"`
}

type owmError struct {
	Message string `json:"message"`
}

// OpenWeatherClient implements Provider over OpenWeatherMap. Failures never
// surface as errors: they degrade to DefaultForecast.
type OpenWeatherClient struct {
	httpClient *datasource.RateLimitedHTTPClient
	baseURL    string
	apiKey     string
	now        func() time.Time
	logger     *logrus.Entry
}

// NewOpenWeatherClient creates a client. An empty baseURL uses the public API.
func NewOpenWeatherClient(httpClient *datasource.RateLimitedHTTPClient, baseURL, apiKey string, logger *logrus.Logger) *OpenWeatherClient {
	if baseURL == "" {
		baseURL = DefaultOpenWeatherBaseURL
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &OpenWeatherClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		now:        time.Now,
		logger:     logger.WithField("component", "openweather"),
	}
}

// Forecast uses the five-day forecast for future targets and current
// conditions otherwise.
func (c *OpenWeatherClient) Forecast(ctx context.Context, circuit string, at *time.Time) (Forecast, error) {
	if c.apiKey == "" {
		c.logger.Warn("OpenWeatherMap API key not set, using default weather")
		return DefaultForecast(DescriptionUnknown), nil
	}

	coords, found := LookupCoordinates(circuit)
	if !found {
		c.logger.WithField("circuit", circuit).Warn("No coordinates for circuit, using default location")
	}

	if at != nil && at.After(c.now()) {
		f, ok := c.forecastAt(ctx, coords, *at)
		if !ok {
			return DefaultForecast(DescriptionError), nil
		}
		if f != nil {
			return *f, nil
		}
	}

	f, ok := c.current(ctx, coords)
	if !ok {
		return DefaultForecast(DescriptionError), nil
	}
	return f, nil
}

// forecastAt returns the forecast entry closest to at. A nil forecast with
// ok set means the list was empty and current conditions should be used.
func (c *OpenWeatherClient) forecastAt(ctx context.Context, coords Coordinates, at time.Time) (*Forecast, bool) {
	var body owmForecast
	if !c.get(ctx, "forecast", coords, &body) {
		return nil, false
	}

	var closest *owmForecastEntry
	minDiff := math.Inf(1)
	for i := range body.List {
		diff := math.Abs(time.Unix(body.List[i].Dt, 0).Sub(at).Seconds())
		if diff < minDiff {
			minDiff = diff
			closest = &body.List[i]
		}
	}
	if closest == nil {
		return nil, true
	}
	return &Forecast{
		Temperature:     closest.Main.Temp,
		RainProbability: closest.Pop,
		Description:     description(closest.Weather),
	}, true
}

func (c *OpenWeatherClient) current(ctx context.Context, coords Coordinates) (Forecast, bool) {
	var body owmCurrent
	if !c.get(ctx, "weather", coords, &body) {
		return Forecast{}, false
	}
	rain := 0.0
	if len(body.Weather) > 0 && strings.Contains(strings.ToLower(body.Weather[0].Main), "rain") {
		rain = 1.0
	}
	return Forecast{
		Temperature:     body.Main.Temp,
		RainProbability: rain,
		Description:     description(body.Weather),
	}, true
}

func (c *OpenWeatherClient) get(ctx context.Context, endpoint string, coords Coordinates, out interface{}) bool {
	params := url.Values{
		"lat":   {fmt.Sprintf("%.4f", coords.Lat)},
		"lon":   {fmt.Sprintf("%.4f", coords.Lon)},
		"appid": {c.apiKey},
		"units": {"metric"},
	}
	log := c.logger.WithField("endpoint", endpoint)

	resp, err := c.httpClient.Get(ctx, c.baseURL+"/"+endpoint+"?"+params.Encode())
	if err != nil {
		log.WithError(err).Warn("Weather request failed")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr owmError
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		log.WithFields(logrus.Fields{
			"status":  resp.StatusCode,
			"message": apiErr.Message,
		}).Warn("Weather API error")
		return false
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		log.WithError(err).Warn("Failed to decode weather response")
		return false
	}
	return true
}

func description(conditions []owmCondition) string {
	if len(conditions) == 0 {
		return DescriptionUnknown
	}
	return conditions[0].Description
}
