package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/f1-predictor/internal/config"
	"github.com/yourusername/f1-predictor/internal/datasource"
)

var fixedNow = time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T, handler http.HandlerFunc, apiKey string) *OpenWeatherClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	httpCfg := datasource.DefaultHTTPClientConfig()
	httpCfg.RateLimit = 1000
	httpCfg.MaxRetries = 0
	c := NewOpenWeatherClient(datasource.NewRateLimitedHTTPClient(httpCfg, nil), srv.URL, apiKey, nil)
	c.now = func() time.Time { return fixedNow }
	return c
}

func TestLookupCoordinates(t *testing.T) {
	tests := []struct {
		name  string
		want  Coordinates
		found bool
	}{
		{"Monaco", Coordinates{43.7347, 7.4206}, true},
		{"Sakhir", Coordinates{26.0325, 50.5106}, true},
		{"british grand prix at silverstone", Coordinates{52.0786, -1.0169}, true},
		{"abu", Coordinates{24.4672, 54.6031}, true},
		{"Nürburgring", DefaultCoordinates, false},
		{"", DefaultCoordinates, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := LookupCoordinates(tt.name)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.found, found)
		})
	}
}

func TestForecastWithoutAPIKey(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected without an API key")
	}, "")

	f, err := c.Forecast(context.Background(), "Monaco", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultForecast(DescriptionUnknown), f)
	assert.True(t, f.IsDefault())
}

func TestForecastFutureUsesClosestEntry(t *testing.T) {
	target := fixedNow.Add(48 * time.Hour)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forecast", r.URL.Path)
		assert.Equal(t, "key", r.URL.Query().Get("appid"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		assert.Equal(t, "43.7347", r.URL.Query().Get("lat"))
		_, _ = w.Write([]byte(`{"list": [
			{"dt": ` + itoa(target.Add(-6*time.Hour).Unix()) + `, "main": {"temp": 19.0}, "pop": 0.1, "weather": [{"main": "Clouds", "description": "broken clouds"}]},
			{"dt": ` + itoa(target.Add(time.Hour).Unix()) + `, "main": {"temp": 22.5}, "pop": 0.65, "weather": [{"main": "Rain", "description": "light rain"}]},
			{"dt": ` + itoa(target.Add(9*time.Hour).Unix()) + `, "main": {"temp": 17.0}, "pop": 0.2, "weather": [{"main": "Clear", "description": "clear sky"}]}
		]}`))
	}, "key")

	f, err := c.Forecast(context.Background(), "Monaco", &target)
	require.NoError(t, err)
	assert.Equal(t, Forecast{Temperature: 22.5, RainProbability: 0.65, Description: "light rain"}, f)
	assert.False(t, f.IsDefault())
}

func TestForecastCurrentConditions(t *testing.T) {
	past := fixedNow.Add(-time.Hour)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/weather", r.URL.Path)
		_, _ = w.Write([]byte(`{"main": {"temp": 14.2}, "weather": [{"main": "Rain", "description": "moderate rain"}]}`))
	}, "key")

	for _, at := range []*time.Time{nil, &past} {
		f, err := c.Forecast(context.Background(), "Spa", at)
		require.NoError(t, err)
		assert.Equal(t, 14.2, f.Temperature)
		assert.Equal(t, 1.0, f.RainProbability)
		assert.Equal(t, "moderate rain", f.Description)
	}
}

func TestForecastErrorsDegradeToDefault(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		future bool
	}{
		{"unauthorised forecast", http.StatusUnauthorized, `{"cod": 401, "message": "Invalid API key"}`, true},
		{"unauthorised current", http.StatusUnauthorized, `{"cod": 401, "message": "Invalid API key"}`, false},
		{"malformed body", http.StatusOK, `{"main": `, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, "key")

			var at *time.Time
			if tt.future {
				target := fixedNow.Add(24 * time.Hour)
				at = &target
			}
			f, err := c.Forecast(context.Background(), "Monza", at)
			require.NoError(t, err)
			assert.Equal(t, DefaultForecast(DescriptionError), f)
		})
	}
}

func TestForecastEmptyListFallsBackToCurrent(t *testing.T) {
	target := fixedNow.Add(24 * time.Hour)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/forecast" {
			_, _ = w.Write([]byte(`{"list": []}`))
			return
		}
		_, _ = w.Write([]byte(`{"main": {"temp": 30.0}, "weather": [{"main": "Clear", "description": "clear sky"}]}`))
	}, "key")

	f, err := c.Forecast(context.Background(), "Bahrain", &target)
	require.NoError(t, err)
	assert.Equal(t, Forecast{Temperature: 30.0, RainProbability: 0.0, Description: "clear sky"}, f)
}

func TestNewProvider(t *testing.T) {
	p := NewProvider(config.WeatherConfig{}, nil)
	f, err := p.Forecast(context.Background(), "Monaco", nil)
	require.NoError(t, err)
	assert.Equal(t, DescriptionUnknown, f.Description)

	p = NewProvider(config.WeatherConfig{Enabled: true, APIKey: "k", TimeoutSeconds: 5}, nil)
	assert.IsType(t, &OpenWeatherClient{}, p)
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
