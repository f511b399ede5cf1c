package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/f1-predictor/internal/metrics"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestReadyEndpoint(t *testing.T) {
	schedulerErr := errors.New("last run failed")
	s := NewServer(Config{
		ServiceName: "f1-predictor",
		Checks: map[string]Check{
			"database":  func(context.Context) error { return nil },
			"scheduler": func(context.Context) error { return schedulerErr },
		},
	})

	rec := get(t, s.Handler(), "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var report Report
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	assert.Equal(t, "not_ready", report.Status)
	assert.Equal(t, "f1-predictor", report.Service)
	assert.Equal(t, "not_ready", report.Checks["watch"])
	assert.Equal(t, "ok", report.Checks["database"])
	assert.Equal(t, "error: last run failed", report.Checks["scheduler"])
	assert.Equal(t, []string{"scheduler", "watch"}, report.Failing)

	s.SetReady(true)
	schedulerErr = nil
	rec = get(t, s.Handler(), "/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
	report = Report{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	assert.Equal(t, "ok", report.Status)
	assert.Empty(t, report.Failing)
}

func TestEvaluateBoundsSlowChecks(t *testing.T) {
	s := NewServer(Config{Checks: map[string]Check{
		"database": func(ctx context.Context) error {
			deadline, ok := ctx.Deadline()
			require.True(t, ok)
			assert.WithinDuration(t, time.Now().Add(checkTimeout), deadline, time.Second)
			return nil
		},
	}})
	s.SetReady(true)

	report := s.Evaluate(context.Background())
	assert.Equal(t, "ok", report.Status)
}

func TestMetricsEndpoint(t *testing.T) {
	metrics.InitRegistry()
	metrics.RecordPrediction("RACE_PREDICTED", 0.2)

	s := NewServer(Config{MetricsPath: "/custom-metrics"})
	rec := get(t, s.Handler(), "/custom-metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "f1_predictor_predictions_total")

	assert.Equal(t, http.StatusNotFound, get(t, s.Handler(), "/live").Code)
}
