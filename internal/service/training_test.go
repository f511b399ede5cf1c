package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/f1-predictor/internal/datasource"
	"github.com/yourusername/f1-predictor/internal/estimator"
	"github.com/yourusername/f1-predictor/internal/models"
	"github.com/yourusername/f1-predictor/internal/processor"
	"github.com/yourusername/f1-predictor/internal/repository"
)

type sessionKey struct {
	event string
	kind  models.SessionKind
}

type seasonProvider struct {
	schedules map[int][]models.EventMetadata
	sessions  map[sessionKey]*models.Session
	errs      map[sessionKey]error
}

func (p *seasonProvider) Load(_ context.Context, _ int, event string, kind models.SessionKind) (*models.Session, error) {
	k := sessionKey{event, kind}
	if err := p.errs[k]; err != nil {
		return nil, err
	}
	if s, ok := p.sessions[k]; ok {
		return s, nil
	}
	return nil, datasource.NewDataSourceError("fake", datasource.ErrCodeNotFound, event, datasource.ErrSessionNotFound)
}

func (p *seasonProvider) Schedule(_ context.Context, year int) ([]models.EventMetadata, error) {
	s, ok := p.schedules[year]
	if !ok {
		return nil, fmt.Errorf("no schedule for %d", year)
	}
	return append([]models.EventMetadata(nil), s...), nil
}

func (p *seasonProvider) NextEvent(context.Context, time.Time) (*models.EventMetadata, error) {
	return nil, datasource.ErrNoUpcomingEvent
}

func (p *seasonProvider) Name() string { return "fake" }

type recordingRepo struct {
	saved map[int][]models.FeatureRow
	err   error
}

func (r *recordingRepo) SaveSeason(_ context.Context, season int, rows []models.FeatureRow) error {
	if r.err != nil {
		return r.err
	}
	r.saved[season] = rows
	return nil
}
func (r *recordingRepo) LoadSeason(_ context.Context, season int) ([]models.FeatureRow, error) {
	return r.saved[season], nil
}
func (r *recordingRepo) LoadSeasons(_ context.Context, seasons []int) ([]models.FeatureRow, error) {
	var out []models.FeatureRow
	for _, s := range seasons {
		out = append(out, r.saved[s]...)
	}
	return out, nil
}

var grid = [][2]string{
	{"VER", "Red Bull Racing"}, {"PER", "Red Bull Racing"},
	{"LEC", "Ferrari"}, {"SAI", "Ferrari"},
}

// session builds a classification in the given finishing order. engineFailure
// names a driver who retired with no position.
func session(meta models.EventMetadata, kind models.SessionKind, order []int, engineFailure string) *models.Session {
	s := &models.Session{Metadata: meta, Kind: kind}
	for pos, idx := range order {
		r := models.SessionResult{
			DriverID:          grid[idx][0],
			ConstructorID:     grid[idx][1],
			RoundNumber:       meta.RoundNumber,
			SeasonYear:        meta.Season,
			Kind:              kind,
			FinishingPosition: models.IntPtr(pos + 1),
			StatusText:        "Finished",
		}
		if r.DriverID == engineFailure {
			r.FinishingPosition = nil
			r.StatusText = "Engine"
		}
		s.Classification = append(s.Classification, r)
	}
	return s
}

func practiceLaps(driver string, seconds float64) *models.Session {
	laps := make([]models.Lap, 6)
	for i := range laps {
		laps[i] = models.Lap{
			DriverID:    driver,
			LapNumber:   i + 1,
			LapTime:     models.LapDuration(seconds),
			Stint:       1,
			TrackStatus: models.GreenFlagStatus,
		}
	}
	return &models.Session{Kind: models.SessionPractice1, Laps: laps}
}

func fixture() *seasonProvider {
	bahrain := models.EventMetadata{Season: 2024, RoundNumber: 1, EventName: "Bahrain Grand Prix", Format: models.FormatConventional}
	china := models.EventMetadata{Season: 2024, RoundNumber: 2, EventName: "Chinese Grand Prix", Format: models.FormatSprint}
	future := models.EventMetadata{Season: 2024, RoundNumber: 3, EventName: "Japanese Grand Prix", Format: models.FormatConventional}

	p := &seasonProvider{
		// Out of round order on purpose.
		schedules: map[int][]models.EventMetadata{2024: {china, future, bahrain}},
		sessions: map[sessionKey]*models.Session{
			{bahrain.EventName, models.SessionQualifying}: session(bahrain, models.SessionQualifying, []int{0, 2, 1, 3}, ""),
			{bahrain.EventName, models.SessionRace}:       session(bahrain, models.SessionRace, []int{0, 2, 3, 1}, "PER"),
			{bahrain.EventName, models.SessionPractice1}:  practiceLaps("LEC", 95.0),
			{china.EventName, models.SessionQualifying}:   session(china, models.SessionQualifying, []int{2, 0, 3, 1}, ""),
			{china.EventName, models.SessionSprint}:       session(china, models.SessionSprint, []int{0, 2, 1, 3}, ""),
			{china.EventName, models.SessionRace}:         session(china, models.SessionRace, []int{2, 3, 0, 1}, ""),
			{china.EventName, models.SessionPractice2}:    practiceLaps("VER", 97.25),
			{future.EventName, models.SessionQualifying}:  {Metadata: future, Kind: models.SessionQualifying},
		},
		errs: map[sessionKey]error{
			{bahrain.EventName, models.SessionPractice2}: errors.New("fp2 cancelled"),
			{future.EventName, models.SessionRace}:       errors.New("not run yet"),
		},
	}
	return p
}

func newTestService(t *testing.T, provider datasource.SessionProvider, features, mirror repository.FeatureRepository, modelsDir string) *TrainingService {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	trainer := estimator.NewTrainer(modelsDir, estimator.DefaultOptions(), log)
	return NewTrainingService(provider, processor.NewAssembler(processor.DefaultConfig(), log), features, mirror, trainer, modelsDir, log)
}

func TestIngestSeason(t *testing.T) {
	svc := newTestService(t, fixture(), &recordingRepo{saved: map[int][]models.FeatureRow{}}, nil, t.TempDir())

	rows, report, err := svc.IngestSeason(context.Background(), 2024)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Events)
	assert.Equal(t, 20, report.Rows)
	// Future event: empty qualifying and failed race.
	assert.Equal(t, 2, report.Skipped)
	require.Len(t, rows, 20)

	// Two races and a sprint scored.
	require.Len(t, report.Standings, 2)
	assert.Equal(t, "Ferrari", report.Standings[0].Team)
	assert.Equal(t, "88", report.Standings[0].Points.String())
	assert.Equal(t, 1, report.Standings[0].Wins)
	assert.Equal(t, "Red Bull Racing", report.Standings[1].Team)
	assert.Equal(t, "66", report.Standings[1].Points.String())

	kinds := []models.SessionKind{}
	for i := 0; i < len(rows); i += 4 {
		kinds = append(kinds, rows[i].SessionKind)
	}
	assert.Equal(t, []models.SessionKind{
		models.SessionQualifying, models.SessionRace,
		models.SessionQualifying, models.SessionSprint, models.SessionRace,
	}, kinds)

	// Round one has no prior history.
	r1Race := rows[4:8]
	assert.Equal(t, 1, r1Race[0].RoundNumber)
	assert.True(t, math.IsNaN(r1Race[0].DriverAvgPos))
	assert.Equal(t, 0.0, r1Race[0].ConstructorStanding)

	// FP2 failed, FP1 supplied LEC's long run.
	for _, r := range r1Race {
		if r.DriverID == "LEC" {
			require.NotNil(t, r.RacePace)
			assert.Equal(t, 95.0, *r.RacePace)
		} else {
			assert.Nil(t, r.RacePace)
		}
		if r.DriverID == "PER" {
			assert.False(t, r.HasTarget())
		}
	}

	// Round two sees the round one race only.
	r2Quali := rows[8:12]
	for _, r := range r2Quali {
		assert.Nil(t, r.RacePace)
		switch r.DriverID {
		case "VER":
			assert.Equal(t, 1.0, r.DriverAvgPos)
			assert.Equal(t, 0.0, r.DriverDNFRate)
			assert.Equal(t, 0.5, r.ReliabilityScore)
			// Ferrari scored 18+15 against Red Bull's 25.
			assert.Equal(t, 2.0, r.ConstructorStanding)
		case "PER":
			assert.True(t, math.IsNaN(r.DriverAvgPos))
			assert.Equal(t, 1.0, r.DriverDNFRate)
		case "LEC":
			assert.Equal(t, 2.0, r.DriverAvgPos)
			assert.Equal(t, 1.0, r.ReliabilityScore)
			assert.Equal(t, 1.0, r.ConstructorStanding)
		}
	}

	r2Race := rows[16:20]
	for _, r := range r2Race {
		if r.DriverID == "VER" {
			require.NotNil(t, r.RacePace)
			assert.Equal(t, 97.25, *r.RacePace)
		}
	}
}

func TestRunWritesTablesAndSkipsBrokenSeasons(t *testing.T) {
	dir := t.TempDir()
	csv := repository.NewCSVFeatureRepository(filepath.Join(dir, "data"))
	mirror := &recordingRepo{saved: map[int][]models.FeatureRow{}}
	svc := newTestService(t, fixture(), csv, mirror, filepath.Join(dir, "models"))

	report, err := svc.Run(context.Background(), RunOptions{Seasons: []int{2023, 2024}, SkipTrain: true})
	require.NoError(t, err)

	require.Len(t, report.Seasons, 1)
	assert.Equal(t, 2024, report.Seasons[0].Season)
	assert.Equal(t, csv.Path(2024), report.Seasons[0].Path)
	assert.Equal(t, 20, report.Rows)
	assert.Nil(t, report.Training)

	rows, err := csv.LoadSeason(context.Background(), 2024)
	require.NoError(t, err)
	assert.Len(t, rows, 20)
	assert.Len(t, mirror.saved[2024], 20)
}

func TestRunMirrorFailureIsNotFatal(t *testing.T) {
	features := &recordingRepo{saved: map[int][]models.FeatureRow{}}
	mirror := &recordingRepo{err: errors.New("connection refused")}
	svc := newTestService(t, fixture(), features, mirror, t.TempDir())

	report, err := svc.Run(context.Background(), RunOptions{Seasons: []int{2024}, SkipTrain: true})
	require.NoError(t, err)
	assert.Equal(t, 20, report.Rows)
	assert.Len(t, features.saved[2024], 20)
}

func TestRunCancelled(t *testing.T) {
	svc := newTestService(t, fixture(), &recordingRepo{saved: map[int][]models.FeatureRow{}}, nil, t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Run(ctx, RunOptions{Seasons: []int{2024}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTrainWithoutRows(t *testing.T) {
	svc := newTestService(t, fixture(), &recordingRepo{saved: map[int][]models.FeatureRow{}}, nil, t.TempDir())

	_, err := svc.Train(nil)
	assert.ErrorIs(t, err, ErrNoFeatureRows)

	_, err = svc.TrainFromFiles([]string{filepath.Join(t.TempDir(), "missing.csv")})
	assert.ErrorIs(t, err, ErrNoFeatureRows)
}

func linearTable(kind models.SessionKind) []models.FeatureRow {
	rows := make([]models.FeatureRow, 10)
	for i := range rows {
		avg := float64(i + 1)
		rows[i] = models.FeatureRow{
			DriverID:         fmt.Sprintf("D%d", i),
			SeasonYear:       2023,
			RoundNumber:      i/5 + 1,
			TrackTemp:        30,
			DriverAvgPos:     avg,
			ReliabilityScore: 1,
			TargetPosition:   models.FloatPtr(2*avg + 1),
			SessionKind:      kind,
		}
	}
	return rows
}

func TestTrainFromFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "features_2023.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	rows := append(linearTable(models.SessionQualifying), linearTable(models.SessionRace)...)
	require.NoError(t, repository.WriteFeatureCSV(f, rows))
	require.NoError(t, f.Close())

	modelsDir := filepath.Join(dir, "models")
	svc := newTestService(t, fixture(), repository.NewCSVFeatureRepository(dir), nil, modelsDir)

	report, err := svc.TrainFromFiles([]string{path, filepath.Join(dir, "features_1999.csv")})
	require.NoError(t, err)
	assert.Equal(t, []string{estimator.QualifyingModelName, estimator.RaceModelName}, report.Trained)
	assert.FileExists(t, estimator.ModelPath(modelsDir, estimator.RaceModelName))

	report, err = svc.TrainFromStore(context.Background(), []int{2023})
	require.NoError(t, err)
	assert.Equal(t, 10, report.Rows[estimator.QualifyingModelName])
}
