package datasource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/f1-predictor/internal/models"
)

type countingProvider struct {
	loads    int
	sessions map[models.SessionKind]*models.Session
}

func (p *countingProvider) Load(_ context.Context, _ int, _ string, kind models.SessionKind) (*models.Session, error) {
	p.loads++
	s, ok := p.sessions[kind]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (p *countingProvider) Schedule(context.Context, int) ([]models.EventMetadata, error) {
	return nil, nil
}

func (p *countingProvider) NextEvent(context.Context, time.Time) (*models.EventMetadata, error) {
	return nil, ErrNoUpcomingEvent
}

func (p *countingProvider) Name() string { return "counting" }

func TestCachedProviderCachesCompletedSessions(t *testing.T) {
	inner := &countingProvider{sessions: map[models.SessionKind]*models.Session{
		models.SessionRace: {
			Kind:           models.SessionRace,
			Classification: []models.SessionResult{{DriverID: "VER"}},
		},
		models.SessionQualifying: {Kind: models.SessionQualifying},
		models.SessionPractice2: {
			Kind: models.SessionPractice2,
			Laps: []models.Lap{{DriverID: "VER", LapNumber: 1}},
		},
	}}
	sc := NewSessionCache(time.Minute)
	provider := NewCachedProvider(inner, sc, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := provider.Load(ctx, 2024, "Monaco", models.SessionRace)
		require.NoError(t, err)
		_, err = provider.Load(ctx, 2024, "Monaco", models.SessionQualifying)
		require.NoError(t, err)
		_, err = provider.Load(ctx, 2024, "Monaco", models.SessionPractice2)
		require.NoError(t, err)
	}

	// Race and FP2 once each, the empty qualifying every time.
	assert.Equal(t, 5, inner.loads)

	hits, misses, items := sc.Stats()
	assert.Equal(t, uint64(4), hits)
	assert.Equal(t, uint64(5), misses)
	assert.Equal(t, 2, items)

	_, err := provider.Load(ctx, 2024, "Monaco", models.SessionSprint)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, "counting", provider.Name())
}

func TestSessionCacheClear(t *testing.T) {
	sc := NewSessionCache(time.Minute)
	key := SessionKey{Year: 2024, Event: "Monza", Kind: models.SessionRace}
	sc.Put(key, &models.Session{Kind: models.SessionRace})

	_, ok := sc.Get(key)
	assert.True(t, ok)
	assert.Equal(t, "2024:Monza:R", key.String())

	sc.Clear()
	_, ok = sc.Get(key)
	assert.False(t, ok)
	hits, misses, items := sc.Stats()
	assert.Equal(t, uint64(0), hits)
	assert.Equal(t, uint64(1), misses)
	assert.Equal(t, 0, items)
}
