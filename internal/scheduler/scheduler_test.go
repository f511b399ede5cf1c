package scheduler

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestScheduleRealtimeValidation(t *testing.T) {
	s := NewScheduler(quietLogger())

	assert.Error(t, s.Start(), "no jobs")
	assert.Error(t, s.ScheduleRealtime("not a cron", time.Second, func(context.Context) error { return nil }))

	require.NoError(t, s.ScheduleRealtime("*/15 * * * *", time.Second, func(context.Context) error { return nil }))
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.True(t, s.IsRunning())
	assert.Error(t, s.Start())
	assert.Error(t, s.ScheduleRealtime("@hourly", time.Second, func(context.Context) error { return nil }))

	next := s.GetNextRun()
	assert.False(t, next.IsZero())
	assert.Equal(t, 0, next.Minute()%15)
}

func TestScheduledJobRuns(t *testing.T) {
	s := NewScheduler(quietLogger())
	var calls int32
	done := make(chan struct{}, 1)
	require.NoError(t, s.ScheduleRealtime("@every 1s", time.Second, func(ctx context.Context) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			done <- struct{}{}
		}
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		return nil
	}))
	require.NoError(t, s.Start())

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not run")
	}
	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.True(t, s.GetNextRun().IsZero())
}

func TestRunNowRecordsOutcome(t *testing.T) {
	s := NewScheduler(quietLogger())
	boom := errors.New("provider down")

	err := s.RunNow(time.Second, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	at, lastErr := s.LastRun()
	assert.False(t, at.IsZero())
	assert.ErrorIs(t, lastErr, boom)

	require.NoError(t, s.RunNow(time.Second, func(context.Context) error { return nil }))
	_, lastErr = s.LastRun()
	assert.NoError(t, lastErr)
}
