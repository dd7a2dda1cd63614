package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/deadlinebot/internal/config"
)

func noopJob(context.Context) error { return nil }

func TestStatusBeforeStart(t *testing.T) {
	s, err := New(&config.ScheduleEnv{Hour: 9, Minute: 0, Timezone: "UTC"}, noopJob)
	require.NoError(t, err)

	status := s.Status()
	assert.False(t, status.Running)
	assert.Equal(t, "0 9 * * *", status.Schedule)
	assert.Equal(t, "UTC", status.Timezone)
	assert.Nil(t, status.NextFireTime)
}

func TestNextFireTimeIsUpcomingMidnight(t *testing.T) {
	s, err := New(&config.ScheduleEnv{Hour: 0, Minute: 0, Timezone: "UTC"}, noopJob)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	defer s.Stop()

	status := s.Status()
	require.True(t, status.Running)
	require.NotNil(t, status.NextFireTime)

	next := status.NextFireTime.In(time.UTC)
	now := time.Now().UTC()
	assert.True(t, next.After(now), "next fire must be in the future")
	assert.Zero(t, next.Hour())
	assert.Zero(t, next.Minute())
	assert.True(t, next.Sub(now) <= 24*time.Hour)
}

func TestStartIsIdempotent(t *testing.T) {
	s, err := New(&config.ScheduleEnv{Hour: 9, Minute: 30, Timezone: "UTC"}, noopJob)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	s.Stop()
	s.Stop()
	assert.False(t, s.Status().Running)
}

func TestTriggerNowRunsJob(t *testing.T) {
	fired := 0
	s, err := New(&config.ScheduleEnv{Hour: 9, Minute: 0, Timezone: "UTC"}, func(context.Context) error {
		fired++
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, s.TriggerNow(context.Background()))
	assert.Equal(t, 1, fired, "trigger works without starting the schedule")
}

func TestTriggerNowPropagatesJobError(t *testing.T) {
	s, err := New(&config.ScheduleEnv{Hour: 9, Minute: 0, Timezone: "UTC"}, func(context.Context) error {
		return errors.New("run failed")
	})
	require.NoError(t, err)

	assert.Error(t, s.TriggerNow(context.Background()))
}

func TestNewRejectsUnknownTimezone(t *testing.T) {
	_, err := New(&config.ScheduleEnv{Hour: 9, Minute: 0, Timezone: "Mars/Olympus"}, noopJob)
	require.Error(t, err)
}
