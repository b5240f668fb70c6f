package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneytracker/internal/log"
)

type ctxKey struct{}

func TestRunNow(t *testing.T) {
	ctx := context.WithValue(context.Background(), ctxKey{}, "root")
	s := New(ctx, log.Discard(), time.UTC)

	var got any
	job := NewJob("probe", func(ctx context.Context) error {
		got = ctx.Value(ctxKey{})
		return nil
	})

	require.NoError(t, s.RunNow(job))
	assert.Equal(t, "root", got, "jobs run with the scheduler context")
	assert.Equal(t, "probe", job.Name())
}

func TestRunNow_ReturnsJobError(t *testing.T) {
	s := New(context.Background(), log.Discard(), nil)
	boom := errors.New("boom")

	err := s.RunNow(NewJob("failing", func(context.Context) error { return boom }))
	assert.ErrorIs(t, err, boom)
}

func TestAddJob(t *testing.T) {
	tests := []struct {
		schedule string
		wantErr  bool
	}{
		{"@every 1h", false},
		{"@hourly", false},
		{"*/15 * * * *", false},
		{"0 */5 * * * *", true}, // seconds field is not enabled
		{"not a schedule", true},
	}
	for _, tt := range tests {
		t.Run(tt.schedule, func(t *testing.T) {
			s := New(context.Background(), log.Discard(), time.UTC)
			err := s.AddJob(tt.schedule, NewJob("noop", func(context.Context) error { return nil }))
			assert.Equal(t, tt.wantErr, err != nil, "err = %v", err)
		})
	}
}

func TestStartStop(t *testing.T) {
	s := New(context.Background(), log.Discard(), time.UTC)
	var runs atomic.Int32
	require.NoError(t, s.AddJob("@every 1h", NewJob("hourly", func(context.Context) error {
		runs.Add(1)
		return nil
	})))

	s.Start()
	s.Stop()
	assert.Zero(t, runs.Load())
}
