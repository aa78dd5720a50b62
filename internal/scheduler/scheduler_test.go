package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"buildstate/internal/pkg/config"
)

type fakeSweeper struct {
	mu    sync.Mutex
	calls int
	rows  int64
	err   error
}

func (f *fakeSweeper) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("missing deadline")
	}
	return f.rows, f.err
}

func (f *fakeSweeper) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestTriggerArtifactSweep(t *testing.T) {
	sweeper := &fakeSweeper{rows: 3}
	s := NewScheduler(sweeper, zap.NewNop())

	rows, err := s.TriggerArtifactSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), rows)

	sweeper.err = errors.New("db down")
	_, err = s.TriggerArtifactSweep(context.Background())
	assert.EqualError(t, err, "db down")
	assert.Equal(t, 2, sweeper.count())
}

func TestStartRegistersSweep(t *testing.T) {
	sweeper := &fakeSweeper{}
	s := NewScheduler(sweeper, zap.NewNop())
	require.NoError(t, s.Start(&config.SchedulerConfig{ArtifactSweepCron: "* * * * * *"}))
	defer s.Stop()

	assert.Contains(t, s.Entries(), "artifact_sweep")
	assert.Eventually(t, func() bool { return sweeper.count() > 0 }, 3*time.Second, 50*time.Millisecond)
}

func TestStartWithoutCron(t *testing.T) {
	s := NewScheduler(&fakeSweeper{}, zap.NewNop())
	require.NoError(t, s.Start(&config.SchedulerConfig{}))
	s.Stop()
	assert.Empty(t, s.Entries())
}

func TestStartInvalidCron(t *testing.T) {
	s := NewScheduler(&fakeSweeper{}, zap.NewNop())
	assert.Error(t, s.Start(&config.SchedulerConfig{ArtifactSweepCron: "not a cron"}))
}
