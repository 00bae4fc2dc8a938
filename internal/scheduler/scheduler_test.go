// internal/scheduler/scheduler_test.go
package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAddJob(t *testing.T) {
	s := New(zap.NewNop())

	require.NoError(t, s.AddJob("sweep", SpecMorningNotifications, func() {}))
	require.NoError(t, s.AddJob("backup", SpecNightlyBackup, func() {}))
	assert.ElementsMatch(t, []string{"sweep", "backup"}, s.Jobs())

	t.Run("duplicate name", func(t *testing.T) {
		err := s.AddJob("sweep", SpecEveningNotifications, func() {})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already registered")
	})

	t.Run("invalid spec", func(t *testing.T) {
		err := s.AddJob("broken", "not a cron spec", func() {})
		require.Error(t, err)
	})
}

func TestStartStop(t *testing.T) {
	s := New(zap.NewNop())

	var runs atomic.Int64
	require.NoError(t, s.AddJob("tick", "@every 10ms", func() {
		runs.Add(1)
	}))

	s.Start()
	deadline := time.After(2 * time.Second)
	for runs.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("job never fired")
		case <-time.After(5 * time.Millisecond):
		}
	}
	s.Stop()

	// Stop waits for running jobs and nothing fires afterwards.
	after := runs.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, runs.Load())
}
