package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sgarza/eldorado/internal/logging"
)

func TestSchedulerRunsTaskImmediatelyOnStart(t *testing.T) {
	s := NewScheduler(logging.NewNop())

	var runs atomic.Int32
	s.AddTask("counter", time.Hour, func(context.Context) error {
		runs.Add(1)
		return nil
	})

	s.Start(context.Background())
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return runs.Load() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestSchedulerStopWaitsForTasks(t *testing.T) {
	s := NewScheduler(logging.NewNop())

	started := make(chan struct{})
	var finished atomic.Bool
	s.AddTask("slow", time.Hour, func(ctx context.Context) error {
		close(started)
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
		return nil
	})

	s.Start(context.Background())
	<-started
	s.Stop()

	assert.True(t, finished.Load(), "Stop must wait for the in-flight run")
}

func TestSchedulerStartIsIdempotent(t *testing.T) {
	s := NewScheduler(logging.NewNop())

	var runs atomic.Int32
	s.AddTask("counter", time.Hour, func(context.Context) error {
		runs.Add(1)
		return nil
	})

	ctx := context.Background()
	s.Start(ctx)
	s.Start(ctx) // second start is a no-op
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return runs.Load() == 1
	}, time.Second, 10*time.Millisecond)

	assert.Never(t, func() bool {
		return runs.Load() > 1
	}, 100*time.Millisecond, 10*time.Millisecond)
}
