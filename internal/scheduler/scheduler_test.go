package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"anchorlink/internal/scheduler"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTasksRunInOrder(t *testing.T) {
	s := scheduler.NewScheduler(10)

	var mu sync.Mutex
	var order []string
	for _, name := range []string{"a", "b", "c"} {
		name := name
		require.NoError(t, s.Schedule(context.Background(), scheduler.Task{
			Name: name,
			Execute: func(context.Context) error {
				mu.Lock()
				defer mu.Unlock()
				order = append(order, name)
				return nil
			},
		}))
	}
	require.NoError(t, s.Schedule(context.Background(), scheduler.Task{
		Name:    "failing",
		Execute: func(context.Context) error { return errors.New("boom") },
	}))

	s.Drain()
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.ErrorIs(t, s.Schedule(context.Background(), scheduler.Task{Name: "late"}), scheduler.ErrStopped)
}

func TestTryScheduleFullQueue(t *testing.T) {
	s := scheduler.NewScheduler(1)
	defer s.Stop()

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, s.Schedule(context.Background(), scheduler.Task{
		Name: "blocker",
		Execute: func(context.Context) error {
			close(started)
			<-release
			return nil
		},
	}))
	<-started

	noop := scheduler.Task{Name: "noop", Execute: func(context.Context) error { return nil }}
	require.NoError(t, s.TrySchedule(noop))
	assert.ErrorIs(t, s.TrySchedule(noop), scheduler.ErrQueueFull)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Schedule(ctx, noop), context.DeadlineExceeded)
	close(release)
}

func TestPeriodic(t *testing.T) {
	s := scheduler.NewScheduler(4)

	var runs atomic.Int32
	s.Periodic(5*time.Millisecond, scheduler.Task{
		Name: "tick",
		Execute: func(context.Context) error {
			runs.Add(1)
			return nil
		},
	})
	require.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	s.Stop()
	s.Stop()
	after := runs.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, runs.Load())
}

func TestBlockedScheduleDoesNotHoldScheduler(t *testing.T) {
	s := scheduler.NewScheduler(1)

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, s.Schedule(context.Background(), scheduler.Task{
		Name: "blocker",
		Execute: func(context.Context) error {
			close(started)
			<-release
			return nil
		},
	}))
	<-started

	noop := scheduler.Task{Name: "noop", Execute: func(context.Context) error { return nil }}
	require.NoError(t, s.TrySchedule(noop))

	pending := make(chan error, 1)
	go func() { pending <- s.Schedule(context.Background(), noop) }()
	time.Sleep(10 * time.Millisecond) // let Schedule start waiting

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"try schedule while another caller waits", func() error { return s.TrySchedule(noop) }, scheduler.ErrQueueFull},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := make(chan error, 1)
			go func() { got <- tt.call() }()
			select {
			case err := <-got:
				assert.ErrorIs(t, err, tt.want)
			case <-time.After(2 * time.Second):
				t.Fatal("call blocked behind a waiting Schedule")
			}
		})
	}

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()
	close(release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked behind a waiting Schedule")
	}

	select {
	case err := <-pending:
		if err != nil {
			assert.ErrorIs(t, err, scheduler.ErrStopped)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiting Schedule never returned after Stop")
	}
}
