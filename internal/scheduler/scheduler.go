// Package scheduler runs background index maintenance one task at a time.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tliron/commonlog"
)

var (
	log = commonlog.GetLogger("anchorlink.scheduler")

	ErrStopped   = errors.New("scheduler: stopped")
	ErrQueueFull = errors.New("scheduler: queue is full")
)

type Task struct {
	Name    string
	Execute func(ctx context.Context) error
}

// Scheduler executes queued tasks sequentially on one goroutine.
type Scheduler struct {
	taskQueue chan Task
	done      chan struct{} // closed by Stop and Drain
	ctx       context.Context
	cancel    context.CancelFunc

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

// NewScheduler creates a Scheduler with the given queue size and starts
// its loop.
func NewScheduler(queueSize int) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		taskQueue: make(chan Task, queueSize),
		done:      make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *Scheduler) run() {
	defer s.wg.Done()
	for {
		select {
		case task := <-s.taskQueue:
			s.execute(task)
		case <-s.done:
			for {
				select {
				case task := <-s.taskQueue:
					s.execute(task)
				default:
					return
				}
			}
		}
	}
}

func (s *Scheduler) execute(task Task) {
	if s.ctx.Err() != nil {
		log.Debugf("dropping %s task", task.Name)
		return
	}
	log.Debugf("executing %s task", task.Name)
	if err := task.Execute(s.ctx); err != nil {
		log.Errorf("%s task failed: %v", task.Name, err)
	}
}

// Schedule queues task, waiting for room in the queue. Waiting holds no
// lock, so Stop and TrySchedule proceed meanwhile.
func (s *Scheduler) Schedule(ctx context.Context, task Task) error {
	if s.isStopped() {
		return ErrStopped
	}
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// TrySchedule queues task unless the queue is full.
func (s *Scheduler) TrySchedule(task Task) error {
	if s.isStopped() {
		return ErrStopped
	}
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.done:
		return ErrStopped
	default:
		log.Debugf("skipped scheduling %s, queue is full", task.Name)
		return ErrQueueFull
	}
}

// Periodic queues task every interval until the scheduler stops. Ticks
// that find the queue full are skipped.
func (s *Scheduler) Periodic(interval time.Duration, task Task) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.TrySchedule(task); errors.Is(err, ErrStopped) {
					return
				}
			case <-s.ctx.Done():
				return
			}
		}
	}()
}

// Stop lets the running task finish, drops the queued ones and waits.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.cancel()
	close(s.done)
	s.mu.Unlock()

	s.wg.Wait()
	log.Debugf("scheduler stopped")
}

// Drain runs every queued task to completion, then stops.
func (s *Scheduler) Drain() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.done)
	s.mu.Unlock()

	s.wg.Wait()
	s.cancel()
}
