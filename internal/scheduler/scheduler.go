// internal/scheduler/scheduler.go - Periodic background tasks
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Task is a unit of background work.
type Task struct {
	Name string
	// Interval between runs. Zero disables the ticker; with RunOnStart the
	// task then runs exactly once.
	Interval   time.Duration
	RunOnStart bool
	Run        func(ctx context.Context) error
}

type Scheduler struct {
	tasks   []Task
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
}

func New() *Scheduler {
	return &Scheduler{}
}

// Add registers a task. Tasks added after Start are not run.
func (s *Scheduler) Add(task Task) error {
	if task.Name == "" || task.Run == nil {
		return fmt.Errorf("task needs a name and a run function")
	}
	if task.Interval < 0 {
		return fmt.Errorf("task %s: negative interval", task.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, task)
	return nil
}

// Start launches one goroutine per task. They stop when ctx is cancelled or
// Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	logrus.WithField("tasks", len(s.tasks)).Info("Starting scheduler")

	for _, task := range s.tasks {
		s.wg.Add(1)
		go s.loop(ctx, task)
	}
	return nil
}

// Stop cancels every task and waits for running ones to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	logrus.Info("Stopping scheduler")
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, task Task) {
	defer s.wg.Done()

	if task.RunOnStart {
		s.runOnce(ctx, task)
	}
	if task.Interval <= 0 {
		return
	}

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, task)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, task Task) {
	if ctx.Err() != nil {
		return
	}

	start := time.Now()
	log := logrus.WithField("task", task.Name)
	if err := task.Run(ctx); err != nil {
		log.WithError(err).Error("Scheduled task failed")
		return
	}
	log.WithField("duration", time.Since(start)).Debug("Scheduled task completed")
}
