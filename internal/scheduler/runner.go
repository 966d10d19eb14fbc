// Package scheduler contains the recurring reconciliation jobs that
// advance reservations through their lifecycle, and the interval runner
// that executes them.  Every task body is idempotent and derives its
// work from current time plus store state, so at-least-once and
// concurrent execution across worker processes is safe without any
// cross-worker locking.
package scheduler

import (
	"context"
	"log"
	"time"
)

// Task is a named job executed on a fixed interval.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Runner executes registered tasks, one goroutine per task.  A tick that
// fires while the previous run of the same task is still in flight is
// dropped, not queued, so store slowness cannot build an unbounded
// backlog.
type Runner struct {
	tasks []Task
}

// NewRunner returns an empty Runner.
func NewRunner() *Runner { return &Runner{} }

// Register adds a task to the runner.  Intervals must be positive.
func (r *Runner) Register(name string, interval time.Duration, run func(ctx context.Context) error) {
	if interval <= 0 {
		interval = time.Minute
	}
	r.tasks = append(r.tasks, Task{Name: name, Interval: interval, Run: run})
}

// Start launches all registered tasks and returns immediately.  Tasks
// stop when the context is cancelled.  Task errors are logged and the
// task keeps its schedule: the predicates are re-evaluated from scratch
// on the next tick, so a failed pass self-heals.
func (r *Runner) Start(ctx context.Context) {
	for _, task := range r.tasks {
		go r.loop(ctx, task)
	}
}

func (r *Runner) loop(ctx context.Context, task Task) {
	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()
	log.Printf("scheduler: task %s running every %s", task.Name, task.Interval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("scheduler: task %s stopped", task.Name)
			return
		case <-ticker.C:
			if err := task.Run(ctx); err != nil {
				log.Printf("scheduler: task %s failed: %v", task.Name, err)
			}
			// Drop a tick that fired while the task was running.
			select {
			case <-ticker.C:
			default:
			}
		}
	}
}
