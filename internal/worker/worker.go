// Package worker runs fire-and-forget background tasks such as remote
// progress writes and history recording. Task failures are logged and never
// surfaced to the caller that enqueued them.
package worker

import (
	"context"
	"sync"
	"time"

	"certquiz/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// Task is a named unit of background work.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Status is a snapshot of worker activity.
type Status struct {
	Running      bool       `json:"running"`
	QueueDepth   int        `json:"queue_depth"`
	TasksRun     int64      `json:"tasks_run"`
	TasksFailed  int64      `json:"tasks_failed"`
	LastTaskName string     `json:"last_task_name,omitempty"`
	LastRunAt    *time.Time `json:"last_run_at,omitempty"`
}

// Worker executes enqueued tasks one at a time on a background goroutine.
type Worker struct {
	logger *observability.Logger
	tasks  chan Task

	mu          sync.Mutex
	running     bool
	tasksRun    int64
	tasksFailed int64
	lastTask    string
	lastRunAt   time.Time

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewWorker creates a new background worker with the given queue capacity.
func NewWorker(queueSize int, logger *observability.Logger) *Worker {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Worker{
		logger: logger,
		tasks:  make(chan Task, queueSize),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start launches the worker loop. It returns immediately.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	go w.loop(ctx)
	w.logger.Info(ctx, "Background worker started", map[string]interface{}{
		"queue_capacity": cap(w.tasks),
	})
}

func (w *Worker) loop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			w.setStopped()
			return
		case <-w.stop:
			// Drain what is already queued before exiting
			for {
				select {
				case task := <-w.tasks:
					w.runTask(ctx, task)
				default:
					w.setStopped()
					return
				}
			}
		case task := <-w.tasks:
			w.runTask(ctx, task)
		}
	}
}

func (w *Worker) runTask(ctx context.Context, task Task) {
	taskCtx, span := observability.TraceWorkerFunction(ctx, "run_task",
		attribute.String("task.name", task.Name),
	)
	defer span.End()

	err := task.Run(taskCtx)

	w.mu.Lock()
	w.tasksRun++
	if err != nil {
		w.tasksFailed++
	}
	w.lastTask = task.Name
	w.lastRunAt = time.Now()
	w.mu.Unlock()

	if err != nil {
		span.SetAttributes(attribute.Bool("task.failed", true))
		w.logger.Error(taskCtx, "Background task failed", err, map[string]interface{}{
			"task": task.Name,
		})
	}
}

// Enqueue schedules a task. When the queue is full the task is dropped and
// the drop is logged; enqueueing never blocks the caller.
func (w *Worker) Enqueue(name string, fn func(ctx context.Context) error) {
	select {
	case w.tasks <- Task{Name: name, Run: fn}:
	default:
		w.logger.Warn(context.Background(), "Background task queue full, dropping task", map[string]interface{}{
			"task": name,
		})
	}
}

// Shutdown stops the worker after draining queued tasks, bounded by ctx.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.stop) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetStatus returns a snapshot of worker activity.
func (w *Worker) GetStatus() Status {
	w.mu.Lock()
	defer w.mu.Unlock()

	status := Status{
		Running:     w.running,
		QueueDepth:  len(w.tasks),
		TasksRun:    w.tasksRun,
		TasksFailed: w.tasksFailed,
	}
	if w.lastTask != "" {
		status.LastTaskName = w.lastTask
		t := w.lastRunAt
		status.LastRunAt = &t
	}
	return status
}

func (w *Worker) setStopped() {
	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
}
