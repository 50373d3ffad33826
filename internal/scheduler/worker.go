package scheduler

import (
	"runtime"
	"runtime/debug"
	"time"

	"github.com/aristath/taskloader/internal/events"
)

// worker drains the shared queue until it observes it empty.
type worker[C any] struct {
	id int
	s  *Scheduler[C]
}

// run is the worker loop. It always returns nil: task failures go to the
// error handler, never to the errgroup.
func (w *worker[C]) run() error {
	s := w.s
	for {
		if s.stop != nil && s.stop() {
			break
		}
		task, ok := s.queue.TryDequeue()
		if !ok {
			break
		}

		// Dependency-blocked: put it back and look for something runnable
		if !s.tracker.AllSatisfied(task.desc.DependsOn) {
			s.queue.Enqueue(task)
			s.logger.Debug("dependencies pending, requeued",
				"task", task.key,
				"depends_on", task.desc.DependsOn,
				"worker", w.id)
			runtime.Gosched()
			continue
		}

		duration, err := w.execute(task)
		s.report(task, err, duration)
	}

	s.logger.Debug("worker exiting", "worker", w.id)
	return nil
}

// execute runs one task under its resource locks and forwards any failure
// to the error handler.
func (w *worker[C]) execute(task *Task[C]) (time.Duration, error) {
	s := w.s

	s.locks.LockAll(task.desc.Resources)
	defer s.locks.UnlockAll(task.desc.Resources)

	start := time.Now()
	s.logger.Debug("running task", "task", task.key, "worker", w.id)
	s.publish(events.TopicTask, events.TaskStartedEvent{
		ID:          task.key,
		Description: task.desc.Description,
		Worker:      w.id,
		Timestamp:   start,
	})

	err := w.invoke(task)
	duration := time.Since(start)
	if err == nil {
		return duration, nil
	}

	taskErr := &TaskError{
		Key:         task.key,
		Description: task.desc.Description,
		Err:         err,
	}
	s.logger.Error("task failed", "task", task.key, "worker", w.id, "error", err)
	w.handleError(taskErr)
	return duration, taskErr
}

// invoke calls the task body, converting a panic into a *PanicError.
func (w *worker[C]) invoke(task *Task[C]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return task.runner.Run(w.s.execCtx)
}

func (w *worker[C]) handleError(err *TaskError) {
	defer func() {
		if r := recover(); r != nil {
			w.s.logger.Error("error handler panicked", "task", err.Key, "panic", r)
		}
	}()
	w.s.onError(err, w.s.execCtx)
}
