package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aristath/taskloader/internal/events"
)

// State is the lifecycle state of a Scheduler.
type State int32

const (
	StateNotStarted State = iota // Accepting registrations
	StateRunning                 // Workers spawned, tasks outstanding
	StateCompleted               // Every registered task has run
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// ProgressCallback observes task completions.
//
// The Scheduler serializes calls: deliveries never overlap, and the fractions
// they carry are non-decreasing. Calls happen on worker goroutines, so a slow
// callback slows every worker. A panic in the callback is recovered and
// logged. Callbacks may use the Scheduler's read-only
// accessors but must not call Start.
type ProgressCallback interface {
	Progress(message string, complete bool, fraction float64)
}

// ProgressFunc adapts a function to ProgressCallback.
type ProgressFunc func(message string, complete bool, fraction float64)

// Progress calls f.
func (f ProgressFunc) Progress(message string, complete bool, fraction float64) {
	f(message, complete, fraction)
}

// ErrorHandler receives task failures along with the execution context. The
// error is a *TaskError. Whatever the handler does, the scheduler moves on
// to the next task.
type ErrorHandler[C any] func(err error, execCtx C)

// Publisher receives scheduler events. *events.EventBus implements it.
type Publisher interface {
	Publish(topic string, event events.Event)
}

// TaskError describes a failed task.
type TaskError struct {
	Key         string
	Description string
	Err         error
}

func (e *TaskError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("task %q (%s): %v", e.Key, e.Description, e.Err)
	}
	return fmt.Sprintf("task %q: %v", e.Key, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }

// Config configures a Scheduler. The zero value is usable.
type Config[C any] struct {
	Workers  int              // Worker goroutines (default runtime.NumCPU())
	Progress ProgressCallback // Optional completion observer
	OnError  ErrorHandler[C]  // Optional failure sink
	Logger   *slog.Logger     // Defaults to slog.Default()
	Events   Publisher        // Optional event sink
}

// Scheduler runs registered tasks on a fixed pool of workers, ordering them
// by their declared dependencies without building a graph up front: a task
// whose dependencies have not all run is put back at the tail of the queue
// and retried later.
//
// Tasks whose dependencies can never be satisfied (a cycle, or an identity
// nobody registers) requeue forever and the Scheduler never completes.
type Scheduler[C any] struct {
	execCtx  C
	workers  int
	callback ProgressCallback
	onError  ErrorHandler[C]
	logger   *slog.Logger
	events   Publisher

	queue    *TaskQueue[C]
	tracker  *Tracker
	progress Progress
	locks    *ResourceLocks

	regMu     sync.Mutex // Orders Register against the NotStarted -> Running edge
	state     atomic.Int32
	startedAt atomic.Int64 // UnixNano, zero until Running

	reportMu sync.Mutex // Serializes completion accounting and callback delivery

	group errgroup.Group
	done  chan struct{}

	stop func() bool // Checked before each dequeue when set; nil outside tests
}

// New creates a Scheduler whose tasks receive execCtx.
func New[C any](execCtx C, cfg Config[C]) *Scheduler[C] {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Progress == nil {
		cfg.Progress = ProgressFunc(func(string, bool, float64) {})
	}
	if cfg.OnError == nil {
		cfg.OnError = func(error, C) {}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Scheduler[C]{
		execCtx:  execCtx,
		workers:  cfg.Workers,
		callback: cfg.Progress,
		onError:  cfg.OnError,
		logger:   cfg.Logger,
		events:   cfg.Events,
		queue:    NewTaskQueue[C](),
		tracker:  NewTracker(),
		locks:    NewResourceLocks(),
		done:     make(chan struct{}),
	}
}

// Register queues a runner for loading. It fails with ErrRegistrationClosed
// once Start has been called.
func (s *Scheduler[C]) Register(r Runner[C], desc Descriptor) error {
	if r == nil {
		return ErrNilRunner
	}

	s.regMu.Lock()
	defer s.regMu.Unlock()

	if s.State() != StateNotStarted {
		return ErrRegistrationClosed
	}
	s.queue.Enqueue(newTask(r, desc))
	return nil
}

// RegisterFunc queues a plain function for loading.
func (s *Scheduler[C]) RegisterFunc(fn func(execCtx C) error, desc Descriptor) error {
	if fn == nil {
		return ErrNilRunner
	}
	return s.Register(WorkFunc[C](fn), desc)
}

// Start snapshots the registered task count and spawns the workers. It
// returns without waiting for them; use Wait to join.
//
// Calling Start again is a no-op reported as a warning. Starting with no
// registered tasks completes immediately with a single progress delivery.
func (s *Scheduler[C]) Start() {
	s.regMu.Lock()

	if state := s.State(); state != StateNotStarted {
		s.regMu.Unlock()
		s.warn(fmt.Sprintf("start called while %s, ignoring; is Start being called twice?", state))
		return
	}

	total := s.queue.Len()

	if total == 0 {
		s.progress.Initialize(0)
		s.state.Store(int32(StateCompleted))
		s.regMu.Unlock()

		s.warn("start called with no registered tasks, marking loading complete")
		s.reportMu.Lock()
		s.deliver("", true, 1.0)
		s.publish(events.TopicProgress, events.ProgressEvent{
			Complete:  true,
			Fraction:  1.0,
			Timestamp: time.Now(),
		})
		s.reportMu.Unlock()
		close(s.done)
		return
	}

	graph := graphOf(s.queue.snapshot())
	s.progress.Initialize(total)
	s.startedAt.Store(time.Now().UnixNano())
	s.state.Store(int32(StateRunning))
	s.regMu.Unlock()

	if _, err := ValidateGraph(graph); err != nil {
		s.warn(fmt.Sprintf("dependency check failed, affected tasks will never run: %v", err))
	}

	s.publish(events.TopicScheduler, events.LoadingStartedEvent{
		Total:     total,
		Workers:   s.workers,
		Timestamp: time.Now(),
	})

	for i := 0; i < s.workers; i++ {
		w := &worker[C]{id: i + 1, s: s}
		s.logger.Debug("created worker", "worker", w.id, "workers", s.workers)
		s.group.Go(w.run)
	}

	go func() {
		_ = s.group.Wait()
		close(s.done)
	}()
}

// Wait blocks until every worker has exited, or ctx ends. It cancels
// nothing: a context error only means the caller stopped waiting.
func (s *Scheduler[C]) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// report accounts for a task that has run. Exactly one call per executed
// task; requeued tasks are never reported.
func (s *Scheduler[C]) report(task *Task[C], taskErr error, duration time.Duration) {
	s.tracker.MarkCompleted(task.key)

	s.reportMu.Lock()
	defer s.reportMu.Unlock()

	fraction, complete := s.progress.RecordCompletion()
	if complete && s.state.CompareAndSwap(int32(StateRunning), int32(StateCompleted)) {
		s.logger.Info("loading complete",
			"tasks", s.progress.Total(),
			"elapsed_ms", s.Elapsed().Milliseconds(),
			"workers", s.workers)
	}

	s.logger.Debug("task reported",
		"task", task.key,
		"completed", s.progress.Completed(),
		"total", s.progress.Total())

	s.deliver(task.desc.Description, complete, fraction)

	now := time.Now()
	s.publish(events.TopicTask, events.TaskCompletedEvent{
		ID:          task.key,
		Description: task.desc.Description,
		Err:         taskErr,
		Duration:    duration,
		Timestamp:   now,
	})
	s.publish(events.TopicProgress, events.ProgressEvent{
		Message:   task.desc.Description,
		Completed: s.progress.Completed(),
		Total:     s.progress.Total(),
		Fraction:  fraction,
		Complete:  complete,
		Timestamp: now,
	})
}

// deliver calls the progress callback. A panicking callback is logged and
// the report carries on.
func (s *Scheduler[C]) deliver(message string, complete bool, fraction float64) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("progress callback panicked", "message", message, "panic", r)
		}
	}()
	s.callback.Progress(message, complete, fraction)
}

func (s *Scheduler[C]) warn(msg string) {
	s.logger.Warn(msg)
	s.publish(events.TopicScheduler, events.WarningEvent{
		Message:   msg,
		Timestamp: time.Now(),
	})
}

func (s *Scheduler[C]) publish(topic string, event events.Event) {
	if s.events != nil {
		s.events.Publish(topic, event)
	}
}

// Validate checks the registered tasks' dependency graph. See ValidateGraph.
func (s *Scheduler[C]) Validate() ([]string, error) {
	return ValidateGraph(graphOf(s.queue.snapshot()))
}

// State returns the current lifecycle state.
func (s *Scheduler[C]) State() State {
	return State(s.state.Load())
}

// IsStarted reports whether loading entered Running. An empty start goes
// straight to Completed and never counts as started.
func (s *Scheduler[C]) IsStarted() bool {
	return s.startedAt.Load() != 0
}

// IsComplete reports whether every registered task has run.
func (s *Scheduler[C]) IsComplete() bool {
	return s.State() == StateCompleted
}

// Progress returns the completed fraction in [0, 1].
func (s *Scheduler[C]) Progress() float64 {
	if s.IsComplete() {
		return 1.0
	}
	return s.progress.Fraction()
}

// ProgressPercent returns Progress scaled to [0, 100].
func (s *Scheduler[C]) ProgressPercent() float64 {
	return s.Progress() * 100
}

// Elapsed returns the time since loading entered Running, or zero if it
// never did.
func (s *Scheduler[C]) Elapsed() time.Duration {
	started := s.startedAt.Load()
	if started == 0 {
		return 0
	}
	return time.Since(time.Unix(0, started))
}

// Completed returns how many tasks have run.
func (s *Scheduler[C]) Completed() int { return s.progress.Completed() }

// Total returns the task count snapshotted by Start.
func (s *Scheduler[C]) Total() int { return s.progress.Total() }

// Pending returns how many tasks are still queued.
func (s *Scheduler[C]) Pending() int { return s.queue.Len() }

// Workers returns the size of the worker pool.
func (s *Scheduler[C]) Workers() int { return s.workers }

// HasCompleted reports whether every id has run.
func (s *Scheduler[C]) HasCompleted(ids ...string) bool {
	return s.tracker.AllSatisfied(ids)
}
