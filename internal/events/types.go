package events

import (
	"time"
)

// Event is the base interface for all events.
type Event interface {
	EventType() string
	TaskID() string
}

// Topic constants
const (
	TopicTask      = "task"
	TopicProgress  = "progress"
	TopicScheduler = "scheduler"
)

// Event type constants
const (
	EventTypeLoadingStarted = "loading.started"
	EventTypeTaskStarted    = "task.started"
	EventTypeTaskCompleted  = "task.completed"
	EventTypeProgress       = "loading.progress"
	EventTypeWarning        = "loading.warning"
)

// LoadingStartedEvent is published once when workers are spawned.
type LoadingStartedEvent struct {
	Total     int
	Workers   int
	Timestamp time.Time
}

func (e LoadingStartedEvent) EventType() string { return EventTypeLoadingStarted }
func (e LoadingStartedEvent) TaskID() string    { return "" }

// TaskStartedEvent is published when a worker begins running a task.
type TaskStartedEvent struct {
	ID          string
	Description string
	Worker      int
	Timestamp   time.Time
}

func (e TaskStartedEvent) EventType() string { return EventTypeTaskStarted }
func (e TaskStartedEvent) TaskID() string    { return e.ID }

// TaskCompletedEvent is published when a task has run, whether or not it
// succeeded. Err is nil on success.
type TaskCompletedEvent struct {
	ID          string
	Description string
	Err         error
	Duration    time.Duration
	Timestamp   time.Time
}

func (e TaskCompletedEvent) EventType() string { return EventTypeTaskCompleted }
func (e TaskCompletedEvent) TaskID() string    { return e.ID }

// Failed reports whether the task body returned an error or panicked.
func (e TaskCompletedEvent) Failed() bool { return e.Err != nil }

// ProgressEvent mirrors each progress callback delivery.
type ProgressEvent struct {
	Message   string
	Completed int
	Total     int
	Fraction  float64
	Complete  bool
	Timestamp time.Time
}

func (e ProgressEvent) EventType() string { return EventTypeProgress }
func (e ProgressEvent) TaskID() string    { return "" }

// WarningEvent signals scheduler misuse or a suspicious dependency graph.
// It never changes scheduler state.
type WarningEvent struct {
	Message   string
	Timestamp time.Time
}

func (e WarningEvent) EventType() string { return EventTypeWarning }
func (e WarningEvent) TaskID() string    { return "" }
