package scheduler

import (
	"fmt"
	"reflect"
	"runtime"
)

// Descriptor is the immutable metadata attached to a task at registration.
type Descriptor struct {
	ID          string   // Optional identifier other tasks can depend on
	DependsOn   []string // Identifiers that must be completed before this task runs
	Description string   // Human-readable message passed to the progress callback
	Resources   []string // Exclusive resources held while the task body runs
}

// Runner is a unit of work. The execution context is passed through
// unmodified from the Scheduler.
type Runner[C any] interface {
	Run(execCtx C) error
}

// WorkFunc adapts a plain function to Runner.
type WorkFunc[C any] func(execCtx C) error

// Run calls f(execCtx).
func (f WorkFunc[C]) Run(execCtx C) error {
	return f(execCtx)
}

// Task is a registered runner plus its descriptor.
type Task[C any] struct {
	runner Runner[C]
	desc   Descriptor
	key    string // Identity used by the dependency tracker
}

func newTask[C any](r Runner[C], desc Descriptor) *Task[C] {
	return &Task[C]{
		runner: r,
		desc:   cloneDescriptor(desc),
		key:    identity(r, desc),
	}
}

// Key returns the identifier recorded in the completed set once the task ran.
func (t *Task[C]) Key() string { return t.key }

// Descriptor returns a copy of the task's descriptor.
func (t *Task[C]) Descriptor() Descriptor { return cloneDescriptor(t.desc) }

// Description returns the task's progress message.
func (t *Task[C]) Description() string { return t.desc.Description }

// identity resolves the dependency identity of a task: the declared ID, or
// the implementation behind the runner when none was declared. Wrapping
// runners that expose Unwrap are looked through.
func identity[C any](r Runner[C], desc Descriptor) string {
	if desc.ID != "" {
		return desc.ID
	}
	for {
		w, ok := r.(interface{ Unwrap() Runner[C] })
		if !ok {
			break
		}
		inner := w.Unwrap()
		if inner == nil {
			break
		}
		r = inner
	}
	if fn, ok := r.(WorkFunc[C]); ok {
		if f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer()); f != nil {
			return f.Name()
		}
	}
	return fmt.Sprintf("%T", r)
}

func cloneDescriptor(d Descriptor) Descriptor {
	cp := d
	if d.DependsOn != nil {
		cp.DependsOn = append([]string(nil), d.DependsOn...)
	}
	if d.Resources != nil {
		cp.Resources = append([]string(nil), d.Resources...)
	}
	return cp
}
