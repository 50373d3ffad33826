package scheduler

import (
	"errors"
	"fmt"
)

var (
	// ErrRegistrationClosed is returned by Register once Start has been called.
	ErrRegistrationClosed = errors.New("scheduler: registration closed after start")

	// ErrNilRunner is returned when registering a nil runner or function.
	ErrNilRunner = errors.New("scheduler: nil runner")
)

// PanicError wraps a value recovered from a panicking task body.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Unwrap exposes the panic value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
