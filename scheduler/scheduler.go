// Package scheduler provides the executors on which asynchronous
// storage work and its continuations run. Executors are injected
// into the components that need them; nothing in this module
// relies on a process-wide executor.
package scheduler

import (
	"errors"
	"time"
)

var (
	// ErrStopped indicates that the executor was stopped
	// or was never started
	ErrStopped = errors.New("scheduler was stopped")
)

// Executor runs functions. Execute must not block on the
// completion of fn. It returns an error if fn will never run.
type Executor interface {
	Execute(fn func()) error
}

// Timer runs functions after a delay. fn is called exactly once:
// with a nil error once the delay elapses or with ErrStopped if
// the timer is shut down first.
type Timer interface {
	After(d time.Duration, fn func(err error)) error
}

// Scheduler combines Executor and Timer
type Scheduler interface {
	Executor
	Timer
}

// ExecutorFunc adapts a function to the Executor interface
type ExecutorFunc func(fn func()) error

// Execute implements Executor.Execute
func (executorFunc ExecutorFunc) Execute(fn func()) error {
	return executorFunc(fn)
}

// Inline returns an executor that runs functions
// on the calling goroutine before returning.
func Inline() Executor {
	return ExecutorFunc(func(fn func()) error {
		fn()

		return nil
	})
}

var _ Scheduler = goroutines{}

// Goroutines returns a scheduler that runs every function
// on its own goroutine. It is never stopped.
func Goroutines() Scheduler {
	return goroutines{}
}

type goroutines struct{}

func (goroutines) Execute(fn func()) error {
	go fn()

	return nil
}

func (goroutines) After(d time.Duration, fn func(err error)) error {
	time.AfterFunc(d, func() { fn(nil) })

	return nil
}
