// Package future implements pending results: single-assignment
// cells that are settled exactly once with a value or an error and
// notify registered continuations when they are.
//
// Continuations registered with OnComplete run on the goroutine
// that settles the future, or on the registering goroutine if the
// future has already settled. Work that must not run inline should
// be handed to a scheduler.Executor.
package future

import (
	"context"
	"sync"
	"time"

	"github.com/jrife/mergekv/scheduler"
)

// Future is a pending result of type T
type Future[T any] struct {
	mu        sync.Mutex
	settled   bool
	value     T
	err       error
	done      chan struct{}
	callbacks []func(T, error)
}

// New creates an unsettled future
func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolved returns a future already settled with v
func Resolved[T any](v T) *Future[T] {
	f := New[T]()
	f.Resolve(v)

	return f
}

// Failed returns a future already settled with err
func Failed[T any](err error) *Future[T] {
	f := New[T]()
	f.Reject(err)

	return f
}

// Resolve settles f with v. It returns false and has no
// effect if f was already settled.
func (f *Future[T]) Resolve(v T) bool {
	return f.Settle(v, nil)
}

// Reject settles f with err. It returns false and has no
// effect if f was already settled.
func (f *Future[T]) Reject(err error) bool {
	var zero T

	return f.Settle(zero, err)
}

// Settle settles f with v if err is nil or with err otherwise.
// Only the first call to Settle, Resolve, or Reject has an effect.
// It returns true if this call settled f.
func (f *Future[T]) Settle(v T, err error) bool {
	f.mu.Lock()

	if f.settled {
		f.mu.Unlock()

		return false
	}

	f.settled = true
	f.value = v
	f.err = err
	callbacks := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range callbacks {
		cb(v, err)
	}

	return true
}

// OnComplete registers cb to be called exactly once with
// the settled value and error of f.
func (f *Future[T]) OnComplete(cb func(v T, err error)) {
	f.mu.Lock()

	if !f.settled {
		f.callbacks = append(f.callbacks, cb)
		f.mu.Unlock()

		return
	}

	v, err := f.value, f.err
	f.mu.Unlock()

	cb(v, err)
}

// Done returns a channel that is closed once f settles
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Poll returns the settled value and error of f. ok is false
// if f has not settled yet.
func (f *Future[T]) Poll() (v T, ok bool, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.value, f.settled, f.err
}

// IsSettled returns true if f has settled
func (f *Future[T]) IsSettled() bool {
	_, ok, _ := f.Poll()

	return ok
}

// Wait blocks until f settles or ctx is done. If ctx is done
// first it returns ctx.Err() and f is unaffected.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
	case <-ctx.Done():
		var zero T

		return zero, ctx.Err()
	}

	v, _, err := f.Poll()

	return v, err
}

// Transform returns a future settled with fn applied to the
// outcome of f
func Transform[T, U any](f *Future[T], fn func(T, error) (U, error)) *Future[U] {
	result := New[U]()

	f.OnComplete(func(v T, err error) {
		result.Settle(fn(v, err))
	})

	return result
}

// Map returns a future settled with fn applied to the value
// of f. Failures of f propagate unchanged and skip fn.
func Map[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	return Transform(f, func(v T, err error) (U, error) {
		if err != nil {
			var zero U

			return zero, err
		}

		return fn(v)
	})
}

// Then chains the future returned by fn onto f. Failures of f
// propagate unchanged and skip fn.
func Then[T, U any](f *Future[T], fn func(T) *Future[U]) *Future[U] {
	result := New[U]()

	f.OnComplete(func(v T, err error) {
		if err != nil {
			result.Reject(err)

			return
		}

		fn(v).OnComplete(func(u U, err error) {
			result.Settle(u, err)
		})
	})

	return result
}

// Go runs fn on exec and returns a future for its outcome. If exec
// refuses the task the future fails with the executor's error.
func Go[T any](exec scheduler.Executor, fn func() (T, error)) *Future[T] {
	result := New[T]()

	if err := exec.Execute(func() { result.Settle(fn()) }); err != nil {
		result.Reject(err)
	}

	return result
}

// After runs fn once d has elapsed on timer and returns a future for
// its outcome. If the timer is stopped first the future fails with
// the timer's error.
func After[T any](timer scheduler.Timer, d time.Duration, fn func() (T, error)) *Future[T] {
	result := New[T]()

	if err := timer.After(d, func(err error) {
		if err != nil {
			result.Reject(err)

			return
		}

		result.Settle(fn())
	}); err != nil {
		result.Reject(err)
	}

	return result
}

// Delayed returns a future that settles like f but not before d has
// elapsed on timer.
func Delayed[T any](timer scheduler.Timer, d time.Duration, f *Future[T]) *Future[T] {
	return Then(After(timer, d, func() (struct{}, error) { return struct{}{}, nil }), func(struct{}) *Future[T] {
		return f
	})
}
