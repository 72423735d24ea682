// Package option models a value that may be absent. Storage layers in
// this module use it to keep "no value stored" distinct from a stored
// zero value.
package option

import "fmt"

// Option holds either a value or nothing. The zero Option is None.
type Option[T any] struct {
	value T
	ok    bool
}

// Some returns an Option holding v
func Some[T any](v T) Option[T] {
	return Option[T]{value: v, ok: true}
}

// None returns an empty Option
func None[T any]() Option[T] {
	return Option[T]{}
}

// FromPair builds an Option from the (value, found) pair
// returned by most map-like lookups.
func FromPair[T any](v T, ok bool) Option[T] {
	if !ok {
		return None[T]()
	}

	return Some(v)
}

// Get returns the value and whether it is present
func (o Option[T]) Get() (T, bool) {
	return o.value, o.ok
}

// IsSome returns true if a value is present
func (o Option[T]) IsSome() bool {
	return o.ok
}

// IsNone returns true if no value is present
func (o Option[T]) IsNone() bool {
	return !o.ok
}

// GetOrElse returns the value if present or def otherwise
func (o Option[T]) GetOrElse(def T) T {
	if !o.ok {
		return def
	}

	return o.value
}

// MustGet returns the value. It panics if the option is empty.
func (o Option[T]) MustGet() T {
	if !o.ok {
		panic("option: MustGet called on None")
	}

	return o.value
}

// Filter returns o if it holds a value for which keep
// returns true and None otherwise.
func (o Option[T]) Filter(keep func(T) bool) Option[T] {
	if !o.ok || !keep(o.value) {
		return None[T]()
	}

	return o
}

// String implements fmt.Stringer
func (o Option[T]) String() string {
	if !o.ok {
		return "None"
	}

	return fmt.Sprintf("Some(%v)", o.value)
}

// Map applies fn to the value of o if present
func Map[T, U any](o Option[T], fn func(T) U) Option[U] {
	if !o.ok {
		return None[U]()
	}

	return Some(fn(o.value))
}
