package merge

import (
	"errors"
	"fmt"
)

var (
	// ErrGet indicates that reading the current value of a key failed
	ErrGet = errors.New("could not get current value")
	// ErrPut indicates that writing the merged value of a key failed
	ErrPut = errors.New("could not put merged value")
	// ErrConversion indicates that a stored value could not be
	// converted back to the caller's representation
	ErrConversion = errors.New("could not convert value")
	// ErrNotMonoid is returned by New when zero collapsing is requested
	// for a semigroup without an identity
	ErrNotMonoid = errors.New("zero collapsing requires a monoid")
)

// Op names the step of a merge that failed
type Op string

const (
	// OpGet is the read of the current value
	OpGet Op = "get"
	// OpPut is the write of the merged value
	OpPut Op = "put"
	// OpConvert is the conversion of a stored value
	OpConvert Op = "convert"
)

// Error is a failure scoped to a single key. errors.Is matches
// both the sentinel for its Op and the underlying cause.
type Error struct {
	Op  Op
	Key interface{}
	Err error
}

// Error implements error
func (err *Error) Error() string {
	return fmt.Sprintf("%s %v: %v", err.Op, err.Key, err.Err)
}

// Unwrap returns the underlying cause
func (err *Error) Unwrap() error {
	return err.Err
}

// Is reports whether target is the sentinel for err.Op
func (err *Error) Is(target error) bool {
	switch err.Op {
	case OpGet:
		return target == ErrGet
	case OpPut:
		return target == ErrPut
	case OpConvert:
		return target == ErrConversion
	}

	return false
}

func wrapError[K comparable](op Op, key K, err error) error {
	if err == nil {
		return nil
	}

	return &Error{Op: op, Key: key, Err: err}
}
