// Package linktree reduces many asynchronously produced values with
// an associative operator. Values sit at the leaves of a binary tree
// and every branch combines its children as soon as both are known,
// so no step waits for the whole tree before combining begins.
//
// A leaf is a single-assignment cell that is linked exactly once.
// A branch registers a continuation on each child and an atomic
// countdown fires its combine exactly once, using each child's final
// value. Leaf order is preserved, so the operator only needs to be
// associative.
package linktree

import (
	"fmt"
	"sync/atomic"

	"github.com/jrife/mergekv/algebra"
	"github.com/jrife/mergekv/future"
	"github.com/jrife/mergekv/option"
)

// Node is a node of a deferred-link tree: Empty, *Leaf, or *Branch,
// or a pending value wrapped with FromFuture.
type Node[V any] interface {
	// Value returns the pending value of the node. A present value
	// is the combination of every present leaf under the node.
	Value() *future.Future[option.Option[V]]
	node()
}

// DoubleLinkError is the panic value raised when a leaf is
// linked more than once. It indicates a bug in the code that
// builds the tree and should not be recovered from.
type DoubleLinkError struct {
	Linked    interface{}
	Attempted interface{}
}

// Error implements error
func (err *DoubleLinkError) Error() string {
	return fmt.Sprintf("linktree: leaf already linked to %v, cannot link %v", err.Linked, err.Attempted)
}

type emptyNode[V any] struct {
	value *future.Future[option.Option[V]]
}

// Empty returns a node whose value is absent
func Empty[V any]() Node[V] {
	return emptyNode[V]{value: future.Resolved(option.None[V]())}
}

func (n emptyNode[V]) Value() *future.Future[option.Option[V]] {
	return n.value
}

func (emptyNode[V]) node() {}

// Leaf is a linkable single-assignment cell
type Leaf[V any] struct {
	value *future.Future[option.Option[V]]
}

// NewLeaf creates an unlinked leaf
func NewLeaf[V any]() *Leaf[V] {
	return &Leaf[V]{value: future.New[option.Option[V]]()}
}

// NewLeaves creates n unlinked leaves
func NewLeaves[V any](n int) []*Leaf[V] {
	leaves := make([]*Leaf[V], n)

	for i := range leaves {
		leaves[i] = NewLeaf[V]()
	}

	return leaves
}

// Link assigns the leaf's value. Pass option.None to mark
// the leaf absent. Linking a leaf twice panics with a
// *DoubleLinkError.
func (leaf *Leaf[V]) Link(v option.Option[V]) {
	if !leaf.TryLink(v) {
		linked, _, _ := leaf.value.Poll()

		panic(&DoubleLinkError{Linked: linked, Attempted: v})
	}
}

// TryLink is like Link but returns false instead of
// panicking if the leaf was already linked.
func (leaf *Leaf[V]) TryLink(v option.Option[V]) bool {
	return leaf.value.Resolve(v)
}

// IsLinked returns true once the leaf has been linked
func (leaf *Leaf[V]) IsLinked() bool {
	return leaf.value.IsSettled()
}

// Value implements Node.Value
func (leaf *Leaf[V]) Value() *future.Future[option.Option[V]] {
	return leaf.value
}

func (*Leaf[V]) node() {}

type pendingNode[V any] struct {
	value *future.Future[option.Option[V]]
}

// FromFuture wraps an existing pending value as a node. If f fails,
// every branch above it fails with the same error.
func FromFuture[V any](f *future.Future[option.Option[V]]) Node[V] {
	return pendingNode[V]{value: f}
}

func (n pendingNode[V]) Value() *future.Future[option.Option[V]] {
	return n.value
}

func (pendingNode[V]) node() {}

// Branch combines the values of two child nodes
type Branch[V any] struct {
	Left  Node[V]
	Right Node[V]

	sg         algebra.Semigroup[V]
	remaining  int32
	leftValue  option.Option[V]
	leftErr    error
	rightValue option.Option[V]
	rightErr   error
	value      *future.Future[option.Option[V]]
}

// NewBranch creates a branch over left and right. Its value settles
// once both children have settled and never before.
func NewBranch[V any](sg algebra.Semigroup[V], left, right Node[V]) *Branch[V] {
	branch := &Branch[V]{
		Left:      left,
		Right:     right,
		sg:        sg,
		remaining: 2,
		value:     future.New[option.Option[V]](),
	}

	// Each continuation writes only its own slot before the
	// countdown, and only the continuation that brings the
	// countdown to zero reads both.
	left.Value().OnComplete(func(v option.Option[V], err error) {
		branch.leftValue, branch.leftErr = v, err
		branch.arrive()
	})

	right.Value().OnComplete(func(v option.Option[V], err error) {
		branch.rightValue, branch.rightErr = v, err
		branch.arrive()
	})

	return branch
}

func (branch *Branch[V]) arrive() {
	if atomic.AddInt32(&branch.remaining, -1) != 0 {
		return
	}

	switch {
	case branch.leftErr != nil:
		branch.value.Reject(branch.leftErr)
	case branch.rightErr != nil:
		branch.value.Reject(branch.rightErr)
	default:
		branch.value.Resolve(combine(branch.sg, branch.leftValue, branch.rightValue))
	}
}

// Value implements Node.Value
func (branch *Branch[V]) Value() *future.Future[option.Option[V]] {
	return branch.value
}

func (*Branch[V]) node() {}

func combine[V any](sg algebra.Semigroup[V], left, right option.Option[V]) option.Option[V] {
	l, lok := left.Get()
	r, rok := right.Get()

	switch {
	case lok && rok:
		return option.Some(sg.Combine(l, r))
	case lok:
		return left
	default:
		return right
	}
}
