// Package merge adds a merge operation to key-value stores. A merge
// combines a caller supplied delta with the stored value of a key
// using an associative operator and resolves to the value the key
// held before the merge.
//
// Stores are asynchronous: every operation returns a future. Merges
// of distinct keys are independent of each other, including their
// failures.
package merge

import (
	"context"

	"github.com/jrife/mergekv/future"
	"github.com/jrife/mergekv/option"
)

// Store is an asynchronous key-value store. Put with an absent value
// deletes the key.
type Store[K comparable, V any] interface {
	Get(ctx context.Context, key K) *future.Future[option.Option[V]]
	Put(ctx context.Context, key K, value option.Option[V]) *future.Future[struct{}]
}

// UpdateFunc computes the new value of a key from its current value
type UpdateFunc[V any] func(current option.Option[V]) (option.Option[V], error)

// AtomicStore is a Store that can apply an UpdateFunc to a single
// key atomically with respect to every other writer of that key.
// Update resolves to the value the key held before the update.
type AtomicStore[K comparable, V any] interface {
	Store[K, V]
	Update(ctx context.Context, key K, fn UpdateFunc[V]) *future.Future[option.Option[V]]
}
