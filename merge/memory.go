package merge

import (
	"context"
	"sync"

	"github.com/jrife/mergekv/future"
	"github.com/jrife/mergekv/option"
	"github.com/jrife/mergekv/scheduler"
)

var _ AtomicStore[string, int] = (*MemoryStore[string, int])(nil)

// MemoryStore is a map backed AtomicStore. Operations run on
// an executor, inline if none is given.
type MemoryStore[K comparable, V any] struct {
	mu       sync.RWMutex
	values   map[K]V
	executor scheduler.Executor
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore[K comparable, V any](executor scheduler.Executor) *MemoryStore[K, V] {
	if executor == nil {
		executor = scheduler.Inline()
	}

	return &MemoryStore[K, V]{values: map[K]V{}, executor: executor}
}

// Get implements Store.Get
func (store *MemoryStore[K, V]) Get(ctx context.Context, key K) *future.Future[option.Option[V]] {
	return future.Go(store.executor, func() (option.Option[V], error) {
		if err := ctx.Err(); err != nil {
			return option.None[V](), err
		}

		store.mu.RLock()
		defer store.mu.RUnlock()

		v, ok := store.values[key]

		return option.FromPair(v, ok), nil
	})
}

// Put implements Store.Put
func (store *MemoryStore[K, V]) Put(ctx context.Context, key K, value option.Option[V]) *future.Future[struct{}] {
	return future.Go(store.executor, func() (struct{}, error) {
		if err := ctx.Err(); err != nil {
			return struct{}{}, err
		}

		store.mu.Lock()
		defer store.mu.Unlock()

		store.set(key, value)

		return struct{}{}, nil
	})
}

// Update implements AtomicStore.Update
func (store *MemoryStore[K, V]) Update(ctx context.Context, key K, fn UpdateFunc[V]) *future.Future[option.Option[V]] {
	return future.Go(store.executor, func() (option.Option[V], error) {
		if err := ctx.Err(); err != nil {
			return option.None[V](), err
		}

		store.mu.Lock()
		defer store.mu.Unlock()

		v, ok := store.values[key]
		current := option.FromPair(v, ok)
		next, err := fn(current)

		if err != nil {
			return option.None[V](), err
		}

		store.set(key, next)

		return current, nil
	})
}

// Snapshot returns a copy of the contents of the store
func (store *MemoryStore[K, V]) Snapshot() map[K]V {
	store.mu.RLock()
	defer store.mu.RUnlock()

	snapshot := make(map[K]V, len(store.values))

	for k, v := range store.values {
		snapshot[k] = v
	}

	return snapshot
}

func (store *MemoryStore[K, V]) set(key K, value option.Option[V]) {
	if v, ok := value.Get(); ok {
		store.values[key] = v
	} else {
		delete(store.values, key)
	}
}
