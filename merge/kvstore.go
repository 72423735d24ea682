package merge

import (
	"context"

	"github.com/jrife/mergekv/future"
	"github.com/jrife/mergekv/option"
	"github.com/jrife/mergekv/scheduler"
	"github.com/jrife/mergekv/storage/kv/marshaled"
)

// KVStore adapts a synchronous marshaled kv map into an AtomicStore.
// Each operation runs as one task on the executor.
type KVStore[K comparable, V any] struct {
	m        *marshaled.Map[K, V]
	executor scheduler.Executor
}

// NewKVStore creates a KVStore. Operations run inline if
// executor is nil.
func NewKVStore[K comparable, V any](m *marshaled.Map[K, V], executor scheduler.Executor) *KVStore[K, V] {
	if executor == nil {
		executor = scheduler.Inline()
	}

	return &KVStore[K, V]{m: m, executor: executor}
}

// Get implements Store.Get
func (store *KVStore[K, V]) Get(ctx context.Context, key K) *future.Future[option.Option[V]] {
	return future.Go(store.executor, func() (option.Option[V], error) {
		if err := ctx.Err(); err != nil {
			return option.None[V](), err
		}

		v, ok, err := store.m.Get(key)

		if err != nil {
			return option.None[V](), err
		}

		return option.FromPair(v, ok), nil
	})
}

// Put implements Store.Put
func (store *KVStore[K, V]) Put(ctx context.Context, key K, value option.Option[V]) *future.Future[struct{}] {
	return future.Go(store.executor, func() (struct{}, error) {
		if err := ctx.Err(); err != nil {
			return struct{}{}, err
		}

		if v, ok := value.Get(); ok {
			return struct{}{}, store.m.Put(key, v)
		}

		return struct{}{}, store.m.Delete(key)
	})
}

// Update implements AtomicStore.Update using the read-modify-write
// transaction of the underlying kv store
func (store *KVStore[K, V]) Update(ctx context.Context, key K, fn UpdateFunc[V]) *future.Future[option.Option[V]] {
	return future.Go(store.executor, func() (option.Option[V], error) {
		if err := ctx.Err(); err != nil {
			return option.None[V](), err
		}

		var previous option.Option[V]

		err := store.m.Update(key, func(v V, found bool) (V, bool, error) {
			previous = option.FromPair(v, found)
			next, err := fn(previous)

			if err != nil {
				return v, false, err
			}

			nv, ok := next.Get()

			return nv, ok, nil
		})

		if err != nil {
			return option.None[V](), err
		}

		return previous, nil
	})
}
