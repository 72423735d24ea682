package merge

import (
	"context"
	"errors"

	"github.com/jrife/mergekv/algebra"
	"github.com/jrife/mergekv/future"
	"github.com/jrife/mergekv/linktree"
	"github.com/jrife/mergekv/option"
	"github.com/jrife/mergekv/utils/log"
	"go.uber.org/zap"
)

// Merger is implemented by stores that support merging
type Merger[K comparable, V any] interface {
	Merge(ctx context.Context, key K, delta V) *future.Future[option.Option[V]]
	MultiMerge(ctx context.Context, batch map[K]V) map[K]*future.Future[option.Option[V]]
	Get(ctx context.Context, key K) *future.Future[option.Option[V]]
}

var _ Merger[string, int] = (*Mergeable[string, int])(nil)

// Config configures a Mergeable
type Config[K comparable, V any] struct {
	Store     Store[K, V]
	Semigroup algebra.Semigroup[V]
	// CollapseZero makes values equal to the identity of Semigroup
	// read and write as absent. Semigroup must be an algebra.Monoid.
	CollapseZero bool
	// SerializeKeys chains merges of the same key made through this
	// Mergeable so that each get is issued after the previous put
	// settled. Writers outside this Mergeable can still race.
	SerializeKeys bool
	// PreferAtomic merges with AtomicStore.Update when Store supports
	// it, making merges safe against every writer of the backend.
	PreferAtomic bool
	// MaxInFlight limits the number of keys of one MultiMerge that are
	// being merged at once. Zero means no limit.
	MaxInFlight int
	Logger      *zap.Logger
}

// Mergeable is a store with a merge operation
type Mergeable[K comparable, V any] struct {
	store       Store[K, V]
	sg          algebra.Semigroup[V]
	c           combiner[V]
	merge       pipeline[K, V]
	queue       *keyQueue[K]
	maxInFlight int
	logger      *zap.Logger
}

// New creates a Mergeable
func New[K comparable, V any](config Config[K, V]) (*Mergeable[K, V], error) {
	if config.Store == nil {
		return nil, errors.New("store must not be nil")
	}

	if config.Semigroup == nil {
		return nil, errors.New("semigroup must not be nil")
	}

	if config.Logger == nil {
		config.Logger = zap.L()
	}

	c, err := newCombiner(config.Semigroup, config.CollapseZero)

	if err != nil {
		return nil, err
	}

	m := &Mergeable[K, V]{
		store:       config.Store,
		sg:          config.Semigroup,
		c:           c,
		merge:       getPut(config.Store, c),
		maxInFlight: config.MaxInFlight,
		logger:      config.Logger.With(zap.String("component", "mergeable")),
	}

	if atomicStore, ok := config.Store.(AtomicStore[K, V]); ok && config.PreferAtomic {
		m.merge = update(atomicStore, c)
	}

	if config.SerializeKeys {
		m.queue = newKeyQueue[K]()
		merge := m.merge
		m.merge = func(ctx context.Context, key K, delta V) *future.Future[option.Option[V]] {
			return serialize(m.queue, key, func() *future.Future[option.Option[V]] {
				return merge(ctx, key, delta)
			})
		}
	}

	return m, nil
}

// Merge combines delta into the value of key and resolves to
// the value key held before
func (m *Mergeable[K, V]) Merge(ctx context.Context, key K, delta V) *future.Future[option.Option[V]] {
	return m.MultiMerge(ctx, map[K]V{key: delta})[key]
}

// MultiMerge merges every delta of batch into its key. Each outcome
// is independent of the others.
func (m *Mergeable[K, V]) MultiMerge(ctx context.Context, batch map[K]V) map[K]*future.Future[option.Option[V]] {
	return multiMerge(ctx, batch, m.maxInFlight, m.logger, m.merge)
}

// MultiMergeCollect is MultiMerge followed by a barrier that
// partitions the outcomes into successes and failures
func (m *Mergeable[K, V]) MultiMergeCollect(ctx context.Context, batch map[K]V) *future.Future[future.Partition[K, option.Option[V]]] {
	return future.CollectWithFailures(m.MultiMerge(ctx, batch))
}

// Get reads the value of key
func (m *Mergeable[K, V]) Get(ctx context.Context, key K) *future.Future[option.Option[V]] {
	return future.Transform(m.store.Get(ctx, key), func(v option.Option[V], err error) (option.Option[V], error) {
		if err != nil {
			return option.None[V](), wrapError(OpGet, key, err)
		}

		return m.c.collapse(v), nil
	})
}

// MergeReduced combines deltas as they arrive and merges their total into
// key. If any delta fails the outcome fails with its error and nothing is
// written. If every delta is absent the outcome is the current value of key.
func (m *Mergeable[K, V]) MergeReduced(ctx context.Context, key K, deltas []*future.Future[option.Option[V]]) *future.Future[option.Option[V]] {
	logger := log.WithContext(ctx, m.logger).With(zap.String("operation", "MergeReduced"), log.Key(key), zap.Int("deltas", len(deltas)))
	logger.Debug("start")

	return future.Then(linktree.Reduce(m.sg, deltas), func(total option.Option[V]) *future.Future[option.Option[V]] {
		delta, ok := total.Get()

		if !ok {
			logger.Debug("every delta absent")

			return m.Get(ctx, key)
		}

		return m.Merge(ctx, key, delta)
	})
}

// update merges with a single atomic read-modify-write
func update[K comparable, V any](store AtomicStore[K, V], c combiner[V]) pipeline[K, V] {
	plain := getPut[K, V](store, c)

	return func(ctx context.Context, key K, delta V) *future.Future[option.Option[V]] {
		if c.isZero(delta) {
			return plain(ctx, key, delta)
		}

		return future.Transform(store.Update(ctx, key, func(current option.Option[V]) (option.Option[V], error) {
			return c.merge(c.collapse(current), delta), nil
		}), func(previous option.Option[V], err error) (option.Option[V], error) {
			if err != nil {
				return option.None[V](), wrapError(OpPut, key, err)
			}

			return c.collapse(previous), nil
		})
	}
}
