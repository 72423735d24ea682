package merge

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/jrife/mergekv/algebra"
	"github.com/jrife/mergekv/future"
	"github.com/jrife/mergekv/option"
	"github.com/jrife/mergekv/utils/log"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// MultiMergeOptions tunes MultiMergeFromMultiSet
type MultiMergeOptions struct {
	// CollapseZero treats values equal to the identity of the
	// semigroup as absent. The semigroup must be an algebra.Monoid.
	CollapseZero bool
	// MaxInFlight limits how many keys may be between their get and
	// the settlement of their put at once. Zero means no limit.
	MaxInFlight int
	Logger      *zap.Logger
}

// combiner merges deltas into current values under a zero
// collapsing policy
type combiner[V any] struct {
	sg algebra.Semigroup[V]
	// zero is nil unless zero collapsing is enabled
	zero algebra.Monoid[V]
}

func newCombiner[V any](sg algebra.Semigroup[V], collapseZero bool) (combiner[V], error) {
	c := combiner[V]{sg: sg}

	if !collapseZero {
		return c, nil
	}

	monoid, ok := algebra.AsMonoid(sg)

	if !ok {
		return c, ErrNotMonoid
	}

	c.zero = monoid

	return c, nil
}

func (c combiner[V]) isZero(v V) bool {
	return c.zero != nil && c.zero.IsZero(v)
}

// collapse maps a stored identity to absence
func (c combiner[V]) collapse(v option.Option[V]) option.Option[V] {
	return v.Filter(func(v V) bool { return !c.isZero(v) })
}

// merge combines delta into current. current must already be collapsed.
func (c combiner[V]) merge(current option.Option[V], delta V) option.Option[V] {
	merged := delta

	if existing, ok := current.Get(); ok {
		merged = c.sg.Combine(existing, delta)
	}

	return c.collapse(option.Some(merged))
}

type pipeline[K comparable, V any] func(ctx context.Context, key K, delta V) *future.Future[option.Option[V]]

// getPut is the per-key merge: get the current value, combine the
// delta into it, put the result, and resolve to the value the key
// held before. A failed get skips the put.
func getPut[K comparable, V any](store Store[K, V], c combiner[V]) pipeline[K, V] {
	return func(ctx context.Context, key K, delta V) *future.Future[option.Option[V]] {
		result := future.New[option.Option[V]]()

		store.Get(ctx, key).OnComplete(func(current option.Option[V], err error) {
			if err != nil {
				result.Reject(wrapError(OpGet, key, err))

				return
			}

			current = c.collapse(current)

			if c.isZero(delta) {
				result.Resolve(current)

				return
			}

			store.Put(ctx, key, c.merge(current, delta)).OnComplete(func(_ struct{}, err error) {
				if err != nil {
					result.Reject(wrapError(OpPut, key, err))

					return
				}

				result.Resolve(current)
			})
		})

		return result
	}
}

// MultiMergeFromMultiSet merges every delta in batch into store using sg and
// returns one outcome per key. Each outcome resolves to the value its key
// held before the merge, or fails with an *Error if the get or the put of
// that key failed. Keys are merged concurrently and independently: a failure
// for one key never affects another.
//
// Merges are not atomic. Concurrent writers of the same key may lose updates.
func MultiMergeFromMultiSet[K comparable, V any](ctx context.Context, store Store[K, V], sg algebra.Semigroup[V], batch map[K]V, options MultiMergeOptions) map[K]*future.Future[option.Option[V]] {
	c, err := newCombiner(sg, options.CollapseZero)

	if err != nil {
		outcomes := make(map[K]*future.Future[option.Option[V]], len(batch))

		for key := range batch {
			outcomes[key] = future.Failed[option.Option[V]](err)
		}

		return outcomes
	}

	if options.Logger == nil {
		options.Logger = zap.L()
	}

	return multiMerge(ctx, batch, options.MaxInFlight, options.Logger, getPut(store, c))
}

func multiMerge[K comparable, V any](ctx context.Context, batch map[K]V, maxInFlight int, logger *zap.Logger, merge pipeline[K, V]) map[K]*future.Future[option.Option[V]] {
	logger = log.WithContext(ctx, logger).With(zap.String("operation", "MultiMerge"), zap.Int("keys", len(batch)))
	logger.Debug("start")

	outcomes := make(map[K]*future.Future[option.Option[V]], len(batch))
	run := merge

	if maxInFlight > 0 && maxInFlight < len(batch) {
		run = bounded(maxInFlight, merge)
	}

	remaining := int64(len(batch))

	if remaining == 0 {
		logger.Debug("return")
	}

	for key, delta := range batch {
		key := key
		outcome := run(ctx, key, delta)
		outcome.OnComplete(func(_ option.Option[V], err error) {
			if err != nil {
				logger.Debug("merge failed", log.Key(key), zap.Error(err))
			}

			if atomic.AddInt64(&remaining, -1) == 0 {
				logger.Debug("return")
			}
		})
		outcomes[key] = outcome
	}

	return outcomes
}

// limiter runs at most a fixed number of pipelines at once. Keys
// beyond the limit wait in a FIFO and are started by the completion
// of an earlier key, so waiting costs no goroutines.
type limiter[K comparable, V any] struct {
	sem   *semaphore.Weighted
	merge pipeline[K, V]

	mu       sync.Mutex
	waiting  []queuedMerge[K, V]
	draining bool
}

type queuedMerge[K comparable, V any] struct {
	ctx    context.Context
	key    K
	delta  V
	result *future.Future[option.Option[V]]
}

func bounded[K comparable, V any](maxInFlight int, merge pipeline[K, V]) pipeline[K, V] {
	l := &limiter[K, V]{sem: semaphore.NewWeighted(int64(maxInFlight)), merge: merge}

	return l.run
}

func (l *limiter[K, V]) run(ctx context.Context, key K, delta V) *future.Future[option.Option[V]] {
	l.mu.Lock()

	if len(l.waiting) == 0 && l.sem.TryAcquire(1) {
		l.mu.Unlock()

		return l.start(ctx, key, delta)
	}

	result := future.New[option.Option[V]]()
	l.waiting = append(l.waiting, queuedMerge[K, V]{ctx: ctx, key: key, delta: delta, result: result})
	l.mu.Unlock()

	return result
}

func (l *limiter[K, V]) start(ctx context.Context, key K, delta V) *future.Future[option.Option[V]] {
	f := l.merge(ctx, key, delta)
	f.OnComplete(func(option.Option[V], error) { l.release() })

	return f
}

// release frees a slot and starts waiting keys while slots are free.
// Only one goroutine drains at a time. A release that happens during
// a drain, including one triggered by a key the drain just started,
// only frees its slot and leaves the starting to the drain loop.
func (l *limiter[K, V]) release() {
	l.sem.Release(1)
	l.mu.Lock()

	if l.draining {
		l.mu.Unlock()

		return
	}

	l.draining = true

	for len(l.waiting) > 0 {
		next := l.waiting[0]
		cancelled := next.ctx.Err()

		// cancelled keys leave the queue without taking a slot
		if cancelled == nil && !l.sem.TryAcquire(1) {
			break
		}

		l.waiting[0] = queuedMerge[K, V]{}
		l.waiting = l.waiting[1:]
		l.mu.Unlock()

		if cancelled != nil {
			next.result.Reject(wrapError(OpGet, next.key, cancelled))
		} else {
			l.start(next.ctx, next.key, next.delta).OnComplete(func(v option.Option[V], err error) {
				next.result.Settle(v, err)
			})
		}

		l.mu.Lock()
	}

	l.draining = false
	l.mu.Unlock()
}
