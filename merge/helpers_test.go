package merge_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrife/mergekv/future"
	"github.com/jrife/mergekv/merge"
	"github.com/jrife/mergekv/option"
	"github.com/jrife/mergekv/scheduler"
)

var errBackend = errors.New("backend failure")

func wait[T any](t *testing.T, f *future.Future[T]) (T, error) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	select {
	case <-f.Done():
	case <-ctx.Done():
		t.Fatalf("timed out waiting for future")
	}

	v, _, err := f.Poll()

	return v, err
}

func waitAll[K comparable, V any](t *testing.T, outcomes map[K]*future.Future[option.Option[V]]) map[K]string {
	t.Helper()

	values := map[K]string{}

	for key, outcome := range outcomes {
		v, err := wait(t, outcome)

		if err != nil {
			t.Fatalf("expected err to be nil for key %v, got %#v", key, err)
		}

		values[key] = v.String()
	}

	return values
}

// faultyStore fails gets and puts of selected keys and
// counts what reaches it
type faultyStore struct {
	inner   *merge.MemoryStore[int, int64]
	failGet func(key int) bool
	failPut func(key int) bool
	gets    int64
	puts    int64

	mu          sync.Mutex
	inFlight    int
	maxInFlight int
}

func newFaultyStore(executor scheduler.Executor) *faultyStore {
	return &faultyStore{
		inner:   merge.NewMemoryStore[int, int64](executor),
		failGet: func(int) bool { return false },
		failPut: func(int) bool { return false },
	}
}

func (store *faultyStore) Get(ctx context.Context, key int) *future.Future[option.Option[int64]] {
	atomic.AddInt64(&store.gets, 1)

	store.mu.Lock()
	store.inFlight++

	if store.inFlight > store.maxInFlight {
		store.maxInFlight = store.inFlight
	}

	store.mu.Unlock()

	if store.failGet(key) {
		store.done()

		return future.Failed[option.Option[int64]](errBackend)
	}

	return store.inner.Get(ctx, key)
}

func (store *faultyStore) Put(ctx context.Context, key int, value option.Option[int64]) *future.Future[struct{}] {
	atomic.AddInt64(&store.puts, 1)

	var result *future.Future[struct{}]

	if store.failPut(key) {
		result = future.Failed[struct{}](errBackend)
	} else {
		result = store.inner.Put(ctx, key, value)
	}

	result.OnComplete(func(struct{}, error) { store.done() })

	return result
}

func (store *faultyStore) done() {
	store.mu.Lock()
	store.inFlight--
	store.mu.Unlock()
}

func (store *faultyStore) counts() (gets, puts int64) {
	return atomic.LoadInt64(&store.gets), atomic.LoadInt64(&store.puts)
}

// heldStore never settles a get on its own. Held gets are
// released by settle.
type heldStore struct {
	mu   sync.Mutex
	held []*future.Future[option.Option[int64]]
}

func (store *heldStore) Get(ctx context.Context, key int) *future.Future[option.Option[int64]] {
	f := future.New[option.Option[int64]]()

	store.mu.Lock()
	store.held = append(store.held, f)
	store.mu.Unlock()

	return f
}

func (store *heldStore) Put(ctx context.Context, key int, value option.Option[int64]) *future.Future[struct{}] {
	return future.Resolved(struct{}{})
}

func (store *heldStore) gets() int {
	store.mu.Lock()
	defer store.mu.Unlock()

	return len(store.held)
}

func (store *heldStore) settle() {
	store.mu.Lock()
	held := store.held
	store.held = nil
	store.mu.Unlock()

	for _, f := range held {
		f.Resolve(option.None[int64]())
	}
}
