package merge

import (
	"sync"

	"github.com/jrife/mergekv/future"
)

// keyQueue orders tasks per key. A task for a key starts only
// after every earlier task for that key has settled. Tasks for
// different keys never wait on each other and nothing blocks
// a goroutine while waiting.
type keyQueue[K comparable] struct {
	mu    sync.Mutex
	tails map[K]*future.Future[struct{}]
}

func newKeyQueue[K comparable]() *keyQueue[K] {
	return &keyQueue[K]{tails: map[K]*future.Future[struct{}]{}}
}

// enqueue appends a task to the queue of key and returns its marker
// along with the marker of the task ahead of it, if any
func (q *keyQueue[K]) enqueue(key K) (done, previous *future.Future[struct{}]) {
	done = future.New[struct{}]()

	q.mu.Lock()
	previous = q.tails[key]
	q.tails[key] = done
	q.mu.Unlock()

	return done, previous
}

func (q *keyQueue[K]) release(key K, done *future.Future[struct{}]) {
	q.mu.Lock()

	if q.tails[key] == done {
		delete(q.tails, key)
	}

	q.mu.Unlock()
	done.Resolve(struct{}{})
}

// pending returns the number of keys with queued or running tasks
func (q *keyQueue[K]) pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.tails)
}

func serialize[K comparable, T any](q *keyQueue[K], key K, task func() *future.Future[T]) *future.Future[T] {
	result := future.New[T]()
	done, previous := q.enqueue(key)

	start := func() {
		task().OnComplete(func(v T, err error) {
			q.release(key, done)
			result.Settle(v, err)
		})
	}

	if previous == nil {
		start()
	} else {
		previous.OnComplete(func(struct{}, error) { start() })
	}

	return result
}
