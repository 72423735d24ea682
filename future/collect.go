package future

import (
	"fmt"
	"sync"
)

// Partition splits the outcomes of a set of keyed futures
// into those that succeeded and those that failed. Every key
// appears in exactly one of the two maps.
type Partition[K comparable, V any] struct {
	Successes map[K]V
	Failures  map[K]error
}

// Len returns the total number of keys in the partition
func (p Partition[K, V]) Len() int {
	return len(p.Successes) + len(p.Failures)
}

// Collector waits for a declared number of keyed futures to settle
// and partitions their outcomes. It never short-circuits: the result
// settles only after every registered future has settled, whatever
// their outcomes.
type Collector[K comparable, V any] struct {
	mu         sync.Mutex
	expected   int
	registered map[K]struct{}
	settled    int
	partition  Partition[K, V]
	result     *Future[Partition[K, V]]
}

// NewCollector creates a collector expecting exactly n futures.
// With n == 0 the result is settled immediately.
func NewCollector[K comparable, V any](n int) *Collector[K, V] {
	if n < 0 {
		panic(fmt.Sprintf("future: negative collector size %d", n))
	}

	c := &Collector[K, V]{
		expected:   n,
		registered: make(map[K]struct{}, n),
		partition: Partition[K, V]{
			Successes: make(map[K]V),
			Failures:  make(map[K]error),
		},
		result: New[Partition[K, V]](),
	}

	if n == 0 {
		c.result.Resolve(c.partition)
	}

	return c
}

// Add registers the future for key. Registering more futures than
// the collector expects, or the same key twice, is a programming
// error and panics.
func (c *Collector[K, V]) Add(key K, f *Future[V]) {
	c.mu.Lock()

	if _, ok := c.registered[key]; ok {
		c.mu.Unlock()

		panic(fmt.Sprintf("future: key %v registered twice", key))
	}

	if len(c.registered) == c.expected {
		c.mu.Unlock()

		panic(fmt.Sprintf("future: collector expected %d futures", c.expected))
	}

	c.registered[key] = struct{}{}
	c.mu.Unlock()

	f.OnComplete(func(v V, err error) {
		c.mu.Lock()

		if err != nil {
			c.partition.Failures[key] = err
		} else {
			c.partition.Successes[key] = v
		}

		c.settled++
		done := c.settled == c.expected
		c.mu.Unlock()

		if done {
			c.result.Resolve(c.partition)
		}
	})
}

// Result returns the future partition. It settles once all
// expected futures have been registered and have settled.
func (c *Collector[K, V]) Result() *Future[Partition[K, V]] {
	return c.result
}

// CollectWithFailures waits for every future in futures to settle
// and partitions the outcomes by key.
func CollectWithFailures[K comparable, V any](futures map[K]*Future[V]) *Future[Partition[K, V]] {
	c := NewCollector[K, V](len(futures))

	for key, f := range futures {
		c.Add(key, f)
	}

	return c.Result()
}
