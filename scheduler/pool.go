package scheduler

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultWorkers is the worker count used when
	// PoolConfig.Workers is not positive
	DefaultWorkers = 8
)

type poolState int

const (
	poolNew poolState = iota
	poolRunning
	poolStopped
)

var _ Scheduler = (*Pool)(nil)

// PoolConfig contains configuration
// for a Pool
type PoolConfig struct {
	Workers int
	Logger  *zap.Logger
}

// Pool is a fixed set of worker goroutines draining a shared
// FIFO queue. The queue is unbounded so that Execute never
// blocks, even when called from a task running on the pool.
// A Pool must be started before use and accepts no work
// after it is stopped.
type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	state   poolState
	queue   []func()
	timers  map[*poolTimer]struct{}
	workers int
	wg      sync.WaitGroup
	logger  *zap.Logger
}

type poolTimer struct {
	timer *time.Timer
	fn    func(err error)
}

// NewPool creates a stopped pool. Call Start to
// launch its workers.
func NewPool(config PoolConfig) *Pool {
	pool := &Pool{
		workers: config.Workers,
		logger:  config.Logger,
		timers:  make(map[*poolTimer]struct{}),
	}

	if pool.workers <= 0 {
		pool.workers = DefaultWorkers
	}

	if pool.logger == nil {
		pool.logger = zap.L()
	}

	pool.logger = pool.logger.With(zap.String("component", "scheduler.Pool"))
	pool.cond = sync.NewCond(&pool.mu)

	return pool
}

// Start launches the workers. Starting a running pool has
// no effect. A stopped pool cannot be restarted.
func (pool *Pool) Start() error {
	pool.mu.Lock()
	defer pool.mu.Unlock()

	switch pool.state {
	case poolRunning:
		return nil
	case poolStopped:
		return ErrStopped
	}

	pool.state = poolRunning

	for i := 0; i < pool.workers; i++ {
		pool.wg.Add(1)

		go pool.work()
	}

	pool.logger.Debug("started", zap.Int("workers", pool.workers))

	return nil
}

// Stop prevents new work from being accepted, cancels pending
// timers, and waits until every task that was queued before
// Stop was called has run. Timers cancelled this way receive
// ErrStopped.
func (pool *Pool) Stop() {
	pool.mu.Lock()

	if pool.state == poolStopped {
		pool.mu.Unlock()

		return
	}

	pool.state = poolStopped
	timers := pool.timers
	pool.timers = nil
	pool.cond.Broadcast()
	pool.mu.Unlock()

	// Timers removed from the map under the lock belong to
	// Stop even if they already fired
	for t := range timers {
		t.timer.Stop()
		t.fn(ErrStopped)
	}

	pool.wg.Wait()
	pool.logger.Debug("stopped", zap.Int("cancelled_timers", len(timers)))
}

// Execute implements Executor.Execute
func (pool *Pool) Execute(fn func()) error {
	pool.mu.Lock()
	defer pool.mu.Unlock()

	if pool.state != poolRunning {
		return ErrStopped
	}

	pool.queue = append(pool.queue, fn)
	pool.cond.Signal()

	return nil
}

// After implements Timer.After. When the delay elapses fn
// is queued on the pool like any other task.
func (pool *Pool) After(d time.Duration, fn func(err error)) error {
	pool.mu.Lock()
	defer pool.mu.Unlock()

	if pool.state != poolRunning {
		return ErrStopped
	}

	t := &poolTimer{fn: fn}
	t.timer = time.AfterFunc(d, func() { pool.fire(t) })
	pool.timers[t] = struct{}{}

	return nil
}

func (pool *Pool) fire(t *poolTimer) {
	pool.mu.Lock()

	if _, ok := pool.timers[t]; !ok {
		// Stop won the race and already
		// owns this timer
		pool.mu.Unlock()

		return
	}

	delete(pool.timers, t)
	pool.queue = append(pool.queue, func() { t.fn(nil) })
	pool.cond.Signal()
	pool.mu.Unlock()
}

// Len returns the number of queued tasks
func (pool *Pool) Len() int {
	pool.mu.Lock()
	defer pool.mu.Unlock()

	return len(pool.queue)
}

func (pool *Pool) work() {
	defer pool.wg.Done()

	for {
		pool.mu.Lock()

		for len(pool.queue) == 0 && pool.state == poolRunning {
			pool.cond.Wait()
		}

		if len(pool.queue) == 0 {
			pool.mu.Unlock()

			return
		}

		fn := pool.queue[0]
		pool.queue[0] = nil
		pool.queue = pool.queue[1:]
		pool.mu.Unlock()

		fn()
	}
}
