package flock

import (
	"sync"
	"sync/atomic"
)

// poolMetrics holds pool-wide, lock-free counters used by Stats and the
// metrics package.
type poolMetrics struct {
	submitted atomic.Uint64
	completed atomic.Uint64
	panicked  atomic.Uint64
	overflows atomic.Uint64
}

// Pool is a privatized work-stealing thread pool: a fixed set of worker
// goroutines, each with its own bounded run queue, backed by a shared
// overflow queue for when a private queue is full.
//
// A Pool has an owner: the goroutine that called NewPool. Spawn, Shutdown,
// and WaitForAll may only be called from the owner goroutine; Submit and
// SubmitWithResult may be called from anywhere.
type Pool struct {
	config  Config
	ownerID uint64

	mu           sync.Mutex
	quiescedCond *sync.Cond

	workersPtr atomic.Pointer[[]*Worker]
	idToIndex  sync.Map // goroutine id (uint64) -> worker index (int)

	overflow []Task

	idleCount   int
	wantQuiesce bool
	quiesced    bool

	shuttingDown atomic.Bool
	stopped      atomic.Bool

	nextRR atomic.Uint64

	stealerCfg atomic.Pointer[stealer]

	wg sync.WaitGroup

	spawning atomic.Bool

	metrics poolMetrics
}

// NewPool constructs a pool owned by the calling goroutine and spawns n
// workers. n may be 0, in which case Submit runs every task inline on the
// caller's goroutine until Spawn is called.
func NewPool(n int, opts ...Option) (*Pool, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	p := &Pool{
		config:  cfg,
		ownerID: goroutineID(),
	}
	p.quiescedCond = sync.NewCond(&p.mu)
	empty := make([]*Worker, 0)
	p.workersPtr.Store(&empty)
	p.stealerCfg.Store(new(stealer))

	if n > 0 {
		if err := p.Spawn(n); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// workerSnapshot returns the current worker slice. Safe to call without
// holding pool.mu: Spawn always publishes a brand-new slice via the
// atomic pointer, never mutates one in place.
func (p *Pool) workerSnapshot() []*Worker {
	return *p.workersPtr.Load()
}

// IsOwner reports whether the calling goroutine constructed this pool.
func (p *Pool) IsOwner() bool {
	return goroutineID() == p.ownerID
}

// NumWorkers returns the current worker count.
func (p *Pool) NumWorkers() int {
	return len(p.workerSnapshot())
}

// NumTasks returns the approximate number of tasks sitting in the shared
// overflow queue. This is advisory only: it does not count tasks queued
// in any worker's private RunQueue or currently executing.
func (p *Pool) NumTasks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.overflow)
}

// IsShutdown reports whether Shutdown has completed.
func (p *Pool) IsShutdown() bool {
	return p.stopped.Load()
}

// Spawn appends n workers to the pool. It is owner-only. If the pool
// already has workers, Spawn first quiesces the pool (as WaitForAll
// would) so that stealing is never attempted against a worker set that
// is still being resized.
func (p *Pool) Spawn(n int) error {
	if !p.IsOwner() {
		return ErrNotOwner
	}
	if p.shuttingDown.Load() {
		return ErrPoolShutdown
	}
	if n < 0 {
		return errInvalidConfig("Spawn count must be >= 0")
	}
	if n == 0 {
		return nil
	}
	if !p.spawning.CompareAndSwap(false, true) {
		return ErrAlreadySpawned
	}
	defer p.spawning.Store(false)

	if len(p.workerSnapshot()) > 0 {
		if err := p.quiesce(); err != nil {
			return err
		}
	}

	p.mu.Lock()
	if p.shuttingDown.Load() {
		p.mu.Unlock()
		return ErrPoolShutdown
	}

	existing := p.workerSnapshot()
	base := len(existing)

	// Build every new worker before publishing any of them, so a panic
	// here (out of memory) leaves the previously-published worker set
	// completely untouched — spawn is all-n-or-nothing.
	fresh := make([]*Worker, n)
	for i := 0; i < n; i++ {
		fresh[i] = newWorker(base+i, p)
	}

	next := make([]*Worker, 0, base+n)
	next = append(next, existing...)
	next = append(next, fresh...)
	p.workersPtr.Store(&next)
	newStealerVal := newStealer(len(next))
	p.stealerCfg.Store(&newStealerVal)
	p.mu.Unlock()

	for _, w := range fresh {
		p.wg.Add(1)
		go func(wk *Worker) {
			defer p.wg.Done()
			wk.run()
		}(w)
	}
	return nil
}

// Submit enqueues task for execution, routing it per the pool's
// submission rules: if there are no workers, task runs inline; if the
// caller is itself a worker, task goes onto the caller's own queue front;
// otherwise it goes onto a round-robin peer's queue back, falling back to
// the shared overflow queue if that queue is full.
func (p *Pool) Submit(task Task) error {
	if task == nil {
		return ErrNilTask
	}
	if p.shuttingDown.Load() {
		return ErrPoolShutdown
	}

	p.metrics.submitted.Add(1)

	ws := p.workerSnapshot()
	numWorkers := len(ws)
	if numWorkers == 0 {
		defer func() {
			if r := recover(); r != nil {
				p.metrics.panicked.Add(1)
				if handler := p.config.PanicHandler; handler != nil {
					handler(-1, r)
				} else {
					p.config.Logger.Printf("flock: inline task panic: %v\n%s", r, captureStack())
				}
			}
		}()
		task()
		p.metrics.completed.Add(1)
		return nil
	}

	gid := goroutineID()
	if v, ok := p.idToIndex.Load(gid); ok {
		idx := v.(int)
		if ws[idx].queue.PushFront(task) {
			return nil
		}
		p.pushOverflow(task)
		return nil
	}

	id := int(p.nextRR.Add(1) % uint64(numWorkers))
	if !ws[id].queue.PushBack(task) {
		p.pushOverflow(task)
	}

	p.mu.Lock()
	ws[id].parkCond.Signal()
	p.mu.Unlock()
	return nil
}

// SubmitWithResult submits fn and returns a Future that will be fulfilled
// with fn's return value, or with an error wrapping a recovered panic.
func SubmitWithResult[T any](p *Pool, fn func() (T, error)) (*Future[T], error) {
	future := newFuture[T]()
	shim := func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				future.fulfill(zero, &PanicError{Value: r, Stack: captureStack()})
			}
		}()
		val, err := fn()
		future.fulfill(val, err)
	}
	if err := p.Submit(shim); err != nil {
		return nil, err
	}
	return future, nil
}

func (p *Pool) pushOverflow(task Task) {
	p.metrics.overflows.Add(1)
	p.mu.Lock()
	p.overflow = append(p.overflow, task)
	p.mu.Unlock()
}

// quiesce is the shared body of WaitForAll and the pre-shutdown drain in
// Shutdown: raise want_quiesce, wake everyone so they recheck it, and
// wait for the last-to-idle worker to observe true quiescence.
func (p *Pool) quiesce() error {
	ws := p.workerSnapshot()
	if len(ws) == 0 {
		return nil
	}

	p.mu.Lock()
	p.wantQuiesce = true
	for _, w := range ws {
		w.parkCond.Signal()
	}
	for !p.quiesced {
		p.quiescedCond.Wait()
	}
	p.quiesced = false
	p.wantQuiesce = false
	p.mu.Unlock()
	return nil
}

// WaitForAll blocks until every task submitted and accepted up to this
// call has completed. It is owner-only and does not shut the pool down.
func (p *Pool) WaitForAll() error {
	if !p.IsOwner() {
		return ErrNotOwner
	}
	return p.quiesce()
}

// Shutdown quiesces the pool, terminates every worker, and joins their
// goroutines. It is owner-only. Repeated calls are safe and no-ops after
// the first. Tasks submitted by other goroutines after quiescence begins
// but before Shutdown finishes are left undispatched, by design: this
// pool does not attempt to drain the overflow queue during exit.
func (p *Pool) Shutdown() error {
	if !p.IsOwner() {
		return ErrNotOwner
	}
	if !p.shuttingDown.CompareAndSwap(false, true) {
		return nil
	}

	ws := p.workerSnapshot()
	if len(ws) == 0 {
		p.stopped.Store(true)
		return nil
	}

	if err := p.quiesce(); err != nil {
		return err
	}

	p.mu.Lock()
	for _, w := range ws {
		worker := w
		terminate := func() { worker.live.Store(false) }
		if !worker.queue.PushBack(terminate) {
			p.overflow = append(p.overflow, terminate)
		}
		worker.parkCond.Signal()
	}
	p.mu.Unlock()

	p.wg.Wait()
	p.stopped.Store(true)
	return nil
}

// Stats returns a snapshot of pool and per-worker statistics.
func (p *Pool) Stats() Stats {
	ws := p.workerSnapshot()

	workerStats := make([]WorkerStats, len(ws))
	totalDepth := 0
	totalCapacity := 0
	for i, w := range ws {
		depth := w.queue.Size()
		capacity := w.queue.Capacity()
		totalDepth += depth
		totalCapacity += capacity
		workerStats[i] = WorkerStats{
			WorkerID:      i,
			TasksExecuted: w.tasksExecuted.Load(),
			TasksFailed:   w.tasksFailed.Load(),
			TasksStolen:   w.tasksStolen.Load(),
			QueueDepth:    depth,
			Capacity:      capacity,
			State:         w.state(),
		}
	}

	return Stats{
		Submitted:       p.metrics.submitted.Load(),
		Completed:       p.metrics.completed.Load(),
		Panicked:        p.metrics.panicked.Load(),
		Overflows:       p.metrics.overflows.Load(),
		OverflowDepth:   p.NumTasks(),
		NumWorkers:      len(ws),
		TotalQueueDepth: totalDepth,
		TotalCapacity:   totalCapacity,
		WorkerStats:     workerStats,
	}
}
