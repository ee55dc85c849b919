package flock

import (
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// Worker owns one private RunQueue and is, for the pool's purposes, a 1:1
// stand-in for the OS thread it runs on. Workers are identified by a
// stable index; the pool never relocates them after Spawn.
type Worker struct {
	index int
	pool  *Pool
	queue *RunQueue

	seed uint32 // xorshift32 state, owner-goroutine-only, never zero

	live atomic.Bool // flipped false by the shutdown terminator task

	parkCond *sync.Cond // bound to pool.mu; see checkOverflowAndPark

	tasksExecuted atomic.Uint64
	tasksFailed   atomic.Uint64
	tasksStolen   atomic.Uint64
}

func newWorker(index int, pool *Pool) *Worker {
	w := &Worker{
		index: index,
		pool:  pool,
		queue: NewRunQueue(pool.config.QueueCapacity),
		seed:  uint32(index + 1),
	}
	w.live.Store(true)
	w.parkCond = sync.NewCond(&pool.mu)
	return w
}

// run is the worker's main loop: self-pop, steal, shared overflow, park —
// in that priority order — until the shutdown terminator task runs.
func (w *Worker) run() {
	p := w.pool

	if p.config.PinWorkerThreads {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}

	p.idToIndex.Store(goroutineID(), w.index)

	if p.config.OnWorkerStart != nil {
		p.config.OnWorkerStart(w.index)
	}

runLoop:
	for {
		if task, ok := w.queue.PopFront(); ok {
			w.execute(task)
			if !w.live.Load() {
				break runLoop
			}
			continue
		}

		if task, ok := w.steal(); ok {
			w.execute(task)
			if !w.live.Load() {
				break runLoop
			}
			continue
		}

		if task, ok := w.checkOverflowAndPark(); ok {
			w.execute(task)
			if !w.live.Load() {
				break runLoop
			}
			continue
		}
		// Either the last-to-idle protocol found only our own queue
		// non-empty (restart immediately) or we just woke from a
		// park wait. Unless a peer has already run our terminator
		// (by stealing it), loop back to self-pop.
		if !w.live.Load() {
			break runLoop
		}
	}

	if p.config.OnWorkerStop != nil {
		p.config.OnWorkerStop(w.index)
	}
}

// steal probes every worker's back using the pool's current coprime-stride
// schedule, visiting each of the W workers exactly once per call — the own
// index included, matching spec's "probe all W workers" wording and the
// C++ original's _steal, which does not special-case the caller. This is
// never wasted work in practice: steal is only reached after PopFront has
// already found the caller's own queue empty, so a self-probe here always
// misses.
func (w *Worker) steal() (Task, bool) {
	p := w.pool
	ws := p.workerSnapshot()
	numWorkers := len(ws)
	if numWorkers == 0 {
		return nil, false
	}

	st := p.stealerCfg.Load()
	victim, newSeed, stride := st.next(w.seed)
	w.seed = newSeed

	for i := 0; i < numWorkers; i++ {
		idx := (victim + i*int(stride)) % numWorkers
		if task, ok := ws[idx].queue.PopBack(); ok {
			w.tasksStolen.Add(1)
			return task, true
		}
	}
	return nil, false
}

// checkOverflowAndPark implements spec steps 3 and 4 as one critical
// section under pool.mu: check the shared overflow, and if it's empty,
// fall straight into the park/last-to-idle decision without releasing
// the lock in between — overflow cannot gain a task behind our back
// while we decide whether this is true quiescence.
//
// Before taking the lock at all, it spends up to SpinCount iterations
// rechecking its own queue and stealing, same as the teacher's
// parkAndWait spin phase: most wakeups racing a park decision are won
// here, lock-free, rather than by parking and waiting for a signal.
func (w *Worker) checkOverflowAndPark() (Task, bool) {
	p := w.pool

	for i := 0; i < p.config.SpinCount; i++ {
		if task, ok := w.queue.PopFront(); ok {
			return task, true
		}
		if task, ok := w.steal(); ok {
			return task, true
		}
		runtime.Gosched()
	}

	p.mu.Lock()

	if len(p.overflow) > 0 {
		task := p.overflow[0]
		p.overflow = p.overflow[1:]
		p.mu.Unlock()
		return task, true
	}

	ws := p.workerSnapshot()
	numWorkers := len(ws)
	p.idleCount++

	if p.idleCount == numWorkers && p.wantQuiesce {
		nonEmptyCount := 0
		firstNonEmpty := -1
		for i, peer := range ws {
			if !peer.queue.Empty() {
				nonEmptyCount++
				if firstNonEmpty == -1 {
					firstNonEmpty = i
				}
			}
		}

		switch {
		case nonEmptyCount == 0:
			p.quiesced = true
			p.quiescedCond.Broadcast()
		case nonEmptyCount == 1 && firstNonEmpty == w.index:
			// Our own queue is the only thing left; go do it.
			p.idleCount--
			p.mu.Unlock()
			return nil, false
		default:
			ws[firstNonEmpty].parkCond.Signal()
		}
	}

	// Bound the wait so a lost wakeup is self-healing: worst case we
	// spuriously wake every MaxParkTime and recheck for nothing.
	timer := time.AfterFunc(p.config.MaxParkTime, func() {
		p.mu.Lock()
		w.parkCond.Signal()
		p.mu.Unlock()
	})
	w.parkCond.Wait()
	timer.Stop()
	p.idleCount--
	p.mu.Unlock()
	return nil, false
}

// execute runs a task with panic recovery. Tasks submitted through
// SubmitWithResult carry their own recover inside the shim that fulfills
// the future, so panics reaching this recover are always fire-and-forget:
// they are handed to the configured PanicHandler, or logged otherwise.
func (w *Worker) execute(task Task) {
	defer func() {
		w.tasksExecuted.Add(1)
		if r := recover(); r != nil {
			w.tasksFailed.Add(1)
			w.pool.metrics.panicked.Add(1)
			if handler := w.pool.config.PanicHandler; handler != nil {
				handler(w.index, r)
			} else {
				w.pool.config.Logger.Printf("flock: worker %d task panic: %v\n%s", w.index, r, debug.Stack())
			}
			return
		}
		w.pool.metrics.completed.Add(1)
	}()

	task()
}

func (w *Worker) state() string {
	if !w.live.Load() {
		return "SHUTDOWN"
	}
	return "RUNNING"
}
