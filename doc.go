// Package flock provides a privatized work-stealing thread pool: a fixed
// set of worker goroutines, each with its own bounded private run queue,
// that steal from each other's queues before falling back to a shared
// overflow queue.
//
// # Why privatized queues
//
// Most of a worker's work comes from itself: a task that fans out
// sub-tasks wants those sub-tasks handled depth-first on the same
// goroutine, the way a recursive call stack would. Giving each worker a
// private queue that it alone pushes and pops from the front makes that
// path lock-free. Only when a worker runs dry does it pay the cost of a
// lock, contending with other idle workers over a peer's queue back, or
// the pool-wide overflow queue.
//
// # Quick Start
//
//	pool, err := flock.NewPool(4)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pool.Shutdown()
//
//	for i := 0; i < 100; i++ {
//	    i := i
//	    if err := pool.Submit(func() {
//	        fmt.Println("task", i)
//	    }); err != nil {
//	        log.Printf("submit failed: %v", err)
//	    }
//	}
//	pool.WaitForAll()
//
// # Ownership
//
// The goroutine that calls NewPool becomes the pool's owner. Spawn,
// Shutdown, and WaitForAll only succeed when called from that goroutine;
// calling any of them from a worker or another goroutine returns
// ErrNotOwner without disturbing pool state. Submit and SubmitWithResult
// have no such restriction.
//
// # Result-returning submission
//
//	future, err := flock.SubmitWithResult(pool, func() (int, error) {
//	    return 42, nil
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	val, err := future.Wait()
//
// # Shutdown semantics
//
// Shutdown first quiesces the pool (equivalent to WaitForAll), then
// injects a terminator into every worker's queue and joins every worker
// goroutine. Tasks submitted by other goroutines after quiescence begins
// but before Shutdown finishes are left undispatched; this pool does not
// attempt to drain the overflow queue during exit.
package flock
