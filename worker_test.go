package flock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// setWorkers directly publishes ws as the pool's worker set and refreshes
// the stealer config to match, without spawning any worker goroutines —
// lets these tests drive steal()/checkOverflowAndPark() directly on the
// calling goroutine instead of racing against a live run loop.
func setWorkers(p *Pool, ws []*Worker) {
	p.workersPtr.Store(&ws)
	st := newStealer(len(ws))
	p.stealerCfg.Store(&st)
}

func TestWorker_StealFindsTaskOnAnyPeer(t *testing.T) {
	pool, err := NewPool(0)
	require.NoError(t, err)
	defer pool.Shutdown()
	defer setWorkers(pool, nil)

	w0 := newWorker(0, pool)
	w1 := newWorker(1, pool)
	w2 := newWorker(2, pool)
	setWorkers(pool, []*Worker{w0, w1, w2})

	require.True(t, w2.queue.PushBack(func() {}))

	task, ok := w0.steal()
	require.True(t, ok)
	require.NotNil(t, task)
	require.EqualValues(t, 1, w0.tasksStolen.Load())
}

func TestWorker_StealVisitsEveryWorkerExactlyOnce(t *testing.T) {
	// With numWorkers workers and a coprime stride, a full sweep must
	// find a task no matter which single peer holds it and no matter
	// which victim/stride the PRNG lands on — run it enough times to
	// exercise different seeds.
	pool, err := NewPool(0)
	require.NoError(t, err)
	defer pool.Shutdown()
	defer setWorkers(pool, nil)

	const numWorkers = 5
	for holder := 0; holder < numWorkers; holder++ {
		ws := make([]*Worker, numWorkers)
		for i := range ws {
			ws[i] = newWorker(i, pool)
		}
		setWorkers(pool, ws)
		require.True(t, ws[holder].queue.PushBack(func() {}))

		thief := ws[(holder+1)%numWorkers]
		task, ok := thief.steal()
		require.True(t, ok, "holder=%d should have been found", holder)
		require.NotNil(t, task)
	}
}

func TestWorker_StealReturnsFalseWhenAllQueuesEmpty(t *testing.T) {
	pool, err := NewPool(0)
	require.NoError(t, err)
	defer pool.Shutdown()
	defer setWorkers(pool, nil)

	w0 := newWorker(0, pool)
	w1 := newWorker(1, pool)
	setWorkers(pool, []*Worker{w0, w1})

	_, ok := w0.steal()
	require.False(t, ok)
}

func TestWorker_StealReturnsFalseWithNoPublishedWorkers(t *testing.T) {
	pool, err := NewPool(0)
	require.NoError(t, err)
	defer pool.Shutdown()

	w0 := newWorker(0, pool) // never published into pool.workersPtr
	_, ok := w0.steal()
	require.False(t, ok)
}

func TestWorker_StealCanReturnOwnBackWhenCalledDirectly(t *testing.T) {
	// steal() no longer special-cases the caller's own index (matching
	// spec's "probe all W workers" and the C++ original's _steal), so a
	// direct call — bypassing the run loop's PopFront-first ordering —
	// can legitimately return a task from the caller's own back.
	pool, err := NewPool(0)
	require.NoError(t, err)
	defer pool.Shutdown()
	defer setWorkers(pool, nil)

	w0 := newWorker(0, pool)
	w1 := newWorker(1, pool)
	setWorkers(pool, []*Worker{w0, w1})

	require.True(t, w0.queue.PushBack(func() {}))

	task, ok := w0.steal()
	require.True(t, ok)
	require.NotNil(t, task)
}

func TestWorker_CheckOverflowAndPark_DrainsOverflowBeforeParking(t *testing.T) {
	pool, err := NewPool(0, WithMaxParkTime(5*time.Millisecond))
	require.NoError(t, err)
	defer pool.Shutdown()
	defer setWorkers(pool, nil)

	w0 := newWorker(0, pool)
	setWorkers(pool, []*Worker{w0})

	ran := false
	pool.mu.Lock()
	pool.overflow = append(pool.overflow, func() { ran = true })
	pool.mu.Unlock()

	task, ok := w0.checkOverflowAndPark()
	require.True(t, ok)
	require.NotNil(t, task)
	task()
	require.True(t, ran)

	pool.mu.Lock()
	depth := len(pool.overflow)
	pool.mu.Unlock()
	require.Zero(t, depth)
}

func TestWorker_CheckOverflowAndPark_LastToIdleQuiesces(t *testing.T) {
	pool, err := NewPool(0, WithMaxParkTime(5*time.Millisecond))
	require.NoError(t, err)
	defer pool.Shutdown()
	defer setWorkers(pool, nil)

	w0 := newWorker(0, pool)
	setWorkers(pool, []*Worker{w0})

	pool.mu.Lock()
	pool.wantQuiesce = true
	pool.mu.Unlock()

	// Single worker: idleCount reaching 1 is idleCount == numWorkers, so
	// this call must take the "everyone's idle" branch, mark quiesced,
	// then self-heal out of its own bounded park wait.
	_, ok := w0.checkOverflowAndPark()
	require.False(t, ok)

	pool.mu.Lock()
	quiesced := pool.quiesced
	idle := pool.idleCount
	pool.mu.Unlock()
	require.True(t, quiesced)
	require.Zero(t, idle)
}

func TestWorker_CheckOverflowAndPark_RestartsWithoutParkingOnOwnWork(t *testing.T) {
	// SpinCount 0 skips the lock-free spin phase, which would otherwise pop
	// the queued task itself before the last-to-idle branch is reached.
	pool, err := NewPool(0, WithMaxParkTime(5*time.Millisecond), WithSpinCount(0))
	require.NoError(t, err)
	defer pool.Shutdown()
	defer setWorkers(pool, nil)

	w0 := newWorker(0, pool)
	w1 := newWorker(1, pool)
	setWorkers(pool, []*Worker{w0, w1})

	require.True(t, w0.queue.PushFront(func() {}))

	pool.mu.Lock()
	pool.wantQuiesce = true
	pool.idleCount = 1 // simulate w1 already idle
	pool.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		task, ok := w0.checkOverflowAndPark()
		require.False(t, ok)
		require.Nil(t, task)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("checkOverflowAndPark parked instead of restarting immediately")
	}

	pool.mu.Lock()
	idle := pool.idleCount
	quiesced := pool.quiesced
	pool.mu.Unlock()
	require.Equal(t, 1, idle)
	require.False(t, quiesced)
}

func TestWorker_CheckOverflowAndPark_SignalsFirstNonEmptyPeerThenSelfHeals(t *testing.T) {
	// SpinCount 0 skips the spin phase, whose steal would otherwise take
	// w1's task before the last-to-idle branch is reached.
	pool, err := NewPool(0, WithMaxParkTime(5*time.Millisecond), WithSpinCount(0))
	require.NoError(t, err)
	defer pool.Shutdown()
	defer setWorkers(pool, nil)

	w0 := newWorker(0, pool)
	w1 := newWorker(1, pool)
	setWorkers(pool, []*Worker{w0, w1})

	require.True(t, w1.queue.PushFront(func() {}))

	pool.mu.Lock()
	pool.wantQuiesce = true
	pool.idleCount = 1 // simulate w1 already idle
	pool.mu.Unlock()

	task, ok := w0.checkOverflowAndPark()
	require.False(t, ok)
	require.Nil(t, task)

	pool.mu.Lock()
	quiesced := pool.quiesced
	pool.mu.Unlock()
	require.False(t, quiesced)
}
