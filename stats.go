package flock

// Stats is a point-in-time snapshot of pool-wide and per-worker counters.
// Every field is read without a single consistent lock across the whole
// snapshot, so concurrent activity can make the numbers slightly
// inconsistent; treat them as approximate.
type Stats struct {
	// Submitted is the total number of tasks ever passed to Submit or
	// SubmitWithResult.
	Submitted uint64

	// Completed is the number of tasks that returned normally.
	Completed uint64

	// Panicked is the number of tasks that panicked during execution.
	Panicked uint64

	// Overflows is the number of submissions that spilled into the
	// shared overflow queue because their target RunQueue was full.
	Overflows uint64

	// OverflowDepth is the current length of the shared overflow queue.
	OverflowDepth int

	// NumWorkers is the current worker count.
	NumWorkers int

	// TotalQueueDepth is the sum of every worker's RunQueue.Size().
	TotalQueueDepth int

	// TotalCapacity is the sum of every worker's RunQueue.Capacity().
	TotalCapacity int

	// WorkerStats holds one entry per worker, indexed by worker index.
	WorkerStats []WorkerStats
}

// WorkerStats holds per-worker counters.
type WorkerStats struct {
	WorkerID      int
	TasksExecuted uint64
	TasksFailed   uint64
	TasksStolen   uint64
	QueueDepth    int
	Capacity      int
	State         string
}
