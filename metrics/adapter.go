package metrics

import "github.com/circuitwork/flock"

// poolStats satisfies StatsProvider; kept unexported because it is created
// only by PoolProvider, never constructed directly by callers.
type poolStats struct {
	pool *flock.Pool
}

// PoolProvider wraps a *flock.Pool so it can be registered with a
// SnapshotPoller without the root package importing this one.
func PoolProvider(pool *flock.Pool) StatsProvider {
	return poolStats{pool: pool}
}

func (p poolStats) Stats() Snapshot {
	s := p.pool.Stats()
	return Snapshot{
		Submitted:       s.Submitted,
		Completed:       s.Completed,
		Panicked:        s.Panicked,
		Overflows:       s.Overflows,
		OverflowDepth:   s.OverflowDepth,
		NumWorkers:      s.NumWorkers,
		TotalQueueDepth: s.TotalQueueDepth,
		TotalCapacity:   s.TotalCapacity,
	}
}
