// Package group provides structured concurrency over a flock.Pool: a batch
// of related, context-aware tasks submitted together and waited on as a
// unit, with the same fail-fast/collect-all/ignore error policies as a
// plain goroutine group but scheduled through the pool's worker set instead
// of spawning bare goroutines.
package group

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/circuitwork/flock"
)

// TaskGroup manages a batch of related tasks, all routed through a shared
// *flock.Pool, with structured cancellation and error aggregation.
type TaskGroup struct {
	pool   *flock.Pool
	ctx    context.Context
	cancel context.CancelFunc
	config Config

	futures []*flock.Future[struct{}]
	futMu   sync.Mutex

	errors    []error
	errorsMux sync.RWMutex
	failOnce  sync.Once
	firstErr  atomic.Value
}

// New creates a TaskGroup whose tasks are submitted to pool, using
// context.Background() as the parent context.
func New(pool *flock.Pool, opts ...Option) *TaskGroup {
	return NewWithContext(pool, context.Background(), opts...)
}

// NewWithContext creates a TaskGroup with a caller-supplied parent context.
// Every task's context is derived from ctx and is canceled by Stop, or by
// the first error under FailFast.
func NewWithContext(pool *flock.Pool, ctx context.Context, opts ...Option) *TaskGroup {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	groupCtx, cancel := context.WithCancel(ctx)

	return &TaskGroup{
		pool:   pool,
		ctx:    groupCtx,
		cancel: cancel,
		config: config,
	}
}

// Go submits fn to the group's pool. fn receives the group's context, which
// is canceled when Stop is called or, under FailFast, when any task errors.
// Go never blocks on a free worker: if every worker queue is full the task
// lands in the pool's shared overflow queue, same as a direct Submit.
func (g *TaskGroup) Go(fn func(context.Context) error) {
	future, err := flock.SubmitWithResult(g.pool, func() (struct{}, error) {
		err := fn(g.ctx)
		if err != nil && g.config.errorMode == FailFast {
			// Cancel peers as soon as the error happens, not when Wait
			// gets to this task's future.
			g.handleError(err)
		}
		return struct{}{}, err
	})
	if err != nil {
		// Pool rejected the submission outright (shut down, nil task).
		// Treat it like a task that ran and immediately failed so Wait's
		// error-mode semantics still apply uniformly.
		g.handleError(err)
		return
	}

	g.futMu.Lock()
	g.futures = append(g.futures, future)
	g.futMu.Unlock()
}

// GoSafe submits a fire-and-forget task that returns no error. Only a panic
// in fn, delivered as a *flock.PanicError, reaches the group's error mode.
func (g *TaskGroup) GoSafe(fn func(context.Context)) {
	g.Go(func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}

// Wait blocks until every submitted task's Future resolves, then returns an
// error according to the group's ErrorMode.
func (g *TaskGroup) Wait() error {
	g.futMu.Lock()
	futures := g.futures
	g.futMu.Unlock()

	for _, f := range futures {
		if _, err := f.Wait(); err != nil {
			g.handleError(err)
		}
	}
	g.Stop()

	switch g.config.errorMode {
	case IgnoreErrors:
		return nil

	case FailFast:
		if v := g.firstErr.Load(); v != nil {
			return v.(error)
		}
		return nil

	case CollectAll:
		g.errorsMux.RLock()
		collected := make([]error, len(g.errors))
		copy(collected, g.errors)
		g.errorsMux.RUnlock()

		if len(collected) > 0 {
			return AggregateError{Errors: collected}
		}
		return nil

	default:
		return nil
	}
}

// Stop cancels the group's context, signaling every in-flight task to
// return early. Safe to call more than once.
func (g *TaskGroup) Stop() {
	g.cancel()
}

func (g *TaskGroup) handleError(err error) {
	switch g.config.errorMode {
	case IgnoreErrors:
		return

	case FailFast:
		if g.firstErr.Load() == nil {
			if g.firstErr.CompareAndSwap(nil, err) {
				g.failOnce.Do(g.cancel)
			}
		}

	case CollectAll:
		g.errorsMux.Lock()
		g.errors = append(g.errors, err)
		g.errorsMux.Unlock()
	}
}
