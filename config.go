package flock

import "time"

// Config contains all configuration options for the pool.
type Config struct {
	// QueueCapacity is the capacity of each worker's private run queue.
	// Must be a power of two, >= 4. Defaults to 1024.
	QueueCapacity int

	// PanicHandler is invoked when a task panics and no result future is
	// attached to it. If nil, the panic is logged via Logger. workerID is -1
	// for a task run inline by a pool that has no workers.
	PanicHandler func(workerID int, recovered interface{})

	// OnWorkerStart is called on a worker's own goroutine right after it
	// starts, before it looks for its first task.
	OnWorkerStart func(workerID int)

	// OnWorkerStop is called on a worker's own goroutine right before it
	// exits, once its shutdown terminator task has run. The worker does not
	// drain its queue or the overflow queue first.
	OnWorkerStop func(workerID int)

	// PinWorkerThreads locks each worker goroutine to its OS thread for
	// the worker's lifetime. Platform-specific; may have no effect.
	PinWorkerThreads bool

	// SpinCount is the number of local-queue/steal retries a worker makes
	// before parking. Tuning this changes wakeup latency, never ordering.
	// Defaults to 32.
	SpinCount int

	// MaxParkTime bounds how long a parked worker sleeps before waking on
	// its own to recheck for work, in case a signal was missed. Defaults
	// to 10ms.
	MaxParkTime time.Duration

	// Logger receives diagnostics: swallowed task panics, worker lifecycle
	// events. Defaults to a Logger wrapping the standard library's log
	// package.
	Logger Logger
}

// Option configures a Pool at construction time.
type Option func(*Config)

// WithQueueCapacity sets the per-worker run queue capacity.
func WithQueueCapacity(n int) Option {
	return func(c *Config) { c.QueueCapacity = n }
}

// WithPanicHandler installs a callback invoked on every task panic that has
// no attached result future to deliver the failure to.
func WithPanicHandler(fn func(workerID int, recovered interface{})) Option {
	return func(c *Config) { c.PanicHandler = fn }
}

// WithWorkerLifecycleHooks installs start/stop observers for each worker.
func WithWorkerLifecycleHooks(onStart, onStop func(workerID int)) Option {
	return func(c *Config) {
		c.OnWorkerStart = onStart
		c.OnWorkerStop = onStop
	}
}

// WithPinWorkerThreads locks each worker to its OS thread.
func WithPinWorkerThreads(pin bool) Option {
	return func(c *Config) { c.PinWorkerThreads = pin }
}

// WithSpinCount sets the pre-park retry budget.
func WithSpinCount(n int) Option {
	return func(c *Config) { c.SpinCount = n }
}

// WithMaxParkTime bounds a parked worker's self-wakeup interval.
func WithMaxParkTime(d time.Duration) Option {
	return func(c *Config) { c.MaxParkTime = d }
}

// WithLogger overrides the default logger.
func WithLogger(l Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() Config {
	return Config{
		QueueCapacity: 1024,
		SpinCount:     32,
		MaxParkTime:   10 * time.Millisecond,
		Logger:        defaultLogger{},
	}
}

func (c *Config) validate() error {
	if c.QueueCapacity <= 0 {
		return errInvalidConfig("QueueCapacity must be > 0")
	}
	if c.QueueCapacity < 4 {
		return errInvalidConfig("QueueCapacity must be >= 4")
	}
	if !isPowerOfTwo(c.QueueCapacity) {
		return errInvalidConfig("QueueCapacity must be a power of 2")
	}
	if c.SpinCount < 0 {
		return errInvalidConfig("SpinCount must be >= 0")
	}
	if c.MaxParkTime < 0 {
		return errInvalidConfig("MaxParkTime must be >= 0")
	}
	if c.Logger == nil {
		c.Logger = defaultLogger{}
	}
	return nil
}

func isPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
