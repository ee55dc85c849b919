package group

// ErrorMode controls how a TaskGroup reacts to errors returned by its
// submitted tasks.
type ErrorMode int

const (
	// FailFast cancels the group's context on the first error and
	// Wait returns only that error.
	FailFast ErrorMode = iota
	// CollectAll lets every submitted task run to completion and
	// returns every error as an AggregateError.
	CollectAll
	// IgnoreErrors discards every error a task returns.
	IgnoreErrors
)

// Config holds configuration for a TaskGroup.
type Config struct {
	errorMode ErrorMode
}

// Option configures a TaskGroup.
type Option func(*Config)

// DefaultConfig returns the default configuration: CollectAll.
func DefaultConfig() Config {
	return Config{
		errorMode: CollectAll,
	}
}

// WithErrorMode sets how the group handles task errors.
func WithErrorMode(mode ErrorMode) Option {
	return func(c *Config) {
		c.errorMode = mode
	}
}
