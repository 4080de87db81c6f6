package pool

import "errors"

var (
	// ErrInvalidSize is returned by New for a worker count below one.
	ErrInvalidSize = errors.New("pool: worker count must be positive")
	// ErrInvalidCapacity is returned by New for a negative queue capacity.
	ErrInvalidCapacity = errors.New("pool: queue capacity must not be negative")
	// ErrNilTask is returned when submitting a nil task.
	ErrNilTask = errors.New("pool: nil task")
	// ErrPoolClosed is returned when submitting to, or shutting down, a pool
	// that is already shutting down.
	ErrPoolClosed = errors.New("pool: closed")
	// ErrShutdownTimeout is returned when workers are still draining after
	// the shutdown timeout.
	ErrShutdownTimeout = errors.New("pool: shutdown timeout reached")
)
