package pool

import (
	"log/slog"

	"github.com/sourcegraph/conc/panics"
	"golang.org/x/time/rate"
)

// QueueKind selects the queue shared by the workers.
type QueueKind int

const (
	// QueueChannel is a bounded buffered channel.
	QueueChannel QueueKind = iota
	// QueueRing is a bounded lock-free MPMC ring buffer.
	QueueRing
	// QueueUnbounded never blocks submitters.
	QueueUnbounded
)

func (k QueueKind) String() string {
	switch k {
	case QueueRing:
		return "ring"
	case QueueUnbounded:
		return "unbounded"
	default:
		return "channel"
	}
}

// ParseQueueKind maps a queue name ("channel", "ring", "unbounded") to its kind.
func ParseQueueKind(name string) (QueueKind, bool) {
	for _, k := range []QueueKind{QueueChannel, QueueRing, QueueUnbounded} {
		if k.String() == name {
			return k, true
		}
	}
	return QueueChannel, false
}

// Option is a functional option for configuring a Pool.
type Option func(*config)

type config struct {
	queueKind   QueueKind
	capacity    int
	capacitySet bool
	onIdle      func(workerID int)
	onPanic     func(workerID int, r *panics.Recovered)
	limiter     *rate.Limiter
	affinity    bool
	logger      *slog.Logger
}

func defaultConfig() *config {
	return &config{
		queueKind: QueueChannel,
		logger:    slog.New(slog.DiscardHandler),
	}
}

// WithQueue selects the queue implementation. Defaults to QueueChannel.
func WithQueue(kind QueueKind) Option {
	return func(cfg *config) {
		cfg.queueKind = kind
	}
}

// WithQueueCapacity sets the capacity of a bounded queue.
// If not specified, defaults to the worker count. Ignored by QueueUnbounded.
func WithQueueCapacity(n int) Option {
	return func(cfg *config) {
		cfg.capacity = n
		cfg.capacitySet = true
	}
}

// WithIdleHandler registers fn to run on a worker each time it finds the
// queue empty, right before it blocks waiting for work.
func WithIdleHandler(fn func(workerID int)) Option {
	return func(cfg *config) {
		cfg.onIdle = fn
	}
}

// WithPanicHandler registers fn to receive panics recovered from tasks.
// Without a handler recovered panics are logged at error level.
func WithPanicHandler(fn func(workerID int, r *panics.Recovered)) Option {
	return func(cfg *config) {
		cfg.onPanic = fn
	}
}

// WithRateLimit caps how many tasks start per second across all workers.
// tasksPerSecond and burst must both be positive, otherwise the option is
// ignored.
//
// Example:
//
//	WithRateLimit(10, 5) // 10 tasks/sec with bursts of 5
func WithRateLimit(tasksPerSecond float64, burst int) Option {
	return func(cfg *config) {
		if tasksPerSecond > 0 && burst > 0 {
			cfg.limiter = rate.NewLimiter(rate.Limit(tasksPerSecond), burst)
		}
	}
}

// WithCPUAffinity locks each worker to an OS thread pinned to one core.
// Pinning is best effort; on platforms without support threads are only
// locked.
func WithCPUAffinity() Option {
	return func(cfg *config) {
		cfg.affinity = true
	}
}

// WithLogger sets the structured logger. A nil logger is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *config) {
		if l != nil {
			cfg.logger = l
		}
	}
}
