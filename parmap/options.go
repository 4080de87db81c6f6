package parmap

import (
	"log/slog"
	"time"

	"github.com/utkarsh5026/parmap/internal/backoff"
	"github.com/utkarsh5026/parmap/pool"
)

// DefaultWorkers is the size of the pool created per call when neither
// WithWorkers nor WithPool is given.
const DefaultWorkers = 8

// BackoffType selects the delay curve between retries.
type BackoffType int

const (
	// BackoffExponential doubles the delay on every retry (default).
	BackoffExponential BackoffType = iota
	// BackoffJittered adds random jitter to the exponential delay.
	BackoffJittered
	// BackoffDecorrelated uses AWS-style decorrelated jitter.
	BackoffDecorrelated
)

func (b BackoffType) kind() backoff.Kind {
	switch b {
	case BackoffJittered:
		return backoff.Jittered
	case BackoffDecorrelated:
		return backoff.Decorrelated
	default:
		return backoff.Exponential
	}
}

// Option is a functional option for Map and MapContext.
type Option func(*config)

type config struct {
	workers     int
	pool        *pool.Pool
	poolOpts    []pool.Option
	maxAttempts int
	backoff     backoff.Config
	onRetry     func(index, attempt int, err error)
	logger      *slog.Logger
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		workers:     DefaultWorkers,
		maxAttempts: 1,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// acquirePool returns the injected pool, or a new one owned by the call.
func (c *config) acquirePool() (p *pool.Pool, owned bool, err error) {
	if c.pool != nil {
		return c.pool, false, nil
	}

	opts := append([]pool.Option{pool.WithLogger(c.logger)}, c.poolOpts...)
	p, err = pool.New(c.workers, opts...)
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

// WithWorkers sets the worker count of the per-call pool. n must be
// positive; Map fails with pool.ErrInvalidSize otherwise. Ignored when
// WithPool is used.
func WithWorkers(n int) Option {
	return func(cfg *config) {
		cfg.workers = n
	}
}

// WithPool runs the work on p instead of a per-call pool. The caller keeps
// ownership: Map never shuts p down.
func WithPool(p *pool.Pool) Option {
	return func(cfg *config) {
		cfg.pool = p
	}
}

// WithPoolOptions passes options to the per-call pool, e.g. its queue kind
// or a rate limit. Ignored when WithPool is used.
func WithPoolOptions(opts ...pool.Option) Option {
	return func(cfg *config) {
		cfg.poolOpts = append(cfg.poolOpts, opts...)
	}
}

// WithRetryPolicy retries a failing element up to maxAttempts times in
// total. initialDelay is the wait before the first retry; later retries
// back off according to WithBackoff (exponential by default).
func WithRetryPolicy(maxAttempts int, initialDelay time.Duration) Option {
	return func(cfg *config) {
		if maxAttempts > 0 {
			cfg.maxAttempts = maxAttempts
		}
		if initialDelay > 0 {
			cfg.backoff.Initial = initialDelay
		}
	}
}

// WithBackoff selects the retry delay strategy. An initialDelay of zero
// keeps the delay set by WithRetryPolicy. maxDelay of zero means uncapped;
// jitter only applies to BackoffJittered.
//
// Example:
//
//	WithBackoff(BackoffJittered, 50*time.Millisecond, 2*time.Second, 0.2)
func WithBackoff(kind BackoffType, initialDelay, maxDelay time.Duration, jitter float64) Option {
	return func(cfg *config) {
		cfg.backoff.Kind = kind.kind()
		if initialDelay > 0 {
			cfg.backoff.Initial = initialDelay
		}
		cfg.backoff.Max = maxDelay
		cfg.backoff.Jitter = jitter
	}
}

// WithOnRetry registers a hook called before each retry with the element
// index, the attempt that just failed (1-based) and its error.
func WithOnRetry(fn func(index, attempt int, err error)) Option {
	return func(cfg *config) {
		cfg.onRetry = fn
	}
}

// WithLogger sets the structured logger, also used by a per-call pool.
// A nil logger is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *config) {
		if l != nil {
			cfg.logger = l
		}
	}
}
