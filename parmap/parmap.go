package parmap

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/sourcegraph/conc/panics"

	"github.com/utkarsh5026/parmap/internal/backoff"
	"github.com/utkarsh5026/parmap/pool"
)

// ProcessFunc maps one element and may fail. It is shared by every worker
// and must be safe for concurrent use.
type ProcessFunc[T any, R any] func(ctx context.Context, item T) (R, error)

// Map applies mapper to every element of source in parallel.
//
// The source is drained before Map returns and one task per element is
// handed to the pool; Map itself does not wait for any result. The
// returned iterator yields exactly one Result per element, in no
// particular order.
//
// Example:
//
//	it, err := parmap.Map(slices.Values(urls), fetchTitle)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	titles, _ := parmap.Collect(it)
func Map[T any, R any](source iter.Seq[T], mapper func(T) R, opts ...Option) (*Iterator[R], error) {
	if mapper == nil {
		return nil, ErrNilMapper
	}

	return MapContext(context.Background(), source, func(_ context.Context, item T) (R, error) {
		return mapper(item), nil
	}, opts...)
}

// MapContext is Map for a ProcessFunc that receives ctx and may return an
// error. ctx is passed to every call of fn and bounds waits for queue
// space and retry delays; it does not interrupt a running fn.
//
// Parameters:
//   - ctx: context handed to fn
//   - source: finite sequence of elements
//   - fn: function to process each element
//
// Returns:
//   - *Iterator: yields one Result per element
//   - error: non-nil only if the arguments are invalid or the pool could
//     not be created
func MapContext[T any, R any](
	ctx context.Context,
	source iter.Seq[T],
	fn ProcessFunc[T, R],
	opts ...Option,
) (*Iterator[R], error) {
	if source == nil {
		return nil, ErrNilSource
	}
	if fn == nil {
		return nil, ErrNilMapper
	}

	cfg := newConfig(opts...)

	p, owned, err := cfg.acquirePool()
	if err != nil {
		return nil, fmt.Errorf("parmap: create pool: %w", err)
	}

	items := slices.Collect(source)
	results := make(chan Result[R], len(items))

	j := &job[T, R]{
		ctx: ctx,
		fn:  fn,
		cfg: cfg,
		out: results,
	}
	go j.submit(p, owned, items)

	cfg.logger.Debug("map started", "items", len(items), "workers", p.Size(), "owned_pool", owned)
	return newIterator(len(items), results), nil
}

// job is the shared state of one Map call.
type job[T any, R any] struct {
	ctx context.Context
	fn  ProcessFunc[T, R]
	cfg *config
	out chan<- Result[R]
}

// submit hands every item to p in source order. An item the pool refuses
// still gets a Result so the iterator's count holds.
func (j *job[T, R]) submit(p *pool.Pool, owned bool, items []T) {
	failed := 0
	for i, item := range items {
		err := p.ExecuteContext(j.ctx, func() {
			j.out <- j.process(i, item)
		})
		if err != nil {
			failed++
			j.out <- Result[R]{Index: i, Err: fmt.Errorf("parmap: submit item %d: %w", i, err)}
		}
	}

	j.cfg.logger.Debug("submission complete", "items", len(items), "rejected", failed)

	if owned {
		if err := p.Shutdown(0); err != nil {
			j.cfg.logger.Warn("pool shutdown failed", "err", err)
		}
	}
}

// process runs fn for one item and never panics.
func (j *job[T, R]) process(index int, item T) Result[R] {
	res := Result[R]{Index: index}

	var pc panics.Catcher
	pc.Try(func() {
		res.Value, res.Err = j.processWithRetry(index, item)
	})

	if r := pc.Recovered(); r != nil {
		var zero R
		res.Value = zero
		res.Err = &PanicError{Index: index, Recovered: r}
	}
	return res
}

// processWithRetry calls fn up to maxAttempts times, sleeping between
// attempts as the backoff strategy dictates. It gives up early when ctx is
// done.
func (j *job[T, R]) processWithRetry(index int, item T) (R, error) {
	var (
		result   R
		err      error
		strategy backoff.Strategy
	)

	attempts := max(j.cfg.maxAttempts, 1)
	for attempt := range attempts {
		if ctxErr := j.ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}

		if attempt > 0 {
			if strategy == nil {
				strategy = backoff.New(j.cfg.backoff)
			}
			if sleepErr := j.sleep(strategy.Next(attempt - 1)); sleepErr != nil {
				return result, sleepErr
			}
		}

		result, err = j.fn(j.ctx, item)
		if err == nil {
			return result, nil
		}

		if attempt < attempts-1 {
			if j.cfg.onRetry != nil {
				j.cfg.onRetry(index, attempt+1, err)
			}
			j.cfg.logger.Debug("retrying item", "index", index, "attempt", attempt+1, "err", err)
		}
	}

	return result, err
}

func (j *job[T, R]) sleep(d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-j.ctx.Done():
		return j.ctx.Err()
	}
}
