package pool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/utkarsh5026/parmap/internal/queue"
)

// Task is a unit of work run by exactly one worker.
type Task func()

// entry is a queued task with the context it was submitted under.
type entry struct {
	ctx  context.Context
	task Task
}

// Stats is a point-in-time snapshot of pool activity.
type Stats struct {
	Workers   int    // fixed worker count
	Queued    int    // tasks waiting in the queue
	Active    int64  // tasks currently executing
	Completed uint64 // tasks finished, including ones that panicked
	Panicked  uint64 // tasks that panicked
}

// Pool is a fixed-size group of worker goroutines sharing one task queue.
// All methods are safe for concurrent use.
type Pool struct {
	size  int
	conf  *config
	log   *slog.Logger
	queue queue.Queue[entry]

	closed atomic.Bool
	done   chan struct{}

	active    atomic.Int64
	completed atomic.Uint64
	panicked  atomic.Uint64
}

// New starts a pool of size workers.
//
// Default configuration:
//   - queue: QueueChannel
//   - queue capacity: size
//   - no rate limit, no CPU pinning, no logging
//
// Example:
//
//	p, err := pool.New(8, pool.WithQueue(pool.QueueRing), pool.WithQueueCapacity(256))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Shutdown(5 * time.Second)
func New(size int, opts ...Option) (*Pool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSize, size)
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	q, err := newQueue(cfg, size)
	if err != nil {
		return nil, err
	}

	p := &Pool{
		size:  size,
		conf:  cfg,
		log:   cfg.logger,
		queue: q,
		done:  make(chan struct{}),
	}

	var g errgroup.Group
	for i := range size {
		g.Go(func() error {
			return p.worker(i)
		})
	}

	go func() {
		if err := g.Wait(); err != nil {
			p.log.Error("worker exited with error", "err", err)
		}
		close(p.done)
		p.log.Debug("pool stopped", "completed", p.completed.Load(), "panicked", p.panicked.Load())
	}()

	p.log.Debug("pool started", "workers", size, "queue", cfg.queueKind.String(), "capacity", q.Cap())
	return p, nil
}

func newQueue(cfg *config, size int) (queue.Queue[entry], error) {
	capacity := size
	if cfg.capacitySet {
		if cfg.capacity < 0 {
			return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, cfg.capacity)
		}
		capacity = cfg.capacity
	}

	switch cfg.queueKind {
	case QueueRing:
		return queue.NewRing[entry](capacity), nil
	case QueueUnbounded:
		return queue.NewList[entry](), nil
	default:
		return queue.NewChannel[entry](capacity), nil
	}
}

// Execute queues task for execution by the first available worker.
// It never waits for the task to run; with a bounded queue it blocks while
// the queue is full.
func (p *Pool) Execute(task Task) error {
	return p.ExecuteContext(context.Background(), task)
}

// ExecuteContext is Execute that gives up waiting for queue space when ctx
// is done, returning ctx.Err(). Once a task is queued ctx only bounds the
// rate limiter wait before it runs; the task itself always runs.
func (p *Pool) ExecuteContext(ctx context.Context, task Task) error {
	if task == nil {
		return ErrNilTask
	}
	if p.closed.Load() {
		return ErrPoolClosed
	}

	if err := p.queue.Enqueue(ctx, entry{ctx: ctx, task: task}); err != nil {
		if errors.Is(err, queue.ErrClosed) {
			return ErrPoolClosed
		}
		return err
	}
	return nil
}

// Shutdown stops accepting tasks and waits for workers to drain the queue
// and exit. A timeout of zero or less waits indefinitely; otherwise
// ErrShutdownTimeout is returned if workers are still busy when it elapses,
// and they keep draining in the background (see Done).
//
// Example:
//
//	if err := p.Shutdown(5 * time.Second); err != nil {
//	    log.Printf("shutdown: %v", err)
//	}
func (p *Pool) Shutdown(timeout time.Duration) error {
	if !p.closed.CompareAndSwap(false, true) {
		return ErrPoolClosed
	}

	p.log.Debug("pool shutting down", "queued", p.queue.Len(), "active", p.active.Load())
	p.queue.Close()
	return waitUntil(p.done, timeout)
}

// Done is closed once every worker has exited after Shutdown.
func (p *Pool) Done() <-chan struct{} {
	return p.done
}

// Size returns the fixed number of workers.
func (p *Pool) Size() int {
	return p.size
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:   p.size,
		Queued:    p.queue.Len(),
		Active:    p.active.Load(),
		Completed: p.completed.Load(),
		Panicked:  p.panicked.Load(),
	}
}

// waitUntil blocks until d is closed or the timeout elapses.
func waitUntil(d <-chan struct{}, timeout time.Duration) error {
	if timeout <= 0 {
		<-d
		return nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-d:
		return nil
	case <-timer.C:
		return ErrShutdownTimeout
	}
}
