package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sourcegraph/conc/panics"
)

// queueConfig defines a test configuration for a queue kind
type queueConfig struct {
	name    string
	bounded bool
	opts    []Option
}

func allQueues() []queueConfig {
	return []queueConfig{
		{name: "Channel", bounded: true, opts: []Option{WithQueue(QueueChannel)}},
		{name: "Ring", bounded: true, opts: []Option{WithQueue(QueueRing)}},
		{name: "Unbounded", bounded: false, opts: []Option{WithQueue(QueueUnbounded)}},
	}
}

func runQueueTest(t *testing.T, testFunc func(t *testing.T, qc queueConfig), additionalOpts ...Option) {
	for _, qc := range allQueues() {
		qc.opts = append(qc.opts, additionalOpts...)
		t.Run(qc.name, func(t *testing.T) {
			testFunc(t, qc)
		})
	}
}

func newTestPool(t *testing.T, size int, opts ...Option) *Pool {
	t.Helper()
	p, err := New(size, opts...)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	return p
}

// fillQueue submits no-op tasks until every queue slot is taken.
func fillQueue(t *testing.T, p *Pool) {
	t.Helper()
	for range p.queue.Cap() {
		if err := p.Execute(func() {}); err != nil {
			t.Fatalf("failed to fill queue: %v", err)
		}
	}
}

// waitOrFail fails the test if ch is not closed within d.
func waitOrFail(t *testing.T, ch <-chan struct{}, d time.Duration, msg string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(d):
		t.Fatal(msg)
	}
}

func TestNew_InvalidSize(t *testing.T) {
	for _, size := range []int{0, -1, -100} {
		p, err := New(size)
		if !errors.Is(err, ErrInvalidSize) {
			t.Errorf("size %d: expected ErrInvalidSize, got %v", size, err)
		}
		if p != nil {
			t.Errorf("size %d: expected nil pool", size)
		}
	}
}

func TestNew_InvalidCapacity(t *testing.T) {
	_, err := New(2, WithQueueCapacity(-1))
	if !errors.Is(err, ErrInvalidCapacity) {
		t.Errorf("expected ErrInvalidCapacity, got %v", err)
	}
}

func TestPool_ExecutesAllTasks(t *testing.T) {
	runQueueTest(t, func(t *testing.T, qc queueConfig) {
		p := newTestPool(t, 4, qc.opts...)

		const n = 1000
		var count atomic.Int64
		for range n {
			if err := p.Execute(func() { count.Add(1) }); err != nil {
				t.Fatalf("execute failed: %v", err)
			}
		}

		if err := p.Shutdown(5 * time.Second); err != nil {
			t.Fatalf("shutdown failed: %v", err)
		}
		if count.Load() != n {
			t.Errorf("expected %d tasks to run, got %d", n, count.Load())
		}

		stats := p.Stats()
		if stats.Completed != n {
			t.Errorf("expected %d completed, got %d", n, stats.Completed)
		}
		if stats.Workers != 4 {
			t.Errorf("expected 4 workers, got %d", stats.Workers)
		}
	})
}

func TestPool_ConcurrencyBound(t *testing.T) {
	runQueueTest(t, func(t *testing.T, qc queueConfig) {
		const workers = 3
		p := newTestPool(t, workers, qc.opts...)

		var inFlight, peak atomic.Int64
		for range 30 {
			err := p.Execute(func() {
				cur := inFlight.Add(1)
				for {
					old := peak.Load()
					if cur <= old || peak.CompareAndSwap(old, cur) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				inFlight.Add(-1)
			})
			if err != nil {
				t.Fatalf("execute failed: %v", err)
			}
		}

		if err := p.Shutdown(10 * time.Second); err != nil {
			t.Fatalf("shutdown failed: %v", err)
		}
		if peak.Load() > workers {
			t.Errorf("expected at most %d concurrent tasks, saw %d", workers, peak.Load())
		}
		if peak.Load() == 0 {
			t.Error("expected tasks to run")
		}
	})
}

func TestPool_NilTask(t *testing.T) {
	p := newTestPool(t, 1)
	defer p.Shutdown(time.Second)

	if err := p.Execute(nil); !errors.Is(err, ErrNilTask) {
		t.Errorf("expected ErrNilTask, got %v", err)
	}
}

func TestPool_Shutdown(t *testing.T) {
	t.Run("execute after shutdown fails", func(t *testing.T) {
		runQueueTest(t, func(t *testing.T, qc queueConfig) {
			p := newTestPool(t, 2, qc.opts...)
			if err := p.Shutdown(time.Second); err != nil {
				t.Fatalf("shutdown failed: %v", err)
			}
			if err := p.Execute(func() {}); !errors.Is(err, ErrPoolClosed) {
				t.Errorf("expected ErrPoolClosed, got %v", err)
			}
		})
	})

	t.Run("double shutdown fails", func(t *testing.T) {
		p := newTestPool(t, 2)
		if err := p.Shutdown(time.Second); err != nil {
			t.Fatalf("first shutdown failed: %v", err)
		}
		if err := p.Shutdown(time.Second); !errors.Is(err, ErrPoolClosed) {
			t.Errorf("expected ErrPoolClosed, got %v", err)
		}
	})

	t.Run("drains queued tasks", func(t *testing.T) {
		runQueueTest(t, func(t *testing.T, qc queueConfig) {
			p := newTestPool(t, 1, append(qc.opts, WithQueueCapacity(64))...)

			var count atomic.Int64
			for range 50 {
				_ = p.Execute(func() {
					time.Sleep(time.Millisecond)
					count.Add(1)
				})
			}

			if err := p.Shutdown(0); err != nil {
				t.Fatalf("shutdown failed: %v", err)
			}
			if count.Load() != 50 {
				t.Errorf("expected all 50 queued tasks to run before shutdown returned, got %d", count.Load())
			}
		})
	})

	t.Run("timeout while task runs", func(t *testing.T) {
		p := newTestPool(t, 1)

		gate := make(chan struct{})
		started := make(chan struct{})
		_ = p.Execute(func() {
			close(started)
			<-gate
		})
		<-started

		if err := p.Shutdown(20 * time.Millisecond); !errors.Is(err, ErrShutdownTimeout) {
			t.Errorf("expected ErrShutdownTimeout, got %v", err)
		}

		close(gate)
		waitOrFail(t, p.Done(), 2*time.Second, "workers did not exit after the task finished")
	})
}

func TestPool_PanicRecovery(t *testing.T) {
	runQueueTest(t, func(t *testing.T, qc queueConfig) {
		var (
			mu        sync.Mutex
			recovered []any
		)
		handler := func(_ int, r *panics.Recovered) {
			mu.Lock()
			recovered = append(recovered, r.Value)
			mu.Unlock()
		}

		p := newTestPool(t, 1, append(qc.opts, WithPanicHandler(handler))...)

		var after atomic.Bool
		_ = p.Execute(func() { panic("boom") })
		_ = p.Execute(func() { after.Store(true) })

		if err := p.Shutdown(2 * time.Second); err != nil {
			t.Fatalf("shutdown failed: %v", err)
		}

		if !after.Load() {
			t.Error("worker should keep running tasks after a panic")
		}
		if len(recovered) != 1 || recovered[0] != "boom" {
			t.Errorf("expected handler to receive \"boom\", got %v", recovered)
		}

		stats := p.Stats()
		if stats.Panicked != 1 {
			t.Errorf("expected 1 panicked task, got %d", stats.Panicked)
		}
		if stats.Completed != 2 {
			t.Errorf("expected 2 completed tasks, got %d", stats.Completed)
		}
	})
}

func TestPool_PanicWithoutHandler(t *testing.T) {
	p := newTestPool(t, 1)

	var after atomic.Bool
	_ = p.Execute(func() { panic(errors.New("no handler")) })
	_ = p.Execute(func() { after.Store(true) })

	if err := p.Shutdown(2 * time.Second); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
	if !after.Load() {
		t.Error("worker should survive a panic without a handler")
	}
}

func TestPool_IdleHandler(t *testing.T) {
	var idle atomic.Int64
	p := newTestPool(t, 2, WithIdleHandler(func(int) { idle.Add(1) }))

	_ = p.Execute(func() {})
	if err := p.Shutdown(time.Second); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	// every worker goes idle at least once before exiting
	if idle.Load() < 2 {
		t.Errorf("expected idle handler to run at least twice, got %d", idle.Load())
	}
}

func TestPool_Backpressure(t *testing.T) {
	runQueueTest(t, func(t *testing.T, qc queueConfig) {
		if !qc.bounded {
			t.Skip("unbounded queue applies no backpressure")
		}

		p := newTestPool(t, 1, append(qc.opts, WithQueueCapacity(1))...)
		defer p.Shutdown(2 * time.Second)

		gate := make(chan struct{})
		started := make(chan struct{})
		_ = p.Execute(func() {
			close(started)
			<-gate
		})
		<-started

		fillQueue(t, p)

		submitted := make(chan struct{})
		go func() {
			_ = p.Execute(func() {})
			close(submitted)
		}()

		select {
		case <-submitted:
			t.Fatal("execute should block while the queue is full")
		case <-time.After(30 * time.Millisecond):
		}

		close(gate)
		waitOrFail(t, submitted, 2*time.Second, "blocked execute did not resume after space freed")
	})
}

func TestPool_ExecuteContext(t *testing.T) {
	runQueueTest(t, func(t *testing.T, qc queueConfig) {
		if !qc.bounded {
			t.Skip("unbounded queue never waits")
		}

		p := newTestPool(t, 1, append(qc.opts, WithQueueCapacity(1))...)

		gate := make(chan struct{})
		started := make(chan struct{})
		_ = p.Execute(func() {
			close(started)
			<-gate
		})
		<-started
		fillQueue(t, p)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		if err := p.ExecuteContext(ctx, func() {}); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected context.DeadlineExceeded, got %v", err)
		}

		close(gate)
		if err := p.Shutdown(2 * time.Second); err != nil {
			t.Fatalf("shutdown failed: %v", err)
		}
	})
}

func TestPool_BlockedExecuteReleasedByShutdown(t *testing.T) {
	runQueueTest(t, func(t *testing.T, qc queueConfig) {
		if !qc.bounded {
			t.Skip("unbounded queue never waits")
		}

		p := newTestPool(t, 1, append(qc.opts, WithQueueCapacity(1))...)

		gate := make(chan struct{})
		started := make(chan struct{})
		_ = p.Execute(func() {
			close(started)
			<-gate
		})
		<-started
		fillQueue(t, p)

		errCh := make(chan error, 1)
		go func() {
			errCh <- p.Execute(func() {})
		}()
		time.Sleep(20 * time.Millisecond)

		shutdownErr := make(chan error, 1)
		go func() {
			shutdownErr <- p.Shutdown(0)
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, ErrPoolClosed) {
				t.Errorf("expected ErrPoolClosed, got %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("shutdown did not release the blocked submitter")
		}

		close(gate)
		select {
		case err := <-shutdownErr:
			if err != nil {
				t.Errorf("shutdown failed: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("shutdown did not finish")
		}
	})
}

func TestPool_RateLimit(t *testing.T) {
	p := newTestPool(t, 4, WithRateLimit(20, 1))

	const n = 6
	start := time.Now()
	for range n {
		_ = p.Execute(func() {})
	}
	if err := p.Shutdown(5 * time.Second); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	// burst of 1 then 50ms per token
	if elapsed := time.Since(start); elapsed < 200*time.Millisecond {
		t.Errorf("expected rate limiting to take at least 200ms, took %v", elapsed)
	}
}

func TestPool_RateLimitIgnoresInvalid(t *testing.T) {
	p := newTestPool(t, 1, WithRateLimit(0, 1), WithRateLimit(10, 0))
	defer p.Shutdown(time.Second)

	if p.conf.limiter != nil {
		t.Error("expected invalid rate limits to be ignored")
	}
}

func TestPool_RateLimitHonoursSubmitterContext(t *testing.T) {
	// one token every two seconds
	p := newTestPool(t, 1, WithRateLimit(0.5, 1), WithQueueCapacity(4))

	ctx, cancel := context.WithCancel(context.Background())
	var ran atomic.Int64
	for range 3 {
		if err := p.ExecuteContext(ctx, func() { ran.Add(1) }); err != nil {
			t.Fatalf("execute failed: %v", err)
		}
	}

	time.Sleep(50 * time.Millisecond)
	cancel()

	start := time.Now()
	if err := p.Shutdown(5 * time.Second); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("cancelled tasks still waited for tokens: drain took %v", elapsed)
	}
	if ran.Load() != 3 {
		t.Errorf("expected all 3 tasks to run, got %d", ran.Load())
	}
}

func TestPool_RateLimitPastDeadlineStillThrottles(t *testing.T) {
	// one token every 500ms, far beyond the submitter's deadline
	p := newTestPool(t, 1, WithRateLimit(2, 1))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	for range 2 {
		if err := p.ExecuteContext(ctx, func() {}); err != nil {
			t.Fatalf("execute failed: %v", err)
		}
	}
	if err := p.Shutdown(5 * time.Second); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	// the second task waits for its token even though the deadline is shorter
	if elapsed := time.Since(start); elapsed < 400*time.Millisecond {
		t.Errorf("expected the limiter to hold the second task, took %v", elapsed)
	}
}

func TestPool_CPUAffinity(t *testing.T) {
	p := newTestPool(t, 2, WithCPUAffinity())

	var count atomic.Int64
	for range 20 {
		_ = p.Execute(func() { count.Add(1) })
	}
	if err := p.Shutdown(2 * time.Second); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
	if count.Load() != 20 {
		t.Errorf("expected 20 tasks, got %d", count.Load())
	}
}

func TestPool_ConcurrentSubmitters(t *testing.T) {
	runQueueTest(t, func(t *testing.T, qc queueConfig) {
		p := newTestPool(t, 4, qc.opts...)

		var (
			wg    sync.WaitGroup
			count atomic.Int64
		)
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range 250 {
					if err := p.Execute(func() { count.Add(1) }); err != nil {
						t.Errorf("execute failed: %v", err)
						return
					}
				}
			}()
		}
		wg.Wait()

		if err := p.Shutdown(5 * time.Second); err != nil {
			t.Fatalf("shutdown failed: %v", err)
		}
		if count.Load() != 2000 {
			t.Errorf("expected 2000 tasks, got %d", count.Load())
		}
	})
}

func TestQueueKind(t *testing.T) {
	for _, k := range []QueueKind{QueueChannel, QueueRing, QueueUnbounded} {
		got, ok := ParseQueueKind(k.String())
		if !ok || got != k {
			t.Errorf("ParseQueueKind(%q) = %v, %v", k.String(), got, ok)
		}
	}

	if _, ok := ParseQueueKind("lmax"); ok {
		t.Error("expected unknown queue name to be rejected")
	}
}

func TestPool_Size(t *testing.T) {
	p := newTestPool(t, 8)
	defer p.Shutdown(time.Second)

	if p.Size() != 8 {
		t.Errorf("expected size 8, got %d", p.Size())
	}
}
