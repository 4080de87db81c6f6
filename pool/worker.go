package pool

import (
	"context"
	"errors"

	"github.com/sourcegraph/conc/panics"

	"github.com/utkarsh5026/parmap/internal/cpu"
	"github.com/utkarsh5026/parmap/internal/queue"
)

// worker pulls tasks until the queue is closed and drained.
func (p *Pool) worker(id int) error {
	if p.conf.affinity {
		release, err := cpu.Pin(id)
		defer release()
		if err != nil {
			p.log.Debug("cpu pinning unavailable", "worker", id, "err", err)
		}
	}

	ctx := context.Background()
	for {
		e, ok := p.queue.TryDequeue()
		if !ok {
			if p.conf.onIdle != nil {
				p.conf.onIdle(id)
			}

			var err error
			e, err = p.queue.Dequeue(ctx)
			if errors.Is(err, queue.ErrClosed) {
				return nil
			}
			if err != nil {
				return err
			}
		}

		p.run(id, e)
	}
}

// run executes one task, converting a panic into a counted, reported event
// so the worker survives it.
func (p *Pool) run(id int, e entry) {
	if p.conf.limiter != nil {
		p.throttle(e.ctx, id)
	}

	p.active.Add(1)
	var pc panics.Catcher
	pc.Try(e.task)
	p.active.Add(-1)

	if r := pc.Recovered(); r != nil {
		p.panicked.Add(1)
		if p.conf.onPanic != nil {
			p.conf.onPanic(id, r)
		} else {
			p.log.Error("task panicked", "worker", id, "panic", r.Value, "stack", string(r.Stack))
		}
	}
	p.completed.Add(1)
}

// throttle waits for a rate limiter token under the submitter's ctx. A
// cancelled submitter skips the wait; its task still runs and sees ctx
// done. A token that would outlast the deadline is waited for anyway.
func (p *Pool) throttle(ctx context.Context, id int) {
	err := p.conf.limiter.Wait(ctx)
	if err == nil || ctx.Err() != nil {
		return
	}

	p.log.Debug("rate limiter wait exceeds deadline", "worker", id, "err", err)
	if err := p.conf.limiter.Wait(context.Background()); err != nil {
		p.log.Warn("rate limiter wait failed", "worker", id, "err", err)
	}
}
