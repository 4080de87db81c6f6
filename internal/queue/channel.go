package queue

import (
	"context"
	"sync"
)

// Channel is a bounded queue backed by a buffered Go channel.
type Channel[T any] struct {
	ch   chan T
	quit chan struct{}
	once sync.Once

	// mu orders in-flight sends before close(ch)
	mu     sync.RWMutex
	closed bool
}

// NewChannel creates a channel queue holding up to capacity items.
// A capacity of zero makes every Enqueue wait for a receiving consumer.
func NewChannel[T any](capacity int) *Channel[T] {
	return &Channel[T]{
		ch:   make(chan T, max(capacity, 0)),
		quit: make(chan struct{}),
	}
}

func (q *Channel[T]) Enqueue(ctx context.Context, v T) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrClosed
	}

	select {
	case q.ch <- v:
		return nil
	case <-q.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Channel[T]) Dequeue(ctx context.Context) (T, error) {
	select {
	case v, ok := <-q.ch:
		if !ok {
			var zero T
			return zero, ErrClosed
		}
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (q *Channel[T]) TryDequeue() (T, bool) {
	select {
	case v, ok := <-q.ch:
		return v, ok
	default:
		var zero T
		return zero, false
	}
}

func (q *Channel[T]) Close() {
	q.once.Do(func() {
		close(q.quit)

		q.mu.Lock()
		q.closed = true
		close(q.ch)
		q.mu.Unlock()
	})
}

func (q *Channel[T]) Len() int { return len(q.ch) }

func (q *Channel[T]) Cap() int { return cap(q.ch) }
