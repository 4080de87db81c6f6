package queue

import (
	"context"
	"sync"
)

// List is an unbounded queue. Enqueue never waits for space, so producers
// get no backpressure; memory grows with the backlog.
type List[T any] struct {
	mu      sync.Mutex
	items   []T
	head    int
	ready   chan struct{}
	waiters int
	closed  bool
}

// NewList creates an empty unbounded queue.
func NewList[T any]() *List[T] {
	return &List[T]{ready: make(chan struct{})}
}

func (q *List[T]) Enqueue(_ context.Context, v T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}

	q.items = append(q.items, v)
	q.wakeLocked()
	return nil
}

func (q *List[T]) Dequeue(ctx context.Context) (T, error) {
	var zero T
	for {
		q.mu.Lock()
		if v, ok := q.popLocked(); ok {
			q.mu.Unlock()
			return v, nil
		}
		if q.closed {
			q.mu.Unlock()
			return zero, ErrClosed
		}
		q.waiters++
		wait := q.ready
		q.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			q.mu.Lock()
			if wait == q.ready {
				q.waiters--
			}
			q.mu.Unlock()
			return zero, ctx.Err()
		}
	}
}

func (q *List[T]) TryDequeue() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

func (q *List[T]) popLocked() (T, bool) {
	var zero T
	if q.head == len(q.items) {
		return zero, false
	}

	v := q.items[q.head]
	q.items[q.head] = zero
	q.head++

	switch {
	case q.head == len(q.items):
		q.items = q.items[:0]
		q.head = 0
	case q.head > 1024 && q.head*2 > len(q.items):
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return v, true
}

// wakeLocked releases every parked consumer.
func (q *List[T]) wakeLocked() {
	if q.waiters == 0 {
		return
	}
	close(q.ready)
	q.ready = make(chan struct{})
	q.waiters = 0
}

func (q *List[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.ready)
	q.ready = make(chan struct{})
	q.waiters = 0
}

func (q *List[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

func (q *List[T]) Cap() int { return 0 }
