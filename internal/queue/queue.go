// Package queue provides the task queues that feed pool workers.
//
// Every queue has the same lifecycle: producers Enqueue until Close, after
// which Enqueue fails with ErrClosed. Consumers keep receiving whatever was
// queued before Close and only then see ErrClosed, so nothing accepted is
// ever lost.
package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Enqueue after Close, and by Dequeue once a closed
// queue is empty.
var ErrClosed = errors.New("queue: closed")

// Queue is a multi-producer multi-consumer FIFO.
type Queue[T any] interface {
	// Enqueue adds v, blocking while a bounded queue is full.
	Enqueue(ctx context.Context, v T) error
	// Dequeue removes the oldest item, blocking while the queue is empty.
	Dequeue(ctx context.Context) (T, error)
	// TryDequeue removes the oldest item if one is immediately available.
	TryDequeue() (T, bool)
	// Close stops accepting items and releases blocked producers.
	Close()
	// Len is the approximate number of queued items.
	Len() int
	// Cap is the capacity, or 0 when unbounded.
	Cap() int
}

// signal is a broadcast wakeup for goroutines waiting on a state change.
// Waiters arm before re-checking the condition, so a notify that races the
// check is never lost.
type signal struct {
	mu      sync.Mutex
	ch      chan struct{}
	waiters atomic.Int32
}

func newSignal() *signal {
	return &signal{ch: make(chan struct{})}
}

func (s *signal) arm() <-chan struct{} {
	s.waiters.Add(1)
	s.mu.Lock()
	c := s.ch
	s.mu.Unlock()
	return c
}

func (s *signal) disarm() {
	s.waiters.Add(-1)
}

func (s *signal) notify() {
	if s.waiters.Load() == 0 {
		return
	}
	s.mu.Lock()
	close(s.ch)
	s.ch = make(chan struct{})
	s.mu.Unlock()
}

// nextPowerOfTwo returns the smallest power of two >= n.
func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
