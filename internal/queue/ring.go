package queue

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
)

const (
	// cacheLine keeps head and tail on separate cache lines.
	cacheLine = 128
	// spinLimit is how many failed attempts a caller makes before it parks.
	spinLimit = 16
)

type slot[T any] struct {
	sequence uint64
	value    T
}

// Ring is a bounded lock-free multi-producer multi-consumer queue
// (Vyukov's sequence-numbered ring). Full producers and empty consumers
// spin briefly and then park until the other side makes progress.
type Ring[T any] struct {
	ring []slot[T]
	mask uint64

	_    [cacheLine]byte
	head uint64
	_    [cacheLine - 8]byte
	tail uint64
	_    [cacheLine - 8]byte

	items *signal
	space *signal

	quit     chan struct{}
	drained  chan struct{}
	closeMu  sync.RWMutex
	closed   atomic.Bool
	once     sync.Once
	capacity int
}

// minRingSlots is the smallest ring that keeps a slot's push and pop
// sequence numbers distinct.
const minRingSlots = 2

// NewRing creates a ring holding at least capacity items; the capacity is
// rounded up to a power of two, and never below two.
func NewRing[T any](capacity int) *Ring[T] {
	capacity = nextPowerOfTwo(max(capacity, minRingSlots))

	ring := make([]slot[T], capacity)
	for i := range ring {
		ring[i].sequence = uint64(i) // #nosec G115 -- i is a ring index
	}

	return &Ring[T]{
		ring:     ring,
		mask:     uint64(capacity - 1), // #nosec G115 -- capacity is positive
		items:    newSignal(),
		space:    newSignal(),
		quit:     make(chan struct{}),
		drained:  make(chan struct{}),
		capacity: capacity,
	}
}

func (q *Ring[T]) Enqueue(ctx context.Context, v T) error {
	q.closeMu.RLock()
	defer q.closeMu.RUnlock()

	if q.closed.Load() {
		return ErrClosed
	}

	spins := 0
	for {
		if q.push(v) {
			q.items.notify()
			return nil
		}

		spins++
		if spins < spinLimit {
			runtime.Gosched()
			continue
		}

		wait := q.space.arm()
		if q.push(v) {
			q.space.disarm()
			q.items.notify()
			return nil
		}

		select {
		case <-wait:
		case <-q.quit:
			q.space.disarm()
			return ErrClosed
		case <-ctx.Done():
			q.space.disarm()
			return ctx.Err()
		}
		q.space.disarm()
		spins = 0
	}
}

func (q *Ring[T]) Dequeue(ctx context.Context) (T, error) {
	var zero T
	spins := 0

	for {
		if v, ok := q.TryDequeue(); ok {
			return v, nil
		}
		if q.isDrained() {
			return zero, ErrClosed
		}

		spins++
		if spins < spinLimit {
			runtime.Gosched()
			continue
		}

		wait := q.items.arm()
		if v, ok := q.TryDequeue(); ok {
			q.items.disarm()
			return v, nil
		}

		select {
		case <-wait:
		case <-q.drained:
		case <-ctx.Done():
			q.items.disarm()
			return zero, ctx.Err()
		}
		q.items.disarm()
		spins = 0
	}
}

func (q *Ring[T]) TryDequeue() (T, bool) {
	v, ok := q.pop()
	if ok {
		q.space.notify()
	}
	return v, ok
}

// push claims the tail slot. It returns false only when the ring is full.
func (q *Ring[T]) push(v T) bool {
	for {
		tail := atomic.LoadUint64(&q.tail)
		s := &q.ring[tail&q.mask]
		seq := atomic.LoadUint64(&s.sequence)
		diff := int64(seq) - int64(tail) // #nosec G115 -- sequence comparison

		switch {
		case diff == 0:
			if atomic.CompareAndSwapUint64(&q.tail, tail, tail+1) {
				s.value = v
				atomic.StoreUint64(&s.sequence, tail+1)
				return true
			}
		case diff < 0:
			return false
		}
	}
}

// pop claims the head slot. It returns false only when the ring is empty.
func (q *Ring[T]) pop() (T, bool) {
	var zero T
	for {
		head := atomic.LoadUint64(&q.head)
		s := &q.ring[head&q.mask]
		seq := atomic.LoadUint64(&s.sequence)
		diff := int64(seq) - int64(head+1) // #nosec G115 -- sequence comparison

		switch {
		case diff == 0:
			if atomic.CompareAndSwapUint64(&q.head, head, head+1) {
				v := s.value
				s.value = zero
				// hand the slot back to producers one lap ahead
				atomic.StoreUint64(&s.sequence, head+q.mask+1)
				return v, true
			}
		case diff < 0:
			return zero, false
		}
	}
}

// isDrained reports whether the ring is closed and empty. Once closed is
// set no producer is mid-push, so head == tail means nothing is left.
func (q *Ring[T]) isDrained() bool {
	return q.closed.Load() && q.Len() == 0
}

func (q *Ring[T]) Close() {
	q.once.Do(func() {
		close(q.quit)

		q.closeMu.Lock()
		q.closed.Store(true)
		q.closeMu.Unlock()

		close(q.drained)
	})
}

func (q *Ring[T]) Len() int {
	head := atomic.LoadUint64(&q.head)
	tail := atomic.LoadUint64(&q.tail)
	if tail > head {
		return int(tail - head) // #nosec G115 -- bounded by capacity
	}
	return 0
}

func (q *Ring[T]) Cap() int { return q.capacity }
