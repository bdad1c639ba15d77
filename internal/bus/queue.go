package bus

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Pop once a closed queue has been drained.
var ErrClosed = errors.New("bus: queue closed")

// Queue is a bounded FIFO that discards its oldest item to admit a new one
// when full. Any number of goroutines may Push and Pop.
type Queue[T any] struct {
	mu      sync.Mutex
	buf     []T
	head    int
	size    int
	closed  bool
	dropped uint64
	wake    chan struct{}
	onDrop  func()
}

// NewQueue creates a Queue holding at most capacity items.
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue[T]{
		buf:  make([]T, capacity),
		wake: make(chan struct{}, 1),
	}
}

// Push appends v, discarding the oldest item if the queue is full.
// It reports whether an item was discarded. Push on a closed queue is a no-op.
func (q *Queue[T]) Push(v T) (dropped bool) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	if q.size == len(q.buf) {
		var zero T
		q.buf[q.head] = zero
		q.head = (q.head + 1) % len(q.buf)
		q.size--
		q.dropped++
		dropped = true
	}
	q.buf[(q.head+q.size)%len(q.buf)] = v
	q.size++
	onDrop := q.onDrop
	q.mu.Unlock()

	if dropped && onDrop != nil {
		onDrop()
	}
	q.signal()
	return dropped
}

// Pop removes and returns the oldest item, blocking until one is available,
// ctx is done, or the queue is closed and empty.
func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	for {
		if v, ok, closed := q.tryPop(); ok {
			return v, nil
		} else if closed {
			var zero T
			return zero, ErrClosed
		}
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-q.wake:
		}
	}
}

func (q *Queue[T]) tryPop() (v T, ok, closed bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.size == 0 {
		if q.closed {
			// Pass the wake-up on so every blocked consumer sees the close.
			q.signal()
		}
		return v, false, q.closed
	}
	v = q.buf[q.head]
	var zero T
	q.buf[q.head] = zero
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	if q.size > 0 {
		// Let another waiting consumer pick up the remainder.
		q.signal()
	}
	return v, true, q.closed
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Cap returns the queue capacity.
func (q *Queue[T]) Cap() int {
	return len(q.buf)
}

// Dropped returns how many items have been discarded by overflow.
func (q *Queue[T]) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Close wakes blocked consumers; remaining items can still be popped.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

// OnDrop registers f to run (outside the lock) each time an item is discarded.
func (q *Queue[T]) OnDrop(f func()) {
	q.mu.Lock()
	q.onDrop = f
	q.mu.Unlock()
}

func (q *Queue[T]) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
