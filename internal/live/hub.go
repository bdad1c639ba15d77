// Package live broadcasts feed summaries to every connected observer. Each
// subscriber gets its own bounded drop-oldest queue, so a slow client only
// ever loses its own backlog.
package live

import (
	"context"
	"errors"
	"sync"

	"github.com/crimson-sun/honeyfeed/internal/bus"
	"github.com/crimson-sun/honeyfeed/internal/metrics"
)

const DefaultSubscriberCapacity = 100

// Subscription is one observer's view of the feed.
type Subscription struct {
	q *bus.Queue[string]
}

// Next blocks for the next summary. It returns bus.ErrClosed once the
// subscription has been removed or the hub has stopped.
func (s *Subscription) Next(ctx context.Context) (string, error) {
	return s.q.Pop(ctx)
}

// Dropped reports how many summaries this subscriber missed.
func (s *Subscription) Dropped() uint64 { return s.q.Dropped() }

// Hub is the single consumer of the bus feed queue.
type Hub struct {
	feed     *bus.Queue[string]
	capacity int

	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

// New creates a Hub draining feed. capacity bounds each subscriber queue.
func New(feed *bus.Queue[string], capacity int) *Hub {
	if capacity <= 0 {
		capacity = DefaultSubscriberCapacity
	}
	return &Hub{
		feed:     feed,
		capacity: capacity,
		subs:     make(map[*Subscription]struct{}),
	}
}

// Subscribe registers a new observer. Summaries published before the call
// are not replayed.
func (h *Hub) Subscribe() *Subscription {
	s := &Subscription{q: bus.NewQueue[string](h.capacity)}
	s.q.OnDrop(func() { metrics.QueueDropped.WithLabelValues("subscriber").Inc() })

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		s.q.Close()
		return s
	}
	h.subs[s] = struct{}{}
	metrics.Subscribers.Inc()
	return s
}

// Unsubscribe removes s and wakes any reader blocked on it. Safe to call
// more than once.
func (h *Hub) Unsubscribe(s *Subscription) {
	h.mu.Lock()
	_, ok := h.subs[s]
	delete(h.subs, s)
	h.mu.Unlock()

	if ok {
		metrics.Subscribers.Dec()
	}
	s.q.Close()
}

// Len returns the number of active subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Serve copies every feed summary to every subscriber until ctx is cancelled
// or the feed queue is closed. On return all subscriptions are closed.
func (h *Hub) Serve(ctx context.Context) error {
	h.mu.Lock()
	h.closed = false
	h.mu.Unlock()
	defer h.shutdown()
	for {
		summary, err := h.feed.Pop(ctx)
		if err != nil {
			if errors.Is(err, bus.ErrClosed) {
				return nil
			}
			return err
		}
		h.broadcast(summary)
	}
}

func (h *Hub) broadcast(summary string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		s.q.Push(summary)
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for s := range h.subs {
		s.q.Close()
		delete(h.subs, s)
		metrics.Subscribers.Dec()
	}
}
