// Package bus fans classified events out to the live feed and the
// notifier through two independently bounded, drop-oldest queues.
package bus

import (
	"context"

	"github.com/crimson-sun/honeyfeed/internal/metrics"
	"github.com/crimson-sun/honeyfeed/internal/model"
	"github.com/crimson-sun/honeyfeed/internal/output"
)

const (
	DefaultFeedCapacity   = 500
	DefaultNotifyCapacity = 200
)

// Bus holds the feed queue (rendered summaries) and the notify queue
// (webhook payloads). Publishing never blocks and never fails: a full queue
// sheds its oldest entry.
type Bus struct {
	feed   *Queue[string]
	notify *Queue[model.Notification]
}

// New creates a Bus with the given queue capacities; non-positive values
// fall back to the defaults.
func New(feedCap, notifyCap int) *Bus {
	if feedCap <= 0 {
		feedCap = DefaultFeedCapacity
	}
	if notifyCap <= 0 {
		notifyCap = DefaultNotifyCapacity
	}
	b := &Bus{
		feed:   NewQueue[string](feedCap),
		notify: NewQueue[model.Notification](notifyCap),
	}
	b.feed.OnDrop(func() { metrics.QueueDropped.WithLabelValues("feed").Inc() })
	b.notify.OnDrop(func() { metrics.QueueDropped.WithLabelValues("notify").Inc() })
	return b
}

// Publish renders e and enqueues it for both consumers.
func (b *Bus) Publish(e model.Event) {
	summary := e.Summary
	if summary == "" {
		summary = output.FormatSummary(e)
	}
	b.feed.Push(summary)
	b.notify.Push(output.FormatNotification(e))

	metrics.QueueDepth.WithLabelValues("feed").Set(float64(b.feed.Len()))
	metrics.QueueDepth.WithLabelValues("notify").Set(float64(b.notify.Len()))
}

// Write implements output.Output.
func (b *Bus) Write(_ context.Context, e model.Event) error {
	b.Publish(e)
	return nil
}

// Close wakes every consumer blocked on either queue.
func (b *Bus) Close() error {
	b.feed.Close()
	b.notify.Close()
	return nil
}

// Feed is the queue drained by the live feed.
func (b *Bus) Feed() *Queue[string] { return b.feed }

// Notify is the queue drained by the notification sender.
func (b *Bus) Notify() *Queue[model.Notification] { return b.notify }
