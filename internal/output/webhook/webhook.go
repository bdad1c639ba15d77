// Package webhook delivers notifications from the notify queue to a
// Discord-compatible webhook, one at a time and no faster than the
// configured rate.
package webhook

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/crimson-sun/honeyfeed/internal/bus"
	"github.com/crimson-sun/honeyfeed/internal/httpclient"
	"github.com/crimson-sun/honeyfeed/internal/metrics"
	"github.com/crimson-sun/honeyfeed/internal/model"
)

const (
	DefaultTimeout   = 4 * time.Second
	DefaultInterval  = 1200 * time.Millisecond
	DefaultBurst     = 1
	DefaultIdlePause = time.Second
)

// Option configures a Sender.
type Option func(*Sender)

// WithTimeout sets the per-request timeout. Default: 4s.
func WithTimeout(d time.Duration) Option {
	return func(s *Sender) { s.timeout = d }
}

// WithInterval sets the minimum spacing between deliveries. Default: 1.2s.
func WithInterval(d time.Duration) Option {
	return func(s *Sender) { s.interval = d }
}

// WithBurst sets how many deliveries may go out back to back. Default: 1.
func WithBurst(n int) Option {
	return func(s *Sender) { s.burst = n }
}

// WithIdlePause sets how long a notification is held before being discarded
// when no URL is configured. Default: 1s.
func WithIdlePause(d time.Duration) Option {
	return func(s *Sender) { s.idlePause = d }
}

// payload is the webhook request body.
type payload struct {
	Embeds []model.Notification `json:"embeds"`
}

// Sender is the single consumer of the notify queue. Every failure is logged
// and counted; nothing is retried.
type Sender struct {
	queue     *bus.Queue[model.Notification]
	url       string
	timeout   time.Duration
	interval  time.Duration
	burst     int
	idlePause time.Duration

	client  *httpclient.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// New creates a Sender draining q. An empty url disables delivery: queued
// notifications are discarded after the idle pause.
func New(q *bus.Queue[model.Notification], url string, opts ...Option) *Sender {
	s := &Sender{
		queue:     q,
		url:       url,
		timeout:   DefaultTimeout,
		interval:  DefaultInterval,
		burst:     DefaultBurst,
		idlePause: DefaultIdlePause,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.burst < 1 {
		s.burst = 1
	}

	s.client = httpclient.New(url, httpclient.WithTimeout(s.timeout))
	s.limiter = rate.NewLimiter(rate.Every(s.interval), s.burst)
	s.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:    "webhook",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			open := 0.0
			if to == gobreaker.StateOpen {
				open = 1
			}
			metrics.BreakerState.WithLabelValues(name).Set(open)
		},
	})
	return s
}

// Serve delivers notifications until ctx is cancelled or the queue is
// closed and drained.
func (s *Sender) Serve(ctx context.Context) error {
	for {
		n, err := s.queue.Pop(ctx)
		if err != nil {
			if errors.Is(err, bus.ErrClosed) {
				return nil
			}
			return err
		}
		s.deliver(ctx, n)
	}
}

func (s *Sender) deliver(ctx context.Context, n model.Notification) {
	if s.url == "" {
		metrics.Notifications.WithLabelValues("discarded").Inc()
		sleep(ctx, s.idlePause)
		return
	}

	if err := s.limiter.Wait(ctx); err != nil {
		// Only fails on cancellation; the notification goes down with us.
		return
	}

	_, err := s.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, s.client.PostJSON(ctx, "", payload{Embeds: []model.Notification{n}})
	})
	if err != nil {
		metrics.Notifications.WithLabelValues("failed").Inc()
		slog.Warn("webhook delivery failed", "title", n.Title, "error", err)
		return
	}
	metrics.Notifications.WithLabelValues("sent").Inc()
	slog.Debug("webhook delivered", "title", n.Title)
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
