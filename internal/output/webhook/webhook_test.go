package webhook

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/honeyfeed/internal/bus"
	"github.com/crimson-sun/honeyfeed/internal/metrics"
	"github.com/crimson-sun/honeyfeed/internal/model"
)

type recorder struct {
	mu     sync.Mutex
	bodies [][]byte
	times  []time.Time
	status int
}

func (r *recorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)
	r.mu.Lock()
	r.bodies = append(r.bodies, body)
	r.times = append(r.times, time.Now())
	status := r.status
	r.mu.Unlock()
	if status == 0 {
		status = http.StatusNoContent
	}
	w.WriteHeader(status)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bodies)
}

func note(title string) model.Notification {
	return model.Notification{
		Title:     title,
		Color:     0x3498db,
		Timestamp: time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC),
		Fields:    []model.Field{{Name: "IP", Value: "203.0.113.9", Inline: true}},
	}
}

func serve(t *testing.T, s *Sender) (cancel func()) {
	t.Helper()
	ctx, cancelCtx := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Serve(ctx)
	}()
	return func() {
		cancelCtx()
		<-done
	}
}

func TestSender_PostsEmbeds(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	q := bus.NewQueue[model.Notification](10)
	stop := serve(t, New(q, srv.URL, WithInterval(time.Millisecond)))
	defer stop()

	q.Push(note("New connection from 203.0.113.9"))
	require.Eventually(t, func() bool { return rec.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	var got struct {
		Embeds []struct {
			Title  string `json:"title"`
			Color  int    `json:"color"`
			Fields []struct {
				Name   string `json:"name"`
				Value  string `json:"value"`
				Inline bool   `json:"inline"`
			} `json:"fields"`
		} `json:"embeds"`
	}
	require.NoError(t, json.Unmarshal(rec.bodies[0], &got))
	require.Len(t, got.Embeds, 1)
	assert.Equal(t, "New connection from 203.0.113.9", got.Embeds[0].Title)
	assert.Equal(t, 0x3498db, got.Embeds[0].Color)
	assert.Equal(t, "IP", got.Embeds[0].Fields[0].Name)
	assert.True(t, got.Embeds[0].Fields[0].Inline)
}

func TestSender_RateLimited(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	const interval = 80 * time.Millisecond
	q := bus.NewQueue[model.Notification](10)
	for i := 0; i < 3; i++ {
		q.Push(note("n"))
	}
	stop := serve(t, New(q, srv.URL, WithInterval(interval), WithBurst(1)))
	defer stop()

	require.Eventually(t, func() bool { return rec.count() == 3 }, 3*time.Second, 10*time.Millisecond)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	for i := 1; i < len(rec.times); i++ {
		gap := rec.times[i].Sub(rec.times[i-1])
		assert.GreaterOrEqual(t, gap, interval-20*time.Millisecond, "delivery %d came too soon", i)
	}
}

func TestSender_FailureNotRetried(t *testing.T) {
	rec := &recorder{status: http.StatusInternalServerError}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	before := testutil.ToFloat64(metrics.Notifications.WithLabelValues("failed"))
	q := bus.NewQueue[model.Notification](10)
	q.Push(note("first"))
	q.Push(note("second"))
	stop := serve(t, New(q, srv.URL, WithInterval(time.Millisecond)))

	require.Eventually(t, func() bool { return rec.count() == 2 }, 2*time.Second, 10*time.Millisecond)
	stop()

	assert.Equal(t, 2, rec.count(), "each notification is attempted exactly once")
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.Notifications.WithLabelValues("failed"))-before)
}

func TestSender_FailureStillPaced(t *testing.T) {
	rec := &recorder{status: http.StatusServiceUnavailable}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	const interval = 100 * time.Millisecond
	q := bus.NewQueue[model.Notification](10)
	q.Push(note("first"))
	q.Push(note("second"))
	stop := serve(t, New(q, srv.URL, WithInterval(interval), WithBurst(1)))
	defer stop()

	require.Eventually(t, func() bool { return rec.count() == 2 }, 3*time.Second, 10*time.Millisecond)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	gap := rec.times[1].Sub(rec.times[0])
	assert.GreaterOrEqual(t, gap, interval-20*time.Millisecond, "a failed delivery still spends its slot")
}

func TestSender_NoURLDiscards(t *testing.T) {
	before := testutil.ToFloat64(metrics.Notifications.WithLabelValues("discarded"))
	q := bus.NewQueue[model.Notification](10)
	q.Push(note("a"))
	q.Push(note("b"))
	stop := serve(t, New(q, "", WithIdlePause(5*time.Millisecond)))
	defer stop()

	require.Eventually(t, func() bool { return q.Len() == 0 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.Notifications.WithLabelValues("discarded"))-before == 2
	}, time.Second, 5*time.Millisecond)
}

func TestSender_ServeReturnsOnClose(t *testing.T) {
	q := bus.NewQueue[model.Notification](1)
	s := New(q, "")
	q.Close()

	assert.NoError(t, s.Serve(context.Background()))
}

func TestSender_ServeReturnsOnCancel(t *testing.T) {
	q := bus.NewQueue[model.Notification](1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, New(q, "").Serve(ctx), context.Canceled)
}
