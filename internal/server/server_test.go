package server

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/honeyfeed/internal/bus"
	"github.com/crimson-sun/honeyfeed/internal/live"
)

type fixture struct {
	feed *bus.Queue[string]
	hub  *live.Hub
	srv  *httptest.Server
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	feed := bus.NewQueue[string](10)
	hub := live.New(feed, 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Serve(ctx)
	}()

	srv := httptest.NewServer(New("127.0.0.1:0", hub, opts...).Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return &fixture{feed: feed, hub: hub, srv: srv}
}

func (f *fixture) waitSubscribers(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return f.hub.Len() == n }, 2*time.Second, 5*time.Millisecond)
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Get(f.srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestMetrics(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Get(f.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "honeyfeed_live_subscribers")
}

func TestStream(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, f.srv.URL+"/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	f.waitSubscribers(t, 1)
	f.feed.Push("203.0.113.9 connected via SSH")
	f.feed.Push("203.0.113.9 ran: id")

	r := bufio.NewReader(resp.Body)
	var data []string
	for len(data) < 2 {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: ") {
			data = append(data, strings.TrimSuffix(strings.TrimPrefix(line, "data: "), "\n"))
		}
	}
	assert.Equal(t, []string{"203.0.113.9 connected via SSH", "203.0.113.9 ran: id"}, data)

	cancel()
	f.waitSubscribers(t, 0)
}

func TestWebSocket(t *testing.T) {
	f := newFixture(t, WithPingPeriod(50*time.Millisecond))

	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	pinged := make(chan struct{}, 1)
	conn.SetPingHandler(func(string) error {
		select {
		case pinged <- struct{}{}:
		default:
		}
		return conn.WriteControl(websocket.PongMessage, nil, time.Now().Add(time.Second))
	})

	f.waitSubscribers(t, 1)
	f.feed.Push("198.51.100.7 logged in as root via Telnet")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	typ, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, typ)
	assert.Equal(t, "198.51.100.7 logged in as root via Telnet", string(msg))

	// Pings are handled inside ReadMessage; keep reading until one arrives.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	select {
	case <-pinged:
	case <-time.After(2 * time.Second):
		t.Fatal("no ping received")
	}

	conn.Close()
	f.waitSubscribers(t, 0)
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, WithRateLimit(1, time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, f.srv.URL+"/stream", nil)
	first, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer first.Body.Close()
	assert.Equal(t, http.StatusOK, first.StatusCode)

	second, err := http.Get(f.srv.URL + "/stream")
	require.NoError(t, err)
	defer second.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)

	health, err := http.Get(f.srv.URL + "/healthz")
	require.NoError(t, err)
	defer health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode, "health checks are not limited")
}

func TestServe_ListenAndShutdown(t *testing.T) {
	hub := live.New(bus.NewQueue[string](1), 1)
	s := New("127.0.0.1:0", hub)
	require.NoError(t, s.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + s.Addr() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestListen_Error(t *testing.T) {
	hub := live.New(bus.NewQueue[string](1), 1)
	first := New("127.0.0.1:0", hub)
	require.NoError(t, first.Listen())
	defer first.ln.Close()

	err := New(first.Addr(), hub).Listen()
	assert.ErrorContains(t, err, "server listen")
}
