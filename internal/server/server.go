// Package server exposes the live feed over HTTP: server-sent events on
// /stream, WebSocket text frames on /ws, Prometheus metrics on /metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crimson-sun/honeyfeed/internal/live"
)

const (
	defaultPingPeriod      = 30 * time.Second
	defaultRateLimit       = 30
	defaultRateWindow      = time.Minute
	defaultShutdownTimeout = 5 * time.Second
)

// Option configures a Server.
type Option func(*Server)

// WithPingPeriod sets how often WebSocket clients are pinged. Default: 30s.
func WithPingPeriod(d time.Duration) Option {
	return func(s *Server) { s.pingPeriod = d }
}

// WithRateLimit caps new feed subscriptions per client IP. n <= 0 disables
// the limit. Default: 30 per minute.
func WithRateLimit(n int, window time.Duration) Option {
	return func(s *Server) { s.rateLimit, s.rateWindow = n, window }
}

// Server serves the live feed.
type Server struct {
	hub        *live.Hub
	addr       string
	pingPeriod time.Duration
	rateLimit  int
	rateWindow time.Duration

	ln  net.Listener
	srv *http.Server
}

// New creates a Server for hub listening on addr.
func New(addr string, hub *live.Hub, opts ...Option) *Server {
	s := &Server{
		hub:        hub,
		addr:       addr,
		pingPeriod: defaultPingPeriod,
		rateLimit:  defaultRateLimit,
		rateWindow: defaultRateWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the chi router with every route mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if s.rateLimit > 0 {
			r.Use(httprate.LimitByIP(s.rateLimit, s.rateWindow))
		}
		r.Get("/stream", s.handleStream)
		r.Get("/ws", s.handleWS)
	})
	return r
}

// Listen binds the listening socket. Calling it before Serve surfaces bind
// errors at startup.
func (s *Server) Listen() error {
	if s.ln != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("server listen %s: %w", s.addr, err)
	}
	s.ln = ln
	slog.Info("live feed listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// Serve handles requests until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.srv.BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(s.ln) }()

	select {
	case err := <-errCh:
		s.ln = nil
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("server shutdown", "error", err)
	}
	s.ln = nil
	return ctx.Err()
}
