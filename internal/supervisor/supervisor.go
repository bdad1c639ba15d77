// Package supervisor runs honeyfeed's long-lived workers under a suture
// tree: a crashing or failing worker is restarted with backoff while the
// others keep running.
package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// TreeConfig holds restart policy for every supervisor in the tree.
type TreeConfig struct {
	// FailureThreshold is the number of failures before entering backoff.
	FailureThreshold float64
	// FailureDecay is the rate at which failures decay, in seconds.
	FailureDecay float64
	// FailureBackoff is how long to wait once the threshold is exceeded.
	FailureBackoff time.Duration
	// ShutdownTimeout bounds how long each service gets to stop.
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig returns the production restart policy.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Tree has two layers: ingest (tail → classify → publish) and delivery
// (live hub, HTTP server, webhook sender). They restart independently.
type Tree struct {
	logger   *slog.Logger
	timeout  time.Duration
	root     *suture.Supervisor
	ingest   *suture.Supervisor
	delivery *suture.Supervisor
}

// New builds the tree; zero fields in cfg take their defaults.
func New(logger *slog.Logger, cfg TreeConfig) *Tree {
	def := DefaultTreeConfig()
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.FailureDecay == 0 {
		cfg.FailureDecay = def.FailureDecay
	}
	if cfg.FailureBackoff == 0 {
		cfg.FailureBackoff = def.FailureBackoff
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	handler := &sutureslog.Handler{Logger: logger}
	spec := suture.Spec{
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	}
	rootSpec := spec
	rootSpec.EventHook = handler.MustHook()
	// The layers get their full timeout before the root gives up on them, so
	// each layer can name its own stuck services.
	rootSpec.Timeout = 2 * cfg.ShutdownTimeout

	t := &Tree{
		logger:   logger,
		timeout:  cfg.ShutdownTimeout,
		root:     suture.New("honeyfeed", rootSpec),
		ingest:   suture.New("ingest", spec),
		delivery: suture.New("delivery", spec),
	}
	t.root.Add(t.ingest)
	t.root.Add(t.delivery)
	return t
}

// AddIngest supervises an ingestion worker.
func (t *Tree) AddIngest(svc suture.Service) suture.ServiceToken {
	return t.ingest.Add(svc)
}

// AddDelivery supervises a delivery worker.
func (t *Tree) AddDelivery(svc suture.Service) suture.ServiceToken {
	return t.delivery.Add(svc)
}

// Serve runs the tree until ctx is cancelled. Normal shutdown returns nil.
// Services that outlive their shutdown timeout are logged.
func (t *Tree) Serve(ctx context.Context) error {
	err := t.root.Serve(ctx)
	t.reportUnstopped()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (t *Tree) reportUnstopped() {
	var unstopped suture.UnstoppedServiceReport
	for _, layer := range []*suture.Supervisor{t.ingest, t.delivery} {
		unstopped = append(unstopped, layerReport(layer, t.timeout)...)
	}
	if len(unstopped) == 0 {
		return
	}
	t.logger.Warn("services failed to stop within timeout", "count", len(unstopped))
	for _, svc := range unstopped {
		t.logger.Warn("service failed to stop", "service", svc.Name)
	}
}

// layerReport waits at most timeout for the layer to finish shutting down.
func layerReport(layer *suture.Supervisor, timeout time.Duration) suture.UnstoppedServiceReport {
	ch := make(chan suture.UnstoppedServiceReport, 1)
	go func() {
		report, _ := layer.UnstoppedServiceReport()
		ch <- report
	}()
	select {
	case report := <-ch:
		return report
	case <-time.After(timeout):
		return nil
	}
}

// Service adapts a Serve-style function to suture.Service.
type Service struct {
	name     string
	serve    func(context.Context) error
	terminal []error
}

// Func wraps serve as a named service. An error matching one of terminal
// ends the service for good instead of triggering a restart.
func Func(name string, serve func(context.Context) error, terminal ...error) *Service {
	return &Service{name: name, serve: serve, terminal: terminal}
}

// Serve implements suture.Service.
func (s *Service) Serve(ctx context.Context) error {
	err := s.serve(ctx)
	for _, t := range s.terminal {
		if errors.Is(err, t) {
			slog.Info("service finished", "service", s.name, "reason", err)
			return suture.ErrDoNotRestart
		}
	}
	return err
}

// String names the service in supervisor events.
func (s *Service) String() string { return s.name }
