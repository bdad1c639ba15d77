package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/crimson-sun/honeyfeed/internal/connector"
	"github.com/crimson-sun/honeyfeed/internal/model"
	"github.com/crimson-sun/honeyfeed/internal/output"
)

// ErrSourceClosed is returned by Serve when the connector stops producing
// lines, for example when piped input reaches EOF.
var ErrSourceClosed = errors.New("pipeline: source closed")

// ErrNotOpen is returned by Serve before a successful Open.
var ErrNotOpen = errors.New("pipeline: not open")

// Processor turns raw lines into events. *engine.Engine implements it.
type Processor interface {
	Process(ctx context.Context, raw model.RawLog) (model.Event, bool)
	ProcessBatch(ctx context.Context, raws []model.RawLog) ([]model.Event, error)
}

// Pipeline connects a connector, processor, and output into a processing
// pipeline. Lines are handled one at a time, in arrival order.
type Pipeline struct {
	connector connector.Connector
	processor Processor
	output    output.Output

	mu    sync.Mutex
	lines <-chan model.RawLog
}

// New creates a Pipeline from the given components.
func New(conn connector.Connector, proc Processor, out output.Output) *Pipeline {
	return &Pipeline{
		connector: conn,
		processor: proc,
		output:    out,
	}
}

// Open starts the connector. Its failure is fatal for the caller: there is
// nothing to serve without a source. The connector lives until ctx is done.
func (p *Pipeline) Open(ctx context.Context, cfg connector.ConnectorConfig) error {
	ch, err := p.connector.Stream(ctx, cfg)
	if err != nil {
		return fmt.Errorf("pipeline open: %w", err)
	}
	p.mu.Lock()
	p.lines = ch
	p.mu.Unlock()
	return nil
}

// Serve consumes lines from an opened connector until ctx is cancelled or
// the source closes. A failing output is logged and the line dropped; it
// never stops the pipeline.
func (p *Pipeline) Serve(ctx context.Context) error {
	p.mu.Lock()
	ch := p.lines
	p.mu.Unlock()
	if ch == nil {
		return ErrNotOpen
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-ch:
			if !ok {
				return ErrSourceClosed
			}
			p.handle(ctx, raw)
		}
	}
}

// Stream opens the connector and serves it, blocking until the context is
// cancelled or the source closes.
func (p *Pipeline) Stream(ctx context.Context, cfg connector.ConnectorConfig) error {
	if err := p.Open(ctx, cfg); err != nil {
		return err
	}
	err := p.Serve(ctx)
	if errors.Is(err, ErrSourceClosed) {
		return nil
	}
	return err
}

// Query runs the pipeline in one-shot replay mode.
func (p *Pipeline) Query(ctx context.Context, cfg connector.ConnectorConfig, params connector.QueryParams) error {
	raws, err := p.connector.Query(ctx, cfg, params)
	if err != nil {
		return fmt.Errorf("pipeline query: %w", err)
	}

	events, err := p.processor.ProcessBatch(ctx, raws)
	if err != nil {
		return fmt.Errorf("pipeline process batch: %w", err)
	}

	for _, event := range events {
		if err := p.output.Write(ctx, event); err != nil {
			return fmt.Errorf("pipeline output: %w", err)
		}
	}
	return nil
}

// Close shuts down the output.
func (p *Pipeline) Close() error {
	return p.output.Close()
}

func (p *Pipeline) handle(ctx context.Context, raw model.RawLog) {
	event, ok := p.processor.Process(ctx, raw)
	if !ok {
		return
	}
	if err := p.output.Write(ctx, event); err != nil {
		slog.Warn("output write failed", "kind", event.Kind.String(), "addr", event.Addr, "error", err)
	}
}
