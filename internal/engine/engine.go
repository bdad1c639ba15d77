package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/crimson-sun/honeyfeed/internal/engine/geo"
	"github.com/crimson-sun/honeyfeed/internal/engine/parser"
	"github.com/crimson-sun/honeyfeed/internal/engine/session"
	"github.com/crimson-sun/honeyfeed/internal/metrics"
	"github.com/crimson-sun/honeyfeed/internal/model"
	"github.com/crimson-sun/honeyfeed/internal/output"
)

// ScanThreshold is the connection length, in seconds, below which a
// disconnect is reported as a port scan.
const ScanThreshold = 1.0

// Engine orchestrates the parse → track → enrich pipeline. It owns the
// session tracker and geo cache; both are safe for concurrent use, so a
// single Engine may be shared.
type Engine struct {
	sessions *session.Tracker
	geo      *geo.Cache
	now      func() time.Time
	newID    func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time used for lines without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDFunc overrides event ID generation.
func WithIDFunc(f func() string) Option {
	return func(e *Engine) { e.newID = f }
}

// New creates an Engine. A nil tracker gets a default-sized one; a nil geo
// cache disables enrichment.
func New(sessions *session.Tracker, g *geo.Cache, opts ...Option) *Engine {
	if sessions == nil {
		sessions = session.NewTracker(session.DefaultCapacity)
	}
	if g == nil {
		g = geo.New(nil)
	}
	e := &Engine{
		sessions: sessions,
		geo:      g,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Process classifies a single raw log line. It reports false when the line
// carries nothing worth emitting; malformed input is never an error.
func (e *Engine) Process(ctx context.Context, raw model.RawLog) (model.Event, bool) {
	line, ok := parser.Parse(raw.Raw, e.now())
	if !ok {
		return model.Event{}, false
	}

	ev := model.Event{
		Addr:   line.Addr,
		Proto:  line.Proto,
		ConnID: line.ConnID,
		Time:   line.Time,
	}

	// First matching rule wins.
	switch {
	case line.NewConnection && e.sessions.MarkConnected(line.Addr, line.Time):
		ev.Kind = model.KindConnected

	case line.HasLogin:
		e.sessions.SetLogin(line.Addr, line.Username)
		ev.Kind = model.KindLoggedIn
		ev.Username = line.Username

	case line.HasCommand:
		ev.Kind = model.KindCommandRun
		ev.Command = line.Command
		if st, ok := e.sessions.Get(line.Addr); ok {
			ev.Username = st.LoggedInAs
		}

	case line.HasDisconnect:
		ev.Duration = line.Duration
		if line.Duration < ScanThreshold {
			e.sessions.MarkScanner(line.Addr)
			ev.Kind = model.KindScanDetected
		} else {
			ev.Kind = model.KindSessionEnded
		}

	default:
		return model.Event{}, false
	}

	ev.ID = e.newID()
	ev.Geo = e.geo.Lookup(ctx, line.Addr)
	ev.Summary = output.FormatSummary(ev)
	metrics.Events.WithLabelValues(ev.Kind.String()).Inc()
	return ev, true
}

// ProcessBatch classifies a slice of raw logs, keeping only lines that
// produced an event. Order is preserved.
func (e *Engine) ProcessBatch(ctx context.Context, raws []model.RawLog) ([]model.Event, error) {
	events := make([]model.Event, 0, len(raws))
	for _, raw := range raws {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if ev, ok := e.Process(ctx, raw); ok {
			events = append(events, ev)
		}
	}
	return events, nil
}

// Sessions exposes the tracker, mainly for inspection in tests and the
// public package.
func (e *Engine) Sessions() *session.Tracker { return e.sessions }
