package honeyfeed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/crimson-sun/honeyfeed/internal/engine"
	"github.com/crimson-sun/honeyfeed/internal/engine/geo"
	"github.com/crimson-sun/honeyfeed/internal/engine/session"
	"github.com/crimson-sun/honeyfeed/internal/model"
)

// Classifier turns cowrie log lines into Events.
// Safe for concurrent use.
type Classifier struct {
	engine *engine.Engine
}

// New creates a Classifier.
func New(opts ...Option) (*Classifier, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.sessionCapacity <= 0 || o.geoCapacity <= 0 {
		return nil, errors.New("honeyfeed: capacities must be positive")
	}
	if o.geoTimeout <= 0 || o.negativeTTL <= 0 {
		return nil, errors.New("honeyfeed: durations must be positive")
	}

	var resolver geo.Resolver
	if o.geoEndpoint != "" {
		resolver = geo.NewIPAPI(o.geoEndpoint, o.geoTimeout)
	}
	cache := geo.New(resolver,
		geo.WithCapacity(o.geoCapacity),
		geo.WithTimeout(o.geoTimeout),
		geo.WithNegativeTTL(o.negativeTTL),
	)
	return &Classifier{engine: engine.New(session.NewTracker(o.sessionCapacity), cache)}, nil
}

// Classify classifies a single log line. It reports false when the line
// carries no event.
func (c *Classifier) Classify(ctx context.Context, text string) (Event, bool) {
	return c.ClassifyLog(ctx, Log{Text: text})
}

// ClassifyLog classifies a structured log entry.
func (c *Classifier) ClassifyLog(ctx context.Context, log Log) (Event, bool) {
	ev, ok := c.engine.Process(ctx, toRaw(log, time.Now()))
	if !ok {
		return Event{}, false
	}
	return eventFromModel(ev), true
}

// ClassifyBatch classifies lines in order, returning only those that
// produced an event.
func (c *Classifier) ClassifyBatch(ctx context.Context, texts []string) ([]Event, error) {
	logs := make([]Log, len(texts))
	for i, t := range texts {
		logs[i] = Log{Text: t}
	}
	return c.ClassifyLogs(ctx, logs)
}

// ClassifyLogs classifies a batch of structured log entries.
func (c *Classifier) ClassifyLogs(ctx context.Context, logs []Log) ([]Event, error) {
	now := time.Now()
	raws := make([]model.RawLog, len(logs))
	for i, l := range logs {
		raws[i] = toRaw(l, now)
	}
	evs, err := c.engine.ProcessBatch(ctx, raws)
	if err != nil {
		return nil, fmt.Errorf("honeyfeed: %w", err)
	}
	events := make([]Event, len(evs))
	for i, e := range evs {
		events[i] = eventFromModel(e)
	}
	return events, nil
}

// Seen reports whether addr has produced a Connected event and is still
// remembered.
func (c *Classifier) Seen(addr string) bool {
	st, ok := c.engine.Sessions().Get(addr)
	return ok && st.FirstSeen
}

func toRaw(l Log, now time.Time) model.RawLog {
	ts := l.Timestamp
	if ts.IsZero() {
		ts = now
	}
	return model.RawLog{Timestamp: ts, Source: l.Source, Raw: l.Text}
}
