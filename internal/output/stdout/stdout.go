package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/crimson-sun/honeyfeed/internal/model"
)

// Option configures a stdout Output.
type Option func(*Output)

// WithJSON switches from one text line per event to NDJSON.
func WithJSON() Option {
	return func(o *Output) { o.json = true }
}

// WithPretty indents JSON output. Implies WithJSON.
func WithPretty() Option {
	return func(o *Output) { o.json, o.pretty = true, true }
}

// WithWriter redirects output away from os.Stdout.
func WithWriter(w io.Writer) Option {
	return func(o *Output) { o.w = w }
}

// Output writes events to stdout, as text or JSON.
type Output struct {
	mu     sync.Mutex
	w      io.Writer
	json   bool
	pretty bool
	enc    *json.Encoder
}

// New creates a stdout Output.
func New(opts ...Option) *Output {
	o := &Output{w: os.Stdout}
	for _, opt := range opts {
		opt(o)
	}
	o.enc = json.NewEncoder(o.w)
	if o.pretty {
		o.enc.SetIndent("", "  ")
	}
	return o
}

func (o *Output) Write(_ context.Context, event model.Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.json {
		if err := o.enc.Encode(event); err != nil {
			return fmt.Errorf("stdout output: %w", err)
		}
		return nil
	}

	_, err := fmt.Fprintf(o.w, "%s  %-13s  %s  [%s / %s]\n",
		event.Time.UTC().Format(time.RFC3339), event.Kind, event.Summary, event.Geo.Location(), event.Geo.Org)
	if err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}
