// Package tailfile follows a growing log file the way tail -F does: it starts
// at the end, survives rename-and-recreate rotation and copytruncate, and only
// ever hands out complete lines.
package tailfile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"strings"
	"time"

	"github.com/nxadm/tail"
	"github.com/nxadm/tail/watch"

	"github.com/crimson-sun/honeyfeed/internal/connector"
	"github.com/crimson-sun/honeyfeed/internal/metrics"
	"github.com/crimson-sun/honeyfeed/internal/model"
)

const (
	source       = "file"
	pollInterval = 50 * time.Millisecond
)

func init() {
	watch.POLL_DURATION = pollInterval
	connector.Register(source, func() connector.Connector {
		return &Connector{}
	})
}

// Connector implements connector.Connector for a local log file.
type Connector struct{}

// Stream opens cfg.Path, positions at its end and follows it until ctx is
// done. A failure to open the file is returned immediately. After a rotation
// or truncation the file is read again from its start.
func (c *Connector) Stream(ctx context.Context, cfg connector.ConnectorConfig) (<-chan model.RawLog, error) {
	if cfg.Path == "" {
		return nil, errors.New("tailfile connector: path is required")
	}
	t, err := tail.TailFile(cfg.Path, tail.Config{
		Location:      &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd},
		Follow:        true,
		ReOpen:        true,
		MustExist:     true,
		CompleteLines: true,
		Poll:          cfg.Poll,
		Logger:        newTailLogger(cfg.Path),
	})
	if err != nil {
		return nil, fmt.Errorf("tailfile connector: %w", err)
	}

	ch := make(chan model.RawLog, 64)
	go follow(ctx, t, ch)
	return ch, nil
}

func follow(ctx context.Context, t *tail.Tail, ch chan<- model.RawLog) {
	defer close(ch)
	defer func() {
		if err := t.Stop(); err != nil {
			slog.Warn("tail stopped with error", "connector", source, "path", t.Filename, "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-t.Lines:
			if !ok {
				return
			}
			raw, ok := toRawLog(line)
			if !ok {
				continue
			}
			metrics.LinesRead.WithLabelValues(source).Inc()
			select {
			case ch <- raw:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Query reads cfg.Path from the beginning, returning at most params.Limit
// lines when the limit is positive. A trailing unterminated line counts.
func (c *Connector) Query(ctx context.Context, cfg connector.ConnectorConfig, params connector.QueryParams) ([]model.RawLog, error) {
	t, err := tail.TailFile(cfg.Path, tail.Config{
		MustExist: true,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("tailfile connector: %w", err)
	}

	var results []model.RawLog
	for line := range t.Lines {
		if err := ctx.Err(); err != nil {
			t.Stop()
			return nil, err
		}
		raw, ok := toRawLog(line)
		if !ok {
			continue
		}
		results = append(results, raw)
		if params.Limit > 0 && len(results) >= params.Limit {
			break
		}
	}
	if err := t.Stop(); err != nil {
		return nil, fmt.Errorf("tailfile connector: read %s: %w", cfg.Path, err)
	}
	return results, nil
}

func toRawLog(line *tail.Line) (model.RawLog, bool) {
	if line.Err != nil {
		slog.Warn("tail error", "connector", source, "error", line.Err)
		return model.RawLog{}, false
	}
	text := strings.TrimRight(line.Text, "\r")
	if text == "" {
		return model.RawLog{}, false
	}
	return model.RawLog{Timestamp: line.Time, Source: source, Raw: text}, true
}

// tailLogger receives the tail library's progress messages, counts reopen
// events and forwards everything to slog at debug level.
type tailLogger struct {
	path string
}

func newTailLogger(path string) *log.Logger {
	return log.New(&tailLogger{path: path}, "", 0)
}

func (l *tailLogger) Write(p []byte) (int, error) {
	msg := strings.TrimSpace(string(p))
	switch {
	case strings.HasPrefix(msg, "Re-opening moved/deleted"):
		metrics.Rotations.WithLabelValues("rotated").Inc()
		slog.Info("log rotated, reopening", "connector", source, "path", l.path)
	case strings.HasPrefix(msg, "Re-opening truncated"):
		metrics.Rotations.WithLabelValues("truncated").Inc()
		slog.Info("log truncated, reopening", "connector", source, "path", l.path)
	default:
		slog.Debug(msg, "connector", source, "path", l.path)
	}
	return len(p), nil
}
