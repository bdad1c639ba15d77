// Package stdin reads log lines piped into the process, for replaying
// captured logs through the classifier.
package stdin

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/crimson-sun/honeyfeed/internal/connector"
	"github.com/crimson-sun/honeyfeed/internal/metrics"
	"github.com/crimson-sun/honeyfeed/internal/model"
)

const (
	source  = "stdin"
	maxLine = 1 << 20
)

func init() {
	connector.Register(source, func() connector.Connector {
		return New(os.Stdin)
	})
}

// Connector implements connector.Connector over an io.Reader.
type Connector struct {
	r io.Reader
}

// New returns a Connector reading from r.
func New(r io.Reader) *Connector {
	return &Connector{r: r}
}

// Stream emits lines until the reader is exhausted or ctx is done.
func (c *Connector) Stream(ctx context.Context, _ connector.ConnectorConfig) (<-chan model.RawLog, error) {
	ch := make(chan model.RawLog, 64)
	go func() {
		defer close(ch)
		sc := c.scanner()
		for sc.Scan() {
			line := strings.TrimRight(sc.Text(), "\r")
			if line == "" {
				continue
			}
			metrics.LinesRead.WithLabelValues(source).Inc()
			select {
			case ch <- model.RawLog{Timestamp: time.Now(), Source: source, Raw: line}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// Query reads every line, honouring params.Limit.
func (c *Connector) Query(ctx context.Context, _ connector.ConnectorConfig, params connector.QueryParams) ([]model.RawLog, error) {
	var results []model.RawLog
	sc := c.scanner()
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		results = append(results, model.RawLog{Timestamp: time.Now(), Source: source, Raw: line})
		if params.Limit > 0 && len(results) >= params.Limit {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("stdin connector: %w", err)
	}
	return results, nil
}

func (c *Connector) scanner() *bufio.Scanner {
	sc := bufio.NewScanner(c.r)
	sc.Buffer(make([]byte, 64*1024), maxLine)
	return sc
}
