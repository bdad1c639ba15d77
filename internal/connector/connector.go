package connector

import (
	"context"

	"github.com/crimson-sun/honeyfeed/internal/model"
)

// Connector defines the interface all log source connectors must implement.
type Connector interface {
	// Stream follows the source and sends raw lines as they arrive. Errors
	// opening the source are returned synchronously; the channel is closed
	// when ctx is done or the source is exhausted.
	Stream(ctx context.Context, cfg ConnectorConfig) (<-chan model.RawLog, error)

	// Query reads the source from its beginning, for replay.
	Query(ctx context.Context, cfg ConnectorConfig, params QueryParams) ([]model.RawLog, error)
}

// ConnectorConfig holds source-specific settings.
type ConnectorConfig struct {
	Provider string
	Path     string
	// Poll stats the file periodically instead of waiting on inotify, for
	// filesystems that do not deliver change events.
	Poll bool
}

// QueryParams bounds a replay.
type QueryParams struct {
	Limit int
}
