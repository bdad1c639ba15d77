package output

import (
	"context"

	"github.com/crimson-sun/honeyfeed/internal/model"
)

// Output defines the interface for event destinations.
type Output interface {
	Write(ctx context.Context, event model.Event) error
	Close() error
}
