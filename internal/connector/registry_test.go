package connector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/honeyfeed/internal/model"
)

type nopConnector struct{}

func (nopConnector) Stream(context.Context, ConnectorConfig) (<-chan model.RawLog, error) {
	return nil, nil
}

func (nopConnector) Query(context.Context, ConnectorConfig, QueryParams) ([]model.RawLog, error) {
	return nil, nil
}

func TestRegistry(t *testing.T) {
	Register("nop-test", func() Connector { return nopConnector{} })

	ctor, err := Get("nop-test")
	require.NoError(t, err)
	assert.NotNil(t, ctor())
	assert.Contains(t, Providers(), "nop-test")
}

func TestRegistry_Unknown(t *testing.T) {
	_, err := Get("does-not-exist")
	assert.ErrorContains(t, err, "unknown connector provider: does-not-exist")
}
