package multi

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/honeyfeed/internal/model"
)

// mockOutput records calls for test assertions.
type mockOutput struct {
	events []model.Event
	closed bool
	err    error // if set, Write and Close return this error
}

func (m *mockOutput) Write(_ context.Context, event model.Event) error {
	m.events = append(m.events, event)
	return m.err
}

func (m *mockOutput) Close() error {
	m.closed = true
	return m.err
}

func testEvent(kind model.Kind, addr string) model.Event {
	return model.Event{Kind: kind, Addr: addr, Time: time.Now()}
}

func TestFanOutDeliversToAll(t *testing.T) {
	a, b, c := &mockOutput{}, &mockOutput{}, &mockOutput{}
	m := New(a, b, c)

	require.NoError(t, m.Write(context.Background(), testEvent(model.KindConnected, "203.0.113.9")))

	for i, out := range []*mockOutput{a, b, c} {
		require.Len(t, out.events, 1, "output %d", i)
		assert.Equal(t, "203.0.113.9", out.events[0].Addr)
	}
}

func TestErrorDoesNotPreventDelivery(t *testing.T) {
	failing := &mockOutput{err: errors.New("broken pipe")}
	healthy := &mockOutput{}
	m := New(failing, healthy)

	err := m.Write(context.Background(), testEvent(model.KindLoggedIn, "198.51.100.7"))
	require.Error(t, err)
	assert.Len(t, healthy.events, 1)
	assert.Len(t, failing.events, 1)
}

func TestCloseCollectsErrors(t *testing.T) {
	a := &mockOutput{err: errors.New("err-a")}
	b := &mockOutput{err: errors.New("err-b")}
	m := New(a, b)

	err := m.Close()
	require.Error(t, err)
	assert.ErrorContains(t, err, "err-a")
	assert.ErrorContains(t, err, "err-b")
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestNilOutputsSkipped(t *testing.T) {
	inner := &mockOutput{}
	m := New(nil, inner, nil)

	require.NoError(t, m.Write(context.Background(), testEvent(model.KindCommandRun, "203.0.113.9")))
	require.NoError(t, m.Close())
	assert.Len(t, inner.events, 1)
	assert.True(t, inner.closed)
}
