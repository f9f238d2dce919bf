package channel

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/stratus/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.New(nil, "silent")
}

// mockConn blocks in Start until stopped or canceled.
type mockConn struct {
	name     string
	startErr error
	stopErr  error

	started atomic.Bool
	stopped atomic.Bool
	stop    chan struct{}
}

func newMockConn(name string) *mockConn {
	return &mockConn{name: name, stop: make(chan struct{})}
}

func (m *mockConn) Name() string { return m.name }

func (m *mockConn) Start(ctx context.Context) error {
	m.started.Store(true)
	if m.startErr != nil {
		return m.startErr
	}
	select {
	case <-m.stop:
	case <-ctx.Done():
	}
	return nil
}

func (m *mockConn) Stop(context.Context) error {
	if m.stopped.CompareAndSwap(false, true) {
		close(m.stop)
	}
	return m.stopErr
}

type statusConn struct {
	*mockConn
}

func (s statusConn) Status() Status {
	return Status{Name: s.name, Connected: true, Running: true}
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewRegistry(testLogger())
	reg.Register(newMockConn("libera"))

	got, ok := reg.Get("libera")
	require.True(t, ok)
	assert.Equal(t, "libera", got.Name())

	_, ok = reg.Get("oftc")
	assert.False(t, ok)
}

func TestRegistry_ListAndCount(t *testing.T) {
	reg := NewRegistry(testLogger())
	assert.Equal(t, 0, reg.Count())

	reg.Register(newMockConn("oftc"))
	reg.Register(newMockConn("libera"))
	reg.Register(newMockConn("libera"))

	assert.Equal(t, []string{"libera", "oftc"}, reg.List())
	assert.Equal(t, 2, reg.Count())
}

func TestRegistry_Status(t *testing.T) {
	reg := NewRegistry(testLogger())
	reg.Register(statusConn{newMockConn("oftc")})
	reg.Register(newMockConn("libera"))

	assert.Equal(t, []Status{
		{Name: "libera", Running: true},
		{Name: "oftc", Connected: true, Running: true},
	}, reg.Status())
}

func TestRegistry_StartAndStopAll(t *testing.T) {
	reg := NewRegistry(testLogger())
	c1, c2 := newMockConn("libera"), newMockConn("oftc")
	reg.Register(c1)
	reg.Register(c2)

	reg.StartAll(context.Background())
	assert.Eventually(t, func() bool { return c1.started.Load() && c2.started.Load() }, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	reg.StopAll(ctx)
	assert.True(t, c1.stopped.Load())
	assert.True(t, c2.stopped.Load())
	assert.NoError(t, ctx.Err(), "StopAll returned once Start calls finished")
}

func TestRegistry_StartError(t *testing.T) {
	reg := NewRegistry(testLogger())
	c := newMockConn("broken")
	c.startErr = assert.AnError
	reg.Register(c)

	reg.StartAll(context.Background())
	assert.Eventually(t, c.started.Load, time.Second, 10*time.Millisecond)
	reg.StopAll(context.Background())
}

func TestRegistry_StopAllGivesUp(t *testing.T) {
	reg := NewRegistry(testLogger())
	c := newMockConn("stuck")
	c.stopped.Store(true) // Stop will not close the channel
	reg.Register(c)

	startCtx, stopStart := context.WithCancel(context.Background())
	defer stopStart()
	reg.StartAll(startCtx)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	reg.StopAll(ctx)
	assert.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)
}
