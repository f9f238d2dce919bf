package plugin

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/soyeahso/stratus/internal/event"
	"github.com/soyeahso/stratus/internal/event/eventtest"
	"github.com/soyeahso/stratus/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.New(nil, "silent")
}

func newTestManager(t *testing.T, catalog map[string]SetupFunc, opts ...ManagerOption) *Manager {
	t.Helper()
	opts = append([]ManagerOption{WithLoaders(NewBuiltinLoader(catalog))}, opts...)
	m := NewManager(testLogger(), opts...)
	t.Cleanup(func() { m.Close(context.Background()) })
	return m
}

func mustLoad(t *testing.T, m *Manager, names ...string) {
	t.Helper()
	require.NoError(t, m.LoadBuiltins(context.Background(), names...))
}

func noop(context.Context, Args) (any, error) { return nil, nil }

func testMessage(conn *eventtest.Conn, content string) *event.Event {
	return eventtest.Message(conn, "alice", "#stratus", content)
}

// closerUnit records whether it was closed.
type closerUnit struct {
	setup  SetupFunc
	closed bool
}

func (u *closerUnit) Setup(r *Registrar) error { return u.setup(r) }

func (u *closerUnit) Close() error {
	u.closed = true
	return nil
}

// unitLoader serves prepared units under builtin identities.
type unitLoader struct {
	units map[string]Unit
}

func (l *unitLoader) Handles(path string) bool { return strings.HasPrefix(path, BuiltinScheme) }
func (l *unitLoader) Pattern() string          { return "" }

func (l *unitLoader) Load(_ context.Context, path string) (Unit, error) {
	u, ok := l.units[strings.TrimPrefix(path, BuiltinScheme)]
	if !ok {
		return nil, errors.New("no such unit")
	}
	return u, nil
}

// fileLoader loads "*.plug" files whose content is a command alias.
type fileLoader struct{}

func (fileLoader) Handles(path string) bool { return strings.HasSuffix(path, ".plug") }
func (fileLoader) Pattern() string          { return "*.plug" }

func (fileLoader) Load(_ context.Context, path string) (Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	alias := strings.TrimSpace(string(data))
	return SetupFunc(func(r *Registrar) error {
		r.Command([]string{alias}, noop)
		return nil
	}), nil
}
