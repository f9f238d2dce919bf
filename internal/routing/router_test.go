package routing

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/stratus/internal/event"
	"github.com/soyeahso/stratus/internal/event/eventtest"
	"github.com/soyeahso/stratus/internal/logging"
	"github.com/soyeahso/stratus/internal/plugin"
)

func testLogger() *logging.Logger {
	return logging.New(nil, "silent")
}

// recorder collects hook invocations by name.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) hook(name string) plugin.Func {
	return func(context.Context, plugin.Args) (any, error) {
		r.add(name)
		return nil, nil
	}
}

func (r *recorder) add(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func newRouter(t *testing.T, setup plugin.SetupFunc) *Router {
	t.Helper()
	log := testLogger()
	m := plugin.NewManager(log, plugin.WithLoaders(plugin.NewBuiltinLoader(map[string]plugin.SetupFunc{"test": setup})))
	require.NoError(t, m.LoadBuiltins(context.Background(), "test"))
	t.Cleanup(func() { m.Close(context.Background()) })
	return NewRouter(m, log)
}

func TestRouter_RawAndCatchAll(t *testing.T) {
	rec := &recorder{}
	r := newRouter(t, func(reg *plugin.Registrar) error {
		reg.Raw([]string{"004"}, rec.hook("welcome"))
		reg.Raw([]string{"*"}, rec.hook("all"))
		reg.Raw([]string{"PRIVMSG"}, rec.hook("privmsg"))
		return nil
	})

	n := r.HandleEvent(context.Background(), eventtest.Raw(eventtest.NewConn(), "004", "stratus", "irc.example.org"))
	assert.Equal(t, 2, n)
	assert.ElementsMatch(t, []string{"welcome", "all"}, rec.names())
}

func TestRouter_EventHooks(t *testing.T) {
	rec := &recorder{}
	r := newRouter(t, func(reg *plugin.Registrar) error {
		reg.Event([]event.Type{event.TypeJoin}, rec.hook("join"))
		reg.Event([]event.Type{event.TypeMessage}, rec.hook("message"))
		return nil
	})

	ev := eventtest.Raw(eventtest.NewConn(), "JOIN", "#stratus")
	ev.Type = event.TypeJoin
	r.HandleEvent(context.Background(), ev)
	assert.Equal(t, []string{"join"}, rec.names())
}

func TestRouter_Commands(t *testing.T) {
	var (
		mu    sync.Mutex
		texts []string
	)
	r := newRouter(t, func(reg *plugin.Registrar) error {
		reg.Command([]string{"join", "j"}, func(_ context.Context, args plugin.Args) (any, error) {
			mu.Lock()
			defer mu.Unlock()
			texts = append(texts, args.String("triggered_command")+"|"+args.String("text"))
			return nil, nil
		}, plugin.Needs("triggered_command", "text"), plugin.AutoHelp(false))
		return nil
	})
	ctx := context.Background()
	conn := eventtest.NewConn()

	tests := []struct {
		name    string
		channel string
		content string
		want    string
	}{
		{"prefix", "#stratus", ".join #go", "join|#go"},
		{"alias", "#stratus", ".J  #go ", "j|#go"},
		{"addressed", "#stratus", "stratus: join #lua", "join|#lua"},
		{"addressed with prefix", "#stratus", "Stratus, .j #x", "j|#x"},
		{"private without prefix", "alice", "join #dm", "join|#dm"},
		{"no arguments", "#stratus", ".join", "join|"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mu.Lock()
			texts = nil
			mu.Unlock()
			assert.Equal(t, 1, r.HandleEvent(ctx, eventtest.Message(conn, "alice", tt.channel, tt.content)))
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, []string{tt.want}, texts)
		})
	}
}

func TestRouter_IgnoresNonCommands(t *testing.T) {
	rec := &recorder{}
	r := newRouter(t, func(reg *plugin.Registrar) error {
		reg.Command([]string{"join"}, rec.hook("join"), plugin.AutoHelp(false))
		return nil
	})
	ctx := context.Background()
	conn := eventtest.NewConn()

	for _, content := range []string{"join #go", ".unknown", "stratusbot: join", ". join", ""} {
		assert.Zero(t, r.HandleEvent(ctx, eventtest.Message(conn, "alice", "#stratus", content)), content)
	}
	assert.Empty(t, rec.names())
}

func TestRouter_Regex(t *testing.T) {
	var (
		mu      sync.Mutex
		matches [][]string
	)
	r := newRouter(t, func(reg *plugin.Registrar) error {
		reg.Regex([]string{`(\d+)d(\d+)`, `roll`}, func(_ context.Context, args plugin.Args) (any, error) {
			mu.Lock()
			defer mu.Unlock()
			matches = append(matches, args.Strings("match"))
			return nil, nil
		}, plugin.Needs("match"))
		reg.Command([]string{"roll"}, noopFunc, plugin.AutoHelp(false))
		return nil
	})
	ctx := context.Background()
	conn := eventtest.NewConn()

	// Each matching pattern launches the hook once.
	assert.Equal(t, 2, r.HandleEvent(ctx, eventtest.Message(conn, "alice", "#stratus", "please roll 2d6")))
	mu.Lock()
	assert.ElementsMatch(t, [][]string{{"2d6", "2", "6"}, {"roll"}}, matches)
	matches = nil
	mu.Unlock()

	assert.Equal(t, 1, r.HandleEvent(ctx, eventtest.Message(conn, "alice", "#stratus", "3d8")))
	mu.Lock()
	assert.Equal(t, [][]string{{"3d8", "3", "8"}}, matches)
	matches = nil
	mu.Unlock()

	assert.Equal(t, 0, r.HandleEvent(ctx, eventtest.Message(conn, "alice", "#stratus", "hello")))
}

func TestRouter_CommandAndRegexBothFire(t *testing.T) {
	rec := &recorder{}
	r := newRouter(t, func(reg *plugin.Registrar) error {
		reg.Command([]string{"roll"}, rec.hook("cmd"), plugin.AutoHelp(false))
		reg.Regex([]string{`roll`}, rec.hook("re"))
		return nil
	})

	n := r.HandleEvent(context.Background(), eventtest.Message(eventtest.NewConn(), "alice", "#stratus", ".roll 2d6"))
	assert.Equal(t, 2, n)
	assert.ElementsMatch(t, []string{"cmd", "re"}, rec.names())
}

func noopFunc(context.Context, plugin.Args) (any, error) { return nil, nil }

func TestRouter_RunFirstCompletesBeforeOthers(t *testing.T) {
	var firstDone atomic.Bool
	var sawFirst atomic.Bool
	r := newRouter(t, func(reg *plugin.Registrar) error {
		reg.Raw([]string{"PRIVMSG"}, func(context.Context, plugin.Args) (any, error) {
			time.Sleep(30 * time.Millisecond)
			firstDone.Store(true)
			return nil, nil
		}, plugin.Name("first"), plugin.RunFirst())
		reg.Raw([]string{"*"}, func(context.Context, plugin.Args) (any, error) {
			sawFirst.Store(firstDone.Load())
			return nil, nil
		}, plugin.Name("later"))
		return nil
	})

	ev := eventtest.Message(eventtest.NewConn(), "alice", "#stratus", "hello")
	assert.Equal(t, 2, r.HandleEvent(context.Background(), ev))
	assert.True(t, sawFirst.Load())
}

func TestRouter_RepliesThroughConn(t *testing.T) {
	r := newRouter(t, func(reg *plugin.Registrar) error {
		reg.Command([]string{"ping"}, func(context.Context, plugin.Args) (any, error) {
			return "pong", nil
		}, plugin.AutoHelp(false))
		return nil
	})
	conn := eventtest.NewConn()
	r.HandleEvent(context.Background(), eventtest.Message(conn, "alice", "#stratus", ".ping"))
	assert.Equal(t, []eventtest.Sent{{Kind: "message", Target: "#stratus", Text: "alice: pong"}}, conn.Sent())
}
