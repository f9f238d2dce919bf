package plugin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/stratus/internal/event"
)

func ctcpVersion(context.Context, Args) (any, error) { return nil, nil }

func TestExtract_ClassifiesEveryKind(t *testing.T) {
	r := NewRegistrar()
	r.OnStart(noop, Name("start"))
	r.OnStop(noop, Name("stop"))
	r.Sieve(func(_ context.Context, ev *event.Event) (*event.Event, error) { return ev, nil }, Name("gate"))
	r.Event([]event.Type{event.TypeJoin, event.TypeJoin, event.TypePart}, noop, Name("greet"))
	r.Regex([]string{`^\x01VERSION\x01$`}, ctcpVersion)
	r.Command([]string{"Join", "j", "JOIN"}, noop, Doc("<channel>"))
	r.Raw([]string{"004", "privmsg"}, noop, Name("welcome"))

	p := &Plugin{Title: "core"}
	set, err := r.extract(p)
	require.NoError(t, err)

	require.Len(t, set.onStart, 1)
	require.Len(t, set.onStop, 1)
	require.Len(t, set.sieves, 1)
	require.Len(t, set.events, 1)
	require.Len(t, set.regexes, 1)
	require.Len(t, set.commands, 1)
	require.Len(t, set.raws, 1)

	assert.Equal(t, []event.Type{event.TypeJoin, event.TypePart}, set.events[0].Types)
	assert.Equal(t, "ctcpVersion", set.regexes[0].Function)

	cmd := set.commands[0]
	assert.Equal(t, "join", cmd.Name)
	assert.Equal(t, []string{"join", "j"}, cmd.Aliases)
	assert.Equal(t, "core:join", cmd.Description())
	assert.True(t, cmd.AutoHelp)
	assert.Equal(t, ModeBlocking, cmd.Mode)

	assert.Equal(t, []string{"004", "PRIVMSG"}, set.raws[0].Triggers)
	assert.False(t, set.raws[0].IsCatchAll())
	assert.Same(t, p, set.raws[0].Plugin)
}

func TestExtract_ClearsRegistrar(t *testing.T) {
	r := NewRegistrar()
	r.Command([]string{"ping"}, noop)

	set, err := r.extract(&Plugin{Title: "a"})
	require.NoError(t, err)
	require.Len(t, set.commands, 1)

	set, err = r.extract(&Plugin{Title: "a"})
	require.NoError(t, err)
	assert.Empty(t, set.commands)
}

func TestExtract_CatchAllCollapses(t *testing.T) {
	r := NewRegistrar()
	r.Raw([]string{"PRIVMSG", "*"}, noop)

	set, err := r.extract(&Plugin{Title: "a"})
	require.NoError(t, err)
	require.Len(t, set.raws, 1)
	assert.Equal(t, []string{CatchAll}, set.raws[0].Triggers)
	assert.True(t, set.raws[0].IsCatchAll())
}

func TestExtract_Options(t *testing.T) {
	r := NewRegistrar()
	r.Command([]string{"op"}, noop,
		Name("opUser"),
		Needs("text", "conn"),
		Cooperative(),
		Exclusive(),
		RunFirst(),
		Permissions("op", "botcontrol"),
		AutoHelp(false),
	)

	set, err := r.extract(&Plugin{Title: "admin"})
	require.NoError(t, err)
	h := set.commands[0]
	assert.Equal(t, "opUser", h.Function)
	assert.Equal(t, "op", h.Name)
	assert.Equal(t, []string{"text", "conn"}, h.Params)
	assert.Equal(t, ModeCooperative, h.Mode)
	assert.True(t, h.Exclusive)
	assert.True(t, h.RunFirst)
	assert.Equal(t, []string{"op", "botcontrol"}, h.Permissions())
	assert.False(t, h.AutoHelp)
}

func TestExtract_Errors(t *testing.T) {
	tests := []struct {
		name     string
		register func(r *Registrar)
	}{
		{"bad regex", func(r *Registrar) { r.Regex([]string{"("}, noop) }},
		{"no aliases", func(r *Registrar) { r.Command([]string{" "}, noop) }},
		{"no verbs", func(r *Registrar) { r.Raw(nil, noop) }},
		{"no types", func(r *Registrar) { r.Event(nil, noop) }},
		{"nil command", func(r *Registrar) { r.Command([]string{"x"}, nil) }},
		{"nil on_start", func(r *Registrar) { r.OnStart(nil) }},
		{"explicit", func(r *Registrar) { r.Errorf("bad config %d", 1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistrar()
			r.Command([]string{"fine"}, noop)
			tt.register(r)
			_, err := r.extract(&Plugin{Title: "broken"})
			assert.Error(t, err)
		})
	}
}

func TestPlugin_Hooks(t *testing.T) {
	r := NewRegistrar()
	r.Command([]string{"a"}, noop)
	r.Command([]string{"b"}, noop)
	r.OnStop(noop)

	p := &Plugin{Title: "multi"}
	set, err := r.extract(p)
	require.NoError(t, err)
	p.attach(set)

	assert.Len(t, p.Hooks(KindCommand), 2)
	assert.Len(t, p.Hooks(KindOnStop), 1)
	assert.Empty(t, p.Hooks(KindRegex))
	assert.Equal(t, 3, p.HookCount())
	assert.Equal(t, map[string]int{"command": 2, "on_stop": 1}, p.Info().Hooks)
}

func TestFuncName(t *testing.T) {
	assert.Equal(t, "ctcpVersion", funcName(Func(ctcpVersion)))
	assert.Equal(t, "anonymous", funcName(nil))
	assert.Equal(t, "anonymous", funcName(Func(nil)))
}
