package lua

import (
	"context"
	"fmt"
	"sync"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"

	"github.com/soyeahso/stratus/internal/event"
	"github.com/soyeahso/stratus/internal/logging"
	"github.com/soyeahso/stratus/internal/plugin"
)

// Unit is a loaded Lua script. A Lua state is not safe for concurrent use,
// so every call into the script holds mu.
type Unit struct {
	path string
	log  *logging.Logger

	mu     sync.Mutex
	L      *lua.LState
	chunk  *lua.LFunction
	reg    *plugin.Registrar // set only while the chunk runs
	closed bool
}

var _ plugin.Unit = (*Unit)(nil)

// Setup runs the script once, recording the hooks it declares on r.
func (u *Unit) Setup(r *plugin.Registrar) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	errb := oops.In("lua").With("path", u.path).With("operation", "setup")
	if u.closed {
		return errb.New("unit is closed")
	}
	if u.chunk == nil {
		return errb.New("script already ran")
	}

	u.reg = r
	defer func() { u.reg = nil }()

	u.L.SetGlobal("hook", u.hookTable())
	u.L.SetGlobal("stratus", loggerTable(u.L, u.log))

	chunk := u.chunk
	u.chunk = nil
	if err := u.L.CallByParam(lua.P{Fn: chunk, NRet: 0, Protect: true}); err != nil {
		return errb.Wrap(err)
	}
	return nil
}

// Close releases the Lua state. Hooks still in flight fail afterwards.
func (u *Unit) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.closed {
		u.closed = true
		u.L.Close()
	}
	return nil
}

func (u *Unit) hookTable() *lua.LTable {
	t := u.L.NewTable()
	u.L.SetFuncs(t, map[string]lua.LGFunction{
		"command":  u.luaCommand,
		"regex":    u.luaRegex,
		"irc_raw":  u.luaRaw,
		"event":    u.luaEvent,
		"sieve":    u.luaSieve,
		"on_start": u.luaOnStart,
		"on_stop":  u.luaOnStop,
	})
	return t
}

// registrar returns the active registrar or raises a Lua error.
func (u *Unit) registrar(L *lua.LState) *plugin.Registrar {
	if u.reg == nil {
		L.RaiseError("hooks can only be registered while the plugin loads")
	}
	return u.reg
}

// hook.command(aliases, fn [, opts])
func (u *Unit) luaCommand(L *lua.LState) int {
	r := u.registrar(L)
	aliases := stringList(L, 1)
	fn := L.CheckFunction(2)
	opts := L.OptTable(3, nil)
	r.Command(aliases, u.handler(fn), options(fn, opts, "")...)
	return 0
}

// hook.regex(patterns, fn [, opts])
func (u *Unit) luaRegex(L *lua.LState) int {
	r := u.registrar(L)
	patterns := stringList(L, 1)
	fn := L.CheckFunction(2)
	r.Regex(patterns, u.handler(fn), options(fn, L.OptTable(3, nil), "regex")...)
	return 0
}

// hook.irc_raw(verbs, fn [, opts])
func (u *Unit) luaRaw(L *lua.LState) int {
	r := u.registrar(L)
	verbs := stringList(L, 1)
	fn := L.CheckFunction(2)
	r.Raw(verbs, u.handler(fn), options(fn, L.OptTable(3, nil), "irc_raw")...)
	return 0
}

// hook.event(types, fn [, opts])
func (u *Unit) luaEvent(L *lua.LState) int {
	r := u.registrar(L)
	names := stringList(L, 1)
	fn := L.CheckFunction(2)
	types := make([]event.Type, 0, len(names))
	for _, name := range names {
		t, ok := event.ParseType(name)
		if !ok {
			r.Errorf("event hook: unknown event type %q", name)
			return 0
		}
		types = append(types, t)
	}
	r.Event(types, u.handler(fn), options(fn, L.OptTable(3, nil), "event")...)
	return 0
}

// hook.sieve(fn [, opts])
func (u *Unit) luaSieve(L *lua.LState) int {
	r := u.registrar(L)
	fn := L.CheckFunction(1)
	r.Sieve(u.sieve(fn), options(fn, L.OptTable(2, nil), "sieve")...)
	return 0
}

// hook.on_start(fn [, opts])
func (u *Unit) luaOnStart(L *lua.LState) int {
	r := u.registrar(L)
	fn := L.CheckFunction(1)
	r.OnStart(u.handler(fn), options(fn, L.OptTable(2, nil), "on_start")...)
	return 0
}

// hook.on_stop(fn [, opts])
func (u *Unit) luaOnStop(L *lua.LState) int {
	r := u.registrar(L)
	fn := L.CheckFunction(1)
	r.OnStop(u.handler(fn), options(fn, L.OptTable(2, nil), "on_stop")...)
	return 0
}

// handler adapts a Lua function to a hook body. Bound values are passed
// positionally; the first return value becomes the hook's result.
func (u *Unit) handler(fn *lua.LFunction) plugin.Func {
	return func(_ context.Context, args plugin.Args) (any, error) {
		u.mu.Lock()
		defer u.mu.Unlock()
		if u.closed {
			return nil, oops.In("lua").With("path", u.path).New("plugin was unloaded")
		}

		values := args.Values()
		lvs := make([]lua.LValue, len(values))
		for i, v := range values {
			lvs[i] = toLua(u.L, v)
		}
		if err := u.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, lvs...); err != nil {
			return nil, oops.In("lua").With("path", u.path).Wrap(err)
		}
		ret := u.L.Get(-1)
		u.L.Pop(1)
		return fromLua(ret), nil
	}
}

// sieve adapts a Lua function receiving the event table. A false or nil
// result suppresses the launch; the event table itself (or true) passes the
// event on unchanged. Any other table is merged into a copy of the event as
// extra capabilities, one per string key.
func (u *Unit) sieve(fn *lua.LFunction) plugin.SieveFunc {
	return func(_ context.Context, ev *event.Event) (*event.Event, error) {
		u.mu.Lock()
		defer u.mu.Unlock()
		if u.closed {
			return nil, oops.In("lua").With("path", u.path).New("plugin was unloaded")
		}

		in := eventTable(u.L, ev)
		if err := u.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, in); err != nil {
			return nil, oops.In("lua").With("path", u.path).Wrap(err)
		}
		ret := u.L.Get(-1)
		u.L.Pop(1)
		if lua.LVIsFalse(ret) {
			return nil, nil
		}
		extras, ok := ret.(*lua.LTable)
		if !ok || extras == in {
			return ev, nil
		}

		out := ev.Clone()
		extras.ForEach(func(k, v lua.LValue) {
			if name, ok := k.(lua.LString); ok {
				out.WithValue(string(name), fromLua(v))
			}
		})
		return out, nil
	}
}

// options translates an opts table. Hooks without an explicit name are
// named after their kind and defining line; commands default to their
// primary alias instead (kind == "").
//
// Calls into one unit are serialized on its mutex; Lua hooks therefore run
// cooperatively unless opts sets blocking = true.
func options(fn *lua.LFunction, opts *lua.LTable, kind string) []plugin.Option {
	var out []plugin.Option
	name := ""
	blocking := false
	if opts != nil {
		if v := opts.RawGetString("name"); v != lua.LNil {
			name = lua.LVAsString(v)
		}
		blocking = lua.LVAsBool(opts.RawGetString("blocking"))
	}
	if !blocking {
		out = append(out, plugin.Cooperative())
	}
	if name == "" && kind != "" {
		name = fmt.Sprintf("%s_%d", kind, fn.Proto.LineDefined)
	}
	if name != "" {
		out = append(out, plugin.Name(name))
	}
	out = append(out, plugin.Needs(paramNames(fn)...))

	if opts == nil {
		return out
	}
	if v := opts.RawGetString("doc"); v != lua.LNil {
		out = append(out, plugin.Doc(lua.LVAsString(v)))
	}
	if v, ok := opts.RawGetString("permissions").(*lua.LTable); ok {
		out = append(out, plugin.Permissions(tableStrings(v)...))
	}
	if lua.LVAsBool(opts.RawGetString("single_thread")) {
		out = append(out, plugin.Exclusive())
	}
	if lua.LVAsBool(opts.RawGetString("run_first")) {
		out = append(out, plugin.RunFirst())
	}
	if v := opts.RawGetString("autohelp"); v != lua.LNil {
		out = append(out, plugin.AutoHelp(lua.LVAsBool(v)))
	}
	return out
}

// paramNames returns the formal parameter names of a Lua function, or nil
// when they cannot be determined.
func paramNames(fn *lua.LFunction) []string {
	if fn.IsG || fn.Proto == nil {
		return nil
	}
	n := int(fn.Proto.NumParameters)
	if len(fn.Proto.DbgLocals) < n {
		return nil
	}
	names := make([]string, n)
	for i := range n {
		names[i] = fn.Proto.DbgLocals[i].Name
	}
	return names
}

// stringList reads a string or a list of strings at idx.
func stringList(L *lua.LState, idx int) []string {
	switch v := L.Get(idx).(type) {
	case lua.LString:
		return []string{string(v)}
	case *lua.LTable:
		return tableStrings(v)
	default:
		L.ArgError(idx, "string or table of strings expected")
		return nil
	}
}

func tableStrings(t *lua.LTable) []string {
	out := make([]string, 0, t.Len())
	for i := 1; i <= t.Len(); i++ {
		out = append(out, lua.LVAsString(t.RawGetInt(i)))
	}
	return out
}
