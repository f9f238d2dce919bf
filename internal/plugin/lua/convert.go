package lua

import (
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/soyeahso/stratus/internal/event"
	"github.com/soyeahso/stratus/internal/logging"
)

// toLua converts a bound capability value for a Lua handler.
func toLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return val
	case string:
		return lua.LString(val)
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case []string:
		t := L.CreateTable(len(val), 0)
		for i, s := range val {
			t.RawSetInt(i+1, lua.LString(s))
		}
		return t
	case []any:
		t := L.CreateTable(len(val), 0)
		for i, item := range val {
			t.RawSetInt(i+1, toLua(L, item))
		}
		return t
	case map[string]any:
		t := L.CreateTable(0, len(val))
		for k, item := range val {
			t.RawSetString(k, toLua(L, item))
		}
		return t
	case *event.Event:
		return eventTable(L, val)
	case event.ReplyFunc:
		return L.NewFunction(func(L *lua.LState) int {
			lines := make([]string, 0, L.GetTop())
			for i := 1; i <= L.GetTop(); i++ {
				lines = append(lines, lua.LVAsString(L.Get(i)))
			}
			if err := val(lines...); err != nil {
				L.RaiseError("%s", err.Error())
			}
			return 0
		})
	case event.NoticeFunc:
		return L.NewFunction(func(L *lua.LState) int {
			if err := val(L.CheckString(1)); err != nil {
				L.RaiseError("%s", err.Error())
			}
			return 0
		})
	case event.PermissionFunc:
		return L.NewFunction(func(L *lua.LState) int {
			L.Push(lua.LBool(val(L.CheckString(1))))
			return 1
		})
	case event.Conn:
		return connTable(L, val)
	case event.Permissions:
		return permissionsTable(L, val)
	case *logging.Logger:
		return loggerTable(L, val)
	default:
		ud := L.NewUserData()
		ud.Value = v
		return ud
	}
}

// fromLua converts a handler's return value to the Go values the reply
// formatter understands.
func fromLua(lv lua.LValue) any {
	return fromLuaVisited(lv, make(map[*lua.LTable]bool))
}

func fromLuaVisited(lv lua.LValue, visited map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case nil, *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(v)
	case lua.LString:
		return string(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case *lua.LTable:
		if visited[v] {
			return nil
		}
		visited[v] = true
		if n := v.Len(); n > 0 {
			out := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				out = append(out, fromLuaVisited(v.RawGetInt(i), visited))
			}
			return out
		}
		m := make(map[string]any)
		v.ForEach(func(k, item lua.LValue) {
			m[k.String()] = fromLuaVisited(item, visited)
		})
		if len(m) == 0 {
			return []any{}
		}
		return m
	case *lua.LUserData:
		return v.Value
	default:
		return lv.String()
	}
}

func eventTable(L *lua.LState, ev *event.Event) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("id", lua.LString(ev.ID))
	t.RawSetString("type", lua.LString(ev.Type))
	t.RawSetString("verb", lua.LString(ev.Verb))
	t.RawSetString("params", toLua(L, ev.Params))
	t.RawSetString("content", lua.LString(ev.Content))
	t.RawSetString("nick", lua.LString(ev.Nick))
	t.RawSetString("user", lua.LString(ev.User))
	t.RawSetString("host", lua.LString(ev.Host))
	t.RawSetString("mask", lua.LString(ev.Mask()))
	t.RawSetString("chan", lua.LString(ev.Chan))
	t.RawSetString("target", lua.LString(ev.Target))
	if ev.Conn != nil {
		t.RawSetString("conn", lua.LString(ev.Conn.Name()))
	}
	if ev.Command != "" {
		t.RawSetString("command", lua.LString(ev.Command))
		t.RawSetString("text", lua.LString(ev.Text))
	}
	if ev.Match != nil {
		t.RawSetString("match", toLua(L, ev.Match))
	}
	if ev.Hook != nil {
		t.RawSetString("hook", lua.LString(ev.Hook.Description()))
		t.RawSetString("hook_type", lua.LString(ev.Hook.KindName()))
		t.RawSetString("hook_permissions", toLua(L, ev.Hook.Permissions()))
	}
	return t
}

func connTable(L *lua.LState, c event.Conn) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("name", lua.LString(c.Name()))
	t.RawSetString("nick", lua.LString(c.Nick()))
	L.SetFuncs(t, map[string]lua.LGFunction{
		"message": func(L *lua.LState) int {
			c.Message(L.CheckString(1), L.CheckString(2))
			return 0
		},
		"notice": func(L *lua.LState) int {
			c.Notice(L.CheckString(1), L.CheckString(2))
			return 0
		},
		"action": func(L *lua.LState) int {
			c.Action(L.CheckString(1), L.CheckString(2))
			return 0
		},
		"join": func(L *lua.LState) int {
			c.Join(L.CheckString(1))
			return 0
		},
		"cmd": func(L *lua.LState) int {
			verb := L.CheckString(1)
			params := make([]string, 0, L.GetTop())
			for i := 2; i <= L.GetTop(); i++ {
				params = append(params, lua.LVAsString(L.Get(i)))
			}
			c.Cmd(strings.ToUpper(verb), params...)
			return 0
		},
	})
	return t
}

func permissionsTable(L *lua.LState, p event.Permissions) *lua.LTable {
	t := L.NewTable()
	L.SetFuncs(t, map[string]lua.LGFunction{
		"has_permission": func(L *lua.LState) int {
			L.Push(lua.LBool(p.HasPermission(L.CheckString(1), L.CheckString(2))))
			return 1
		},
		"groups": func(L *lua.LState) int {
			L.Push(toLua(L, p.Groups()))
			return 1
		},
		"user_permissions": func(L *lua.LState) int {
			L.Push(toLua(L, p.UserPermissions(L.CheckString(1))))
			return 1
		},
		"user_groups": func(L *lua.LState) int {
			L.Push(toLua(L, p.UserGroups(L.CheckString(1))))
			return 1
		},
	})
	return t
}

func loggerTable(L *lua.LState, log *logging.Logger) *lua.LTable {
	t := L.NewTable()
	L.SetFuncs(t, map[string]lua.LGFunction{
		"debug": func(L *lua.LState) int { log.Debug().Msg(L.CheckString(1)); return 0 },
		"info":  func(L *lua.LState) int { log.Info().Msg(L.CheckString(1)); return 0 },
		"warn":  func(L *lua.LState) int { log.Warn().Msg(L.CheckString(1)); return 0 },
		"error": func(L *lua.LState) int { log.Error().Msg(L.CheckString(1)); return 0 },
	})
	return t
}
