package event

import (
	"fmt"
	"sort"
)

// ReplyFunc, NoticeFunc and PermissionFunc are the function-valued
// capabilities handed to hooks.
type (
	ReplyFunc      func(lines ...string) error
	NoticeFunc     func(msg string) error
	PermissionFunc func(perm string) bool
)

// MissingCapabilityError reports a declared parameter the event cannot supply.
type MissingCapabilityError struct {
	Name string
	Type Type
}

func (e *MissingCapabilityError) Error() string {
	return fmt.Sprintf("event of type %s has no capability %q", e.Type, e.Name)
}

// provider returns the capability value, or false when it is absent.
type provider func(e *Event) (any, bool)

func always(f func(e *Event) any) provider {
	return func(e *Event) (any, bool) { return f(e), true }
}

func withConn(f func(e *Event) any) provider {
	return func(e *Event) (any, bool) {
		if e.Conn == nil {
			return nil, false
		}
		return f(e), true
	}
}

var capabilities = map[string]provider{
	"event":         always(func(e *Event) any { return e }),
	"verb":          always(func(e *Event) any { return e.Verb }),
	"irc_command":   always(func(e *Event) any { return e.Verb }),
	"params":        always(func(e *Event) any { return e.Params }),
	"irc_paramlist": always(func(e *Event) any { return e.Params }),
	"content":       always(func(e *Event) any { return e.Content }),
	"nick":          always(func(e *Event) any { return e.Nick }),
	"user":          always(func(e *Event) any { return e.User }),
	"host":          always(func(e *Event) any { return e.Host }),
	"mask":          always(func(e *Event) any { return e.Mask() }),
	"chan":          always(func(e *Event) any { return e.Chan }),
	"target":        always(func(e *Event) any { return e.Target }),
	"text": func(e *Event) (any, bool) {
		return e.Text, e.Command != ""
	},
	"triggered_command": func(e *Event) (any, bool) {
		return e.Command, e.Command != ""
	},
	"match": func(e *Event) (any, bool) {
		return e.Match, e.Match != nil
	},
	"conn":           withConn(func(e *Event) any { return e.Conn }),
	"reply":          withConn(func(e *Event) any { return ReplyFunc(e.Reply) }),
	"message":        withConn(func(e *Event) any { return ReplyFunc(e.Message) }),
	"notice":         withConn(func(e *Event) any { return NoticeFunc(e.Notice) }),
	"action":         withConn(func(e *Event) any { return NoticeFunc(e.Action) }),
	"has_permission": withConn(func(e *Event) any { return PermissionFunc(e.HasPermission) }),
	"permissions": func(e *Event) (any, bool) {
		if e.Conn == nil || e.Conn.Permissions() == nil {
			return nil, false
		}
		return e.Conn.Permissions(), true
	},
}

// Capability resolves a named capability. Extras attached with WithValue
// shadow the built-in table.
func (e *Event) Capability(name string) (any, error) {
	if v, ok := e.values[name]; ok {
		return v, nil
	}
	if p, ok := capabilities[name]; ok {
		if v, ok := p(e); ok {
			return v, nil
		}
	}
	return nil, &MissingCapabilityError{Name: name, Type: e.Type}
}

// Bind resolves every name in order. It fails on the first missing name and
// never returns a partial list.
func (e *Event) Bind(names []string) ([]any, error) {
	values := make([]any, len(names))
	for i, name := range names {
		v, err := e.Capability(name)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// Capabilities lists the names resolvable on this event, sorted.
func (e *Event) Capabilities() []string {
	var names []string
	for name, p := range capabilities {
		if _, ok := p(e); ok {
			names = append(names, name)
		}
	}
	for name := range e.values {
		if _, builtin := capabilities[name]; !builtin {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
