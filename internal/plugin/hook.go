package plugin

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/soyeahso/stratus/internal/event"
)

// Kind identifies what triggers a hook.
type Kind int

const (
	KindOnStart Kind = iota
	KindOnStop
	KindSieve
	KindEvent
	KindRegex
	KindCommand
	KindRaw
)

// AllKinds lists every hook kind in registration order.
var AllKinds = []Kind{KindOnStart, KindOnStop, KindSieve, KindEvent, KindRegex, KindCommand, KindRaw}

func (k Kind) String() string {
	switch k {
	case KindOnStart:
		return "on_start"
	case KindOnStop:
		return "on_stop"
	case KindSieve:
		return "sieve"
	case KindEvent:
		return "event"
	case KindRegex:
		return "regex"
	case KindCommand:
		return "command"
	case KindRaw:
		return "irc_raw"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Mode selects how a hook body is executed.
type Mode int

const (
	// ModeBlocking hooks run on the bounded worker pool.
	ModeBlocking Mode = iota
	// ModeCooperative hooks run inline on the dispatching goroutine.
	ModeCooperative
)

func (m Mode) String() string {
	if m == ModeCooperative {
		return "cooperative"
	}
	return "blocking"
}

// Func is a hook body. args holds the values bound to the hook's declared
// parameter names. A non-nil result is sent back as reply lines.
type Func func(ctx context.Context, args Args) (any, error)

// SieveFunc inspects or rewrites an event before a hook runs. Returning a
// nil event suppresses the launch.
type SieveFunc func(ctx context.Context, ev *event.Event) (*event.Event, error)

// Args are the values bound for one hook invocation, keyed by the declared
// parameter names.
type Args struct {
	names  []string
	values []any
}

// NewArgs pairs names with values. Both slices must have the same length.
func NewArgs(names []string, values []any) Args {
	return Args{names: names, values: values}
}

// Names returns the declared names in order.
func (a Args) Names() []string { return a.names }

// Values returns the bound values in declaration order.
func (a Args) Values() []any { return a.values }

// Value returns the value bound to name, or nil.
func (a Args) Value(name string) any {
	for i, n := range a.names {
		if n == name {
			return a.values[i]
		}
	}
	return nil
}

// String returns the string bound to name, or "".
func (a Args) String(name string) string {
	s, _ := a.Value(name).(string)
	return s
}

// Strings returns the string slice bound to name.
func (a Args) Strings(name string) []string {
	s, _ := a.Value(name).([]string)
	return s
}

// Event returns the event bound as "event".
func (a Args) Event() *event.Event {
	ev, _ := a.Value("event").(*event.Event)
	return ev
}

// Conn returns the connection bound as "conn".
func (a Args) Conn() event.Conn {
	c, _ := a.Value("conn").(event.Conn)
	return c
}

// Reply returns the emitter bound as "reply".
func (a Args) Reply() event.ReplyFunc {
	f, _ := a.Value("reply").(event.ReplyFunc)
	return f
}

// Notice returns the emitter bound as "notice".
func (a Args) Notice() event.NoticeFunc {
	f, _ := a.Value("notice").(event.NoticeFunc)
	return f
}

// HasPermission returns the predicate bound as "has_permission".
func (a Args) HasPermission() event.PermissionFunc {
	f, _ := a.Value("has_permission").(event.PermissionFunc)
	return f
}

// Permissions returns the collaborator bound as "permissions".
func (a Args) Permissions() event.Permissions {
	p, _ := a.Value("permissions").(event.Permissions)
	return p
}

// Descriptor is implemented by every hook type.
type Descriptor interface {
	fmt.Stringer
	zerolog.LogObjectMarshaler
	Description() string
	base() *Hook
}

// Hook holds what every hook kind shares. Hooks are immutable once extracted.
type Hook struct {
	Kind      Kind
	Plugin    *Plugin
	Function  string
	Params    []string
	Mode      Mode
	Exclusive bool
	RunFirst  bool
	Perms     []string

	fn Func
}

func (h *Hook) base() *Hook { return h }

// Description returns "plugin:function".
func (h *Hook) Description() string {
	return h.Plugin.Title + ":" + h.Function
}

// KindName implements event.HookRef.
func (h *Hook) KindName() string { return h.Kind.String() }

// Permissions implements event.HookRef.
func (h *Hook) Permissions() []string { return h.Perms }

func (h *Hook) String() string {
	return fmt.Sprintf("%s %s from %s", h.Kind, h.Function, h.Plugin.Title)
}

// MarshalZerologObject writes the structured form of the hook.
func (h *Hook) MarshalZerologObject(e *zerolog.Event) {
	e.Str("type", h.Kind.String()).
		Str("plugin", h.Plugin.Title).
		Str("function", h.Function).
		Strs("params", h.Params).
		Strs("permissions", h.Perms).
		Bool("run_first", h.RunFirst).
		Bool("single_instance", h.Exclusive).
		Str("mode", h.Mode.String())
}

// CommandHook is triggered by a command alias.
type CommandHook struct {
	Hook
	Name     string
	Aliases  []string // Name first
	Doc      string
	AutoHelp bool
}

func (h *CommandHook) String() string {
	return fmt.Sprintf("command %s from %s", strings.Join(h.Aliases, "/"), h.Plugin.Title)
}

func (h *CommandHook) MarshalZerologObject(e *zerolog.Event) {
	h.Hook.MarshalZerologObject(e)
	e.Str("name", h.Name).Strs("aliases", h.Aliases[1:]).Bool("autohelp", h.AutoHelp)
}

// RegexHook is triggered by message content matching any of its patterns.
type RegexHook struct {
	Hook
	Patterns []*regexp.Regexp
}

func (h *RegexHook) String() string {
	return fmt.Sprintf("regex %s from %s", h.Function, h.Plugin.Title)
}

func (h *RegexHook) MarshalZerologObject(e *zerolog.Event) {
	h.Hook.MarshalZerologObject(e)
	patterns := make([]string, len(h.Patterns))
	for i, re := range h.Patterns {
		patterns[i] = re.String()
	}
	e.Strs("triggers", patterns)
}

// CatchAll is the raw trigger that matches every verb.
const CatchAll = "*"

// RawHook is triggered by protocol verbs.
type RawHook struct {
	Hook
	Triggers []string
}

// IsCatchAll reports whether the hook receives every verb.
func (h *RawHook) IsCatchAll() bool {
	for _, t := range h.Triggers {
		if t == CatchAll {
			return true
		}
	}
	return false
}

func (h *RawHook) String() string {
	return fmt.Sprintf("irc raw %s (%s) from %s", h.Function, strings.Join(h.Triggers, ","), h.Plugin.Title)
}

func (h *RawHook) MarshalZerologObject(e *zerolog.Event) {
	h.Hook.MarshalZerologObject(e)
	e.Strs("triggers", h.Triggers)
}

// EventHook is triggered by typed events.
type EventHook struct {
	Hook
	Types []event.Type
}

func (h *EventHook) String() string {
	types := make([]string, len(h.Types))
	for i, t := range h.Types {
		types[i] = string(t)
	}
	return fmt.Sprintf("event %s (%s) from %s", h.Function, strings.Join(types, ","), h.Plugin.Title)
}

func (h *EventHook) MarshalZerologObject(e *zerolog.Event) {
	h.Hook.MarshalZerologObject(e)
	types := make([]string, len(h.Types))
	for i, t := range h.Types {
		types[i] = string(t)
	}
	e.Strs("types", types)
}

// SieveHook runs before every non-lifecycle hook.
type SieveHook struct {
	Hook
	sieve SieveFunc
}

func (h *SieveHook) String() string {
	return fmt.Sprintf("sieve %s from %s", h.Function, h.Plugin.Title)
}
