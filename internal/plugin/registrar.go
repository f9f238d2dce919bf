package plugin

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"runtime"
	"strings"

	"github.com/soyeahso/stratus/internal/event"
)

// Registrar records the hooks a unit declares from its Setup entry point.
type Registrar struct {
	entries []entry
	errs    []error
}

type entry struct {
	kind     Kind
	fn       Func
	sieve    SieveFunc
	keys     []string
	patterns []*regexp.Regexp
	types    []event.Type
	opts     hookOptions
}

// NewRegistrar creates an empty registrar.
func NewRegistrar() *Registrar {
	return &Registrar{}
}

func (r *Registrar) add(e entry, fnValue any, opts []Option) {
	e.opts = defaultHookOptions()
	for _, opt := range opts {
		opt(&e.opts)
	}
	if e.opts.name == "" {
		e.opts.name = funcName(fnValue)
	}
	r.entries = append(r.entries, e)
}

// Errorf records a registration problem; it fails the load.
func (r *Registrar) Errorf(format string, args ...any) {
	r.errs = append(r.errs, fmt.Errorf(format, args...))
}

// Command registers fn under every alias; the first alias is the command name.
func (r *Registrar) Command(aliases []string, fn Func, opts ...Option) {
	keys := dedupe(aliases, strings.ToLower)
	if len(keys) == 0 {
		r.Errorf("command hook %s: no aliases", funcName(fn))
		return
	}
	if fn == nil {
		r.Errorf("command %s: nil function", keys[0])
		return
	}
	opts = append([]Option{Name(keys[0])}, opts...)
	r.add(entry{kind: KindCommand, fn: fn, keys: keys}, fn, opts)
}

// Regex registers fn for messages matching any of patterns.
func (r *Registrar) Regex(patterns []string, fn Func, opts ...Option) {
	if len(patterns) == 0 {
		r.Errorf("regex hook %s: no patterns", funcName(fn))
		return
	}
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			r.Errorf("regex hook %s: %w", funcName(fn), err)
			return
		}
		compiled = append(compiled, re)
	}
	r.add(entry{kind: KindRegex, fn: fn, patterns: compiled}, fn, opts)
}

// Raw registers fn for protocol verbs. A "*" trigger makes it a catch-all.
func (r *Registrar) Raw(verbs []string, fn Func, opts ...Option) {
	keys := dedupe(verbs, strings.ToUpper)
	if len(keys) == 0 {
		r.Errorf("raw hook %s: no triggers", funcName(fn))
		return
	}
	for _, k := range keys {
		if k == CatchAll {
			keys = []string{CatchAll}
			break
		}
	}
	r.add(entry{kind: KindRaw, fn: fn, keys: keys}, fn, opts)
}

// Event registers fn for the given event types.
func (r *Registrar) Event(types []event.Type, fn Func, opts ...Option) {
	seen := make(map[event.Type]bool, len(types))
	var unique []event.Type
	for _, t := range types {
		if !seen[t] {
			seen[t] = true
			unique = append(unique, t)
		}
	}
	if len(unique) == 0 {
		r.Errorf("event hook %s: no types", funcName(fn))
		return
	}
	r.add(entry{kind: KindEvent, fn: fn, types: unique}, fn, opts)
}

// Sieve registers a sieve run before every non-lifecycle hook.
func (r *Registrar) Sieve(fn SieveFunc, opts ...Option) {
	if fn == nil {
		r.Errorf("sieve: nil function")
		return
	}
	r.add(entry{kind: KindSieve, sieve: fn}, fn, opts)
}

// OnStart registers a hook run once while the plugin loads. A failing
// on_start hook aborts the load.
func (r *Registrar) OnStart(fn Func, opts ...Option) {
	r.add(entry{kind: KindOnStart, fn: fn}, fn, opts)
}

// OnStop registers a hook run at shutdown.
func (r *Registrar) OnStop(fn Func, opts ...Option) {
	r.add(entry{kind: KindOnStop, fn: fn}, fn, opts)
}

// extract builds the descriptors of p from the recorded entries and empties
// the registrar, so a reused registrar never registers the same hooks twice.
func (r *Registrar) extract(p *Plugin) (hookSet, error) {
	entries, errs := r.entries, r.errs
	r.entries, r.errs = nil, nil

	var set hookSet
	if len(errs) > 0 {
		return set, errors.Join(errs...)
	}

	for _, e := range entries {
		base := Hook{
			Kind:      e.kind,
			Plugin:    p,
			Function:  e.opts.name,
			Params:    e.opts.params,
			Mode:      e.opts.mode,
			Exclusive: e.opts.exclusive,
			RunFirst:  e.opts.runFirst,
			Perms:     e.opts.permissions,
			fn:        e.fn,
		}
		if base.fn == nil && e.kind != KindSieve {
			return hookSet{}, fmt.Errorf("%s hook %s: nil function", e.kind, base.Description())
		}

		switch e.kind {
		case KindOnStart:
			h := base
			set.onStart = append(set.onStart, &h)
		case KindOnStop:
			h := base
			set.onStop = append(set.onStop, &h)
		case KindSieve:
			set.sieves = append(set.sieves, &SieveHook{Hook: base, sieve: e.sieve})
		case KindEvent:
			set.events = append(set.events, &EventHook{Hook: base, Types: e.types})
		case KindRegex:
			set.regexes = append(set.regexes, &RegexHook{Hook: base, Patterns: e.patterns})
		case KindCommand:
			set.commands = append(set.commands, &CommandHook{
				Hook:     base,
				Name:     e.keys[0],
				Aliases:  e.keys,
				Doc:      e.opts.doc,
				AutoHelp: e.opts.autoHelp,
			})
		case KindRaw:
			set.raws = append(set.raws, &RawHook{Hook: base, Triggers: e.keys})
		}
	}
	return set, nil
}

// hookSet holds one unit's descriptors per kind.
type hookSet struct {
	onStart  []*Hook
	onStop   []*Hook
	sieves   []*SieveHook
	events   []*EventHook
	regexes  []*RegexHook
	commands []*CommandHook
	raws     []*RawHook
}

func dedupe(keys []string, norm func(string) string) []string {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		k = norm(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// funcName derives a short name from a Go function value, e.g.
// "github.com/x/builtin.ctcpPing" -> "ctcpPing".
func funcName(fn any) string {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return "anonymous"
	}
	rf := runtime.FuncForPC(v.Pointer())
	if rf == nil {
		return "anonymous"
	}
	name := rf.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}
