package plugin

import (
	"regexp"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/soyeahso/stratus/internal/event"
)

// Registry holds the routing tables. Only the Manager mutates it; readers
// get copies, so a slice returned here is never modified underneath them.
type Registry struct {
	mu          sync.RWMutex
	plugins     map[string]*Plugin
	commands    map[string]*CommandHook
	rawTriggers map[string][]*RawHook
	catchAll    []*RawHook
	eventHooks  map[event.Type][]*EventHook
	regexes     []RegexEntry
	sieves      []*SieveHook
}

// RegexEntry pairs one pattern with the hook that declared it.
type RegexEntry struct {
	Pattern *regexp.Regexp
	Hook    *RegexHook
}

// aliasConflict records an alias dropped because another hook owns it.
type aliasConflict struct {
	Alias    string
	Owner    *CommandHook
	Rejected *CommandHook
}

// NewRegistry creates empty routing tables.
func NewRegistry() *Registry {
	return &Registry{
		plugins:     make(map[string]*Plugin),
		commands:    make(map[string]*CommandHook),
		rawTriggers: make(map[string][]*RawHook),
		eventHooks:  make(map[event.Type][]*EventHook),
	}
}

// register indexes every hook of p. Aliases already owned by another
// command stay with their owner and are reported back.
func (r *Registry) register(p *Plugin) []aliasConflict {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.plugins[p.Path] = p

	for _, h := range p.events {
		for _, t := range h.Types {
			r.eventHooks[t] = append(r.eventHooks[t], h)
		}
	}

	var conflicts []aliasConflict
	for _, h := range p.commands {
		for _, alias := range h.Aliases {
			if owner, ok := r.commands[alias]; ok {
				conflicts = append(conflicts, aliasConflict{Alias: alias, Owner: owner, Rejected: h})
				continue
			}
			r.commands[alias] = h
		}
	}

	for _, h := range p.raws {
		if h.IsCatchAll() {
			r.catchAll = append(r.catchAll, h)
			continue
		}
		for _, verb := range h.Triggers {
			r.rawTriggers[verb] = append(r.rawTriggers[verb], h)
		}
	}

	for _, h := range p.regexes {
		for _, re := range h.Patterns {
			r.regexes = append(r.regexes, RegexEntry{Pattern: re, Hook: h})
		}
	}

	r.sieves = append(r.sieves, p.sieves...)
	return conflicts
}

// unregister removes exactly the entries contributed by the plugin at path.
func (r *Registry) unregister(path string) (*Plugin, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.plugins[path]
	if !ok {
		return nil, false
	}

	for _, h := range p.commands {
		for _, alias := range h.Aliases {
			// Only drop aliases this hook actually won.
			if r.commands[alias] == h {
				delete(r.commands, alias)
			}
		}
	}

	for _, h := range p.raws {
		if h.IsCatchAll() {
			r.catchAll = without(r.catchAll, h)
			continue
		}
		for _, verb := range h.Triggers {
			if rest := without(r.rawTriggers[verb], h); len(rest) > 0 {
				r.rawTriggers[verb] = rest
			} else {
				delete(r.rawTriggers, verb)
			}
		}
	}

	for _, h := range p.events {
		for _, t := range h.Types {
			if rest := without(r.eventHooks[t], h); len(rest) > 0 {
				r.eventHooks[t] = rest
			} else {
				delete(r.eventHooks, t)
			}
		}
	}

	r.regexes = slices.DeleteFunc(slices.Clone(r.regexes), func(e RegexEntry) bool {
		return e.Hook.Plugin == p
	})

	for _, h := range p.sieves {
		r.sieves = without(r.sieves, h)
	}

	delete(r.plugins, path)
	return p, true
}

// without returns a new slice without h, leaving s untouched for readers
// that still hold it.
func without[T comparable](s []T, h T) []T {
	out := make([]T, 0, len(s))
	for _, v := range s {
		if v != h {
			out = append(out, v)
		}
	}
	return out
}

// Plugin returns the plugin loaded from path.
func (r *Registry) Plugin(path string) (*Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[path]
	return p, ok
}

// Plugins returns all loaded plugins sorted by title, then path.
func (r *Registry) Plugins() []*Plugin {
	r.mu.RLock()
	out := make([]*Plugin, 0, len(r.plugins))
	for _, p := range r.plugins {
		out = append(out, p)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].Path < out[j].Path
	})
	return out
}

// Count returns the number of loaded plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// Command returns the hook owning alias.
func (r *Registry) Command(alias string) (*CommandHook, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.commands[strings.ToLower(alias)]
	return h, ok
}

// Commands returns a copy of the alias table.
func (r *Registry) Commands() map[string]*CommandHook {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*CommandHook, len(r.commands))
	for k, v := range r.commands {
		out[k] = v
	}
	return out
}

// RawHooks returns the hooks registered for verb, excluding catch-alls.
func (r *Registry) RawHooks(verb string) []*RawHook {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.rawTriggers[strings.ToUpper(verb)])
}

// CatchAll returns the raw hooks that receive every verb.
func (r *Registry) CatchAll() []*RawHook {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.catchAll)
}

// EventHooks returns the hooks for t in registration order.
func (r *Registry) EventHooks(t event.Type) []*EventHook {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.eventHooks[t])
}

// Regexes returns the ordered (pattern, hook) list.
func (r *Registry) Regexes() []RegexEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.regexes)
}

// Sieves returns the sieves in registration order.
func (r *Registry) Sieves() []*SieveHook {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.sieves)
}

// Snapshot is a printable, comparable view of the routing tables using hook
// descriptions in place of pointers.
type Snapshot struct {
	Plugins  []string            `json:"plugins"`
	Commands map[string]string   `json:"commands"`
	Raw      map[string][]string `json:"raw"`
	CatchAll []string            `json:"catchAll"`
	Events   map[string][]string `json:"events"`
	Regexes  []string            `json:"regexes"`
	Sieves   []string            `json:"sieves"`
}

// Snapshot captures the current routing tables.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Snapshot{
		Commands: make(map[string]string, len(r.commands)),
		Raw:      make(map[string][]string, len(r.rawTriggers)),
		Events:   make(map[string][]string, len(r.eventHooks)),
	}
	for path := range r.plugins {
		s.Plugins = append(s.Plugins, path)
	}
	sort.Strings(s.Plugins)
	for alias, h := range r.commands {
		s.Commands[alias] = h.Description()
	}
	for verb, hooks := range r.rawTriggers {
		s.Raw[verb] = descriptions(hooks)
	}
	s.CatchAll = descriptions(r.catchAll)
	for t, hooks := range r.eventHooks {
		s.Events[string(t)] = descriptions(hooks)
	}
	for _, e := range r.regexes {
		s.Regexes = append(s.Regexes, e.Pattern.String()+" "+e.Hook.Description())
	}
	s.Sieves = descriptions(r.sieves)
	return s
}

func descriptions[T Descriptor](hooks []T) []string {
	out := make([]string, 0, len(hooks))
	for _, h := range hooks {
		out = append(out, h.Description())
	}
	return out
}
