// Package plugin loads hook-bearing plugin units, indexes their hooks into
// routing tables and launches hooks through the sieve pipeline.
package plugin

import "io"

// Plugin is one loaded unit and the hooks it contributed.
type Plugin struct {
	// Path is the canonical source identity.
	Path  string
	Title string

	onStart  []*Hook
	onStop   []*Hook
	sieves   []*SieveHook
	events   []*EventHook
	regexes  []*RegexHook
	commands []*CommandHook
	raws     []*RawHook

	unit Unit
}

func (p *Plugin) attach(set hookSet) {
	p.onStart = set.onStart
	p.onStop = set.onStop
	p.sieves = set.sieves
	p.events = set.events
	p.regexes = set.regexes
	p.commands = set.commands
	p.raws = set.raws
}

// Hooks returns the plugin's hooks of the given kind in declaration order.
// On-start hooks are released once the plugin is registered.
func (p *Plugin) Hooks(kind Kind) []Descriptor {
	var out []Descriptor
	switch kind {
	case KindOnStart:
		for _, h := range p.onStart {
			out = append(out, h)
		}
	case KindOnStop:
		for _, h := range p.onStop {
			out = append(out, h)
		}
	case KindSieve:
		for _, h := range p.sieves {
			out = append(out, h)
		}
	case KindEvent:
		for _, h := range p.events {
			out = append(out, h)
		}
	case KindRegex:
		for _, h := range p.regexes {
			out = append(out, h)
		}
	case KindCommand:
		for _, h := range p.commands {
			out = append(out, h)
		}
	case KindRaw:
		for _, h := range p.raws {
			out = append(out, h)
		}
	}
	return out
}

// HookCount returns the number of registered hooks across all kinds.
func (p *Plugin) HookCount() int {
	return len(p.onStop) + len(p.sieves) + len(p.events) +
		len(p.regexes) + len(p.commands) + len(p.raws)
}

func (p *Plugin) close() error {
	if c, ok := p.unit.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Info holds summary data about a loaded plugin.
type Info struct {
	Path  string         `json:"path"`
	Title string         `json:"title"`
	Hooks map[string]int `json:"hooks"`
}

// Info summarizes the plugin.
func (p *Plugin) Info() Info {
	counts := make(map[string]int)
	for _, k := range AllKinds {
		if n := len(p.Hooks(k)); n > 0 {
			counts[k.String()] = n
		}
	}
	return Info{Path: p.Path, Title: p.Title, Hooks: counts}
}
