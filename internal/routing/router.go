// Package routing turns incoming chat events into hook launches.
package routing

import (
	"context"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/soyeahso/stratus/internal/event"
	"github.com/soyeahso/stratus/internal/logging"
	"github.com/soyeahso/stratus/internal/plugin"
)

// launch is one hook to start for an event.
type launch struct {
	hook     plugin.Descriptor
	ev       *event.Event
	runFirst bool
}

// Router finds the hooks interested in an event and launches them through
// the dispatcher.
type Router struct {
	registry *plugin.Registry
	dispatch *plugin.Dispatcher
	log      *logging.Logger
}

// NewRouter creates a router over the manager's routing tables.
func NewRouter(m *plugin.Manager, log *logging.Logger) *Router {
	return &Router{
		registry: m.Registry(),
		dispatch: m.Dispatcher(),
		log:      log.Sub("routing"),
	}
}

// HandleEvent launches every hook matching ev and waits for all of them.
// Hooks marked run-first are launched and awaited before the others. It
// returns how many hooks were launched.
func (r *Router) HandleEvent(ctx context.Context, ev *event.Event) int {
	launches := r.collect(ev)
	if len(launches) == 0 {
		return 0
	}

	var first, rest []launch
	for _, l := range launches {
		if l.runFirst {
			first = append(first, l)
		} else {
			rest = append(rest, l)
		}
	}

	r.log.Debug().
		Str("verb", ev.Verb).
		Str("type", string(ev.Type)).
		Int("first", len(first)).
		Int("hooks", len(rest)).
		Msg("routing event")

	r.run(ctx, first)
	r.run(ctx, rest)
	return len(launches)
}

func (r *Router) run(ctx context.Context, launches []launch) {
	var g errgroup.Group
	for _, l := range launches {
		g.Go(func() error {
			r.dispatch.Launch(ctx, l.hook, l.ev)
			return nil
		})
	}
	_ = g.Wait()
}

// collect gathers raw, event-type, command and regex launches in that order.
func (r *Router) collect(ev *event.Event) []launch {
	var out []launch

	for _, h := range r.registry.CatchAll() {
		out = append(out, launch{h, ev, h.RunFirst})
	}
	if ev.Verb != "" {
		for _, h := range r.registry.RawHooks(ev.Verb) {
			out = append(out, launch{h, ev, h.RunFirst})
		}
	}

	if ev.Type != event.TypeOther && ev.Type != event.TypeLifecycle {
		for _, h := range r.registry.EventHooks(ev.Type) {
			out = append(out, launch{h, ev, h.RunFirst})
		}
	}

	if ev.Type != event.TypeMessage {
		return out
	}

	if alias, text, ok := r.parseCommand(ev); ok {
		if h, found := r.registry.Command(alias); found {
			out = append(out, launch{h, ev.WithCommand(alias, text), h.RunFirst})
		}
	}

	// One launch per matching (pattern, hook) entry, commands or not.
	for _, entry := range r.registry.Regexes() {
		if m := entry.Pattern.FindStringSubmatch(ev.Content); m != nil {
			out = append(out, launch{entry.Hook, ev.WithMatch(m), entry.Hook.RunFirst})
		}
	}
	return out
}

// parseCommand extracts a command from a message addressed to the bot by
// prefix (".roll 2d6") or by nick ("stratus: roll 2d6"). In private
// messages the prefix is optional.
func (r *Router) parseCommand(ev *event.Event) (alias, text string, ok bool) {
	if ev.Conn == nil {
		return "", "", false
	}
	content := strings.TrimSpace(ev.Content)
	prefix := ev.Conn.Options().CommandPrefix

	var rest string
	nick := addressed(ev.Conn.Nick())
	switch {
	case prefix != "" && strings.HasPrefix(content, prefix):
		rest = content[len(prefix):]
	case nick.MatchString(content):
		rest = nick.ReplaceAllString(content, "")
		if prefix != "" {
			rest = strings.TrimPrefix(rest, prefix)
		}
	case ev.IsPrivate():
		rest = content
	default:
		return "", "", false
	}

	word, text, _ := strings.Cut(rest, " ")
	if word == "" {
		return "", "", false
	}
	return strings.ToLower(word), strings.TrimSpace(text), true
}

// addressed matches "nick: ", "nick, " and "nick; " at the start of a line.
func addressed(nick string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(nick) + `[,;:]+\s+`)
}
