// Package eventtest provides fakes for the event collaborators.
package eventtest

import (
	"strings"
	"sync"

	"github.com/soyeahso/stratus/internal/event"
)

// Sent is one outbound line recorded by Conn.
type Sent struct {
	Kind   string // "message" | "notice" | "action" | "cmd" | "join"
	Target string
	Text   string
}

// Conn is an in-memory event.Conn that records everything sent through it.
type Conn struct {
	ConnName string
	BotNick  string
	Opts     event.ConnOptions
	Perms    event.Permissions

	mu   sync.Mutex
	sent []Sent
}

// NewConn creates a fake connection named "test" with nick "stratus".
func NewConn() *Conn {
	return &Conn{
		ConnName: "test",
		BotNick:  "stratus",
		Opts:     event.ConnOptions{CommandPrefix: "."},
	}
}

func (c *Conn) Name() string               { return c.ConnName }
func (c *Conn) Nick() string               { return c.BotNick }
func (c *Conn) Options() event.ConnOptions { return c.Opts }

func (c *Conn) Permissions() event.Permissions { return c.Perms }

func (c *Conn) record(s Sent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, s)
}

func (c *Conn) Message(target string, lines ...string) {
	for _, line := range lines {
		c.record(Sent{Kind: "message", Target: target, Text: line})
	}
}

func (c *Conn) Notice(target, msg string) {
	c.record(Sent{Kind: "notice", Target: target, Text: msg})
}

func (c *Conn) Action(target, msg string) {
	c.record(Sent{Kind: "action", Target: target, Text: msg})
}

func (c *Conn) Cmd(verb string, params ...string) {
	c.record(Sent{Kind: "cmd", Target: verb, Text: strings.Join(params, " ")})
}

func (c *Conn) Join(channel string) {
	c.record(Sent{Kind: "join", Target: channel})
}

// Sent returns a copy of everything recorded so far.
func (c *Conn) Sent() []Sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Sent, len(c.sent))
	copy(out, c.sent)
	return out
}

// Texts returns the text of every recorded line of the given kind.
func (c *Conn) Texts(kind string) []string {
	var out []string
	for _, s := range c.Sent() {
		if s.Kind == kind {
			out = append(out, s.Text)
		}
	}
	return out
}

// Message builds a channel PRIVMSG event from nick on conn.
func Message(conn event.Conn, nick, channel, content string) *event.Event {
	ev := event.New(event.TypeMessage, conn)
	ev.Verb = "PRIVMSG"
	ev.Nick = nick
	ev.User = "~" + nick
	ev.Host = "example.org"
	ev.Chan = channel
	ev.Target = channel
	ev.Content = content
	ev.Params = []string{channel, content}
	return ev
}

// Raw builds an event for an arbitrary protocol verb.
func Raw(conn event.Conn, verb string, params ...string) *event.Event {
	ev := event.New(event.TypeOther, conn)
	ev.Verb = verb
	ev.Params = params
	if len(params) > 0 {
		ev.Content = params[len(params)-1]
	}
	return ev
}
