// Package event defines the chat event handed to plugin hooks and the
// capability table hooks bind their declared parameters against.
package event

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Type classifies an event for event-type hooks.
type Type string

// Event types produced by the connection adapters.
const (
	TypeMessage   Type = "message"
	TypeAction    Type = "action"
	TypeNotice    Type = "notice"
	TypeJoin      Type = "join"
	TypePart      Type = "part"
	TypeKick      Type = "kick"
	TypeQuit      Type = "quit"
	TypeNick      Type = "nick"
	TypeTopic     Type = "topic"
	TypeOther     Type = "other"
	TypeLifecycle Type = "lifecycle"
)

// AllTypes lists every event type a hook may subscribe to.
var AllTypes = []Type{
	TypeMessage, TypeAction, TypeNotice, TypeJoin, TypePart,
	TypeKick, TypeQuit, TypeNick, TypeTopic, TypeOther,
}

// ParseType returns the Type named by s.
func ParseType(s string) (Type, bool) {
	t := Type(strings.ToLower(s))
	for _, known := range AllTypes {
		if t == known {
			return t, true
		}
	}
	return "", false
}

// HookRef is the view of the hook being launched that sieves can inspect.
type HookRef interface {
	Description() string
	KindName() string
	Permissions() []string
}

// Event is one occurrence delivered to hooks. Hooks receive their own
// shallow copy, so derived fields (Hook, Command, Text, Match) never leak
// between concurrently launched hooks.
type Event struct {
	ID      string
	Type    Type
	Conn    Conn
	Verb    string
	Params  []string
	Content string
	Nick    string
	User    string
	Host    string
	Chan    string
	Target  string
	Time    time.Time

	// Command and Text are set on command-triggered copies.
	Command string
	Text    string
	// Match holds regex submatches on regex-triggered copies.
	Match []string

	Hook HookRef

	values map[string]any
}

// New creates an event of the given type bound to a connection.
func New(t Type, conn Conn) *Event {
	return &Event{
		ID:   uuid.New().String(),
		Type: t,
		Conn: conn,
		Time: time.Now(),
	}
}

// Clone returns a shallow copy that can be mutated without affecting e.
// The extras map is copied so WithValue on the clone stays local.
func (e *Event) Clone() *Event {
	c := *e
	if e.values != nil {
		c.values = make(map[string]any, len(e.values))
		for k, v := range e.values {
			c.values[k] = v
		}
	}
	return &c
}

// WithHook returns a copy targeted at the given hook.
func (e *Event) WithHook(h HookRef) *Event {
	c := e.Clone()
	c.Hook = h
	return c
}

// WithCommand returns a copy describing a triggered command.
func (e *Event) WithCommand(command, text string) *Event {
	c := e.Clone()
	c.Command = command
	c.Text = text
	return c
}

// WithMatch returns a copy carrying regex submatches.
func (e *Event) WithMatch(match []string) *Event {
	c := e.Clone()
	c.Match = match
	return c
}

// WithValue attaches an extra named capability to the event in place.
func (e *Event) WithValue(name string, v any) *Event {
	if e.values == nil {
		e.values = make(map[string]any)
	}
	e.values[name] = v
	return e
}

// Mask returns the sender's nick!user@host.
func (e *Event) Mask() string {
	if e.Nick == "" {
		return ""
	}
	return fmt.Sprintf("%s!%s@%s", e.Nick, e.User, e.Host)
}

// IsPrivate reports whether the event came from a direct conversation.
func (e *Event) IsPrivate() bool {
	return e.Chan != "" && strings.EqualFold(e.Chan, e.Nick)
}

// Reply sends each line to the event's channel, addressed to the sender
// when the channel is not a private conversation.
func (e *Event) Reply(lines ...string) error {
	if e.Conn == nil {
		return ErrNoConn
	}
	if e.Chan == "" {
		return fmt.Errorf("reply to %s event: no channel", e.Type)
	}
	out := make([]string, len(lines))
	for i, line := range lines {
		if e.IsPrivate() || e.Nick == "" {
			out[i] = line
		} else {
			out[i] = e.Nick + ": " + line
		}
	}
	e.Conn.Message(e.Chan, out...)
	return nil
}

// Message sends lines to the event's channel without addressing anyone.
func (e *Event) Message(lines ...string) error {
	if e.Conn == nil {
		return ErrNoConn
	}
	if e.Chan == "" {
		return fmt.Errorf("message on %s event: no channel", e.Type)
	}
	e.Conn.Message(e.Chan, lines...)
	return nil
}

// Action sends a CTCP ACTION to the event's channel.
func (e *Event) Action(msg string) error {
	if e.Conn == nil {
		return ErrNoConn
	}
	e.Conn.Action(e.Chan, msg)
	return nil
}

// Notice sends a notice to the sender.
func (e *Event) Notice(msg string) error {
	if e.Conn == nil {
		return ErrNoConn
	}
	if e.Nick == "" {
		return fmt.Errorf("notice on %s event: no sender", e.Type)
	}
	e.Conn.Notice(e.Nick, msg)
	return nil
}

// NoticeDoc sends a command's usage text to the sender.
func (e *Event) NoticeDoc(doc string) error {
	prefix := ""
	if e.Conn != nil {
		prefix = e.Conn.Options().CommandPrefix
	}
	return e.Notice(fmt.Sprintf("%s%s %s", prefix, e.Command, doc))
}

// HasPermission reports whether the sender holds perm.
func (e *Event) HasPermission(perm string) bool {
	if e.Conn == nil || e.Conn.Permissions() == nil {
		return false
	}
	return e.Conn.Permissions().HasPermission(e.Mask(), perm)
}
