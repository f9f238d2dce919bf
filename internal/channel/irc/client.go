// Package irc connects to IRC networks with girc and turns protocol lines
// into events for the hook engine.
package irc

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/lrstanley/girc"

	"github.com/soyeahso/stratus/internal/channel"
	"github.com/soyeahso/stratus/internal/config"
	"github.com/soyeahso/stratus/internal/event"
	"github.com/soyeahso/stratus/internal/logging"
	"github.com/soyeahso/stratus/internal/version"
)

// maxLineLen keeps PRIVMSG lines well under the 512 byte protocol limit.
const maxLineLen = 400

// Handler receives every event read from the connection.
type Handler func(ctx context.Context, ev *event.Event)

// Client is one IRC connection. It implements event.Conn for the events it
// produces and channel.Connection for lifecycle management.
type Client struct {
	cfg     config.ConnectionConfig
	perms   event.Permissions
	handler Handler
	log     *logging.Logger

	mu      sync.RWMutex
	client  *girc.Client
	ctx     context.Context
	running bool
	lastErr string
	wg      sync.WaitGroup
}

// New creates a client for one configured connection. Events are passed to
// handler; perms is exposed to hooks through the connection.
func New(cfg config.ConnectionConfig, perms event.Permissions, handler Handler, log *logging.Logger) *Client {
	return &Client{
		cfg:     cfg,
		perms:   perms,
		handler: handler,
		log:     log.Sub("irc").With("conn", cfg.Name),
		ctx:     context.Background(),
	}
}

func (c *Client) Name() string { return c.cfg.Name }

// Nick returns the current nickname, or the configured one before connecting.
func (c *Client) Nick() string {
	if gc := c.girc(); gc != nil {
		if nick := gc.GetNick(); nick != "" {
			return nick
		}
	}
	return c.cfg.Nick
}

func (c *Client) Options() event.ConnOptions {
	opts := event.ConnOptions{
		CommandPrefix: c.cfg.CommandPrefix,
		Channels:      append([]string(nil), c.cfg.Channels...),
		Mode:          c.cfg.Mode,
	}
	if ns := c.cfg.NickServ; ns != nil {
		opts.NickServ = &event.NickServ{
			Name:     ns.Name,
			Account:  ns.Account,
			Password: ns.Password,
			Command:  ns.Command,
		}
	}
	return opts
}

func (c *Client) Permissions() event.Permissions { return c.perms }

// Status returns the current runtime status.
func (c *Client) Status() channel.Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return channel.Status{
		Name:      c.cfg.Name,
		Connected: c.client != nil && c.client.IsConnected(),
		Running:   c.running,
		LastError: c.lastErr,
	}
}

func (c *Client) girc() *girc.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

// connected returns the girc client, or nil after logging the dropped
// output when there is no live connection.
func (c *Client) connected(what, target string) *girc.Client {
	gc := c.girc()
	if gc == nil || !gc.IsConnected() {
		c.log.Debug().Str("target", target).Str("kind", what).Msg("not connected, dropping output")
		return nil
	}
	return gc
}

// Message sends each line as a PRIVMSG, splitting long lines.
func (c *Client) Message(target string, lines ...string) {
	gc := c.connected("message", target)
	if gc == nil {
		return
	}
	n := 0
	for _, line := range lines {
		for _, chunk := range splitMessage(line, maxLineLen) {
			gc.Cmd.Message(target, chunk)
			n++
		}
	}
	c.log.Debug().Str("to", target).Int("lines", n).Msg("sent IRC message")
}

func (c *Client) Notice(target, msg string) {
	if gc := c.connected("notice", target); gc != nil {
		for _, chunk := range splitMessage(msg, maxLineLen) {
			gc.Cmd.Notice(target, chunk)
		}
	}
}

func (c *Client) Action(target, msg string) {
	if gc := c.connected("action", target); gc != nil {
		gc.Cmd.Action(target, msg)
	}
}

// Cmd sends a raw protocol command.
func (c *Client) Cmd(verb string, params ...string) {
	if gc := c.connected("cmd", verb); gc != nil {
		gc.Send(&girc.Event{Command: strings.ToUpper(verb), Params: params})
	}
}

func (c *Client) Join(ch string) {
	if gc := c.connected("join", ch); gc != nil {
		c.log.Info().Str("channel", ch).Msg("joining channel")
		gc.Cmd.Join(ch)
	}
}

// Start connects to the server and delivers events until the connection
// ends or ctx is done.
func (c *Client) Start(ctx context.Context) error {
	gircCfg := girc.Config{
		Server:  c.cfg.Server,
		Port:    c.cfg.Port,
		Nick:    c.cfg.Nick,
		User:    c.cfg.User,
		Name:    c.cfg.RealName,
		SSL:     c.cfg.UseTLS,
		Version: version.CTCP(),
		Debug:   c.log.Writer("trace"),
	}
	if gircCfg.Name == "" {
		gircCfg.Name = "stratus"
	}
	if c.cfg.UseTLS {
		gircCfg.TLSConfig = &tls.Config{ServerName: c.cfg.Server}
	}
	if c.cfg.SASL && c.cfg.Password != "" {
		gircCfg.SASL = &girc.SASLPlain{User: c.cfg.User, Pass: c.cfg.Password}
	} else if c.cfg.Password != "" {
		gircCfg.ServerPass = c.cfg.Password
	}

	gc := girc.New(gircCfg)
	// CTCP requests are answered by plugins.
	gc.CTCP.Clear(girc.CTCP_VERSION)
	gc.CTCP.Clear(girc.CTCP_PING)
	gc.CTCP.Clear(girc.CTCP_TIME)
	gc.Handlers.Add(girc.CONNECTED, c.onConnected)
	gc.Handlers.Add(girc.DISCONNECTED, c.onDisconnected)
	gc.Handlers.Add(girc.ALL_EVENTS, c.onEvent)

	c.mu.Lock()
	c.client = gc
	c.ctx = ctx
	c.running = true
	c.lastErr = ""
	c.mu.Unlock()

	c.log.Info().
		Str("server", c.cfg.Server).
		Int("port", c.cfg.Port).
		Str("nick", c.cfg.Nick).
		Strs("channels", c.cfg.Channels).
		Bool("tls", c.cfg.UseTLS).
		Msg("connecting to IRC")

	errCh := make(chan error, 1)
	go func() {
		errCh <- gc.Connect()
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		gc.Close()
		<-errCh
		err = ctx.Err()
	}

	c.wg.Wait()
	c.mu.Lock()
	c.running = false
	if err != nil && ctx.Err() == nil {
		c.lastErr = err.Error()
	}
	c.mu.Unlock()

	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("irc connect %s: %w", c.cfg.Server, err)
	}
	return err
}

// Stop quits the server. Start returns once the connection has closed.
func (c *Client) Stop(context.Context) error {
	if gc := c.girc(); gc != nil && gc.IsConnected() {
		c.log.Info().Msg("disconnecting from IRC")
		gc.Quit("stratus shutting down")
	}
	return nil
}

func (c *Client) onConnected(gc *girc.Client, _ girc.Event) {
	c.log.Info().Str("nick", gc.GetNick()).Msg("connected to IRC")
}

func (c *Client) onDisconnected(*girc.Client, girc.Event) {
	c.log.Warn().Msg("disconnected from IRC")
}

// onEvent hands the event to the router on its own goroutine, so slow hooks
// never stall the read loop.
func (c *Client) onEvent(gc *girc.Client, e girc.Event) {
	ev := toEvent(e, c)
	if ev == nil {
		return
	}
	if ev.Type == event.TypeMessage || ev.Type == event.TypeAction {
		if strings.EqualFold(ev.Nick, gc.GetNick()) {
			return
		}
	}

	c.mu.RLock()
	ctx := c.ctx
	c.mu.RUnlock()
	if ctx.Err() != nil {
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.handler(ctx, ev)
	}()
}

// toEvent converts a girc event. Client-internal pseudo events yield nil.
func toEvent(e girc.Event, conn event.Conn) *event.Event {
	if strings.HasPrefix(e.Command, "CLIENT_") || strings.HasPrefix(e.Command, "STS_") {
		return nil
	}

	ev := event.New(event.TypeOther, conn)
	ev.Verb = e.Command
	ev.Params = append([]string(nil), e.Params...)
	if e.Source != nil {
		ev.Nick = e.Source.Name
		ev.User = e.Source.Ident
		ev.Host = e.Source.Host
	}
	if len(e.Params) > 0 {
		ev.Target = e.Params[0]
		ev.Content = e.Last()
	}

	switch e.Command {
	case girc.PRIVMSG, girc.NOTICE:
		ev.Type = event.TypeMessage
		if e.Command == girc.NOTICE {
			ev.Type = event.TypeNotice
		} else if e.IsAction() {
			ev.Type = event.TypeAction
			ev.Content = e.StripAction()
		}
		ev.Chan = ev.Target
		if !girc.IsValidChannel(ev.Target) {
			ev.Chan = ev.Nick
		}
	case girc.JOIN:
		ev.Type = event.TypeJoin
		ev.Chan = ev.Target
		ev.Content = ""
	case girc.PART:
		ev.Type = event.TypePart
		ev.Chan = ev.Target
		if len(e.Params) < 2 {
			ev.Content = ""
		}
	case girc.KICK:
		ev.Type = event.TypeKick
		ev.Chan = ev.Target
		if len(e.Params) > 1 {
			ev.Target = e.Params[1]
		}
	case girc.QUIT:
		ev.Type = event.TypeQuit
	case girc.NICK:
		ev.Type = event.TypeNick
	case girc.TOPIC:
		ev.Type = event.TypeTopic
		ev.Chan = ev.Target
	}
	return ev
}

// splitMessage breaks text into lines suitable for a single PRIVMSG. Each
// newline starts a new line, empty lines are dropped and lines longer than
// maxLen bytes are cut at rune boundaries.
func splitMessage(text string, maxLen int) []string {
	var chunks []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		for len(line) > maxLen {
			cut := maxLen
			for cut > 0 && !utf8.RuneStart(line[cut]) {
				cut--
			}
			if cut == 0 {
				cut = maxLen
			}
			chunks = append(chunks, line[:cut])
			line = line[cut:]
		}
		if line != "" {
			chunks = append(chunks, line)
		}
	}
	return chunks
}
