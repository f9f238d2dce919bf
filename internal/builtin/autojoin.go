package builtin

import (
	"context"
	"strings"
	"time"

	"github.com/soyeahso/stratus/internal/event"
	"github.com/soyeahso/stratus/internal/logging"
	"github.com/soyeahso/stratus/internal/plugin"
)

// Pauses between login steps, so services see the identify before joins.
var (
	identifyDelay = time.Second
	joinDelay     = 500 * time.Millisecond
)

// AutoJoin identifies with services, sets the bot's user modes and joins the
// configured channels once the server sends RPL_MYINFO (004).
func AutoJoin(r *plugin.Registrar) error {
	var log *logging.Logger
	r.OnStart(func(_ context.Context, args plugin.Args) (any, error) {
		log, _ = args.Value("log").(*logging.Logger)
		return nil, nil
	}, plugin.Name("setup"), plugin.Needs("log"))

	r.Raw([]string{"004"}, func(ctx context.Context, args plugin.Args) (any, error) {
		return nil, login(ctx, args.Conn(), log)
	}, plugin.Name("onjoin"), plugin.Needs("conn"))
	return nil
}

func login(ctx context.Context, conn event.Conn, log *logging.Logger) error {
	opts := conn.Options()

	if ns := opts.NickServ; ns != nil && ns.Password != "" {
		parts := []string{ns.Command}
		if ns.Account != "" {
			parts = append(parts, ns.Account)
		}
		parts = append(parts, ns.Password)
		conn.Message(ns.Name, strings.Join(parts, " "))
		if log != nil {
			log.Info().Str("conn", conn.Name()).Str("service", ns.Name).Msg("identified with services")
		}
		if err := sleep(ctx, identifyDelay); err != nil {
			return err
		}
	}

	if opts.Mode != "" {
		if log != nil {
			log.Info().Str("conn", conn.Name()).Str("mode", opts.Mode).Msg("setting bot mode")
		}
		conn.Cmd("MODE", conn.Nick(), opts.Mode)
	}

	for i, ch := range opts.Channels {
		if i > 0 {
			if err := sleep(ctx, joinDelay); err != nil {
				return err
			}
		}
		conn.Join(ch)
	}
	if log != nil {
		log.Info().Str("conn", conn.Name()).Strs("channels", opts.Channels).Msg("startup complete")
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
