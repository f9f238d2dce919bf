package plugin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/soyeahso/stratus/internal/event"
	"github.com/soyeahso/stratus/internal/logging"
)

// Dispatcher launches hooks: sieve pipeline, help gate, exclusivity gate,
// parameter binding, execution and reply formatting.
type Dispatcher struct {
	registry *Registry
	pool     *Pool
	locks    *lockTable
	log      *logging.Logger
	metrics  *Metrics
}

// NewDispatcher creates a dispatcher reading sieves from reg.
func NewDispatcher(reg *Registry, pool *Pool, log *logging.Logger, metrics *Metrics) *Dispatcher {
	return &Dispatcher{
		registry: reg,
		pool:     pool,
		locks:    newLockTable(),
		log:      log.Sub("dispatch"),
		metrics:  metrics,
	}
}

// Launch runs h for ev and reports whether the hook ran successfully.
// Suppression, missing parameters and hook failures all report false; no
// failure inside a hook or sieve escapes to the caller.
func (d *Dispatcher) Launch(ctx context.Context, h Descriptor, ev *event.Event) bool {
	hook := h.base()
	start := time.Now()
	ev = ev.WithHook(hook)

	if hook.Kind != KindOnStart && hook.Kind != KindOnStop {
		for _, sieve := range d.registry.Sieves() {
			next, ok := d.runSieve(ctx, sieve, hook, ev)
			if !ok {
				d.metrics.launch(hook.Kind, outcomeSuppressed, start)
				return false
			}
			ev = next
		}
	}

	if cmd, ok := h.(*CommandHook); ok && cmd.AutoHelp && ev.Text == "" && cmd.Doc != "" {
		if err := ev.NoticeDoc(cmd.Doc); err != nil {
			d.log.Debug().Err(err).Str("hook", hook.Description()).Msg("could not send usage")
		}
		d.metrics.launch(hook.Kind, outcomeHelp, start)
		return false
	}

	if hook.Exclusive {
		gate := d.locks.get(hook)
		if err := gate.Acquire(ctx, 1); err != nil {
			d.log.Warn().Err(err).Str("hook", hook.Description()).Msg("gave up waiting for single-instance hook")
			d.metrics.launch(hook.Kind, outcomeError, start)
			return false
		}
		defer gate.Release(1)
	}

	outcome := d.execute(ctx, hook, ev)
	d.metrics.launch(hook.Kind, outcome, start)
	return outcome == outcomeOK
}

// runSieve returns the event to pass on, or false when the sieve suppressed
// the launch or failed.
func (d *Dispatcher) runSieve(ctx context.Context, sieve *SieveHook, target *Hook, ev *event.Event) (*event.Event, bool) {
	out, err := d.pool.Submit(ctx, sieve.Mode, func(ctx context.Context) (any, error) {
		return sieve.sieve(ctx, ev)
	}).Wait()
	if err != nil {
		d.logFailure(err, "error running sieve", sieve.Description(), target.Description())
		return nil, false
	}
	next, _ := out.(*event.Event)
	if next == nil {
		d.log.Debug().
			Str("sieve", sieve.Description()).
			Str("hook", target.Description()).
			Msg("launch suppressed by sieve")
		return nil, false
	}
	return next, true
}

func (d *Dispatcher) execute(ctx context.Context, hook *Hook, ev *event.Event) string {
	values, err := ev.Bind(hook.Params)
	if err != nil {
		var missing *event.MissingCapabilityError
		if errors.As(err, &missing) {
			d.log.Error().
				Str("hook", hook.Description()).
				Str("param", missing.Name).
				Strs("valid", ev.Capabilities()).
				Msg("hook asked for invalid argument, cancelling execution")
		} else {
			d.log.Error().Err(err).Str("hook", hook.Description()).Msg("binding hook arguments")
		}
		return outcomeBindError
	}

	args := NewArgs(hook.Params, values)
	out, err := d.pool.Submit(ctx, hook.Mode, func(ctx context.Context) (any, error) {
		return hook.fn(ctx, args)
	}).Wait()
	if err != nil {
		d.logFailure(err, "error in hook", "", hook.Description())
		return outcomeError
	}

	if lines := replyLines(out); len(lines) > 0 {
		if err := ev.Reply(lines...); err != nil {
			d.log.Warn().Err(err).Str("hook", hook.Description()).Msg("could not send hook output")
		}
	}
	return outcomeOK
}

func (d *Dispatcher) logFailure(err error, msg, sieve, hook string) {
	e := d.log.Error().Err(err).Str("hook", hook)
	if sieve != "" {
		e = e.Str("sieve", sieve)
	}
	var p *PanicError
	if errors.As(err, &p) {
		e = e.Bytes("stack", p.Stack)
	}
	e.Msg(msg)
}

// replyLines turns a hook's return value into reply lines. Slices produce
// one line per element; other non-empty values are stringified and split on
// newlines. nil, "", false and empty slices produce nothing.
func replyLines(out any) []string {
	switch v := out.(type) {
	case nil:
		return nil
	case string:
		if v == "" {
			return nil
		}
		return strings.Split(v, "\n")
	case []string:
		return v
	case []any:
		lines := make([]string, 0, len(v))
		for _, item := range v {
			lines = append(lines, fmt.Sprint(item))
		}
		return lines
	case bool:
		if !v {
			return nil
		}
		return []string{"true"}
	default:
		return strings.Split(fmt.Sprint(v), "\n")
	}
}
