package builtin

import (
	"context"
	"slices"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/soyeahso/stratus/internal/event"
	"github.com/soyeahso/stratus/internal/plugin"
)

// Command flood protection, per channel.
const (
	bucketTokens  = 10
	bucketRestore = 1 // tokens per second
	commandCost   = 4
)

// CoreSieve registers the sieve that enforces hook permissions and rate
// limits commands per channel.
func CoreSieve(r *plugin.Registrar) error {
	s := newCoreSieve(time.Now)
	r.Sieve(s.filter, plugin.Name("sieve_suite"), plugin.Cooperative())
	return nil
}

type coreSieve struct {
	now func() time.Time

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

func newCoreSieve(now func() time.Time) *coreSieve {
	return &coreSieve{now: now, buckets: make(map[string]*rate.Limiter)}
}

func (s *coreSieve) filter(_ context.Context, ev *event.Event) (*event.Event, error) {
	if ev.Hook == nil {
		return ev, nil
	}

	if perms := ev.Hook.Permissions(); len(perms) > 0 && !slices.ContainsFunc(perms, ev.HasPermission) {
		_ = ev.Notice("Sorry, you don't have access to this command.")
		return nil, nil
	}

	if ev.Hook.KindName() == plugin.KindCommand.String() {
		if !s.bucket(bucketKey(ev)).AllowN(s.now(), commandCost) {
			_ = ev.Notice("Command rate-limited, please try again in a few seconds.")
			return nil, nil
		}
	}
	return ev, nil
}

func (s *coreSieve) bucket(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[key]
	if !ok {
		b = rate.NewLimiter(rate.Limit(bucketRestore), bucketTokens)
		s.buckets[key] = b
	}
	return b
}

func bucketKey(ev *event.Event) string {
	if ev.Conn == nil {
		return ev.Chan
	}
	return ev.Conn.Name() + "/" + ev.Chan
}
