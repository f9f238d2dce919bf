// Package channel manages the network connections that feed events to the
// hook engine.
package channel

import (
	"context"
	"sort"
	"sync"

	"github.com/soyeahso/stratus/internal/logging"
)

// Connection is one network connection. Start blocks until the connection
// ends or ctx is done.
type Connection interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Status is the runtime state of a connection.
type Status struct {
	Name      string
	Connected bool
	Running   bool
	LastError string
}

// Registry manages a set of connections keyed by name.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Connection
	log   *logging.Logger
	wg    sync.WaitGroup
}

// NewRegistry creates a connection registry.
func NewRegistry(log *logging.Logger) *Registry {
	return &Registry{
		conns: make(map[string]Connection),
		log:   log.Sub("connections"),
	}
}

// Register adds a connection, replacing any with the same name.
func (r *Registry) Register(c Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[c.Name()] = c
	r.log.Info().Str("conn", c.Name()).Msg("connection registered")
}

// Get returns a connection by name.
func (r *Registry) Get(name string) (Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[name]
	return c, ok
}

// List returns all connection names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.conns))
	for name := range r.conns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Status returns the status of every connection, sorted by name.
func (r *Registry) Status() []Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	statuses := make([]Status, 0, len(r.conns))
	for name, c := range r.conns {
		if sc, ok := c.(interface{ Status() Status }); ok {
			statuses = append(statuses, sc.Status())
		} else {
			statuses = append(statuses, Status{Name: name, Running: true})
		}
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return statuses
}

// StartAll starts every connection in its own goroutine, since Start
// blocks for the lifetime of the connection.
func (r *Registry) StartAll(ctx context.Context) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, c := range r.conns {
		r.log.Info().Str("conn", name).Msg("starting connection")
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			if err := c.Start(ctx); err != nil && ctx.Err() == nil {
				r.log.Error().Err(err).Str("conn", name).Msg("connection exited with error")
			}
		}()
	}
}

// StopAll stops every connection and waits for their Start calls to return.
func (r *Registry) StopAll(ctx context.Context) {
	r.mu.RLock()
	for name, c := range r.conns {
		r.log.Info().Str("conn", name).Msg("stopping connection")
		if err := c.Stop(ctx); err != nil {
			r.log.Error().Err(err).Str("conn", name).Msg("failed to stop connection")
		}
	}
	r.mu.RUnlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		r.log.Warn().Msg("gave up waiting for connections to close")
	}
}

// Count returns the number of registered connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
