package plugin

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/soyeahso/stratus/internal/event"
	"github.com/soyeahso/stratus/internal/logging"
)

// Manager owns plugin lifecycle: loading, reloading, unloading and shutdown.
// It is the only writer of the Registry.
type Manager struct {
	registry *Registry
	dispatch *Dispatcher
	pool     *Pool
	loaders  []Loader
	metrics  *Metrics
	log      *logging.Logger

	extras          map[string]any
	loadConcurrency int
	showLoading     bool

	mu        sync.Mutex
	pathLocks map[string]*sync.Mutex
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLoaders sets the unit loaders, consulted in order.
func WithLoaders(loaders ...Loader) ManagerOption {
	return func(m *Manager) { m.loaders = append(m.loaders, loaders...) }
}

// WithMetrics records dispatch and load metrics.
func WithMetrics(metrics *Metrics) ManagerOption {
	return func(m *Manager) { m.metrics = metrics }
}

// WithWorkers bounds the blocking worker pool.
func WithWorkers(n int) ManagerOption {
	return func(m *Manager) { m.pool = NewPool(n) }
}

// WithLoadConcurrency limits how many plugins LoadBatch loads at once.
// Zero or less means no limit.
func WithLoadConcurrency(n int) ManagerOption {
	return func(m *Manager) { m.loadConcurrency = n }
}

// WithLoadLogging controls whether hook registrations are logged at info
// (true) or debug (false) level.
func WithLoadLogging(show bool) ManagerOption {
	return func(m *Manager) { m.showLoading = show }
}

// WithExtra makes a named value available to lifecycle hooks.
func WithExtra(name string, v any) ManagerOption {
	return func(m *Manager) { m.extras[name] = v }
}

// NewManager creates a manager with an empty registry.
func NewManager(log *logging.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		registry:    NewRegistry(),
		log:         log.Sub("plugins"),
		extras:      make(map[string]any),
		showLoading: true,
		pathLocks:   make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.pool == nil {
		m.pool = NewPool(DefaultWorkers)
	}
	m.dispatch = NewDispatcher(m.registry, m.pool, log, m.metrics)
	return m
}

// Registry returns the routing tables.
func (m *Manager) Registry() *Registry { return m.registry }

// Dispatcher returns the dispatcher launching hooks.
func (m *Manager) Dispatcher() *Dispatcher { return m.dispatch }

// Loaders returns the configured loaders.
func (m *Manager) Loaders() []Loader { return m.loaders }

// Load loads (or reloads) the unit at path and registers its hooks. A failed
// load leaves the registry without any entry for path.
func (m *Manager) Load(ctx context.Context, path string) error {
	path, title, err := canonical(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrLoad, path, err)
	}

	lock := m.pathLock(path)
	lock.Lock()
	defer lock.Unlock()

	if _, ok := m.registry.Plugin(path); ok {
		m.unload(path)
	}

	log := m.log.With("plugin", title)

	loader := m.loaderFor(path)
	if loader == nil {
		m.metrics.load(loadError)
		log.Error().Str("path", path).Msg("no loader for plugin")
		return fmt.Errorf("%w: %s: %w", ErrLoad, path, ErrNoLoader)
	}

	unit, err := loader.Load(ctx, path)
	if err != nil {
		m.metrics.load(loadError)
		log.Error().Err(err).Str("path", path).Msg("error loading plugin")
		return fmt.Errorf("%w: %s: %w", ErrLoad, path, err)
	}

	p := &Plugin{Path: path, Title: title, unit: unit}
	reg := NewRegistrar()
	err = unit.Setup(reg)
	if err == nil {
		var set hookSet
		set, err = reg.extract(p)
		p.attach(set)
	}
	if err != nil {
		m.discard(p)
		m.metrics.load(loadError)
		log.Error().Err(err).Str("path", path).Msg("error setting up plugin")
		return fmt.Errorf("%w: %s: %w", ErrLoad, path, err)
	}

	for _, h := range p.onStart {
		if !m.dispatch.Launch(ctx, h, m.lifecycleEvent(p)) {
			m.discard(p)
			m.metrics.load(loadStartup)
			log.Warn().Str("hook", h.Description()).Msg("not registering plugin due to failed startup hook")
			return fmt.Errorf("%w: %s", ErrStartup, h.Description())
		}
	}
	p.onStart = nil

	for _, c := range m.registry.register(p) {
		m.metrics.conflict()
		log.Warn().
			Str("alias", c.Alias).
			Str("owner", c.Owner.Description()).
			Str("rejected", c.Rejected.Description()).
			Msg("command alias already registered, keeping existing owner")
	}
	m.logHooks(p)

	m.metrics.load(loadOK)
	m.metrics.plugins(m.registry.Count())
	log.Info().Str("path", path).Int("hooks", p.HookCount()).Msg("plugin loaded")
	return nil
}

// Unload removes every registry entry of the plugin at path and releases
// its unit. It reports whether a plugin was loaded from path.
func (m *Manager) Unload(_ context.Context, path string) bool {
	path, _, err := canonical(path)
	if err != nil {
		return false
	}

	lock := m.pathLock(path)
	lock.Lock()
	defer lock.Unlock()
	return m.unload(path)
}

func (m *Manager) unload(path string) bool {
	p, ok := m.registry.unregister(path)
	if !ok {
		return false
	}
	m.discard(p)
	m.metrics.plugins(m.registry.Count())
	m.log.Info().Str("plugin", p.Title).Str("path", path).Msg("unloaded plugin")
	return true
}

// discard releases the unit of a plugin that is not (or no longer) registered.
func (m *Manager) discard(p *Plugin) {
	if err := p.close(); err != nil {
		m.log.Warn().Err(err).Str("plugin", p.Title).Msg("error closing plugin")
	}
}

// Discover lists the plugin sources in dir matching any loader's pattern.
func (m *Manager) Discover(dir string) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string
	for _, l := range m.loaders {
		pattern := l.Pattern()
		if pattern == "" {
			continue
		}
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("discover plugins in %s: %w", dir, err)
		}
		for _, p := range matches {
			if !seen[p] {
				seen[p] = true
				paths = append(paths, p)
			}
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// LoadAll loads every plugin source found in dir concurrently and returns
// when all loads finished. Individual failures do not stop the others; they
// are joined into the returned error.
func (m *Manager) LoadAll(ctx context.Context, dir string) error {
	paths, err := m.Discover(dir)
	if err != nil {
		return err
	}
	m.log.Info().Str("dir", dir).Int("count", len(paths)).Msg("loading plugins")
	return m.LoadBatch(ctx, paths)
}

// LoadBuiltins loads compiled-in plugins by catalog name.
func (m *Manager) LoadBuiltins(ctx context.Context, names ...string) error {
	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = BuiltinScheme + name
	}
	return m.LoadBatch(ctx, paths)
}

// LoadBatch loads paths concurrently.
func (m *Manager) LoadBatch(ctx context.Context, paths []string) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	if m.loadConcurrency > 0 {
		g.SetLimit(m.loadConcurrency)
	}
	for _, path := range paths {
		g.Go(func() error {
			if err := m.Load(ctx, path); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// RunShutdownHooks launches every on_stop hook of every loaded plugin
// concurrently and waits for all of them.
func (m *Manager) RunShutdownHooks(ctx context.Context) {
	var g errgroup.Group
	for _, p := range m.registry.Plugins() {
		for _, h := range p.onStop {
			g.Go(func() error {
				m.dispatch.Launch(ctx, h, m.lifecycleEvent(p))
				return nil
			})
		}
	}
	_ = g.Wait()
}

// Close unloads every plugin.
func (m *Manager) Close(ctx context.Context) {
	for _, p := range m.registry.Plugins() {
		m.Unload(ctx, p.Path)
	}
}

func (m *Manager) lifecycleEvent(p *Plugin) *event.Event {
	ev := event.New(event.TypeLifecycle, nil)
	for name, v := range m.extras {
		ev.WithValue(name, v)
	}
	return ev.
		WithValue("plugin", p.Title).
		WithValue("log", m.log.Sub(p.Title))
}

func (m *Manager) logHooks(p *Plugin) {
	for _, kind := range AllKinds {
		for _, h := range p.Hooks(kind) {
			var e *zerolog.Event
			if m.showLoading {
				e = m.log.Info()
			} else {
				e = m.log.Debug()
			}
			e.Object("hook", h).Msgf("loaded %s", h)
		}
	}
}

func (m *Manager) loaderFor(path string) Loader {
	for _, l := range m.loaders {
		if l.Handles(path) {
			return l
		}
	}
	return nil
}

func (m *Manager) pathLock(path string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.pathLocks[path]
	if !ok {
		l = &sync.Mutex{}
		m.pathLocks[path] = l
	}
	return l
}

// canonical resolves the identity of a plugin source and derives its title.
func canonical(path string) (string, string, error) {
	if strings.HasPrefix(path, BuiltinScheme) {
		return path, strings.TrimPrefix(path, BuiltinScheme), nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path, "", err
	}
	base := filepath.Base(abs)
	return abs, strings.TrimSuffix(base, filepath.Ext(base)), nil
}
