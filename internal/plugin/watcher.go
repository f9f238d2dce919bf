package plugin

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/soyeahso/stratus/internal/logging"
)

// DefaultDebounce is how long the watcher waits for writes to settle before
// reloading a plugin.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reloads plugins when their sources change on disk. A source that
// was written is reloaded; one that was removed is unloaded.
type Watcher struct {
	manager  *Manager
	fsw      *fsnotify.Watcher
	log      *logging.Logger
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool
	wg      sync.WaitGroup
}

// NewWatcher watches the given plugin directories.
func NewWatcher(m *Manager, log *logging.Logger, dirs ...string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, dir := range dirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			fsw.Close()
			return nil, err
		}
		if err := fsw.Add(abs); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return &Watcher{
		manager:  m,
		fsw:      fsw,
		log:      log.Sub("reloader"),
		debounce: DefaultDebounce,
		pending:  make(map[string]*time.Timer),
	}, nil
}

// SetDebounce changes the settle delay; call before Run.
func (w *Watcher) SetDebounce(d time.Duration) { w.debounce = d }

// Run processes file events until ctx is cancelled, then closes the watcher
// and waits for reloads in flight.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.wait()
	defer w.fsw.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.log.Warn().Msg("file event queue overflowed, some plugin changes may be missed")
				continue
			}
			w.log.Error().Err(err).Msg("watch error")
		}
	}
}

func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event) {
	if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) &&
		!ev.Op.Has(fsnotify.Remove) && !ev.Op.Has(fsnotify.Rename) {
		return
	}
	if !w.matches(ev.Name) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[ev.Name]; ok {
		t.Stop()
	}
	w.pending[ev.Name] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, ev.Name)
		if w.closed {
			w.mu.Unlock()
			return
		}
		w.wg.Add(1)
		w.mu.Unlock()
		defer w.wg.Done()
		w.reload(ctx, ev.Name)
	})
}

func (w *Watcher) reload(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	if _, err := os.Stat(path); err != nil {
		if w.manager.Unload(ctx, path) {
			w.log.Info().Str("path", path).Msg("plugin source removed")
		}
		return
	}
	w.log.Info().Str("path", path).Msg("plugin source changed, reloading")
	// Failures are already logged by the manager.
	_ = w.manager.Load(ctx, path)
}

func (w *Watcher) matches(path string) bool {
	base := filepath.Base(path)
	for _, l := range w.manager.Loaders() {
		pattern := l.Pattern()
		if pattern == "" {
			continue
		}
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

func (w *Watcher) wait() {
	w.mu.Lock()
	w.closed = true
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()
	w.wg.Wait()
}
