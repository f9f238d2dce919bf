package plugin

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Unit is a loaded plugin artifact. Setup is its registration entry point.
// Units that hold resources may also implement io.Closer; Close is called
// when the plugin is unloaded or fails to load.
type Unit interface {
	Setup(r *Registrar) error
}

// SetupFunc adapts a plain registration function to Unit.
type SetupFunc func(r *Registrar) error

// Setup calls f.
func (f SetupFunc) Setup(r *Registrar) error { return f(r) }

// Loader resolves a source identity to a freshly loaded unit.
type Loader interface {
	// Handles reports whether the loader owns the identity.
	Handles(path string) bool
	// Pattern is the filename glob used for directory discovery, or "" for
	// loaders whose units do not live on disk.
	Pattern() string
	Load(ctx context.Context, path string) (Unit, error)
}

// BuiltinScheme prefixes identities of compiled-in units.
const BuiltinScheme = "builtin:"

// BuiltinLoader serves units compiled into the binary.
type BuiltinLoader struct {
	catalog map[string]SetupFunc
}

// NewBuiltinLoader creates a loader over a name -> setup catalog.
func NewBuiltinLoader(catalog map[string]SetupFunc) *BuiltinLoader {
	return &BuiltinLoader{catalog: catalog}
}

func (l *BuiltinLoader) Handles(path string) bool {
	return strings.HasPrefix(path, BuiltinScheme)
}

func (l *BuiltinLoader) Pattern() string { return "" }

func (l *BuiltinLoader) Load(_ context.Context, path string) (Unit, error) {
	name := strings.TrimPrefix(path, BuiltinScheme)
	setup, ok := l.catalog[name]
	if !ok {
		return nil, fmt.Errorf("unknown builtin plugin %q", name)
	}
	return setup, nil
}

// Names lists the catalog entries, sorted.
func (l *BuiltinLoader) Names() []string {
	names := make([]string, 0, len(l.catalog))
	for name := range l.catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
