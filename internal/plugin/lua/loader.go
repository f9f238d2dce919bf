package lua

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/oops"

	"github.com/soyeahso/stratus/internal/logging"
	"github.com/soyeahso/stratus/internal/plugin"
)

// Extension is the file extension of Lua plugin sources.
const Extension = ".lua"

// Loader loads Lua scripts as plugin units. Every Load reads the file
// again, so a reload always sees the current source.
type Loader struct {
	log *logging.Logger
}

var _ plugin.Loader = (*Loader)(nil)

// NewLoader creates a Lua loader.
func NewLoader(log *logging.Logger) *Loader {
	return &Loader{log: log.Sub("lua")}
}

func (l *Loader) Handles(path string) bool {
	return strings.HasSuffix(path, Extension)
}

func (l *Loader) Pattern() string { return "*" + Extension }

// Load reads and compiles the script. The chunk runs later, from Setup.
func (l *Loader) Load(_ context.Context, path string) (plugin.Unit, error) {
	errb := oops.In("lua").With("path", path).With("operation", "load")

	code, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, errb.Hint("failed to read plugin source").Wrap(err)
	}

	L, err := newState()
	if err != nil {
		return nil, errb.Hint("failed to create state").Wrap(err)
	}

	chunk, err := L.LoadString(string(code))
	if err != nil {
		L.Close()
		return nil, errb.Hint("syntax error").Wrap(err)
	}

	title := strings.TrimSuffix(filepath.Base(path), Extension)
	return &Unit{
		path:  path,
		L:     L,
		chunk: chunk,
		log:   l.log.With("plugin", title),
	}, nil
}
