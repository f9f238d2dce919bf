package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

const defaultBaseDir = ".stratus"

// Paths holds the resolved filesystem locations used by stratus.
type Paths struct {
	Base    string // ~/.stratus
	Config  string // ~/.stratus/config.yaml
	Plugins string // ~/.stratus/plugins
}

// ResolvePaths computes the standard paths. STRATUS_HOME overrides the
// default base directory.
func ResolvePaths() (Paths, error) {
	base := os.Getenv("STRATUS_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, err
		}
		base = filepath.Join(home, defaultBaseDir)
	}

	return Paths{
		Base:    base,
		Config:  filepath.Join(base, "config.yaml"),
		Plugins: filepath.Join(base, "plugins"),
	}, nil
}

// EnsureDirs creates the base and plugin directories if they don't exist.
func (p Paths) EnsureDirs() error {
	for _, d := range []string{p.Base, p.Plugins} {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return err
		}
	}
	return nil
}

// PluginDirs returns the directories scanned for plugin sources: the
// default plugin directory followed by the configured ones. Relative
// entries are resolved against the base directory; duplicates are dropped.
func (p Paths) PluginDirs(cfg Config) []string {
	dirs := []string{filepath.Clean(p.Plugins)}
	for _, d := range cfg.Plugins.Directories {
		if d == "" {
			continue
		}
		if strings.HasPrefix(d, "~/") {
			if home, err := os.UserHomeDir(); err == nil {
				d = filepath.Join(home, d[2:])
			}
		}
		if !filepath.IsAbs(d) {
			d = filepath.Join(p.Base, d)
		}
		d = filepath.Clean(d)
		if !slices.Contains(dirs, d) {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

// ParseConfigPath splits a dot-separated config key such as
// "connections.0.nick" into segments. Numeric segments index lists.
func ParseConfigPath(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, &ConfigError{Message: "empty config path"}
	}
	parts := strings.Split(raw, ".")
	for _, p := range parts {
		if p == "" {
			return nil, &ConfigError{Message: "config path contains empty segment"}
		}
		if strings.HasPrefix(p, "-") {
			if _, err := strconv.Atoi(p); err == nil {
				return nil, &ConfigError{Message: "negative list index: " + p}
			}
		}
	}
	return parts, nil
}

// IssuePath renders config path segments the way ValidationIssue.Path
// does, e.g. ["connections", "0", "nick"] -> "connections[0].nick".
func IssuePath(path []string) string {
	var b strings.Builder
	for _, seg := range path {
		if _, err := strconv.Atoi(seg); err == nil {
			fmt.Fprintf(&b, "[%s]", seg)
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(seg)
	}
	return b.String()
}

// listIndex parses key as an index into a list of length n.
func listIndex(key string, n int) (int, bool) {
	i, err := strconv.Atoi(key)
	if err != nil || i < 0 || i >= n {
		return 0, false
	}
	return i, true
}

// GetValueAtPath walks nested maps and lists decoded from YAML.
func GetValueAtPath(root map[string]any, path []string) (any, bool) {
	var current any = root
	for _, key := range path {
		switch node := current.(type) {
		case map[string]any:
			v, ok := node[key]
			if !ok {
				return nil, false
			}
			current = v
		case []any:
			i, ok := listIndex(key, len(node))
			if !ok {
				return nil, false
			}
			current = node[i]
		default:
			return nil, false
		}
	}
	return current, true
}

// SetValueAtPath stores value at path, creating intermediate maps as
// needed. A list index may address an existing element or, one past the
// end, append a new one.
func SetValueAtPath(root map[string]any, path []string, value any) error {
	if len(path) == 0 {
		return &ConfigError{Message: "empty config path"}
	}
	_, err := setValue(root, path, value)
	return err
}

func setValue(node any, path []string, value any) (any, error) {
	if len(path) == 0 {
		return value, nil
	}
	key, rest := path[0], path[1:]

	if list, ok := node.([]any); ok {
		i, ok := listIndex(key, len(list)+1)
		if !ok {
			return nil, &ConfigError{Message: fmt.Sprintf("list index %s out of range (length %d)", key, len(list))}
		}
		var child any
		if i < len(list) {
			child = list[i]
		}
		v, err := setValue(child, rest, value)
		if err != nil {
			return nil, err
		}
		if i == len(list) {
			return append(list, v), nil
		}
		list[i] = v
		return list, nil
	}

	m, ok := node.(map[string]any)
	if !ok {
		m = map[string]any{}
	}
	v, err := setValue(m[key], rest, value)
	if err != nil {
		return nil, err
	}
	m[key] = v
	return m, nil
}

// UnsetValueAtPath removes the value at path; list elements are cut out.
// It reports whether anything was removed.
func UnsetValueAtPath(root map[string]any, path []string) bool {
	if len(path) == 0 {
		return false
	}
	_, removed := unsetValue(root, path)
	return removed
}

func unsetValue(node any, path []string) (any, bool) {
	key, rest := path[0], path[1:]
	switch n := node.(type) {
	case map[string]any:
		child, ok := n[key]
		if !ok {
			return n, false
		}
		if len(rest) == 0 {
			delete(n, key)
			return n, true
		}
		v, removed := unsetValue(child, rest)
		if removed {
			n[key] = v
		}
		return n, removed
	case []any:
		i, ok := listIndex(key, len(n))
		if !ok {
			return n, false
		}
		if len(rest) == 0 {
			return slices.Delete(n, i, i+1), true
		}
		v, removed := unsetValue(n[i], rest)
		if removed {
			n[i] = v
		}
		return n, removed
	}
	return node, false
}
