package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigPath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{"single segment", "plugins", []string{"plugins"}, false},
		{"two segments", "plugins.workers", []string{"plugins", "workers"}, false},
		{"list index", "connections.0.nick", []string{"connections", "0", "nick"}, false},
		{"empty", "", nil, true},
		{"blank", "  ", nil, true},
		{"empty segment", "plugins..watch", nil, true},
		{"leading dot", ".plugins", nil, true},
		{"trailing dot", "plugins.", nil, true},
		{"negative index", "connections.-1.nick", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseConfigPath(tt.input)
			if tt.wantErr {
				var ce *ConfigError
				assert.ErrorAs(t, err, &ce)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIssuePath(t *testing.T) {
	assert.Equal(t, "connections[0].nick", IssuePath([]string{"connections", "0", "nick"}))
	assert.Equal(t, "permissions.groups.admins.users[1]", IssuePath([]string{"permissions", "groups", "admins", "users", "1"}))
	assert.Equal(t, "metrics", IssuePath([]string{"metrics"}))
}

func rawConfig() map[string]any {
	return map[string]any{
		"plugins": map[string]any{"workers": 32},
		"connections": []any{
			map[string]any{"name": "libera", "nick": "stratus", "channels": []any{"#a", "#b"}},
		},
	}
}

func TestGetValueAtPath(t *testing.T) {
	root := rawConfig()

	val, ok := GetValueAtPath(root, []string{"plugins", "workers"})
	assert.True(t, ok)
	assert.Equal(t, 32, val)

	val, ok = GetValueAtPath(root, []string{"connections", "0", "channels", "1"})
	assert.True(t, ok)
	assert.Equal(t, "#b", val)

	for _, path := range [][]string{
		{"plugins", "missing"},
		{"plugins", "workers", "deeper"},
		{"connections", "1"},
		{"connections", "name"},
	} {
		_, ok := GetValueAtPath(root, path)
		assert.False(t, ok, "%v", path)
	}
}

func TestSetValueAtPath(t *testing.T) {
	root := rawConfig()

	require.NoError(t, SetValueAtPath(root, []string{"plugins", "workers"}, 8))
	val, _ := GetValueAtPath(root, []string{"plugins", "workers"})
	assert.Equal(t, 8, val)

	require.NoError(t, SetValueAtPath(root, []string{"metrics", "addr"}, ":9090"))
	val, ok := GetValueAtPath(root, []string{"metrics", "addr"})
	assert.True(t, ok)
	assert.Equal(t, ":9090", val)

	require.NoError(t, SetValueAtPath(root, []string{"connections", "0", "nick"}, "stratus2"))
	val, _ = GetValueAtPath(root, []string{"connections", "0", "nick"})
	assert.Equal(t, "stratus2", val)

	// One past the end appends.
	require.NoError(t, SetValueAtPath(root, []string{"connections", "0", "channels", "2"}, "#c"))
	val, _ = GetValueAtPath(root, []string{"connections", "0", "channels"})
	assert.Equal(t, []any{"#a", "#b", "#c"}, val)

	require.NoError(t, SetValueAtPath(root, []string{"connections", "1", "nick"}, "other"))
	val, _ = GetValueAtPath(root, []string{"connections", "1"})
	assert.Equal(t, map[string]any{"nick": "other"}, val)

	var ce *ConfigError
	assert.ErrorAs(t, SetValueAtPath(root, []string{"connections", "5", "nick"}, "x"), &ce)
	assert.ErrorAs(t, SetValueAtPath(root, nil, "x"), &ce)

	// A scalar in the way is replaced by a map.
	require.NoError(t, SetValueAtPath(root, []string{"plugins", "workers", "max"}, 4))
	val, ok = GetValueAtPath(root, []string{"plugins", "workers", "max"})
	assert.True(t, ok)
	assert.Equal(t, 4, val)
}

func TestUnsetValueAtPath(t *testing.T) {
	root := map[string]any{
		"logging": map[string]any{
			"level":        "debug",
			"consoleStyle": "json",
		},
		"plugins": map[string]any{"builtin": []any{"coresieve", "ctcp", "admin"}},
		"metrics": ":9090",
	}

	assert.True(t, UnsetValueAtPath(root, []string{"logging", "level"}))
	_, exists := GetValueAtPath(root, []string{"logging", "level"})
	assert.False(t, exists)

	val, exists := GetValueAtPath(root, []string{"logging", "consoleStyle"})
	assert.True(t, exists)
	assert.Equal(t, "json", val)

	assert.True(t, UnsetValueAtPath(root, []string{"plugins", "builtin", "1"}))
	val, _ = GetValueAtPath(root, []string{"plugins", "builtin"})
	assert.Equal(t, []any{"coresieve", "admin"}, val)

	assert.False(t, UnsetValueAtPath(root, []string{"plugins", "builtin", "2"}))
	assert.False(t, UnsetValueAtPath(root, []string{"logging", "nonexistent"}))
	assert.False(t, UnsetValueAtPath(root, []string{"missing", "key"}))
	assert.False(t, UnsetValueAtPath(root, []string{"metrics", "addr"}))
	assert.False(t, UnsetValueAtPath(root, nil))
}

func TestResolvePaths_Default(t *testing.T) {
	t.Setenv("STRATUS_HOME", "")

	paths, err := ResolvePaths()
	require.NoError(t, err)

	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".stratus")
	assert.Equal(t, base, paths.Base)
	assert.Equal(t, filepath.Join(base, "config.yaml"), paths.Config)
	assert.Equal(t, filepath.Join(base, "plugins"), paths.Plugins)
}

func TestResolvePaths_CustomHome(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("STRATUS_HOME", tmp)

	paths, err := ResolvePaths()
	require.NoError(t, err)
	assert.Equal(t, tmp, paths.Base)
	assert.Equal(t, filepath.Join(tmp, "config.yaml"), paths.Config)
	assert.Equal(t, filepath.Join(tmp, "plugins"), paths.Plugins)
}

func TestEnsureDirs(t *testing.T) {
	t.Setenv("STRATUS_HOME", filepath.Join(t.TempDir(), "home"))

	paths, err := ResolvePaths()
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirs())
	require.NoError(t, paths.EnsureDirs())

	for _, d := range []string{paths.Base, paths.Plugins} {
		info, err := os.Stat(d)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestPluginDirs(t *testing.T) {
	base := t.TempDir()
	paths := Paths{Base: base, Config: filepath.Join(base, "config.yaml"), Plugins: filepath.Join(base, "plugins")}
	abs := filepath.Join(t.TempDir(), "extra")

	cfg := Defaults()
	cfg.Plugins.Directories = []string{"contrib", abs, "", "plugins", abs + "/"}

	assert.Equal(t, []string{
		filepath.Join(base, "plugins"),
		filepath.Join(base, "contrib"),
		abs,
	}, paths.PluginDirs(cfg))
}
