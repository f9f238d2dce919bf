package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConnection() ConnectionConfig {
	return ConnectionConfig{Name: "libera", Server: "irc.libera.chat", Port: 6697, Nick: "stratus"}
}

func TestValidate_ValidDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Empty(t, Validate(&cfg))
}

func TestValidate_Issues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *Config)
		path   string
	}{
		{"log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"console style", func(c *Config) { c.Logging.ConsoleStyle = "compact" }, "logging.consoleStyle"},
		{"missing server", func(c *Config) { c.Connections[0].Server = "" }, "connections[0].server"},
		{"missing nick", func(c *Config) { c.Connections[0].Nick = "" }, "connections[0].nick"},
		{"bad port", func(c *Config) { c.Connections[0].Port = 70000 }, "connections[0].port"},
		{"sasl without password", func(c *Config) { c.Connections[0].SASL = true }, "connections[0].sasl"},
		{"nickserv without password", func(c *Config) {
			c.Connections[0].NickServ = &NickServConfig{Name: "nickserv"}
		}, "connections[0].nickserv.password"},
		{"duplicate name", func(c *Config) {
			c.Connections = append(c.Connections, validConnection())
		}, "connections[1].name"},
		{"negative workers", func(c *Config) { c.Plugins.Workers = -1 }, "plugins.workers"},
		{"negative concurrency", func(c *Config) { c.Plugins.LoadConcurrency = -2 }, "plugins.loadConcurrency"},
		{"empty builtin", func(c *Config) { c.Plugins.Builtin = []string{"ctcp", ""} }, "plugins.builtin[1]"},
		{"bad mask", func(c *Config) {
			c.Permissions.Groups = map[string]GroupConfig{"admins": {Users: []string{"*!*@[oops"}}}
		}, "permissions.groups.admins.users[0]"},
		{"bad metrics addr", func(c *Config) { c.Metrics.Addr = "9090" }, "metrics.addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Connections = []ConnectionConfig{validConnection()}
			tt.mutate(&cfg)

			issues := Validate(&cfg)
			if assert.Len(t, issues, 1) {
				assert.Equal(t, tt.path, issues[0].Path)
				assert.Contains(t, issues[0].String(), tt.path+": ")
			}
		})
	}
}

func TestValidate_ValidVariants(t *testing.T) {
	cfg := Defaults()
	cfg.Connections = []ConnectionConfig{validConnection()}
	cfg.Connections[0].SASL = true
	cfg.Connections[0].Password = "secret"
	cfg.Logging.Level = "trace"
	cfg.Logging.ConsoleStyle = "json"
	cfg.Metrics.Addr = ":9090"
	cfg.Permissions.Groups = map[string]GroupConfig{
		"admins": {Users: []string{"*!*@admin.example.org", "alice!~alice@*"}, Perms: []string{"botcontrol"}},
	}
	assert.Empty(t, Validate(&cfg))
}
