package config

// Config is the root configuration for stratus.
type Config struct {
	Connections []ConnectionConfig `yaml:"connections,omitempty"`
	Plugins     PluginsConfig      `yaml:"plugins,omitempty"`
	Permissions PermissionsConfig  `yaml:"permissions,omitempty"`
	Logging     LoggingConfig      `yaml:"logging,omitempty"`
	Metrics     MetricsConfig      `yaml:"metrics,omitempty"`
}

// ConnectionConfig defines one IRC network connection.
type ConnectionConfig struct {
	Name          string          `yaml:"name"`
	Server        string          `yaml:"server"`
	Port          int             `yaml:"port,omitempty"`
	Nick          string          `yaml:"nick"`
	User          string          `yaml:"user,omitempty"`
	RealName      string          `yaml:"realName,omitempty"`
	Password      string          `yaml:"password,omitempty"`
	Channels      []string        `yaml:"channels,omitempty"`
	UseTLS        bool            `yaml:"useTLS,omitempty"`
	SASL          bool            `yaml:"sasl,omitempty"`
	CommandPrefix string          `yaml:"commandPrefix,omitempty"`
	Mode          string          `yaml:"mode,omitempty"` // user modes set on connect, e.g. "+B"
	NickServ      *NickServConfig `yaml:"nickserv,omitempty"`
}

// NickServConfig enables identification with services after connecting.
type NickServConfig struct {
	Name     string `yaml:"name,omitempty"`
	Account  string `yaml:"account,omitempty"`
	Password string `yaml:"password"`
	Command  string `yaml:"command,omitempty"`
}

// PluginsConfig controls which plugins load and how hooks run.
type PluginsConfig struct {
	Directories     []string `yaml:"directories,omitempty"`
	Builtin         []string `yaml:"builtin,omitempty"`
	Watch           bool     `yaml:"watch,omitempty"`
	Workers         int      `yaml:"workers,omitempty"`
	LoadConcurrency int      `yaml:"loadConcurrency,omitempty"`
	ShowLoading     *bool    `yaml:"showLoading,omitempty"` // log each registered hook at info; defaults to true
}

// LogLoading reports whether hook registrations are logged at info level.
func (p PluginsConfig) LogLoading() bool {
	return p.ShowLoading == nil || *p.ShowLoading
}

// PermissionsConfig maps group names to members and granted permissions.
type PermissionsConfig struct {
	Groups map[string]GroupConfig `yaml:"groups,omitempty"`
}

// GroupConfig lists member masks (nick!user@host globs) and permissions.
type GroupConfig struct {
	Users []string `yaml:"users,omitempty"`
	Perms []string `yaml:"perms,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"`        // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "json"
}

// MetricsConfig controls the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty"`
}
