package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// DefaultBuiltins are the compiled-in plugins loaded when none are configured.
var DefaultBuiltins = []string{"coresieve", "ctcp", "autojoin", "admin"}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Plugins: PluginsConfig{
			Builtin:         append([]string(nil), DefaultBuiltins...),
			Workers:         32,
			LoadConcurrency: 8,
		},
		Logging: LoggingConfig{
			Level:        "info",
			ConsoleStyle: "pretty",
		},
	}
}
