package config

import (
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes environment variable references in
// credential fields so passwords can be stored as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	for i := range cfg.Connections {
		c := &cfg.Connections[i]
		c.Password = expandEnvVars(c.Password)
		if c.NickServ != nil {
			c.NickServ.Password = expandEnvVars(c.NickServ.Password)
		}
	}
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	cfg, err = Parse(data)
	if err != nil {
		return cfg, err
	}
	applyEnvOverrides(&cfg)
	expandSensitiveFields(&cfg)
	return cfg, nil
}

// Parse decodes YAML config data over the defaults. Environment overrides
// and ${VAR} expansion are left to Load.
func Parse(data []byte) (Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	applyDefaults(&cfg)
	return cfg, nil
}

// FromRaw decodes a generic map, as edited by `config set`, into a Config.
func FromRaw(raw map[string]any) (Config, error) {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return Defaults(), &ConfigError{Message: "failed to encode config: " + err.Error()}
	}
	return Parse(data)
}

// LoadRaw reads the config file into a generic map for path-based access.
func LoadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// SaveRaw writes a generic map back to a YAML config file.
func SaveRaw(path string, raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.ConsoleStyle == "" {
		cfg.Logging.ConsoleStyle = "pretty"
	}
	if cfg.Plugins.Workers == 0 {
		cfg.Plugins.Workers = 32
	}

	for i := range cfg.Connections {
		c := &cfg.Connections[i]
		if c.Name == "" {
			c.Name = c.Server
		}
		if c.Port == 0 {
			if c.UseTLS {
				c.Port = 6697
			} else {
				c.Port = 6667
			}
		}
		if c.CommandPrefix == "" {
			c.CommandPrefix = "."
		}
		if c.User == "" {
			c.User = c.Nick
		}
		if c.NickServ != nil {
			if c.NickServ.Name == "" {
				c.NickServ.Name = "nickserv"
			}
			if c.NickServ.Command == "" {
				c.NickServ.Command = "IDENTIFY"
			}
		}
	}
}

// applyEnvOverrides reads STRATUS_* environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STRATUS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("STRATUS_PLUGIN_DIR"); v != "" {
		cfg.Plugins.Directories = append(cfg.Plugins.Directories, v)
	}
	if v := os.Getenv("STRATUS_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
}
