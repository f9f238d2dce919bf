package config

import (
	"fmt"
	"net"
	"slices"

	"github.com/gobwas/glob"

	"github.com/soyeahso/stratus/internal/logging"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	// Logging validation
	if cfg.Logging.Level != "" && !slices.Contains(logging.ValidLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", logging.ValidLevels, cfg.Logging.Level),
		})
	}

	validConsoleStyles := []string{"pretty", "json"}
	if cfg.Logging.ConsoleStyle != "" && !slices.Contains(validConsoleStyles, cfg.Logging.ConsoleStyle) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.consoleStyle",
			Message: fmt.Sprintf("must be one of %v, got %q", validConsoleStyles, cfg.Logging.ConsoleStyle),
		})
	}

	// Connection validation
	names := make(map[string]bool)
	for i, c := range cfg.Connections {
		path := fmt.Sprintf("connections[%d]", i)
		if c.Server == "" {
			issues = append(issues, ValidationIssue{Path: path + ".server", Message: "server is required"})
		}
		if c.Nick == "" {
			issues = append(issues, ValidationIssue{Path: path + ".nick", Message: "nick is required"})
		}
		if c.Port < 0 || c.Port > 65535 {
			issues = append(issues, ValidationIssue{
				Path:    path + ".port",
				Message: fmt.Sprintf("port must be 0-65535, got %d", c.Port),
			})
		}
		if c.SASL && c.Password == "" {
			issues = append(issues, ValidationIssue{
				Path:    path + ".sasl",
				Message: "SASL requires a password to be set",
			})
		}
		if c.NickServ != nil && c.NickServ.Password == "" {
			issues = append(issues, ValidationIssue{
				Path:    path + ".nickserv.password",
				Message: "password is required",
			})
		}
		if c.Name != "" {
			if names[c.Name] {
				issues = append(issues, ValidationIssue{
					Path:    path + ".name",
					Message: fmt.Sprintf("duplicate connection name %q", c.Name),
				})
			}
			names[c.Name] = true
		}
	}

	// Plugin validation
	if cfg.Plugins.Workers < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "plugins.workers",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Plugins.Workers),
		})
	}
	if cfg.Plugins.LoadConcurrency < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "plugins.loadConcurrency",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Plugins.LoadConcurrency),
		})
	}
	for i, name := range cfg.Plugins.Builtin {
		if name == "" {
			issues = append(issues, ValidationIssue{
				Path:    fmt.Sprintf("plugins.builtin[%d]", i),
				Message: "plugin name is empty",
			})
		}
	}

	// Permission validation
	for group, g := range cfg.Permissions.Groups {
		for i, mask := range g.Users {
			if _, err := glob.Compile(mask); err != nil {
				issues = append(issues, ValidationIssue{
					Path:    fmt.Sprintf("permissions.groups.%s.users[%d]", group, i),
					Message: fmt.Sprintf("invalid mask %q: %v", mask, err),
				})
			}
		}
	}

	// Metrics validation
	if cfg.Metrics.Addr != "" {
		if _, _, err := net.SplitHostPort(cfg.Metrics.Addr); err != nil {
			issues = append(issues, ValidationIssue{
				Path:    "metrics.addr",
				Message: fmt.Sprintf("must be host:port, got %q", cfg.Metrics.Addr),
			})
		}
	}

	return issues
}
