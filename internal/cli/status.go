package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/soyeahso/stratus/internal/config"
	"github.com/soyeahso/stratus/internal/version"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a configuration summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("stratus %s (commit %s)\n\n", version.Version, version.Commit)

			fmt.Printf("Config:  %s\n", paths.Config)
			fmt.Printf("Plugins: %s\n", paths.Plugins)
			fmt.Printf("Home:    %s\n", paths.Base)
			fmt.Println()

			if _, err := os.Stat(paths.Config); os.IsNotExist(err) {
				fmt.Println("Config:  not found (using defaults)")
			}
			cfg, err := config.Load(paths.Config)
			if err != nil {
				fmt.Printf("Config:  error loading: %v\n", err)
				return nil
			}

			if len(cfg.Connections) == 0 {
				fmt.Println("IRC:     (no connections)")
			}
			for _, c := range cfg.Connections {
				fmt.Printf("IRC:     name=%s server=%s:%d nick=%s channels=%s tls=%v\n",
					c.Name, c.Server, c.Port, c.Nick, strings.Join(c.Channels, ","), c.UseTLS)
			}

			fmt.Printf("Plugins: builtin=%s dirs=%s watch=%v workers=%d\n",
				strings.Join(cfg.Plugins.Builtin, ","), strings.Join(paths.PluginDirs(cfg), ","),
				cfg.Plugins.Watch, cfg.Plugins.Workers)
			fmt.Printf("Groups:  %d\n", len(cfg.Permissions.Groups))
			if cfg.Metrics.Addr != "" {
				fmt.Printf("Metrics: %s\n", cfg.Metrics.Addr)
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				fmt.Printf("\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Printf("  - %s: %s\n", issue.Path, issue.Message)
				}
			}

			return nil
		},
	}

	return cmd
}
