package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

func newPluginsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "plugins [dir...]",
		Short: "Load plugins offline and print the routing tables",
		Long: "Loads the configured builtins and plugin directories (or the given directories) " +
			"without connecting, then prints every registered hook.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			dirs := args
			if len(dirs) == 0 {
				dirs = paths.PluginDirs(cfg)
			}

			ctx := context.Background()
			eng := newEngine(cfg, dirs, log)
			loadErr := eng.load(ctx, cfg.Plugins.Builtin)
			defer eng.manager.Close(ctx)

			snap := eng.manager.Registry().Snapshot()
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(snap); err != nil {
					return err
				}
				return loadErr
			}

			fmt.Printf("Plugins (%d):\n", len(snap.Plugins))
			for _, p := range eng.manager.Registry().Plugins() {
				info := p.Info()
				fmt.Printf("  %-24s %s\n", info.Title, formatCounts(info.Hooks))
			}

			fmt.Printf("\nCommands (%d):\n", len(snap.Commands))
			for _, alias := range sortedKeys(snap.Commands) {
				fmt.Printf("  %-16s %s\n", alias, snap.Commands[alias])
			}

			fmt.Println("\nRaw:")
			for _, verb := range sortedKeys(snap.Raw) {
				fmt.Printf("  %-16s %s\n", verb, strings.Join(snap.Raw[verb], ", "))
			}
			if len(snap.CatchAll) > 0 {
				fmt.Printf("  %-16s %s\n", "*", strings.Join(snap.CatchAll, ", "))
			}

			fmt.Println("\nEvents:")
			for _, t := range sortedKeys(snap.Events) {
				fmt.Printf("  %-16s %s\n", t, strings.Join(snap.Events[t], ", "))
			}

			fmt.Println("\nRegex:")
			for _, r := range snap.Regexes {
				fmt.Printf("  %s\n", r)
			}

			fmt.Println("\nSieves:")
			for _, s := range snap.Sieves {
				fmt.Printf("  %s\n", s)
			}

			if loadErr != nil {
				fmt.Printf("\nLoad errors:\n  %s\n", strings.ReplaceAll(loadErr.Error(), "\n", "\n  "))
			}
			return loadErr
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the routing tables as JSON")
	return cmd
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatCounts(counts map[string]int) string {
	parts := make([]string, 0, len(counts))
	for _, kind := range sortedKeys(counts) {
		parts = append(parts, fmt.Sprintf("%s=%d", kind, counts[kind]))
	}
	return strings.Join(parts, " ")
}
