package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/soyeahso/stratus/internal/channel"
	"github.com/soyeahso/stratus/internal/channel/irc"
	"github.com/soyeahso/stratus/internal/plugin"
)

const shutdownTimeout = 15 * time.Second

func newRunCmd() *cobra.Command {
	var noConnect bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load plugins and connect to the configured networks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := paths.EnsureDirs(); err != nil {
				return err
			}

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			dirs := paths.PluginDirs(cfg)
			eng := newEngine(cfg, dirs, log)
			eng.perms.OnSave(savePermissions(paths.Config))

			if err := eng.load(ctx, cfg.Plugins.Builtin); err != nil {
				log.Warn().Err(err).Msg("some plugins failed to load")
			}
			log.Info().Int("plugins", eng.manager.Registry().Count()).Msg("plugins ready")

			if cfg.Plugins.Watch {
				w, err := plugin.NewWatcher(eng.manager, log, existing(dirs)...)
				if err != nil {
					log.Error().Err(err).Msg("plugin watcher unavailable")
				} else {
					go func() {
						if err := w.Run(ctx); err != nil {
							log.Error().Err(err).Msg("plugin watcher stopped")
						}
					}()
				}
			}

			if cfg.Metrics.Addr != "" {
				go eng.serveMetrics(ctx, cfg.Metrics.Addr)
			}

			conns := channel.NewRegistry(log)
			if !noConnect {
				for _, cc := range cfg.Connections {
					conns.Register(irc.New(cc, eng.perms, eng.handle, log))
				}
			}
			if conns.Count() == 0 {
				log.Warn().Msg("no connections configured, only lifecycle hooks will run")
			}
			conns.StartAll(ctx)

			<-ctx.Done()
			log.Info().Msg("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			conns.StopAll(shutdownCtx)
			eng.shutdown(shutdownCtx)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noConnect, "no-connect", false, "load plugins without connecting to any network")
	return cmd
}

// existing filters dirs down to the ones present on disk.
func existing(dirs []string) []string {
	var out []string
	for _, d := range dirs {
		if info, err := os.Stat(d); err == nil && info.IsDir() {
			out = append(out, d)
		}
	}
	return out
}
