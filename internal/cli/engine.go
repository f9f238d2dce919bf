package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/soyeahso/stratus/internal/builtin"
	"github.com/soyeahso/stratus/internal/config"
	"github.com/soyeahso/stratus/internal/event"
	"github.com/soyeahso/stratus/internal/logging"
	"github.com/soyeahso/stratus/internal/permissions"
	"github.com/soyeahso/stratus/internal/plugin"
	"github.com/soyeahso/stratus/internal/plugin/lua"
	"github.com/soyeahso/stratus/internal/routing"
)

// engine is the hook engine assembled from config.
type engine struct {
	manager  *plugin.Manager
	router   *routing.Router
	perms    *permissions.Store
	registry *prometheus.Registry
	metrics  *plugin.Metrics
	dirs     []string
	log      *logging.Logger
}

func newEngine(cfg config.Config, pluginDirs []string, log *logging.Logger) *engine {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	metrics := plugin.NewMetrics(reg)
	perms := permissions.New(cfg.Permissions, log)
	m := plugin.NewManager(log,
		plugin.WithLoaders(plugin.NewBuiltinLoader(builtin.Catalog()), lua.NewLoader(log)),
		plugin.WithMetrics(metrics),
		plugin.WithWorkers(cfg.Plugins.Workers),
		plugin.WithLoadConcurrency(cfg.Plugins.LoadConcurrency),
		plugin.WithLoadLogging(cfg.Plugins.LogLoading()),
		plugin.WithExtra("permissions", event.Permissions(perms)),
	)

	return &engine{
		manager:  m,
		router:   routing.NewRouter(m, log),
		perms:    perms,
		registry: reg,
		metrics:  metrics,
		dirs:     pluginDirs,
		log:      log,
	}
}

// load loads the configured builtins and every plugin directory. Failures
// of single plugins are joined into the returned error.
func (e *engine) load(ctx context.Context, builtins []string) error {
	errs := []error{e.manager.LoadBuiltins(ctx, builtins...)}
	for _, dir := range e.dirs {
		if _, err := os.Stat(dir); err != nil {
			e.log.Warn().Err(err).Str("dir", dir).Msg("skipping plugin directory")
			continue
		}
		errs = append(errs, e.manager.LoadAll(ctx, dir))
	}
	return errors.Join(errs...)
}

// handle is the connection event handler.
func (e *engine) handle(ctx context.Context, ev *event.Event) {
	e.router.HandleEvent(ctx, ev)
}

// shutdown runs the on_stop hooks and unloads every plugin.
func (e *engine) shutdown(ctx context.Context) {
	e.manager.RunShutdownHooks(ctx)
	e.manager.Close(ctx)
}

// serveMetrics exposes the registry on addr until ctx is done.
func (e *engine) serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	e.log.Info().Str("addr", addr).Msg("serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		e.log.Error().Err(err).Str("addr", addr).Msg("metrics server failed")
	}
}

// savePermissions writes the permission groups back to the config file.
func savePermissions(path string) permissions.SaveFunc {
	return func(pc config.PermissionsConfig) error {
		raw, err := config.LoadRaw(path)
		if err != nil {
			return err
		}
		groups := make(map[string]any, len(pc.Groups))
		for name, g := range pc.Groups {
			groups[name] = map[string]any{"users": g.Users, "perms": g.Perms}
		}
		if err := config.SetValueAtPath(raw, []string{"permissions", "groups"}, groups); err != nil {
			return err
		}
		return config.SaveRaw(path, raw)
	}
}
