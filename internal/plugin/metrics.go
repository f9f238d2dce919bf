package plugin

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Launch outcomes recorded by the dispatcher.
const (
	outcomeOK         = "ok"
	outcomeSuppressed = "suppressed"
	outcomeHelp       = "help"
	outcomeBindError  = "bind_error"
	outcomeError      = "error"
)

// Load outcomes recorded by the manager.
const (
	loadOK      = "loaded"
	loadError   = "load_error"
	loadStartup = "startup_failure"
)

// Metrics holds the plugin engine's Prometheus collectors. A nil *Metrics
// records nothing.
type Metrics struct {
	Launches       *prometheus.CounterVec
	LaunchDuration *prometheus.HistogramVec
	Loads          *prometheus.CounterVec
	Plugins        prometheus.Gauge
	AliasConflicts prometheus.Counter
}

// NewMetrics creates and registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Launches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stratus_hook_launches_total",
				Help: "Total number of hook launches by hook type and outcome",
			},
			[]string{"type", "outcome"},
		),
		LaunchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stratus_hook_launch_duration_seconds",
				Help:    "Hook launch duration including sieves and lock waits",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"type"},
		),
		Loads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stratus_plugin_loads_total",
				Help: "Total number of plugin load attempts by outcome",
			},
			[]string{"outcome"},
		),
		Plugins: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stratus_plugins_loaded",
			Help: "Number of currently registered plugins",
		}),
		AliasConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stratus_command_alias_conflicts_total",
			Help: "Total number of command aliases dropped because another plugin owns them",
		}),
	}

	reg.MustRegister(m.Launches, m.LaunchDuration, m.Loads, m.Plugins, m.AliasConflicts)
	return m
}

func (m *Metrics) launch(kind Kind, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.Launches.WithLabelValues(kind.String(), outcome).Inc()
	m.LaunchDuration.WithLabelValues(kind.String()).Observe(time.Since(start).Seconds())
}

func (m *Metrics) load(outcome string) {
	if m == nil {
		return
	}
	m.Loads.WithLabelValues(outcome).Inc()
}

func (m *Metrics) plugins(n int) {
	if m == nil {
		return
	}
	m.Plugins.Set(float64(n))
}

func (m *Metrics) conflict() {
	if m == nil {
		return
	}
	m.AliasConflicts.Inc()
}
