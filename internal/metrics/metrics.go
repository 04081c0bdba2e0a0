// Package metrics exposes game counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector of one game server. Each instance has its
// own registry so several servers (or tests) can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	Expansions         prometheus.Counter
	RejectedExpansions prometheus.Counter
	AgentsSpawned      prometheus.Counter
	AgentsRemoved      *prometheus.CounterVec
	Merges             prometheus.Counter
	WavesFinished      prometheus.Counter
	BaseDamage         prometheus.Counter
	LiveAgents         prometheus.Gauge
	ActiveNodes        prometheus.Gauge
	Players            prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		Expansions: f.NewCounter(prometheus.CounterOpts{
			Name: "outgrowth_expansions_total",
			Help: "Frontier cells activated by players",
		}),
		RejectedExpansions: f.NewCounter(prometheus.CounterOpts{
			Name: "outgrowth_expansions_rejected_total",
			Help: "Expansion requests for cells outside the frontier",
		}),
		AgentsSpawned: f.NewCounter(prometheus.CounterOpts{
			Name: "outgrowth_agents_spawned_total",
			Help: "Agents created by waves and merges",
		}),
		AgentsRemoved: f.NewCounterVec(prometheus.CounterOpts{
			Name: "outgrowth_agents_removed_total",
			Help: "Agents removed, by reason",
		}, []string{"reason"}),
		Merges: f.NewCounter(prometheus.CounterOpts{
			Name: "outgrowth_merges_total",
			Help: "Successful agent merges",
		}),
		WavesFinished: f.NewCounter(prometheus.CounterOpts{
			Name: "outgrowth_waves_finished_total",
			Help: "Waves that spawned their full batch count",
		}),
		BaseDamage: f.NewCounter(prometheus.CounterOpts{
			Name: "outgrowth_base_damage_total",
			Help: "Strength of agents that reached the root",
		}),
		LiveAgents: f.NewGauge(prometheus.GaugeOpts{
			Name: "outgrowth_live_agents",
			Help: "Agents currently walking the tree",
		}),
		ActiveNodes: f.NewGauge(prometheus.GaugeOpts{
			Name: "outgrowth_active_nodes",
			Help: "Active nodes in the tree",
		}),
		Players: f.NewGauge(prometheus.GaugeOpts{
			Name: "outgrowth_players",
			Help: "Connected clients",
		}),
	}
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
