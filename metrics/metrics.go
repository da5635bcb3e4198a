// Package metrics wraps an optional prometheus.Registerer: registration is
// opt-in, and a nil registerer degrades to a no-op rather than forcing
// every caller to stand up a registry for tests.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the counters and gauges the arena builder and solver report.
type Metrics struct {
	reg prometheus.Registerer

	VerticesExplored  prometheus.Counter
	SysVerticesFused   prometheus.Counter
	SolverPasses       prometheus.Counter
	LastWinnerIsSystem prometheus.Gauge
}

// New creates a Metrics instance. reg may be nil, in which case every
// counter/gauge update is a harmless no-op against an unregistered
// collector.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		reg: reg,
		VerticesExplored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pgame_env_vertices_explored_total",
			Help: "Environment vertices dequeued and materialized during arena construction.",
		}),
		SysVerticesFused: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pgame_sys_vertices_fused_total",
			Help: "System-vertex candidates discarded because an equal vertex was already canonicalized.",
		}),
		SolverPasses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pgame_solver_passes_total",
			Help: "Bellman-Ford + strategy-improvement passes executed by the solver.",
		}),
		LastWinnerIsSystem: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pgame_last_winner_is_system",
			Help: "1 if the most recently solved game's initial vertex was won by the system, else 0.",
		}),
	}
	if reg != nil {
		// Best-effort: a duplicate registration (e.g. a shared registry
		// across multiple solves) must not panic a caller that only
		// wanted metrics, not strict registration semantics.
		_ = reg.Register(m.VerticesExplored)
		_ = reg.Register(m.SysVerticesFused)
		_ = reg.Register(m.SolverPasses)
		_ = reg.Register(m.LastWinnerIsSystem)
	}
	return m
}

// Noop returns a Metrics instance whose counters exist but are never
// registered, for use in tests and one-shot CLI invocations.
func Noop() *Metrics {
	return New(nil)
}
