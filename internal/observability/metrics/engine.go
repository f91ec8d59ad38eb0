// Package metrics exposes the engine's atomically published counters as
// prometheus collectors. The collectors read the counters on scrape; the
// realtime path never touches prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rchanrussell/go-looper/internal/engine"
)

// EngineMetrics bundles the collectors for one engine instance.
type EngineMetrics struct {
	collectors []prometheus.Collector
}

// NewEngineMetrics builds collectors bound to the given engine and
// registers them with reg.
func NewEngineMetrics(reg prometheus.Registerer, looper *engine.Looper) (*EngineMetrics, error) {
	m := &EngineMetrics{
		collectors: []prometheus.Collector{
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Name: "looper_cycles_total",
				Help: "Process cycles completed",
			}, func() float64 { return float64(looper.Cycles()) }),
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Name: "looper_frames_total",
				Help: "Audio frames processed",
			}, func() float64 { return float64(looper.Frames()) }),
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Name: "looper_commands_applied_total",
				Help: "Commands that caused a state transition",
			}, func() float64 { return float64(looper.CommandsApplied()) }),
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Name: "looper_commands_ignored_total",
				Help: "Commands not legal in the state they arrived in",
			}, func() float64 { return float64(looper.CommandsIgnored()) }),
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Name: "looper_inbox_overruns_total",
				Help: "Pending commands overwritten before the engine drained them",
			}, func() float64 { return float64(looper.Inbox().Overruns()) }),
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Name: "looper_capacity_overflows_total",
				Help: "Times a recording track hit its sample capacity",
			}, func() float64 { return float64(looper.Overflows()) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "looper_master_position",
				Help: "The active group's shared playback position in samples",
			}, func() float64 { return float64(looper.ReadSnapshot().MasterCurrent) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "looper_active_tracks",
				Help: "Tracks currently in playback or recording state",
			}, func() float64 {
				snap := looper.ReadSnapshot()
				n := 0
				for i := range snap.Tracks {
					switch snap.Tracks[i].State {
					case "playback", "recording":
						n++
					}
				}
				return float64(n)
			}),
		},
	}

	for _, c := range m.collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Unregister removes the collectors from reg, for tests that reuse a
// registry.
func (m *EngineMetrics) Unregister(reg prometheus.Registerer) {
	type unregisterer interface {
		Unregister(prometheus.Collector) bool
	}
	u, ok := reg.(unregisterer)
	if !ok {
		return
	}
	for _, c := range m.collectors {
		u.Unregister(c)
	}
}
