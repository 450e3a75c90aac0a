// Package metrics wires a statecore.EventBus to Prometheus collectors,
// adapted from the teacher's pkg/observability/prometheus/metrics.go
// promauto pattern, trimmed to the transition/error/performance surface
// this event bus actually carries (the HTTP/database/server metrics of
// the teacher's struct belong to the gateway product and have no
// statecore counterpart).
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fluxorio/statecore"
)

// Metrics holds the Prometheus collectors fed by a subscribed EventBus.
type Metrics struct {
	TransitionsTotal  *prometheus.CounterVec
	ErrorsTotal       *prometheus.CounterVec
	StepDuration      *prometheus.HistogramVec
	ActiveStateVisits *prometheus.CounterVec

	mu sync.Mutex
}

// New creates collectors registered with registerer (pass nil to use
// prometheus.DefaultRegisterer) and subscribes them to bus.
func New(registerer prometheus.Registerer, bus *statecore.EventBus) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		TransitionsTotal: promauto.With(registerer).NewCounterVec(prometheus.CounterOpts{
			Name: "statecore_transitions_total",
			Help: "Total number of successful state transitions.",
		}, []string{"machine_id", "event_type"}),
		ErrorsTotal: promauto.With(registerer).NewCounterVec(prometheus.CounterOpts{
			Name: "statecore_errors_total",
			Help: "Total number of failed Step calls.",
		}, []string{"machine_id", "event_type"}),
		StepDuration: promauto.With(registerer).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "statecore_step_duration_seconds",
			Help:    "Wall-clock duration of Step calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"machine_id", "event_type"}),
		ActiveStateVisits: promauto.With(registerer).NewCounterVec(prometheus.CounterOpts{
			Name: "statecore_state_visits_total",
			Help: "Total number of times each leaf state was entered.",
		}, []string{"machine_id", "state"}),
	}

	bus.SubscribeTransitions(func(ev statecore.TransitionEvent) {
		m.TransitionsTotal.WithLabelValues(string(ev.MachineID), ev.EventType).Inc()
		m.ActiveStateVisits.WithLabelValues(string(ev.MachineID), string(ev.To.Leaf())).Inc()
	})
	bus.SubscribeErrors(func(ev statecore.ErrorEvent) {
		m.ErrorsTotal.WithLabelValues(string(ev.MachineID), ev.EventType).Inc()
	})
	bus.SubscribePerformance(func(ev statecore.PerformanceEvent) {
		m.StepDuration.WithLabelValues(string(ev.MachineID), ev.EventType).Observe(ev.Duration.Seconds())
	})

	return m
}
