package statecore

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/fluxorio/statecore")

// Instance is the stateful runtime wrapper around an immutable Machine: it
// owns one MachineState behind a mutex (spec.md section 5 — exclusive
// access during Send, Machine itself stays shareable/read-only) and
// publishes TransitionEvent/ErrorEvent/PerformanceEvent after every step,
// mirroring the observer wiring of the teacher's
// pkg/statemachine/machine.go stateMachine type merged with the ordering
// rules of pkg/fsm/fsm.go's StateMachine.
type Instance struct {
	mu      sync.Mutex
	machine *Machine
	state   MachineState

	bus          *EventBus
	scheduler    Scheduler
	historyBound int
}

// NewInstance creates a running Instance seeded at the machine's initial
// state, with the given host context.
func NewInstance(m *Machine, hostCtx any, opts ...InstanceOption) *Instance {
	inst := &Instance{machine: m, historyBound: defaultHistoryBound}
	for _, opt := range opts {
		opt(inst)
	}
	if inst.bus == nil {
		inst.bus = NewEventBus()
	}
	inst.state = m.InitialState(hostCtx)
	inst.state.history = newHistoryRing(inst.historyBound)
	return inst
}

// Bus returns the event bus this instance publishes to.
func (i *Instance) Bus() *EventBus { return i.bus }

// Machine returns the underlying immutable graph.
func (i *Instance) Machine() *Machine { return i.machine }

// CurrentState returns a copy of the current runtime snapshot.
func (i *Instance) CurrentState() MachineState {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Context returns the current host context.
func (i *Instance) Context() any {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state.Context
}

// Send delivers e to the instance under exclusive access, applying Step
// and publishing the resulting event. ErrNoMatch is returned to the
// caller like any other error but is not published as an ErrorEvent —
// the "Unchanged" outcome of spec.md section 4.3 is not a failure.
func (i *Instance) Send(ctx context.Context, e Event) (MachineState, error) {
	ctx, span := tracer.Start(ctx, "statecore.Send", trace.WithAttributes(
		attribute.String("statecore.machine_id", string(i.machine.ID())),
		attribute.String("statecore.event_type", e.EventType()),
	))
	defer span.End()

	i.mu.Lock()
	defer i.mu.Unlock()

	before := i.state.Value
	start := time.Now()
	ctx = contextWithLogPublisher(ctx, func(level LogLevel, message string) {
		i.bus.Publish(TopicLog, LogEvent{
			MachineID: i.machine.ID(),
			Level:     level,
			Message:   message,
			At:        time.Now(),
		})
	})
	next, err := Step(ctx, i.machine, i.state, e)
	elapsed := time.Since(start)

	i.bus.Publish(TopicPerformance, PerformanceEvent{
		MachineID: i.machine.ID(),
		EventType: e.EventType(),
		Duration:  elapsed,
		At:        start,
	})

	if err != nil {
		if !IsNoMatch(err) {
			span.RecordError(err)
			i.bus.Publish(TopicError, ErrorEvent{
				MachineID: i.machine.ID(),
				EventType: e.EventType(),
				Err:       err,
				At:        start,
			})
		}
		return i.state, err
	}

	i.state = next
	i.bus.Publish(TopicTransition, TransitionEvent{
		MachineID: i.machine.ID(),
		From:      before,
		To:        next.Value,
		EventType: e.EventType(),
		At:        start,
	})
	return i.state, nil
}

// Restore replaces the runtime state wholesale, used by persist.Manager
// when loading a saved snapshot back into a live Instance.
func (i *Instance) Restore(s MachineState) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if s.history == nil {
		s.history = newHistoryRing(i.historyBound)
	}
	i.state = s
}
