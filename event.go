package statecore

import "time"

// Event is the opaque, cloneable, hash-distinguishable value the engine
// steps on. EventType is used for transition lookup and diagnostics.
type Event interface {
	EventType() string
}

// BaseEvent is a ready-to-use Event implementation covering the common
// case of a named event carrying a data payload, mirroring the teacher's
// own Event struct (pkg/statemachine/types.go) without its EventBus
// marshaling concerns.
type BaseEvent struct {
	Name      string
	Data      map[string]interface{}
	Timestamp time.Time
}

// NewEvent creates a BaseEvent stamped with the current time.
func NewEvent(name string, data map[string]interface{}) BaseEvent {
	return BaseEvent{Name: name, Data: data, Timestamp: time.Now()}
}

// EventType implements Event.
func (e BaseEvent) EventType() string { return e.Name }

// Scheduler is the host-supplied capability TimerAction uses to arrange
// for a future event to be delivered. statecore never spawns its own
// timers; spec.md section 9 treats timers as host-injected events.
type Scheduler interface {
	// Schedule arranges for fire to be invoked after d elapses. Schedule
	// returns a cancellation function.
	Schedule(d time.Duration, fire func()) (cancel func())
}
