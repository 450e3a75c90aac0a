package statecore

// StateId identifies a state node, unique within the machine's flat
// states map. Hierarchical states are addressed by their fully qualified
// dotted id ("parent.child") once the builder flattens the graph.
type StateId string

// MachineId identifies a Machine definition.
type MachineId string

// EventId is the short string returned by Event.EventType, used for
// transition lookup and diagnostics.
type EventId string
