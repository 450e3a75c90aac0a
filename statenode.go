package statecore

// Transition is a declared rule that, given an event in a source state
// and all guards passing, moves the machine to a target state while
// running actions. See spec.md section 3.
type Transition struct {
	Target   StateId
	Guards   []Guard
	Actions  []Action
	Priority int
	Internal bool

	// order is assigned by StateBuilder.On when the transition is
	// declared (declaration order within the owning state's event
	// bucket) and used as the
	// tie-break in step selection (spec.md section 4.3).
	order int
}

// Order returns the declaration-order index the builder assigned this
// transition, used as the priority tie-break.
func (t Transition) Order() int { return t.order }

// StateNode is one node of the flattened machine graph.
type StateNode struct {
	ID StateId

	EntryActions []Action
	ExitActions  []Action

	// Transitions maps event type to the ordered candidates declared for
	// it on this state.
	Transitions map[string][]Transition

	// Parent is the fully-qualified id of the enclosing state, or ""
	// for a root state. A flat map with parent pointers (rather than
	// nested ownership) keeps LCA computation linear, per spec.md
	// section 9.
	Parent StateId

	// Children lists the fully-qualified ids of direct descendants, in
	// declaration order.
	Children []StateId

	// InitialChild is required when len(Children) > 0 (invariant 4).
	InitialChild StateId
}

// IsCompound reports whether this node has declared children.
func (n *StateNode) IsCompound() bool { return len(n.Children) > 0 }
