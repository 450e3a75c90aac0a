package statecore

import (
	"strings"

	"github.com/google/uuid"
)

// Builder is the staged, type-safe construction API of spec.md section
// 4.2. It starts empty, accumulates state(id) scopes with on_entry/
// on_exit/on(event, target).guard(...).action(...), and finishes with
// Build(), which returns a validated, immutable Machine or a ConfigError
// listing every problem found.
//
// Hierarchy is expressed through dotted ids: State("playing.level1")
// declares level1 as a child of playing (which must also be declared,
// via its own State("playing") call, with an InitialChild naming one of
// its declared children) — a flat namespace with parent pointers, per
// the design note in spec.md section 9, rather than nested method-chain
// scopes.
type Builder struct {
	id            MachineId
	initial       StateId
	statesInOrder []*StateBuilder
	stateIndex    map[StateId]*StateBuilder
}

// NewBuilder starts a new machine definition. An empty id is replaced
// with a freshly generated UUID, so callers embedding many ad hoc
// machines (tests, dynamically constructed workflows) are never forced
// to invent their own identifiers.
func NewBuilder(id MachineId) *Builder {
	if id == "" {
		id = MachineId(uuid.NewString())
	}
	return &Builder{id: id, stateIndex: make(map[StateId]*StateBuilder)}
}

// Initial designates the root initial state. If never called, Build uses
// the first declared state, per spec.md section 4.2 rule 3.
func (b *Builder) Initial(id StateId) *Builder {
	b.initial = id
	return b
}

// State opens (or reopens) a scope for the given state id. Calling State
// again with the same id returns the existing scope so entry/exit
// actions and transitions can be added incrementally.
func (b *Builder) State(id StateId) *StateBuilder {
	if sb, ok := b.stateIndex[id]; ok {
		return sb
	}
	sb := &StateBuilder{
		builder: b,
		node: &StateNode{
			ID:          id,
			Transitions: make(map[string][]Transition),
		},
	}
	b.statesInOrder = append(b.statesInOrder, sb)
	b.stateIndex[id] = sb
	return sb
}

// Build validates the accumulated definition (spec.md section 4.2 rules
// 1-5) and freezes it into an immutable Machine. The graph is frozen by
// construction: Machine exposes no mutating methods, so there is no
// further mutation path once Build returns.
func (b *Builder) Build() (*Machine, error) {
	b.resolveHierarchy()
	return validate(b)
}

// resolveHierarchy wires Parent/Children from dotted ids before
// validation runs.
func (b *Builder) resolveHierarchy() {
	for _, sb := range b.statesInOrder {
		idx := strings.LastIndex(string(sb.node.ID), ".")
		if idx < 0 {
			continue
		}
		parentID := StateId(string(sb.node.ID)[:idx])
		sb.node.Parent = parentID
		if parent, ok := b.stateIndex[parentID]; ok {
			parent.node.Children = append(parent.node.Children, sb.node.ID)
		}
	}
}

// StateBuilder configures a single state.
type StateBuilder struct {
	builder *Builder
	node    *StateNode
}

// OnEntry appends entry actions, fired from the LCA boundary inward when
// this state is entered (spec.md section 4.3).
func (s *StateBuilder) OnEntry(actions ...Action) *StateBuilder {
	s.node.EntryActions = append(s.node.EntryActions, actions...)
	return s
}

// OnExit appends exit actions, fired from the active leaf outward when
// this state is left.
func (s *StateBuilder) OnExit(actions ...Action) *StateBuilder {
	s.node.ExitActions = append(s.node.ExitActions, actions...)
	return s
}

// InitialChild designates which declared child is entered by default when
// this (compound) state is entered without a more specific target.
// Required whenever at least one child is declared (invariant 4).
func (s *StateBuilder) InitialChild(id StateId) *StateBuilder {
	s.node.InitialChild = id
	return s
}

// On declares a transition for eventType, appending to any transitions
// already declared for the same event type on this state (multiple
// transitions per event type are permitted and resolved by priority then
// declaration order, per spec.md section 3).
func (s *StateBuilder) On(eventType string, target StateId) *TransitionBuilder {
	t := Transition{Target: target, order: len(s.node.Transitions[eventType])}
	s.node.Transitions[eventType] = append(s.node.Transitions[eventType], t)
	return &TransitionBuilder{
		state:     s,
		eventType: eventType,
		index:     len(s.node.Transitions[eventType]) - 1,
	}
}

// Done returns to the machine-level builder.
func (s *StateBuilder) Done() *Builder { return s.builder }

// TransitionBuilder configures a single transition.
type TransitionBuilder struct {
	state     *StateBuilder
	eventType string
	index     int
}

func (t *TransitionBuilder) transition() *Transition {
	return &t.state.node.Transitions[t.eventType][t.index]
}

// Guard appends a guard; every guard on a transition must succeed.
func (t *TransitionBuilder) Guard(g Guard) *TransitionBuilder {
	tr := t.transition()
	tr.Guards = append(tr.Guards, g)
	return t
}

// Action appends a transition action, fired after exit actions and
// before entry actions (spec.md section 4.3).
func (t *TransitionBuilder) Action(a Action) *TransitionBuilder {
	tr := t.transition()
	tr.Actions = append(tr.Actions, a)
	return t
}

// Priority sets the tie-breaker used when multiple guarded transitions
// for the same event type would otherwise match; higher wins.
func (t *TransitionBuilder) Priority(p int) *TransitionBuilder {
	t.transition().Priority = p
	return t
}

// Internal marks the transition as internal: no exit/entry actions fire
// at any level and the state value is unchanged, though context may
// still mutate via the transition's actions.
func (t *TransitionBuilder) Internal(internal bool) *TransitionBuilder {
	t.transition().Internal = internal
	return t
}

// Done returns to the owning state's scope.
func (t *TransitionBuilder) Done() *StateBuilder { return t.state }

// OnDone is a convenience method that finishes this transition and opens
// another one on the same state, matching the teacher's fluent chaining
// idiom (pkg/statemachine/builder.go's transitionBuilder.OnDone).
func (t *TransitionBuilder) OnDone(eventType string, target StateId) *TransitionBuilder {
	return t.state.On(eventType, target)
}
