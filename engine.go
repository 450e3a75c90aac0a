package statecore

import (
	"context"
	"time"
)

// MachineState is the runtime snapshot Step consumes and produces: the
// active StateValue, the host-owned Context, and a bounded history ring
// of past step outcomes, read through History. MachineState is a value type
// on the happy path — Step never mutates its input in place — but the
// history ring is shared (pointer) so repeated steps on the same logical
// instance keep appending rather than reallocating on every call.
type MachineState struct {
	Value   StateValue
	Context any

	history *historyRing
}

// History returns every retained (value, event, timestamp) snapshot,
// oldest first.
func (s MachineState) History() []historyEntry {
	if s.history == nil {
		return nil
	}
	return s.history.entries()
}

// Step is the pure transition engine of spec.md section 4.3. Given a
// machine graph, the current runtime state, and an incoming event, it
// returns the resulting state, or the unmodified input state together
// with ErrNoMatch when no guarded transition applies.
//
// Selection walks the active leaf's ancestor chain outward (innermost
// state first), collecting every transition for the event type whose
// guards all pass. The one with the highest Priority wins; ties go to
// the innermost state, then to the earliest declaration order. A guard
// that returns an error aborts the step. Firing order is exit
// actions (leaf outward to the transition's LCA with the target), then
// the transition's own actions, then entry actions (LCA inward to the
// resolved target leaf). Any action returning an error aborts the step
// and rolls the context back to its pre-step snapshot (P3): a failed
// step always leaves the caller with precisely its input state.
func Step(ctx context.Context, m *Machine, s MachineState, e Event) (MachineState, error) {
	leaf := s.Value.Leaf()
	chain := m.ancestors(leaf)

	eventType := e.EventType()
	var best *Transition
	var bestSource StateId
	for _, stateID := range chain {
		node, ok := m.states.Get(stateID)
		if !ok {
			continue
		}
		candidates := node.Transitions[eventType]
		if len(candidates) == 0 {
			continue
		}
		matched, err := selectCandidate(ctx, candidates, s.Context, e)
		if err != nil {
			return s, &TransitionError{
				Code:      ErrCodeGuardFailure,
				State:     stateID,
				EventType: eventType,
				Reason:    err.Error(),
				underlying: err,
			}
		}
		if matched == nil {
			continue
		}
		if best == nil || matched.Priority > best.Priority {
			best, bestSource = matched, stateID
		}
	}
	if best != nil {
		return applyTransition(ctx, m, s, bestSource, best, e)
	}

	notFound := *ErrNoMatch
	notFound.State = leaf
	notFound.EventType = eventType
	return s, &notFound
}

func selectCandidate(ctx context.Context, candidates []Transition, hostCtx any, e Event) (*Transition, error) {
	var best *Transition
	for i := range candidates {
		t := &candidates[i]
		ok, err := evaluateGuards(ctx, t.Guards, hostCtx, e)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if best == nil || t.Priority > best.Priority ||
			(t.Priority == best.Priority && t.order < best.order) {
			best = t
		}
	}
	return best, nil
}

func evaluateGuards(ctx context.Context, guards []Guard, hostCtx any, e Event) (bool, error) {
	for _, g := range guards {
		ok, err := g.Evaluate(ctx, hostCtx, e)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func applyTransition(ctx context.Context, m *Machine, s MachineState, sourceID StateId, t *Transition, e Event) (MachineState, error) {
	if _, ok := m.states.Get(t.Target); !ok {
		return s, &TransitionError{
			Code:      ErrCodeInvalidTarget,
			State:     sourceID,
			EventType: e.EventType(),
			Reason:    string(t.Target),
		}
	}

	// Actions run against a clone so a mid-transition failure leaves the
	// caller's own s.Context untouched (P3): the clone is only adopted
	// into next.Context once every action along the chain has succeeded.
	hostCtx := cloneContext(s.Context)

	runActions := func(actions []Action, startIdx int) error {
		for i, a := range actions {
			if err := a.Execute(ctx, hostCtx, e); err != nil {
				return &TransitionError{
					Code:       ErrCodeActionFailed,
					State:      sourceID,
					EventType:  e.EventType(),
					ActionIdx:  startIdx + i,
					Reason:     err.Error(),
					underlying: err,
				}
			}
		}
		return nil
	}

	if t.Internal {
		if err := runActions(t.Actions, 0); err != nil {
			return s, err
		}
		next := s
		next.Context = hostCtx
		recordHistory(next.history, s.Value, e.EventType())
		return next, nil
	}

	leaf := s.Value.Leaf()
	lca := m.lca(sourceID, t.Target)

	exitChain := exitChainFor(m, leaf, lca)
	for _, id := range exitChain {
		node, _ := m.states.Get(id)
		if node == nil {
			continue
		}
		if err := runActions(node.ExitActions, 0); err != nil {
			return s, err
		}
	}

	if err := runActions(t.Actions, 0); err != nil {
		return s, err
	}

	entryChain := entryChainFor(m, t.Target, lca)
	for _, id := range entryChain {
		node, _ := m.states.Get(id)
		if node == nil {
			continue
		}
		if err := runActions(node.EntryActions, 0); err != nil {
			return s, err
		}
	}

	newValue := valueFromChain(resolvedChain(m, leaf, lca, entryChain))
	next := MachineState{Value: newValue, Context: hostCtx, history: s.history}
	recordHistory(next.history, newValue, e.EventType())
	return next, nil
}

// exitChainFor returns the ids to exit, leaf-outward, stopping before lca
// (exclusive); lca == "" means the whole chain up to the root exits.
func exitChainFor(m *Machine, leaf, lca StateId) []StateId {
	chain := m.ancestors(leaf)
	if lca == "" {
		return chain
	}
	out := make([]StateId, 0, len(chain))
	for _, id := range chain {
		if id == lca {
			break
		}
		out = append(out, id)
	}
	return out
}

// entryChainFor returns the ids to enter, LCA-inward to target, followed
// by target's resolved initial descendants if target is compound.
func entryChainFor(m *Machine, target, lca StateId) []StateId {
	targetAncestorsLeafFirst := m.ancestors(target)
	rootFirst := append([]StateId(nil), targetAncestorsLeafFirst...)
	reverse(rootFirst)

	var prefix []StateId
	if lca == "" {
		prefix = rootFirst
	} else {
		idx := indexOf(rootFirst, lca)
		if idx >= 0 {
			prefix = rootFirst[idx+1:]
		} else {
			prefix = rootFirst
		}
	}

	descendants := initialDescendantChain(m, target)
	return append(prefix, descendants...)
}

// resolvedChain stitches the unaffected root..lca prefix of the old leaf
// chain together with the newly entered suffix into a single root-to-leaf
// id chain describing the post-transition StateValue.
func resolvedChain(m *Machine, oldLeaf, lca StateId, entryChain []StateId) []StateId {
	if lca == "" {
		return entryChain
	}
	oldAncestorsLeafFirst := m.ancestors(oldLeaf)
	rootFirst := append([]StateId(nil), oldAncestorsLeafFirst...)
	reverse(rootFirst)
	idx := indexOf(rootFirst, lca)
	prefix := rootFirst
	if idx >= 0 {
		prefix = rootFirst[:idx+1]
	}
	return append(append([]StateId(nil), prefix...), entryChain...)
}

// initialDescendantChain returns the ids below id obtained by following
// InitialChild pointers down to a leaf; empty if id is Simple.
func initialDescendantChain(m *Machine, id StateId) []StateId {
	var out []StateId
	cur := id
	for {
		node, ok := m.states.Get(cur)
		if !ok || !node.IsCompound() {
			return out
		}
		out = append(out, node.InitialChild)
		cur = node.InitialChild
	}
}

func valueFromChain(ids []StateId) StateValue {
	if len(ids) == 0 {
		return StateValue{}
	}
	if len(ids) == 1 {
		return Simple(ids[0])
	}
	return Compound(ids[0], valueFromChain(ids[1:]))
}

func indexOf(ids []StateId, target StateId) int {
	for i, id := range ids {
		if id == target {
			return i
		}
	}
	return -1
}

func recordHistory(h *historyRing, v StateValue, eventType string) {
	if h == nil {
		return
	}
	h.push(historyEntry{Value: v, EventType: eventType, At: time.Now()})
}
