package statecore

import (
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Machine is the immutable, validated graph produced by Builder.Build.
// It is safe to share across goroutines (spec.md section 5): nothing
// about a Machine changes after construction.
type Machine struct {
	id      MachineId
	states  *orderedmap.OrderedMap[StateId, *StateNode]
	initial StateId
}

// ID returns the machine's identifier.
func (m *Machine) ID() MachineId { return m.id }

// Initial returns the id of the root initial state.
func (m *Machine) Initial() StateId { return m.initial }

// State looks up a node by fully qualified id.
func (m *Machine) State(id StateId) (*StateNode, bool) {
	return m.states.Get(id)
}

// States returns every state id in declaration order — the ordered map
// backing this method is what makes diagram export and iteration-order
// dependent tests (P10) reproducible across runs, unlike a bare Go map.
func (m *Machine) States() []StateId {
	ids := make([]StateId, 0, m.states.Len())
	for pair := m.states.Oldest(); pair != nil; pair = pair.Next() {
		ids = append(ids, pair.Key)
	}
	return ids
}

// InitialState constructs the runtime MachineState for a fresh context,
// descending through InitialChild chains for any compound initial state.
func (m *Machine) InitialState(ctx any) MachineState {
	value := m.initialValue(m.initial)
	return MachineState{
		Value:   value,
		Context: ctx,
		history: newHistoryRing(defaultHistoryBound),
	}
}

func (m *Machine) initialValue(id StateId) StateValue {
	node, ok := m.states.Get(id)
	if !ok || !node.IsCompound() {
		return Simple(id)
	}
	return Compound(id, m.initialValue(node.InitialChild))
}

// ancestors returns id and every ancestor id, from id outward to the
// root, inclusive — the walk order spec.md section 4.3 uses for
// transition selection.
func (m *Machine) ancestors(id StateId) []StateId {
	var chain []StateId
	cur := id
	for {
		chain = append(chain, cur)
		node, ok := m.states.Get(cur)
		if !ok || node.Parent == "" {
			break
		}
		cur = node.Parent
	}
	return chain
}

// lca returns the lowest common ancestor of a and b in the state tree,
// comparing full ancestor chains from the root down.
func (m *Machine) lca(a, b StateId) StateId {
	ac := m.ancestors(a)
	bc := m.ancestors(b)
	// reverse both to root-first order
	reverse(ac)
	reverse(bc)
	var common StateId
	for i := 0; i < len(ac) && i < len(bc); i++ {
		if ac[i] != bc[i] {
			break
		}
		common = ac[i]
	}
	return common
}

func reverse(s []StateId) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func validate(b *Builder) (*Machine, error) {
	cfgErr := &ConfigError{}

	seen := make(map[StateId]bool)
	for _, sb := range b.statesInOrder {
		if seen[sb.node.ID] {
			cfgErr.DuplicateStates = append(cfgErr.DuplicateStates, sb.node.ID)
		}
		seen[sb.node.ID] = true
	}

	states := orderedmap.New[StateId, *StateNode]()
	for _, sb := range b.statesInOrder {
		states.Set(sb.node.ID, sb.node)
	}

	for _, sb := range b.statesInOrder {
		for eventType, ts := range sb.node.Transitions {
			for _, t := range ts {
				if _, ok := states.Get(t.Target); !ok {
					cfgErr.MissingTargets = append(cfgErr.MissingTargets,
						fmt.Sprintf("%s --%s--> %s", sb.node.ID, eventType, t.Target))
				}
			}
		}
		if sb.node.IsCompound() {
			if sb.node.InitialChild == "" {
				cfgErr.Unresolved = append(cfgErr.Unresolved,
					fmt.Sprintf("state %q has children but no initial child", sb.node.ID))
			} else if _, ok := states.Get(sb.node.InitialChild); !ok {
				cfgErr.Unresolved = append(cfgErr.Unresolved,
					fmt.Sprintf("state %q initial child %q does not exist", sb.node.ID, sb.node.InitialChild))
			}
		}
	}

	initial := b.initial
	if initial == "" && len(b.statesInOrder) > 0 {
		initial = b.statesInOrder[0].node.ID
	}
	if _, ok := states.Get(initial); !ok {
		cfgErr.InvalidInitial = string(initial)
	}

	if cfgErr.HasErrors() {
		return nil, cfgErr
	}

	return &Machine{id: b.id, states: states, initial: initial}, nil
}
