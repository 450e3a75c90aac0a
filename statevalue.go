package statecore

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StateValue is the tagged sum described in spec.md section 3: a Simple
// leaf state, or a Compound state entered together with an active child.
// The zero value is not valid; use Simple or Compound to construct one.
type StateValue struct {
	id    StateId
	child *StateValue
}

// Simple builds a leaf StateValue.
func Simple(id StateId) StateValue {
	return StateValue{id: id}
}

// Compound builds a StateValue for a state entered along with an active
// descendant.
func Compound(id StateId, child StateValue) StateValue {
	c := child
	return StateValue{id: id, child: &c}
}

// ID returns this level's state id.
func (v StateValue) ID() StateId { return v.id }

// IsCompound reports whether this value carries an active child.
func (v StateValue) IsCompound() bool { return v.child != nil }

// Child returns the active descendant and true, or the zero value and
// false for a Simple value.
func (v StateValue) Child() (StateValue, bool) {
	if v.child == nil {
		return StateValue{}, false
	}
	return *v.child, true
}

// Leaf walks the Compound chain and returns the deepest active state id —
// the "active leaf state" referenced throughout the transition engine.
func (v StateValue) Leaf() StateId {
	cur := v
	for cur.child != nil {
		cur = *cur.child
	}
	return cur.id
}

// Path returns every state id on the chain from the root (this value) down
// to the active leaf, inclusive.
func (v StateValue) Path() []StateId {
	path := []StateId{v.id}
	cur := v
	for cur.child != nil {
		cur = *cur.child
		path = append(path, cur.id)
	}
	return path
}

// Equal reports structural equality, as required by spec.md section 3.
func (v StateValue) Equal(other StateValue) bool {
	if v.id != other.id {
		return false
	}
	if (v.child == nil) != (other.child == nil) {
		return false
	}
	if v.child == nil {
		return true
	}
	return v.child.Equal(*other.child)
}

// String renders the value as "parent.child.grandchild" for diagnostics.
func (v StateValue) String() string {
	ids := v.Path()
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = string(id)
	}
	return strings.Join(strs, ".")
}

// MarshalJSON encodes a Simple value as its bare id string and a Compound
// value as {"<id>": <child>}, the wire shape the persistence envelope of
// spec.md section 4.4 specifies.
func (v StateValue) MarshalJSON() ([]byte, error) {
	if v.child == nil {
		return json.Marshal(string(v.id))
	}
	return json.Marshal(map[string]StateValue{string(v.id): *v.child})
}

// UnmarshalJSON decodes either shape MarshalJSON produces.
func (v *StateValue) UnmarshalJSON(data []byte) error {
	var simple string
	if err := json.Unmarshal(data, &simple); err == nil {
		*v = Simple(StateId(simple))
		return nil
	}
	var compound map[string]StateValue
	if err := json.Unmarshal(data, &compound); err != nil {
		return fmt.Errorf("statecore: invalid StateValue JSON: %w", err)
	}
	if len(compound) != 1 {
		return fmt.Errorf("statecore: compound StateValue JSON must have exactly one key, got %d", len(compound))
	}
	for id, child := range compound {
		*v = Compound(StateId(id), child)
	}
	return nil
}
