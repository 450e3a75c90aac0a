package statecore

import (
	"context"
	"fmt"
	"reflect"
	"time"
)

// Guard is the polymorphic predicate capability of spec.md section 4.1.
// Guards are evaluated against the pre-transition context snapshot and
// must be pure — spec.md section 9's open question resolves this as a
// hard requirement, not a suggestion: a Guard implementation must not
// mutate the context it is handed.
type Guard interface {
	Evaluate(ctx context.Context, c any, e Event) (bool, error)
	Description() string
	// Equal supports the builder's reflectability requirements (diagram
	// export, dedup) without requiring guards to be comparable with ==.
	Equal(other Guard) bool
}

// FunctionGuard wraps an arbitrary predicate.
type FunctionGuard struct {
	Desc string
	Fn   func(ctx context.Context, c any, e Event) (bool, error)
}

func (g FunctionGuard) Evaluate(ctx context.Context, c any, e Event) (bool, error) {
	return g.Fn(ctx, c, e)
}
func (g FunctionGuard) Description() string { return g.Desc }
func (g FunctionGuard) Equal(other Guard) bool {
	o, ok := other.(FunctionGuard)
	return ok && o.Desc == g.Desc
}

// CompareOp enumerates the comparison operators FieldGuard and
// CounterGuard support.
type CompareOp string

const (
	OpEq CompareOp = "eq"
	OpNe CompareOp = "ne"
	OpLt CompareOp = "lt"
	OpLe CompareOp = "le"
	OpGt CompareOp = "gt"
	OpGe CompareOp = "ge"
)

// FieldGuard compares a field extracted from the context to a constant.
// The context may be a struct (exported fields only, via reflection) or a
// map[string]any; Path selects the field/key to compare.
type FieldGuard struct {
	Path  string
	Op    CompareOp
	Value any
}

func (g FieldGuard) Description() string {
	return fmt.Sprintf("field(%s) %s %v", g.Path, g.Op, g.Value)
}

func (g FieldGuard) Equal(other Guard) bool {
	o, ok := other.(FieldGuard)
	return ok && o.Path == g.Path && o.Op == g.Op && o.Value == g.Value
}

func (g FieldGuard) Evaluate(ctx context.Context, c any, e Event) (bool, error) {
	actual, ok := extractField(c, g.Path)
	if !ok {
		return false, nil
	}
	return compareOp(g.Op, actual, g.Value)
}

func extractField(c any, path string) (any, bool) {
	if m, ok := c.(map[string]any); ok {
		v, ok := m[path]
		return v, ok
	}
	v := reflect.ValueOf(c)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, false
	}
	f := v.FieldByName(path)
	if !f.IsValid() {
		return nil, false
	}
	return f.Interface(), true
}

func compareOp(op CompareOp, actual, expected any) (bool, error) {
	if op == OpEq {
		return reflect.DeepEqual(actual, expected), nil
	}
	if op == OpNe {
		return !reflect.DeepEqual(actual, expected), nil
	}
	af, aok := toFloat(actual)
	bf, bok := toFloat(expected)
	if !aok || !bok {
		return false, fmt.Errorf("statecore: cannot order-compare %T and %T", actual, expected)
	}
	switch op {
	case OpLt:
		return af < bf, nil
	case OpLe:
		return af <= bf, nil
	case OpGt:
		return af > bf, nil
	case OpGe:
		return af >= bf, nil
	default:
		return false, fmt.Errorf("statecore: unknown comparison operator %q", op)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// And requires every guard to succeed, short-circuiting on the first
// failure or error.
type And struct{ Guards []Guard }

func (g And) Description() string { return joinDescriptions("and", g.Guards) }
func (g And) Equal(other Guard) bool {
	o, ok := other.(And)
	return ok && guardsEqual(g.Guards, o.Guards)
}
func (g And) Evaluate(ctx context.Context, c any, e Event) (bool, error) {
	for _, sub := range g.Guards {
		ok, err := sub.Evaluate(ctx, c, e)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// Or requires at least one guard to succeed.
type Or struct{ Guards []Guard }

func (g Or) Description() string { return joinDescriptions("or", g.Guards) }
func (g Or) Equal(other Guard) bool {
	o, ok := other.(Or)
	return ok && guardsEqual(g.Guards, o.Guards)
}
func (g Or) Evaluate(ctx context.Context, c any, e Event) (bool, error) {
	for _, sub := range g.Guards {
		ok, err := sub.Evaluate(ctx, c, e)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Not inverts a guard.
type Not struct{ Guard Guard }

func (g Not) Description() string { return "not(" + g.Guard.Description() + ")" }
func (g Not) Equal(other Guard) bool {
	o, ok := other.(Not)
	return ok && o.Guard.Equal(g.Guard)
}
func (g Not) Evaluate(ctx context.Context, c any, e Event) (bool, error) {
	ok, err := g.Guard.Evaluate(ctx, c, e)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// TimeGuard is true while wall clock lies in a window relative to the
// state's entry time. The engine does not track entry times: the caller
// supplies EnteredAt, and Evaluate returns an error when it is nil. Now
// is the clock function (defaults to time.Now, override in tests for
// determinism).
type TimeGuard struct {
	SinceEntry time.Duration
	Window     time.Duration
	EnteredAt  func() time.Time
	Now        func() time.Time
}

func (g TimeGuard) Description() string {
	return fmt.Sprintf("time(since_entry>=%s, window=%s)", g.SinceEntry, g.Window)
}
func (g TimeGuard) Equal(other Guard) bool {
	o, ok := other.(TimeGuard)
	return ok && o.SinceEntry == g.SinceEntry && o.Window == g.Window
}
func (g TimeGuard) Evaluate(ctx context.Context, c any, e Event) (bool, error) {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	if g.EnteredAt == nil {
		return false, fmt.Errorf("statecore: TimeGuard requires EnteredAt")
	}
	elapsed := now().Sub(g.EnteredAt())
	if elapsed < g.SinceEntry {
		return false, nil
	}
	if g.Window > 0 && elapsed > g.SinceEntry+g.Window {
		return false, nil
	}
	return true, nil
}

// CounterGuard compares an internal counter kept in context under Key
// (context must be a map[string]any holding Key, or a struct or struct
// pointer with an exported field named Key).
type CounterGuard struct {
	Key string
	Op  CompareOp
	Value int
}

func (g CounterGuard) Description() string {
	return fmt.Sprintf("counter(%s) %s %d", g.Key, g.Op, g.Value)
}
func (g CounterGuard) Equal(other Guard) bool {
	o, ok := other.(CounterGuard)
	return ok && o.Key == g.Key && o.Op == g.Op && o.Value == g.Value
}
func (g CounterGuard) Evaluate(ctx context.Context, c any, e Event) (bool, error) {
	actual, ok := extractField(c, g.Key)
	if !ok {
		return false, nil
	}
	return compareOp(g.Op, actual, g.Value)
}

func joinDescriptions(op string, guards []Guard) string {
	s := op + "("
	for i, g := range guards {
		if i > 0 {
			s += ", "
		}
		s += g.Description()
	}
	return s + ")"
}

func guardsEqual(a, b []Guard) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
