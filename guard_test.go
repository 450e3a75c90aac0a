package statecore

import (
	"context"
	"testing"
	"time"
)

var baseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFieldGuardComparesStructField(t *testing.T) {
	type ctx struct{ Count int }
	g := FieldGuard{Path: "Count", Op: OpLt, Value: 3}

	ok, err := g.Evaluate(context.Background(), &ctx{Count: 2}, NewEvent("x", nil))
	if err != nil || !ok {
		t.Errorf("Evaluate(Count=2) = (%v, %v), want (true, nil)", ok, err)
	}

	ok, err = g.Evaluate(context.Background(), &ctx{Count: 5}, NewEvent("x", nil))
	if err != nil || ok {
		t.Errorf("Evaluate(Count=5) = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestFieldGuardComparesMapField(t *testing.T) {
	g := FieldGuard{Path: "count", Op: OpGe, Value: 10}
	ok, err := g.Evaluate(context.Background(), map[string]any{"count": 10}, NewEvent("x", nil))
	if err != nil || !ok {
		t.Errorf("Evaluate() = (%v, %v), want (true, nil)", ok, err)
	}
}

func TestFieldGuardMissingFieldIsFalseNotError(t *testing.T) {
	type ctx struct{ Count int }
	g := FieldGuard{Path: "Missing", Op: OpEq, Value: 1}
	ok, err := g.Evaluate(context.Background(), &ctx{}, NewEvent("x", nil))
	if err != nil || ok {
		t.Errorf("Evaluate() = (%v, %v), want (false, nil) for a missing field", ok, err)
	}
}

func TestFieldGuardUnorderableTypesIsError(t *testing.T) {
	g := FieldGuard{Path: "Name", Op: OpLt, Value: "z"}
	type ctx struct{ Name string }
	_, err := g.Evaluate(context.Background(), &ctx{Name: "a"}, NewEvent("x", nil))
	if err == nil {
		t.Fatal("expected an error ordering two strings with OpLt")
	}
}

func TestAndShortCircuitsOnFirstFailure(t *testing.T) {
	calls := 0
	never := FunctionGuard{Desc: "never", Fn: func(ctx context.Context, c any, e Event) (bool, error) {
		calls++
		return true, nil
	}}
	g := And{Guards: []Guard{
		FunctionGuard{Desc: "false", Fn: func(ctx context.Context, c any, e Event) (bool, error) { return false, nil }},
		never,
	}}

	ok, err := g.Evaluate(context.Background(), nil, NewEvent("x", nil))
	if err != nil || ok {
		t.Errorf("Evaluate() = (%v, %v), want (false, nil)", ok, err)
	}
	if calls != 0 {
		t.Errorf("expected short-circuit, but the second guard ran %d times", calls)
	}
}

func TestOrSucceedsOnFirstTrue(t *testing.T) {
	g := Or{Guards: []Guard{
		FunctionGuard{Desc: "false", Fn: func(ctx context.Context, c any, e Event) (bool, error) { return false, nil }},
		FunctionGuard{Desc: "true", Fn: func(ctx context.Context, c any, e Event) (bool, error) { return true, nil }},
	}}
	ok, err := g.Evaluate(context.Background(), nil, NewEvent("x", nil))
	if err != nil || !ok {
		t.Errorf("Evaluate() = (%v, %v), want (true, nil)", ok, err)
	}
}

func TestNotInvertsResult(t *testing.T) {
	g := Not{Guard: FunctionGuard{Desc: "true", Fn: func(ctx context.Context, c any, e Event) (bool, error) { return true, nil }}}
	ok, err := g.Evaluate(context.Background(), nil, NewEvent("x", nil))
	if err != nil || ok {
		t.Errorf("Evaluate() = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestGuardErrorPropagatesThroughComposition(t *testing.T) {
	boom := FunctionGuard{Desc: "boom", Fn: func(ctx context.Context, c any, e Event) (bool, error) {
		return false, errFailingAction
	}}
	and := And{Guards: []Guard{boom}}
	if _, err := and.Evaluate(context.Background(), nil, NewEvent("x", nil)); err == nil {
		t.Error("expected And to propagate a sub-guard error")
	}
	or := Or{Guards: []Guard{boom}}
	if _, err := or.Evaluate(context.Background(), nil, NewEvent("x", nil)); err == nil {
		t.Error("expected Or to propagate a sub-guard error")
	}
	not := Not{Guard: boom}
	if _, err := not.Evaluate(context.Background(), nil, NewEvent("x", nil)); err == nil {
		t.Error("expected Not to propagate a sub-guard error")
	}
}

func TestFieldGuardEqual(t *testing.T) {
	a := FieldGuard{Path: "Count", Op: OpLt, Value: 3}
	b := FieldGuard{Path: "Count", Op: OpLt, Value: 3}
	c := FieldGuard{Path: "Count", Op: OpLt, Value: 4}
	if !a.Equal(b) {
		t.Error("expected identical FieldGuards to be Equal")
	}
	if a.Equal(c) {
		t.Error("expected differing FieldGuards to not be Equal")
	}
	if a.Equal(FunctionGuard{}) {
		t.Error("expected FieldGuard and FunctionGuard to never be Equal")
	}
}

func TestTimeGuardWindow(t *testing.T) {
	entered := baseTime
	g := TimeGuard{
		SinceEntry: 5 * time.Second,
		Window:     10 * time.Second,
		EnteredAt:  func() time.Time { return entered },
		Now:        func() time.Time { return entered.Add(7 * time.Second) },
	}
	ok, err := g.Evaluate(context.Background(), nil, NewEvent("x", nil))
	if err != nil || !ok {
		t.Errorf("Evaluate() = (%v, %v), want (true, nil) within window", ok, err)
	}

	g.Now = func() time.Time { return entered.Add(2 * time.Second) }
	ok, err = g.Evaluate(context.Background(), nil, NewEvent("x", nil))
	if err != nil || ok {
		t.Errorf("Evaluate() = (%v, %v), want (false, nil) before SinceEntry elapses", ok, err)
	}
}
