// Package failfast provides invariant checks for statecore's internal
// code; no other package of the module calls them at present. They
// panic rather than return errors, because a violation here means
// statecore itself has a bug, not that the caller supplied bad input.
package failfast

import (
	"fmt"
	"reflect"
	"runtime/debug"
)

// If panics with message if condition is false.
func If(condition bool, message string, args ...interface{}) {
	if !condition {
		panic(fmt.Errorf("statecore: internal invariant violated: "+message, args...))
	}
}

// NotNil panics if ptr is nil, including typed-nil pointers and
// functions, which == nil misses.
func NotNil(ptr interface{}, name string) {
	if ptr == nil {
		panic(fmt.Errorf("statecore: internal invariant violated: %s is nil", name))
	}
	v := reflect.ValueOf(ptr)
	switch v.Kind() {
	case reflect.Ptr, reflect.Func, reflect.Map, reflect.Slice, reflect.Chan, reflect.Interface:
		if v.IsNil() {
			panic(fmt.Errorf("statecore: internal invariant violated: %s is nil", name))
		}
	}
}

// Err panics if err is non-nil, with a stack trace attached.
func Err(err error) {
	if err != nil {
		panic(fmt.Errorf("statecore: internal invariant violated: %w\n%s", err, debug.Stack()))
	}
}
