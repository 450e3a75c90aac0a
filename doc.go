// Package statecore is a reactive, hierarchical, guarded finite state
// machine runtime. It models domain behavior as an immutable machine graph
// built once by a staged Builder, stepped deterministically by a pure
// transition engine, and observed through an in-process event bus that
// feeds persistence, backups, and a time-travel monitor.
//
// The package never touches a UI layer, a testing DSL, or a wire protocol:
// those are host concerns. statecore only computes the next state and
// tells anyone listening what happened.
package statecore
