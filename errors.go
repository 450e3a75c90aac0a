package statecore

import (
	"errors"
	"fmt"
)

// ConfigErrorCode enumerates the kinds of builder validation failures
// described in spec.md section 4.2.
type ConfigErrorCode string

const (
	ConfigErrDuplicateState ConfigErrorCode = "duplicate_state"
	ConfigErrMissingTarget  ConfigErrorCode = "missing_target"
	ConfigErrInvalidInitial ConfigErrorCode = "invalid_initial"
	ConfigErrUnresolvedRef  ConfigErrorCode = "unresolved_reference"
)

// ConfigError is returned by Builder.Build when the accumulated
// definition fails validation. It is fatal: the builder cannot recover
// without redefinition, but it reports every violation found, not just
// the first, mirroring the original Rust
// ConfigError{missing_targets, duplicate_states, invalid_initial}.
type ConfigError struct {
	DuplicateStates []StateId
	MissingTargets  []string
	InvalidInitial  string
	Unresolved      []string
}

func (e *ConfigError) Error() string {
	msg := "statecore: invalid machine definition"
	if len(e.DuplicateStates) > 0 {
		msg += fmt.Sprintf("; duplicate states: %v", e.DuplicateStates)
	}
	if len(e.MissingTargets) > 0 {
		msg += fmt.Sprintf("; missing transition targets: %v", e.MissingTargets)
	}
	if e.InvalidInitial != "" {
		msg += fmt.Sprintf("; invalid initial state: %s", e.InvalidInitial)
	}
	if len(e.Unresolved) > 0 {
		msg += fmt.Sprintf("; unresolved guard/action references: %v", e.Unresolved)
	}
	return msg
}

// HasErrors reports whether any violation was recorded.
func (e *ConfigError) HasErrors() bool {
	return len(e.DuplicateStates) > 0 || len(e.MissingTargets) > 0 ||
		e.InvalidInitial != "" || len(e.Unresolved) > 0
}

// TransitionErrorCode enumerates step-time outcomes from spec.md section 7.
type TransitionErrorCode string

const (
	// ErrCodeNoMatch is a non-error outcome in spirit (spec.md calls it
	// "Unchanged") but is represented as a sentinel error so Go callers
	// get an honest (value, error) signature; see ErrNoMatch.
	ErrCodeNoMatch      TransitionErrorCode = "no_match"
	ErrCodeGuardFailure TransitionErrorCode = "guard_failure"
	ErrCodeActionFailed TransitionErrorCode = "action_failed"
	ErrCodeInvalidTarget TransitionErrorCode = "invalid_target"
)

// TransitionError is returned by Step on any non-"match and applied"
// outcome.
type TransitionError struct {
	Code       TransitionErrorCode
	State      StateId
	EventType  string
	ActionIdx  int
	Reason     string
	underlying error
}

func (e *TransitionError) Error() string {
	switch e.Code {
	case ErrCodeNoMatch:
		return fmt.Sprintf("statecore: no transition for event %q from state %q", e.EventType, e.State)
	case ErrCodeActionFailed:
		return fmt.Sprintf("statecore: action %d failed during transition from %q on event %q: %s", e.ActionIdx, e.State, e.EventType, e.Reason)
	case ErrCodeGuardFailure:
		return fmt.Sprintf("statecore: guard errored evaluating transition from %q on event %q: %s", e.State, e.EventType, e.Reason)
	case ErrCodeInvalidTarget:
		return fmt.Sprintf("statecore: transition target %q does not exist in the machine graph", e.Reason)
	default:
		return fmt.Sprintf("statecore: transition error (%s)", e.Code)
	}
}

func (e *TransitionError) Unwrap() error { return e.underlying }

// ErrNoMatch is the sentinel TransitionError code used to signal the
// "Unchanged" outcome of spec.md section 4.3: no guarded transition fired.
// Callers should check for it with errors.As, not treat every error as
// fatal — the monitor records it as a no-op rather than a failure.
var ErrNoMatch = &TransitionError{Code: ErrCodeNoMatch}

// IsNoMatch reports whether err represents the Unchanged/no-match outcome.
func IsNoMatch(err error) bool {
	var te *TransitionError
	if errors.As(err, &te) {
		return te.Code == ErrCodeNoMatch
	}
	return false
}
