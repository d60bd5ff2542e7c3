package capture

import "errors"

// Capture attempt failures. All are handled at the boundary of a single
// attempt and surfaced to the user; none are retried automatically except
// the deliberate one-step assignment retry in the step coordinator.
var (
	// ErrNoSession indicates no active debug session is attached.
	ErrNoSession = errors.New("no active debug session")

	// ErrNoStackFrame indicates every frame resolution strategy failed.
	ErrNoStackFrame = errors.New("no resolvable stack frame")

	// ErrNoExpression indicates neither a selection nor a heuristic match
	// produced a capturable expression.
	ErrNoExpression = errors.New("no capturable expression")

	// ErrEmptyResult indicates evaluation succeeded but decoded to nothing.
	ErrEmptyResult = errors.New("evaluation returned empty result")
)
