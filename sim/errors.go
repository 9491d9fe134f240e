package sim

import "errors"

// Error taxonomy for the simulation core.
//
// Configuration problems (ErrInvalidParameter, ErrInvalidTopology) are
// surfaced by Validate/NewSimulator before any simulated time elapses.
// ErrInvariantViolation signals state-machine corruption and aborts the run.
// ErrEmptyFEL is a control condition: polling an empty future-event list is
// the simulation's natural stop, not a user-facing failure.
var (
	ErrInvalidParameter   = errors.New("invalid parameter")
	ErrInvalidTopology    = errors.New("invalid topology")
	ErrInvariantViolation = errors.New("invariant violation")
	ErrEmptyFEL           = errors.New("future event list is empty")
)
