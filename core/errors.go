package core

import "errors"

var (
	// ErrInvalidArgument indicates malformed or missing construction, reset
	// or step input (empty product list, negative round budget, action set
	// not matching the active participants).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidState indicates an operation attempted on a terminated or
	// unreset episode. The episode is left exactly as it was before the
	// failed call.
	ErrInvalidState = errors.New("invalid episode state")
)
