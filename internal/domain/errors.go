package domain

import "errors"

// Error kinds. Operations wrap one of these so callers can classify
// failures with errors.Is.
var (
	// Malformed input; nothing was changed.
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	// Cargo exceeds the vehicle's weight or volume.
	ErrCapacity = errors.New("capacity exceeded")
	// Well-formed input rejected by the current aggregate state.
	ErrState       = errors.New("illegal state")
	ErrOracle      = errors.New("distance oracle failure")
	ErrIntegration = errors.New("integration failure")
)
