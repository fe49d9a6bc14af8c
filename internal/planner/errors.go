package planner

import "errors"

var (
	// ErrValidation marks a caller request that would break a plan invariant.
	ErrValidation = errors.New("validation error")
	// ErrInvariantViolation marks a programming error upstream of the selector.
	ErrInvariantViolation = errors.New("invariant violation")
)
