package domain

import "errors"

// ErrInvariantViolation and related errors describe index contract failures.
var (
	ErrInvariantViolation = errors.New("invariant violation")
	ErrIndexOutOfBounds   = errors.New("index out of bounds")
	ErrInvalidMode        = errors.New("invalid mode")
)
