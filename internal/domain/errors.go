package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the engine's failure taxonomy. Entry points wrap these
// with context via fmt.Errorf("...: %w", err); the HTTP layer classifies them
// into status codes with errors.Is.
var (
	// ErrUnauthorized - caller is not allowed to perform the operation.
	ErrUnauthorized = errors.New("caller not authorized")

	// ErrPaused - the contract is paused and the operation is gated by it.
	ErrPaused = errors.New("contract is paused")

	// ErrPrecondition - a business precondition is violated (insufficient
	// shares, amount below minimum, invalid targets, ...).
	ErrPrecondition = errors.New("precondition violated")

	// ErrReentrantCall - the deposit reentrancy flag was already set.
	ErrReentrantCall = errors.New("reentrant call rejected")

	// ErrExternalCall - a token transfer, router swap or balance
	// verification failed; the enclosing call is rolled back.
	ErrExternalCall = errors.New("external call failed")

	// ErrOverflow - an arithmetic result would not fit its fixed-width
	// type; rejected rather than wrapped.
	ErrOverflow = errors.New("arithmetic overflow")

	// ErrInsufficientReserve - the gas bank cannot cover a scheduling
	// quote at autonomy start.
	ErrInsufficientReserve = errors.New("gas bank below required reserve")
)

// PreconditionError wraps ErrPrecondition with a human-readable reason.
func PreconditionError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrPrecondition, fmt.Sprintf(format, args...))
}
