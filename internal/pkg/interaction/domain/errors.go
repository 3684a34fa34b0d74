package interaction

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the engine and its callers. Every mutation surfaces
// exactly one of these families; the cache is left consistent in all cases.
var (
	// ErrStaleState means the local state machine rejected an action: the
	// record is already terminal, or the actor does not own that action. The
	// record was likely mutated elsewhere since the actor last observed it.
	ErrStaleState = errors.New("interaction: stale state")

	// ErrValidation means the input was malformed before any cache or network
	// activity took place.
	ErrValidation = errors.New("interaction: invalid input")

	// ErrTransport means the remote gateway call failed or timed out. The
	// optimistic apply has been rolled back; the caller may retry.
	ErrTransport = errors.New("interaction: transport failure")
)

func wrapStale(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrStaleState, fmt.Sprintf(format, args...))
}

func wrapValidation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
