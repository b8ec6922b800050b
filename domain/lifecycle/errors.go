package lifecycle

import "errors"

// Domain errors for lifecycle management.
var (
	// ErrNotInitialized is returned when an operation arrives before
	// Init has completed.
	ErrNotInitialized = errors.New("store not initialized")

	// ErrClosed is returned when an operation arrives after Close.
	ErrClosed = errors.New("store closed")

	// ErrOpenTimeout marks an open attempt that exceeded its deadline.
	ErrOpenTimeout = errors.New("substrate open timed out")

	// ErrInvalidTransition is returned for a lifecycle transition the
	// table does not permit.
	ErrInvalidTransition = errors.New("invalid lifecycle transition")
)
