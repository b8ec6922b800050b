package event

import "errors"

// Domain errors for event handling.
var (
	// ErrInvalidEvent is returned when an event is structurally unusable.
	ErrInvalidEvent = errors.New("invalid event")
)
