package statemachine

import (
	"github.com/felixgeelhaar/statekit"

	"github.com/plumenote/eventstore/domain/lifecycle"
)

// guardCanTransition checks the transition against the lifecycle table.
// Note: In statekit, guards receive the context by value. Since our context is
// *Context, the guard receives *Context directly.
func guardCanTransition(ctx *Context, event statekit.Event) bool {
	if ctx == nil || ctx.Transitions == nil {
		return false
	}

	fromState := ctx.Current

	// Get target state from the event payload if available
	var toState lifecycle.State
	if payload, ok := event.Payload.(TransitionPayload); ok {
		toState = payload.ToState
	} else {
		// Fall back to deriving from event type
		toState = stateFromEventType(event.Type)
	}

	return ctx.Transitions.CanTransition(fromState, toState)
}

// stateFromEventType derives the target state from an event type.
func stateFromEventType(eventType statekit.EventType) lifecycle.State {
	switch eventType {
	case "OPEN":
		return lifecycle.StateOpening
	case "READY":
		return lifecycle.StateReady
	case "DEGRADE":
		return lifecycle.StateDegraded
	case "FAIL":
		return lifecycle.StateFailed
	default:
		return lifecycle.State(eventType)
	}
}
