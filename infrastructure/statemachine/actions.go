package statemachine

import (
	"time"

	"github.com/felixgeelhaar/statekit"

	"github.com/plumenote/eventstore/domain/lifecycle"
	"github.com/plumenote/eventstore/infrastructure/logging"
)

// TransitionRecord is one entry in the lifecycle trail.
type TransitionRecord struct {
	From   lifecycle.State
	To     lifecycle.State
	Reason string
	At     time.Time
}

// syncState mirrors the machine state into the context when entering a state.
// In statekit, actions receive a pointer to the context. Since our context is
// *Context, actions receive **Context.
func syncState(ctx **Context, event statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}

	c := *ctx

	// Get target state from payload if available
	var newState lifecycle.State
	if payload, ok := event.Payload.(TransitionPayload); ok {
		newState = payload.ToState
	} else {
		// Derive from event type
		newState = stateFromEventType(event.Type)
	}

	if newState != "" && newState.IsValid() {
		c.Current = newState
	}
}

// recordTransition appends the transition to the trail and logs it.
func recordTransition(ctx **Context, event statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}

	c := *ctx
	fromState := c.Current

	// Get target state and reason from payload
	var toState lifecycle.State
	var reason string
	if payload, ok := event.Payload.(TransitionPayload); ok {
		toState = payload.ToState
		reason = payload.Reason
	} else {
		// Derive from event type
		toState = stateFromEventType(event.Type)
	}

	c.Trail = append(c.Trail, TransitionRecord{
		From:   fromState,
		To:     toState,
		Reason: reason,
		At:     time.Now(),
	})
	c.Current = toState

	logging.Debug().
		Add(logging.Component("lifecycle")).
		Add(logging.FromState(string(fromState))).
		Add(logging.ToState(string(toState))).
		Add(logging.Reason(reason)).
		Msg("lifecycle transition")
}
