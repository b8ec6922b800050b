// Package statemachine provides the statekit integration for the store
// lifecycle.
package statemachine

import (
	"github.com/felixgeelhaar/statekit"

	"github.com/plumenote/eventstore/domain/lifecycle"
)

// Context carries lifecycle state through the state machine.
type Context struct {
	// Current mirrors the interpreter's state for cheap reads.
	Current lifecycle.State

	// Tier records which recovery tier produced the active substrate.
	Tier lifecycle.Tier

	// Transitions is the table consulted by the canTransition guard.
	Transitions *lifecycle.Transitions

	// Trail accumulates every transition for diagnostics.
	Trail []TransitionRecord
}

// NewContext creates a new machine context with the canonical transition
// table.
func NewContext() *Context {
	return &Context{
		Current:     lifecycle.StateUnopened,
		Transitions: lifecycle.DefaultTransitions(),
	}
}

// State IDs as StateID type for statekit.
const (
	stateUnopened statekit.StateID = statekit.StateID(lifecycle.StateUnopened)
	stateOpening  statekit.StateID = statekit.StateID(lifecycle.StateOpening)
	stateReady    statekit.StateID = statekit.StateID(lifecycle.StateReady)
	stateDegraded statekit.StateID = statekit.StateID(lifecycle.StateDegraded)
	stateFailed   statekit.StateID = statekit.StateID(lifecycle.StateFailed)
)

// NewLifecycleMachine creates the canonical store lifecycle statechart.
func NewLifecycleMachine() (*statekit.MachineConfig[*Context], error) {
	return statekit.NewMachine[*Context]("store-lifecycle").
		WithInitial(stateUnopened).
		WithContext(&Context{}).
		// Register actions
		WithAction("syncState", syncState).
		WithAction("recordTransition", recordTransition).
		// Register guards
		WithGuard("canTransition", guardCanTransition).
		// Define states
		State(stateUnopened).
			OnEntry("syncState").
			On("OPEN").Target(stateOpening).Guard("canTransition").Do("recordTransition").
			Done().
		State(stateOpening).
			OnEntry("syncState").
			On("READY").Target(stateReady).Guard("canTransition").Do("recordTransition").
			On("DEGRADE").Target(stateDegraded).Guard("canTransition").Do("recordTransition").
			On("FAIL").Target(stateFailed).Guard("canTransition").Do("recordTransition").
			Done().
		State(stateReady).
			OnEntry("syncState").
			On("DEGRADE").Target(stateDegraded).Guard("canTransition").Do("recordTransition").
			Done().
		State(stateDegraded).
			Final().
			OnEntry("syncState").
			Done().
		State(stateFailed).
			Final().
			OnEntry("syncState").
			Done().
		Build()
}

// EventForTransition returns the event type for a lifecycle transition.
func EventForTransition(to lifecycle.State) statekit.EventType {
	switch to {
	case lifecycle.StateOpening:
		return "OPEN"
	case lifecycle.StateReady:
		return "READY"
	case lifecycle.StateDegraded:
		return "DEGRADE"
	case lifecycle.StateFailed:
		return "FAIL"
	default:
		return statekit.EventType(to)
	}
}

// StateFromMachine converts the machine state ID to a lifecycle State.
func StateFromMachine(stateID statekit.StateID) lifecycle.State {
	return lifecycle.State(stateID)
}
