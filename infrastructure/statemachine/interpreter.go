package statemachine

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"

	"github.com/plumenote/eventstore/domain/lifecycle"
)

// TransitionPayload carries additional data with a transition event.
type TransitionPayload struct {
	ToState lifecycle.State
	Reason  string
}

// Interpreter wraps the statekit interpreter with store lifecycle
// functionality.
type Interpreter struct {
	interp *statekit.Interpreter[*Context]
	ctx    *Context
}

// NewInterpreter creates a new interpreter for the lifecycle state machine.
func NewInterpreter(machine *statekit.MachineConfig[*Context], ctx *Context) *Interpreter {
	interp := statekit.NewInterpreter(machine)
	// Update the context reference in the machine
	interp.UpdateContext(func(c **Context) {
		*c = ctx
	})
	return &Interpreter{
		interp: interp,
		ctx:    ctx,
	}
}

// Start initializes the interpreter and enters the initial state.
func (i *Interpreter) Start() {
	i.interp.Start()
	// Sync context state with interpreter
	state := i.interp.State()
	i.ctx.Current = lifecycle.State(state.Value)
}

// Stop stops the interpreter.
func (i *Interpreter) Stop() {
	i.interp.Stop()
}

// State returns the current lifecycle state.
func (i *Interpreter) State() lifecycle.State {
	state := i.interp.State()
	return lifecycle.State(state.Value)
}

// Transition attempts to transition to the target state.
func (i *Interpreter) Transition(to lifecycle.State, reason string) error {
	// Check if transition is allowed
	if !i.CanTransition(to) {
		return fmt.Errorf("%w: %s to %s", lifecycle.ErrInvalidTransition, i.ctx.Current, to)
	}

	eventType := EventForTransition(to)
	payload := TransitionPayload{
		ToState: to,
		Reason:  reason,
	}

	event := statekit.Event{
		Type:    eventType,
		Payload: payload,
	}

	// Send the event (guards reject invalid events)
	i.interp.Send(event)

	// Sync the context with the machine
	newState := i.interp.State()
	i.ctx.Current = lifecycle.State(newState.Value)

	return nil
}

// CanTransition checks if a transition to the target state is possible.
func (i *Interpreter) CanTransition(to lifecycle.State) bool {
	return i.ctx.Transitions.CanTransition(i.ctx.Current, to)
}

// IsTerminal returns true if the interpreter is in a terminal state.
func (i *Interpreter) IsTerminal() bool {
	return i.interp.Done()
}

// Context returns the interpreter context.
func (i *Interpreter) Context() *Context {
	return i.ctx
}

// Matches checks if the current state matches the given state ID.
func (i *Interpreter) Matches(stateID string) bool {
	return i.interp.Matches(statekit.StateID(stateID))
}
