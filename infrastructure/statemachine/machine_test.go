package statemachine

import (
	"errors"
	"testing"

	"github.com/felixgeelhaar/statekit"

	"github.com/plumenote/eventstore/domain/lifecycle"
)

func newTestInterpreter(t *testing.T) *Interpreter {
	t.Helper()

	machine, err := NewLifecycleMachine()
	if err != nil {
		t.Fatalf("NewLifecycleMachine() error = %v", err)
	}

	interp := NewInterpreter(machine, NewContext())
	interp.Start()
	return interp
}

func TestNewContext(t *testing.T) {
	t.Parallel()

	ctx := NewContext()

	if ctx == nil {
		t.Fatal("NewContext() returned nil")
	}
	if ctx.Current != lifecycle.StateUnopened {
		t.Errorf("Context.Current = %s, want unopened", ctx.Current)
	}
	if ctx.Transitions == nil {
		t.Error("Context.Transitions should be initialized")
	}
	if len(ctx.Trail) != 0 {
		t.Errorf("Context.Trail should start empty, got %d records", len(ctx.Trail))
	}
}

func TestNewLifecycleMachine(t *testing.T) {
	t.Parallel()

	machine, err := NewLifecycleMachine()
	if err != nil {
		t.Fatalf("NewLifecycleMachine() error = %v", err)
	}
	if machine == nil {
		t.Fatal("NewLifecycleMachine() returned nil machine")
	}
}

func TestEventForTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state    lifecycle.State
		expected string
	}{
		{lifecycle.StateOpening, "OPEN"},
		{lifecycle.StateReady, "READY"},
		{lifecycle.StateDegraded, "DEGRADE"},
		{lifecycle.StateFailed, "FAIL"},
		{lifecycle.State("custom"), "custom"}, // Unknown state uses state as event
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			t.Parallel()

			event := EventForTransition(tt.state)
			if string(event) != tt.expected {
				t.Errorf("EventForTransition(%s) = %s, want %s", tt.state, event, tt.expected)
			}
		})
	}
}

func TestStateConstants(t *testing.T) {
	t.Parallel()

	// Verify machine state IDs match lifecycle states
	tests := []struct {
		machineState   string
		lifecycleState string
	}{
		{string(stateUnopened), string(lifecycle.StateUnopened)},
		{string(stateOpening), string(lifecycle.StateOpening)},
		{string(stateReady), string(lifecycle.StateReady)},
		{string(stateDegraded), string(lifecycle.StateDegraded)},
		{string(stateFailed), string(lifecycle.StateFailed)},
	}

	for _, tt := range tests {
		t.Run(tt.machineState, func(t *testing.T) {
			t.Parallel()

			if tt.machineState != tt.lifecycleState {
				t.Errorf("Machine state %s does not match lifecycle state %s", tt.machineState, tt.lifecycleState)
			}
		})
	}
}

func TestStateFromMachine(t *testing.T) {
	t.Parallel()

	if got := StateFromMachine(stateOpening); got != lifecycle.StateOpening {
		t.Errorf("StateFromMachine(opening) = %s, want opening", got)
	}
	if got := StateFromMachine(stateDegraded); got != lifecycle.StateDegraded {
		t.Errorf("StateFromMachine(degraded) = %s, want degraded", got)
	}
}

func TestInterpreter_Start(t *testing.T) {
	t.Parallel()

	interp := newTestInterpreter(t)

	// After start, should be in unopened state
	if interp.State() != lifecycle.StateUnopened {
		t.Errorf("Initial state = %s, want unopened", interp.State())
	}

	if interp.IsTerminal() {
		t.Error("Should not be in terminal state after start")
	}
}

func TestInterpreter_Transition(t *testing.T) {
	t.Parallel()

	interp := newTestInterpreter(t)

	err := interp.Transition(lifecycle.StateOpening, "open requested")
	if err != nil {
		t.Fatalf("Transition to opening error = %v", err)
	}

	if interp.State() != lifecycle.StateOpening {
		t.Errorf("State after transition = %s, want opening", interp.State())
	}
}

func TestInterpreter_InvalidTransition(t *testing.T) {
	t.Parallel()

	interp := newTestInterpreter(t)

	// Cannot jump from unopened directly to ready
	err := interp.Transition(lifecycle.StateReady, "invalid transition")
	if err == nil {
		t.Error("Invalid transition should return error")
	}
	if !errors.Is(err, lifecycle.ErrInvalidTransition) {
		t.Errorf("error = %v, want ErrInvalidTransition", err)
	}

	// State should remain unopened
	if interp.State() != lifecycle.StateUnopened {
		t.Errorf("State after invalid transition = %s, want unopened", interp.State())
	}
}

func TestInterpreter_CanTransition(t *testing.T) {
	t.Parallel()

	interp := newTestInterpreter(t)

	if !interp.CanTransition(lifecycle.StateOpening) {
		t.Error("Should be able to transition from unopened to opening")
	}
	if interp.CanTransition(lifecycle.StateReady) {
		t.Error("Should NOT be able to transition from unopened to ready")
	}
	if interp.CanTransition(lifecycle.StateFailed) {
		t.Error("Should NOT be able to fail before opening starts")
	}

	if err := interp.Transition(lifecycle.StateOpening, "open requested"); err != nil {
		t.Fatalf("Transition to opening error = %v", err)
	}

	for _, to := range []lifecycle.State{lifecycle.StateReady, lifecycle.StateDegraded, lifecycle.StateFailed} {
		if !interp.CanTransition(to) {
			t.Errorf("Should be able to transition from opening to %s", to)
		}
	}
}

func TestInterpreter_ReadyWalk(t *testing.T) {
	t.Parallel()

	interp := newTestInterpreter(t)

	steps := []struct {
		toState lifecycle.State
		reason  string
	}{
		{lifecycle.StateOpening, "open requested"},
		{lifecycle.StateReady, "substrate opened with full schema"},
	}

	for _, step := range steps {
		err := interp.Transition(step.toState, step.reason)
		if err != nil {
			t.Fatalf("Transition to %s failed: %v", step.toState, err)
		}
		if interp.State() != step.toState {
			t.Errorf("State after transition = %s, want %s", interp.State(), step.toState)
		}
	}

	// Ready is operational, not terminal: the store can still degrade.
	if interp.IsTerminal() {
		t.Error("ready state should not be terminal")
	}
	if !interp.CanTransition(lifecycle.StateDegraded) {
		t.Error("Should be able to degrade from ready")
	}
}

func TestInterpreter_DegradedIsTerminal(t *testing.T) {
	t.Parallel()

	interp := newTestInterpreter(t)

	if err := interp.Transition(lifecycle.StateOpening, "open requested"); err != nil {
		t.Fatalf("Transition to opening error = %v", err)
	}
	if err := interp.Transition(lifecycle.StateDegraded, "memory fallback active"); err != nil {
		t.Fatalf("Transition to degraded error = %v", err)
	}

	if interp.State() != lifecycle.StateDegraded {
		t.Errorf("State = %s, want degraded", interp.State())
	}
	if !interp.IsTerminal() {
		t.Error("degraded state should be terminal")
	}
}

func TestInterpreter_FailedIsTerminal(t *testing.T) {
	t.Parallel()

	interp := newTestInterpreter(t)

	if err := interp.Transition(lifecycle.StateOpening, "open requested"); err != nil {
		t.Fatalf("Transition to opening error = %v", err)
	}
	if err := interp.Transition(lifecycle.StateFailed, "initialization canceled"); err != nil {
		t.Fatalf("Transition to failed error = %v", err)
	}

	if interp.State() != lifecycle.StateFailed {
		t.Errorf("State = %s, want failed", interp.State())
	}
	if !interp.IsTerminal() {
		t.Error("failed state should be terminal")
	}
}

func TestInterpreter_Trail(t *testing.T) {
	t.Parallel()

	interp := newTestInterpreter(t)

	if err := interp.Transition(lifecycle.StateOpening, "open requested"); err != nil {
		t.Fatalf("Transition to opening error = %v", err)
	}
	if err := interp.Transition(lifecycle.StateReady, "full schema"); err != nil {
		t.Fatalf("Transition to ready error = %v", err)
	}
	if err := interp.Transition(lifecycle.StateDegraded, "write path lost"); err != nil {
		t.Fatalf("Transition to degraded error = %v", err)
	}

	trail := interp.Context().Trail
	if len(trail) != 3 {
		t.Fatalf("Trail has %d records, want 3", len(trail))
	}

	want := []struct {
		from   lifecycle.State
		to     lifecycle.State
		reason string
	}{
		{lifecycle.StateUnopened, lifecycle.StateOpening, "open requested"},
		{lifecycle.StateOpening, lifecycle.StateReady, "full schema"},
		{lifecycle.StateReady, lifecycle.StateDegraded, "write path lost"},
	}

	for i, w := range want {
		rec := trail[i]
		if rec.From != w.from || rec.To != w.to {
			t.Errorf("Trail[%d] = %s -> %s, want %s -> %s", i, rec.From, rec.To, w.from, w.to)
		}
		if rec.Reason != w.reason {
			t.Errorf("Trail[%d].Reason = %q, want %q", i, rec.Reason, w.reason)
		}
		if rec.At.IsZero() {
			t.Errorf("Trail[%d].At should be set", i)
		}
	}
}

func TestInterpreter_Context(t *testing.T) {
	t.Parallel()

	machine, err := NewLifecycleMachine()
	if err != nil {
		t.Fatalf("NewLifecycleMachine() error = %v", err)
	}

	ctx := NewContext()
	interp := NewInterpreter(machine, ctx)

	if interp.Context() != ctx {
		t.Error("Context() should return the interpreter context")
	}
}

func TestInterpreter_Matches(t *testing.T) {
	t.Parallel()

	interp := newTestInterpreter(t)

	if !interp.Matches(string(lifecycle.StateUnopened)) {
		t.Error("Should match unopened state")
	}
	if interp.Matches(string(lifecycle.StateReady)) {
		t.Error("Should not match ready state")
	}
}

func TestInterpreter_Stop(t *testing.T) {
	t.Parallel()

	interp := newTestInterpreter(t)

	// Stop should not panic
	interp.Stop()

	// After stop, should still report state (interpreter retains last state)
	if interp.State() != lifecycle.StateUnopened {
		t.Errorf("State after stop = %s, want unopened", interp.State())
	}
}

func TestTransitionPayload(t *testing.T) {
	t.Parallel()

	payload := TransitionPayload{
		ToState: lifecycle.StateOpening,
		Reason:  "test reason",
	}

	if payload.ToState != lifecycle.StateOpening {
		t.Errorf("ToState = %s, want opening", payload.ToState)
	}
	if payload.Reason != "test reason" {
		t.Errorf("Reason = %s, want 'test reason'", payload.Reason)
	}
}

func TestStateFromEventType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		eventType statekit.EventType
		expected  lifecycle.State
	}{
		{"OPEN", lifecycle.StateOpening},
		{"READY", lifecycle.StateReady},
		{"DEGRADE", lifecycle.StateDegraded},
		{"FAIL", lifecycle.StateFailed},
		{"CUSTOM_EVENT", lifecycle.State("CUSTOM_EVENT")}, // default case
	}

	for _, tt := range tests {
		t.Run(string(tt.eventType), func(t *testing.T) {
			t.Parallel()

			result := stateFromEventType(tt.eventType)
			if result != tt.expected {
				t.Errorf("stateFromEventType(%s) = %s, want %s", tt.eventType, result, tt.expected)
			}
		})
	}
}
