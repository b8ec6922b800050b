package lifecycle

// Transitions defines the allowed lifecycle transitions.
//
// Thread Safety: Transitions is NOT safe for concurrent modification. It
// should be fully configured before use and treated as immutable
// thereafter. The read methods (CanTransition, AllowedTransitions) are safe
// for concurrent use after configuration is complete.
type Transitions struct {
	transitions map[State][]State
}

// TransitionRules maps states to the states they can transition to.
type TransitionRules map[State][]State

// NewTransitions creates an empty transition configuration. Use Allow to
// add rules, or DefaultTransitions for the canonical configuration.
func NewTransitions() *Transitions {
	return &Transitions{
		transitions: make(map[State][]State),
	}
}

// NewTransitionsWith creates a transition configuration from a rules map.
func NewTransitionsWith(rules TransitionRules) *Transitions {
	t := NewTransitions()
	for from, toStates := range rules {
		for _, to := range toStates {
			t.Allow(from, to)
		}
	}
	return t
}

// Allow permits a transition from one state to another.
func (t *Transitions) Allow(from, to State) *Transitions {
	t.transitions[from] = append(t.transitions[from], to)
	return t
}

// CanTransition checks if a transition is allowed.
func (t *Transitions) CanTransition(from, to State) bool {
	allowed, exists := t.transitions[from]
	if !exists {
		return false
	}

	for _, state := range allowed {
		if state == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns all states reachable from the given state.
func (t *Transitions) AllowedTransitions(from State) []State {
	return t.transitions[from]
}

// DefaultTransitions returns the canonical lifecycle transition table.
//
// The flow is:
//
//	unopened → opening → ready
//	                   → degraded (all recovery tiers failed)
//	                   → failed   (context ended mid-open)
//	ready → degraded             (recreate after a broken wipe failed)
func DefaultTransitions() *Transitions {
	return NewTransitionsWith(TransitionRules{
		StateUnopened: {StateOpening},
		StateOpening:  {StateReady, StateDegraded, StateFailed},
		StateReady:    {StateDegraded},
	})
}
