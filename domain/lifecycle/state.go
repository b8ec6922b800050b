// Package lifecycle provides the store lifecycle domain model: the states a
// store moves through while opening and the transitions permitted between
// them.
package lifecycle

// State identifies where the store is in its open/recovery lifecycle.
// States are identified by stable strings, not behavioral definitions.
type State string

// Canonical lifecycle states.
const (
	// StateUnopened is the state before Init has been called.
	StateUnopened State = "unopened"

	// StateOpening covers the open attempt and the recovery tiers.
	StateOpening State = "opening"

	// StateReady means a persistent substrate accepted the open, with
	// either the full or the minimal schema.
	StateReady State = "ready"

	// StateDegraded means every recovery tier failed and the in-memory
	// fallback now serves the contract for the rest of the process.
	StateDegraded State = "degraded"

	// StateFailed means the open was abandoned before any tier could
	// finish, which only happens when the caller's context ends.
	StateFailed State = "failed"
)

// IsTerminal reports whether the lifecycle can never leave this state.
// Ready is not terminal: a broken wipe can still demote it to degraded.
func (s State) IsTerminal() bool {
	return s == StateDegraded || s == StateFailed
}

// Operational reports whether the store accepts calls in this state.
// Degraded stores stay operational; that is the point of the fallback.
func (s State) Operational() bool {
	return s == StateReady || s == StateDegraded
}

// IsValid reports whether the state is a recognized canonical state.
func (s State) IsValid() bool {
	switch s {
	case StateUnopened, StateOpening, StateReady, StateDegraded, StateFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// AllStates returns all canonical states.
func AllStates() []State {
	return []State{
		StateUnopened,
		StateOpening,
		StateReady,
		StateDegraded,
		StateFailed,
	}
}

// Tier identifies which recovery tier produced the active substrate.
type Tier int

const (
	// TierFull is the first tier: the persistent substrate opened with
	// the complete schema.
	TierFull Tier = iota

	// TierMinimal is the second tier: the database was destroyed and
	// recreated with the reduced schema.
	TierMinimal

	// TierMemory is the last tier: persistent storage is unusable and
	// the in-memory fallback serves the contract.
	TierMemory
)

// String returns the tier name for logs.
func (t Tier) String() string {
	switch t {
	case TierFull:
		return "full"
	case TierMinimal:
		return "minimal"
	case TierMemory:
		return "memory"
	default:
		return "unknown"
	}
}
