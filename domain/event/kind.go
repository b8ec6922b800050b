package event

// Class is the storage class of an event kind. The class decides how the
// store treats an incoming event: append it or replace an older one.
type Class int

const (
	// ClassRegular events accumulate; every distinct id is kept.
	ClassRegular Class = iota

	// ClassReplaceable events keep at most one record per (author, kind).
	ClassReplaceable

	// ClassEphemeral events are short-lived protocol chatter. The store
	// keeps whatever it is handed, appending by id like regular events;
	// relays are the ones that refuse to retain this band.
	ClassEphemeral

	// ClassParameterizedReplaceable events keep at most one record per
	// (author, kind, d tag).
	ClassParameterizedReplaceable
)

// Kind numbers with meaning to the store. The store never interprets event
// content, but tests and the CLI read better with the common ones named.
const (
	KindProfileMetadata   = 0
	KindTextNote          = 1
	KindRecommendRelay    = 2
	KindFollowList        = 3
	KindMuteList          = 10000
	KindRelayListMetadata = 10002
	KindProfileBadges     = 30008
	KindBadgeDefinition   = 30009
)

// Classify maps a kind number to its storage class.
//
// Kinds 0 and 3 are replaceable, as is the 10000-19999 band. 20000-29999 is
// ephemeral and 30000-39999 is parameterized replaceable. Everything else,
// including kinds outside any documented band, is treated as regular: the
// store accepts unknown kinds rather than rejecting them.
func Classify(kind int) Class {
	switch {
	case kind == KindProfileMetadata || kind == KindFollowList:
		return ClassReplaceable
	case kind >= 10000 && kind < 20000:
		return ClassReplaceable
	case kind >= 20000 && kind < 30000:
		return ClassEphemeral
	case kind >= 30000 && kind < 40000:
		return ClassParameterizedReplaceable
	default:
		return ClassRegular
	}
}

// Replaces reports whether the class stores at most one record per
// replacement key.
func (c Class) Replaces() bool {
	return c == ClassReplaceable || c == ClassParameterizedReplaceable
}

// String returns the class name for logs and metrics.
func (c Class) String() string {
	switch c {
	case ClassRegular:
		return "regular"
	case ClassReplaceable:
		return "replaceable"
	case ClassEphemeral:
		return "ephemeral"
	case ClassParameterizedReplaceable:
		return "parameterized_replaceable"
	default:
		return "unknown"
	}
}
