package record

import "encoding/json"

// InfoKeySeparator joins the two halves of an Info composite key.
const InfoKeySeparator = "::"

// Relay is a configured relay endpoint and its capability metadata.
type Relay struct {
	// URL is the relay websocket URL and the record's primary key.
	URL string `json:"url"`

	// Read marks the relay as a read source.
	Read bool `json:"read"`

	// Write marks the relay as a write target.
	Write bool `json:"write"`

	// Extensions lists protocol extension numbers the relay advertises.
	Extensions []int `json:"extensions,omitempty"`

	// UpdatedAt is when this record last changed, in Unix seconds.
	UpdatedAt int64 `json:"updated_at,omitempty"`
}

// Info is a small keyed metadata record. Records are addressed by the pair
// (Key, Type) so one logical key can carry several typed payloads.
type Info struct {
	// Key is the logical name.
	Key string `json:"key"`

	// Type qualifies the key.
	Type string `json:"type"`

	// Payload is the record body, opaque to the store.
	Payload json.RawMessage `json:"payload,omitempty"`

	// UpdatedAt is when this record last changed, in Unix seconds.
	UpdatedAt int64 `json:"updated_at,omitempty"`
}

// CompositeKey returns the storage key for this record.
func (i *Info) CompositeKey() string {
	return InfoKey(i.Key, i.Type)
}

// InfoKey builds the composite storage key for an Info record.
func InfoKey(key, typ string) string {
	return key + InfoKeySeparator + typ
}

// Notification is a locally generated notification about an event of
// interest, queryable by time.
type Notification struct {
	// ID is the notification's primary key.
	ID string `json:"id"`

	// Timestamp orders notifications, in Unix seconds.
	Timestamp int64 `json:"timestamp"`

	// Kind is the kind of the event that triggered the notification.
	Kind int `json:"kind"`

	// PubKey is the author of the triggering event.
	PubKey string `json:"pubkey"`

	// Payload is the notification body, opaque to the store.
	Payload json.RawMessage `json:"payload,omitempty"`

	// Read marks the notification as seen.
	Read bool `json:"read"`
}

// ObservedRelay tracks the health of a relay the client has connected to.
type ObservedRelay struct {
	// URL is the relay websocket URL and the record's primary key.
	URL string `json:"url"`

	// FirstSeen and LastSeen bound the observation window, Unix seconds.
	FirstSeen int64 `json:"first_seen"`
	LastSeen  int64 `json:"last_seen"`

	// Successes and Failures count connection attempts.
	Successes int64 `json:"successes"`
	Failures  int64 `json:"failures"`
}

// RelayMapping records that an author's events were seen on a relay.
type RelayMapping struct {
	// PubKey and URL together form the primary key.
	PubKey string `json:"pubkey"`
	URL    string `json:"url"`

	// LastSeen is the most recent sighting, in Unix seconds.
	LastSeen int64 `json:"last_seen"`
}
