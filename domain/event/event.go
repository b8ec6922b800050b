// Package event provides the domain types for protocol events and their
// storage classification.
package event

import (
	"encoding/json"
	"fmt"
)

// Event is a signed protocol event in its wire shape. Events are immutable
// and content-addressed: ID commits to every other field, so a stored event
// is never edited in place, only superseded by a newer one.
type Event struct {
	// ID is the lowercase hex event id.
	ID string `json:"id"`

	// PubKey is the author's public key in lowercase hex.
	PubKey string `json:"pubkey"`

	// CreatedAt is the author-asserted creation time in Unix seconds.
	CreatedAt int64 `json:"created_at"`

	// Kind selects the event's semantics and storage class.
	Kind int `json:"kind"`

	// Tags is the event's tag list. Each tag is a non-empty array of
	// strings whose first element names the tag.
	Tags [][]string `json:"tags"`

	// Content is the event body, opaque to the store.
	Content string `json:"content"`

	// Sig is the author's signature over the serialized event.
	Sig string `json:"sig"`
}

// DTag returns the value of the event's first "d" tag, or the empty string
// when the tag is absent or has no value. A parameterized replaceable event
// without a "d" tag is equivalent to one carrying d="".
func (e *Event) DTag() string {
	for _, tag := range e.Tags {
		if len(tag) == 0 || tag[0] != "d" {
			continue
		}
		if len(tag) < 2 {
			return ""
		}
		return tag[1]
	}
	return ""
}

// Validate reports whether the event is storable. It checks structural
// requirements only; signature verification happens upstream of the store.
func (e *Event) Validate() error {
	if e == nil {
		return fmt.Errorf("%w: nil event", ErrInvalidEvent)
	}
	if e.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidEvent)
	}
	if !ValidAuthor(e.PubKey) {
		return fmt.Errorf("%w: author %q", ErrInvalidEvent, e.PubKey)
	}
	if e.Kind < 0 {
		return fmt.Errorf("%w: negative kind %d", ErrInvalidEvent, e.Kind)
	}
	return nil
}

// ValidAuthor reports whether s is a usable author key. Serialization
// layers upstream occasionally hand the store the literal strings
// "undefined" or "null" where a key was never populated; those are
// placeholders, not authors.
func ValidAuthor(s string) bool {
	switch s {
	case "", "undefined", "null":
		return false
	}
	return true
}

// Marshal encodes the event in its canonical wire JSON.
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Unmarshal decodes a wire JSON event.
func Unmarshal(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	return &e, nil
}
