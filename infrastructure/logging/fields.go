package logging

import (
	"time"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/plumenote/eventstore/domain/event"
)

// Field is a function that applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// Common field constructors for event store logging.

// EventID adds an event id field.
func EventID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("event_id", id)
	}
}

// PubKey adds an author field.
func PubKey(pk string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("pubkey", pk)
	}
}

// Kind adds a kind field.
func Kind(kind int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("kind", kind)
	}
}

// Class adds a storage class field.
func Class(c event.Class) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("class", c.String())
	}
}

// DTag adds a d-tag field.
func DTag(d string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("d_tag", d)
	}
}

// CreatedAt adds the event timestamp field.
func CreatedAt(ts int64) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("created_at", ts)
	}
}

// Table adds a logical table field.
func Table(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("table", name)
	}
}

// Backend adds a substrate backend field.
func Backend(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("backend", name)
	}
}

// Schema adds a schema tier field.
func Schema(s string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("schema", s)
	}
}

// FromState adds a from_state field for lifecycle transitions.
func FromState(s string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("from_state", s)
	}
}

// ToState adds a to_state field for lifecycle transitions.
func ToState(s string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("to_state", s)
	}
}

// Outcome adds a save outcome field.
func Outcome(o string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("outcome", o)
	}
}

// Count adds a record count field.
func Count(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("count", n)
	}
}

// Bytes adds an approximate size field.
func Bytes(n int64) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("bytes", n)
	}
}

// Duration adds a duration field in milliseconds.
func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ms", d.Milliseconds())
	}
}

// ErrorField adds an error field.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}

// Degraded adds a degraded flag field.
func Degraded(d bool) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Bool("degraded", d)
	}
}

// Reason adds a reason field.
func Reason(reason string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("reason", reason)
	}
}

// Component adds a component field for categorization.
func Component(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("component", name)
	}
}

// Operation adds an operation field.
func Operation(op string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("operation", op)
	}
}

// Dir adds a data directory field.
func Dir(dir string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("dir", dir)
	}
}

// Str adds a string field with custom key.
func Str(key, value string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str(key, value)
	}
}
