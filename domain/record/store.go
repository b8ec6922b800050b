// Package record defines the substrate contract the storage backends
// implement, along with the auxiliary record shapes that live beside
// events.
package record

import (
	"context"

	"github.com/plumenote/eventstore/domain/event"
)

// Schema identifies which physical layout a substrate was opened with.
type Schema int

const (
	// SchemaFull carries the event table, every secondary index, and all
	// auxiliary tables.
	SchemaFull Schema = iota

	// SchemaMinimal carries only the event table and the two indexes
	// replacement depends on. Auxiliary operations fail with
	// ErrSchemaReduced.
	SchemaMinimal
)

// String returns the schema name for logs.
func (s Schema) String() string {
	if s == SchemaMinimal {
		return "minimal"
	}
	return "full"
}

// Store is the substrate contract. Implementations are dumb row stores:
// they index and retrieve, and know nothing about storage classes or
// replacement. That logic lives above them and is identical for every
// backend.
//
// All methods honor context cancellation. Lookup misses return
// ErrNotFound; list operations return empty slices, not errors.
type Store interface {
	// PutEvent inserts or overwrites an event by id and maintains
	// whichever secondary indexes the active schema carries.
	PutEvent(ctx context.Context, e *event.Event) error
	// GetEvent returns the event with the given id or ErrNotFound.
	GetEvent(ctx context.Context, id string) (*event.Event, error)
	// DeleteEvent removes an event and its index entries. Deleting an
	// absent id is a no-op.
	DeleteEvent(ctx context.Context, id string) error

	// EventsByKind returns all events of one kind.
	EventsByKind(ctx context.Context, kind int) ([]*event.Event, error)
	// EventsByAuthor returns all events by one author.
	EventsByAuthor(ctx context.Context, pubkey string) ([]*event.Event, error)
	// EventsByAuthorKind returns all events by one author with one kind.
	EventsByAuthorKind(ctx context.Context, pubkey string, kind int) ([]*event.Event, error)
	// EventsByAuthorKindDTag narrows EventsByAuthorKind to one d tag.
	EventsByAuthorKindDTag(ctx context.Context, pubkey string, kind int, dTag string) ([]*event.Event, error)
	// EventsByCreatedRange returns events with since <= created_at <=
	// until in ascending created_at order. until <= 0 means unbounded;
	// limit <= 0 means unlimited.
	EventsByCreatedRange(ctx context.Context, since, until int64, limit int) ([]*event.Event, error)

	// PutRelay upserts a relay record keyed by URL.
	PutRelay(ctx context.Context, r *Relay) error
	// GetRelay returns a relay record or ErrNotFound.
	GetRelay(ctx context.Context, url string) (*Relay, error)
	// Relays returns all relay records.
	Relays(ctx context.Context) ([]*Relay, error)

	// PutInfo upserts a metadata record keyed by Key and Type.
	PutInfo(ctx context.Context, i *Info) error
	// GetInfo returns a metadata record or ErrNotFound.
	GetInfo(ctx context.Context, key, typ string) (*Info, error)

	// PutNotification upserts a notification keyed by id.
	PutNotification(ctx context.Context, n *Notification) error
	// NotificationsSince returns notifications with Timestamp >= since
	// in ascending timestamp order.
	NotificationsSince(ctx context.Context, since int64) ([]*Notification, error)

	// PutObservedRelay upserts relay health bookkeeping keyed by URL.
	PutObservedRelay(ctx context.Context, o *ObservedRelay) error
	// GetObservedRelay returns relay health bookkeeping or ErrNotFound.
	GetObservedRelay(ctx context.Context, url string) (*ObservedRelay, error)

	// PutRelayMapping upserts an author-to-relay sighting.
	PutRelayMapping(ctx context.Context, m *RelayMapping) error
	// RelayMappingsByPubKey returns every relay one author was seen on.
	RelayMappingsByPubKey(ctx context.Context, pubkey string) ([]*RelayMapping, error)

	// Stats returns per-table record counts and approximate byte sizes.
	Stats(ctx context.Context) (Stats, error)
	// Wipe destroys every row in every table without closing the store.
	Wipe(ctx context.Context) error
	// Schema reports the layout this store was opened with.
	Schema() Schema
	// Close releases the substrate.
	Close() error
}
