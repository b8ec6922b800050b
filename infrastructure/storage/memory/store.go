// Package memory provides the in-memory record store. It backs the
// last-resort fallback substrate and doubles as the overflow target for
// writes that a persistent substrate rejects.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/plumenote/eventstore/domain/event"
	"github.com/plumenote/eventstore/domain/record"
)

// Store is an in-memory implementation of record.Store. Every table is a
// map guarded by one RWMutex; index queries are linear scans, which is
// adequate for the overflow and fallback roles this store plays.
type Store struct {
	mu     sync.RWMutex
	closed bool

	events        map[string]*event.Event
	relays        map[string]*record.Relay
	info          map[string]*record.Info
	notifications map[string]*record.Notification
	observed      map[string]*record.ObservedRelay
	mappings      map[string]*record.RelayMapping

	// bytes tracks approximate serialized size per logical table so
	// Stats stays O(tables) instead of re-marshaling every record.
	bytes map[string]int64
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	s := &Store{}
	s.reset()
	return s
}

// reset reinitializes every table. Callers must hold the write lock,
// except NewStore which owns the store exclusively.
func (s *Store) reset() {
	s.events = make(map[string]*event.Event)
	s.relays = make(map[string]*record.Relay)
	s.info = make(map[string]*record.Info)
	s.notifications = make(map[string]*record.Notification)
	s.observed = make(map[string]*record.ObservedRelay)
	s.mappings = make(map[string]*record.RelayMapping)
	s.bytes = make(map[string]int64)
}

// approxSize reports the serialized size of a record for the byte tally.
func approxSize(v any) int64 {
	data, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return int64(len(data))
}

// PutEvent inserts or overwrites an event by id.
func (s *Store) PutEvent(ctx context.Context, e *event.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return record.ErrClosed
	}

	if old, ok := s.events[e.ID]; ok {
		s.bytes[record.TableEvents] -= approxSize(old)
	}
	cp := *e
	s.events[e.ID] = &cp
	s.bytes[record.TableEvents] += approxSize(&cp)

	return nil
}

// GetEvent returns the event with the given id or ErrNotFound.
func (s *Store) GetEvent(ctx context.Context, id string) (*event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, record.ErrClosed
	}

	e, ok := s.events[id]
	if !ok {
		return nil, record.ErrNotFound
	}

	cp := *e
	return &cp, nil
}

// DeleteEvent removes an event. Deleting an absent id is a no-op.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return record.ErrClosed
	}

	if old, ok := s.events[id]; ok {
		s.bytes[record.TableEvents] -= approxSize(old)
		delete(s.events, id)
	}

	return nil
}

// eventsWhere collects matching events in ascending created_at order.
// Callers must hold at least the read lock.
func (s *Store) eventsWhere(match func(*event.Event) bool) []*event.Event {
	out := make([]*event.Event, 0)
	for _, e := range s.events {
		if match(e) {
			cp := *e
			out = append(out, &cp)
		}
	}
	sortEvents(out)
	return out
}

// sortEvents orders events by created_at ascending, ties broken by id.
func sortEvents(events []*event.Event) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].CreatedAt != events[j].CreatedAt {
			return events[i].CreatedAt < events[j].CreatedAt
		}
		return events[i].ID < events[j].ID
	})
}

// EventsByKind returns all events of one kind.
func (s *Store) EventsByKind(ctx context.Context, kind int) ([]*event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, record.ErrClosed
	}

	return s.eventsWhere(func(e *event.Event) bool {
		return e.Kind == kind
	}), nil
}

// EventsByAuthor returns all events by one author.
func (s *Store) EventsByAuthor(ctx context.Context, pubkey string) ([]*event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, record.ErrClosed
	}

	return s.eventsWhere(func(e *event.Event) bool {
		return e.PubKey == pubkey
	}), nil
}

// EventsByAuthorKind returns all events by one author with one kind.
func (s *Store) EventsByAuthorKind(ctx context.Context, pubkey string, kind int) ([]*event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, record.ErrClosed
	}

	return s.eventsWhere(func(e *event.Event) bool {
		return e.PubKey == pubkey && e.Kind == kind
	}), nil
}

// EventsByAuthorKindDTag narrows EventsByAuthorKind to one d tag.
func (s *Store) EventsByAuthorKindDTag(ctx context.Context, pubkey string, kind int, dTag string) ([]*event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, record.ErrClosed
	}

	return s.eventsWhere(func(e *event.Event) bool {
		return e.PubKey == pubkey && e.Kind == kind && e.DTag() == dTag
	}), nil
}

// EventsByCreatedRange returns events with since <= created_at <= until
// in ascending created_at order. until <= 0 means unbounded; limit <= 0
// means unlimited.
func (s *Store) EventsByCreatedRange(ctx context.Context, since, until int64, limit int) ([]*event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, record.ErrClosed
	}

	out := s.eventsWhere(func(e *event.Event) bool {
		if e.CreatedAt < since {
			return false
		}
		return until <= 0 || e.CreatedAt <= until
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// PutRelay upserts a relay record keyed by URL.
func (s *Store) PutRelay(ctx context.Context, r *record.Relay) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return record.ErrClosed
	}

	if old, ok := s.relays[r.URL]; ok {
		s.bytes[record.TableRelays] -= approxSize(old)
	}
	cp := *r
	s.relays[r.URL] = &cp
	s.bytes[record.TableRelays] += approxSize(&cp)

	return nil
}

// GetRelay returns a relay record or ErrNotFound.
func (s *Store) GetRelay(ctx context.Context, url string) (*record.Relay, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, record.ErrClosed
	}

	r, ok := s.relays[url]
	if !ok {
		return nil, record.ErrNotFound
	}

	cp := *r
	return &cp, nil
}

// Relays returns all relay records ordered by URL.
func (s *Store) Relays(ctx context.Context) ([]*record.Relay, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, record.ErrClosed
	}

	out := make([]*record.Relay, 0, len(s.relays))
	for _, r := range s.relays {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].URL < out[j].URL
	})
	return out, nil
}

// PutInfo upserts a metadata record keyed by Key and Type.
func (s *Store) PutInfo(ctx context.Context, i *record.Info) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return record.ErrClosed
	}

	key := i.CompositeKey()
	if old, ok := s.info[key]; ok {
		s.bytes[record.TableInfo] -= approxSize(old)
	}
	cp := *i
	s.info[key] = &cp
	s.bytes[record.TableInfo] += approxSize(&cp)

	return nil
}

// GetInfo returns a metadata record or ErrNotFound.
func (s *Store) GetInfo(ctx context.Context, key, typ string) (*record.Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, record.ErrClosed
	}

	i, ok := s.info[record.InfoKey(key, typ)]
	if !ok {
		return nil, record.ErrNotFound
	}

	cp := *i
	return &cp, nil
}

// PutNotification upserts a notification keyed by id.
func (s *Store) PutNotification(ctx context.Context, n *record.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return record.ErrClosed
	}

	if old, ok := s.notifications[n.ID]; ok {
		s.bytes[record.TableNotifications] -= approxSize(old)
	}
	cp := *n
	s.notifications[n.ID] = &cp
	s.bytes[record.TableNotifications] += approxSize(&cp)

	return nil
}

// NotificationsSince returns notifications with Timestamp >= since in
// ascending timestamp order.
func (s *Store) NotificationsSince(ctx context.Context, since int64) ([]*record.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, record.ErrClosed
	}

	out := make([]*record.Notification, 0)
	for _, n := range s.notifications {
		if n.Timestamp >= since {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// PutObservedRelay upserts relay health bookkeeping keyed by URL.
func (s *Store) PutObservedRelay(ctx context.Context, o *record.ObservedRelay) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return record.ErrClosed
	}

	if old, ok := s.observed[o.URL]; ok {
		s.bytes[record.TableObservedRelays] -= approxSize(old)
	}
	cp := *o
	s.observed[o.URL] = &cp
	s.bytes[record.TableObservedRelays] += approxSize(&cp)

	return nil
}

// GetObservedRelay returns relay health bookkeeping or ErrNotFound.
func (s *Store) GetObservedRelay(ctx context.Context, url string) (*record.ObservedRelay, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, record.ErrClosed
	}

	o, ok := s.observed[url]
	if !ok {
		return nil, record.ErrNotFound
	}

	cp := *o
	return &cp, nil
}

// mappingKey joins the two halves of a relay mapping's primary key.
func mappingKey(pubkey, url string) string {
	return pubkey + "\x00" + url
}

// PutRelayMapping upserts an author-to-relay sighting.
func (s *Store) PutRelayMapping(ctx context.Context, m *record.RelayMapping) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return record.ErrClosed
	}

	key := mappingKey(m.PubKey, m.URL)
	if old, ok := s.mappings[key]; ok {
		s.bytes[record.TableRelayMappings] -= approxSize(old)
	}
	cp := *m
	s.mappings[key] = &cp
	s.bytes[record.TableRelayMappings] += approxSize(&cp)

	return nil
}

// RelayMappingsByPubKey returns every relay one author was seen on,
// ordered by URL.
func (s *Store) RelayMappingsByPubKey(ctx context.Context, pubkey string) ([]*record.RelayMapping, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, record.ErrClosed
	}

	out := make([]*record.RelayMapping, 0)
	for _, m := range s.mappings {
		if m.PubKey == pubkey {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].URL < out[j].URL
	})
	return out, nil
}

// Stats returns per-table record counts and approximate byte sizes.
func (s *Store) Stats(ctx context.Context) (record.Stats, error) {
	if err := ctx.Err(); err != nil {
		return record.Stats{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return record.Stats{}, record.ErrClosed
	}

	stats := record.NewStats()
	stats.Tables[record.TableEvents] = record.TableStats{Count: int64(len(s.events)), Bytes: s.bytes[record.TableEvents]}
	stats.Tables[record.TableRelays] = record.TableStats{Count: int64(len(s.relays)), Bytes: s.bytes[record.TableRelays]}
	stats.Tables[record.TableInfo] = record.TableStats{Count: int64(len(s.info)), Bytes: s.bytes[record.TableInfo]}
	stats.Tables[record.TableNotifications] = record.TableStats{Count: int64(len(s.notifications)), Bytes: s.bytes[record.TableNotifications]}
	stats.Tables[record.TableObservedRelays] = record.TableStats{Count: int64(len(s.observed)), Bytes: s.bytes[record.TableObservedRelays]}
	stats.Tables[record.TableRelayMappings] = record.TableStats{Count: int64(len(s.mappings)), Bytes: s.bytes[record.TableRelayMappings]}
	return stats, nil
}

// Wipe destroys every row in every table without closing the store.
func (s *Store) Wipe(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return record.ErrClosed
	}

	s.reset()
	return nil
}

// Schema reports the layout this store carries. The in-memory store
// always serves the full schema.
func (s *Store) Schema() record.Schema {
	return record.SchemaFull
}

// Close marks the store closed. Subsequent operations fail with
// ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// Len returns the number of events in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.events)
}

// Ensure Store implements record.Store
var _ record.Store = (*Store)(nil)
