package badger

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/plumenote/eventstore/domain/event"
	"github.com/plumenote/eventstore/domain/record"
)

// Store is a BadgerDB-backed implementation of record.Store. Events live
// under a primary key family with index families maintained per write;
// which families exist depends on the schema tier the store was opened
// with.
type Store struct {
	db     *badger.DB
	schema record.Schema
	closed atomic.Bool
	gcStop chan struct{}
	gcWg   sync.WaitGroup
}

// NewStore opens a BadgerDB record store with the given configuration.
func NewStore(cfg Config, opts ...Option) (*Store, error) {
	// Apply options
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	s := &Store{
		db:     db,
		schema: cfg.Schema,
		gcStop: make(chan struct{}),
	}

	// Start GC goroutine
	if cfg.GCInterval > 0 {
		s.startGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}

	return s, nil
}

// startGC starts the value log garbage collection goroutine.
func (s *Store) startGC(interval time.Duration, discardRatio float64) {
	s.gcWg.Add(1)
	go func() {
		defer s.gcWg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.gcStop:
				return
			case <-ticker.C:
				for {
					err := s.db.RunValueLogGC(discardRatio)
					if err != nil {
						break
					}
				}
			}
		}
	}()
}

// check gates every operation on context and store liveness.
func (s *Store) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return record.ErrClosed
	}
	return nil
}

// auxCheck additionally gates operations on tables the minimal schema
// does not carry.
func (s *Store) auxCheck(ctx context.Context) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if s.schema != record.SchemaFull {
		return record.ErrSchemaReduced
	}
	return nil
}

// getEventTxn loads one event inside a transaction. Callers map
// badger.ErrKeyNotFound themselves.
func getEventTxn(txn *badger.Txn, id string) (*event.Event, error) {
	item, err := txn.Get(eventKey(id))
	if err != nil {
		return nil, err
	}

	var e event.Event
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &e)
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// writeEventIndexes maintains the index families the active schema
// carries. The index value is the event id; readers resolve it against
// the primary family.
func (s *Store) writeEventIndexes(txn *badger.Txn, e *event.Event) error {
	idVal := []byte(e.ID)

	if err := txn.Set(authorKindKey(e.PubKey, e.Kind, e.CreatedAt, e.ID), idVal); err != nil {
		return err
	}
	if err := txn.Set(authorKindDTagKey(e.PubKey, e.Kind, e.DTag(), e.CreatedAt, e.ID), idVal); err != nil {
		return err
	}

	if s.schema != record.SchemaFull {
		return nil
	}

	if err := txn.Set(kindKey(e.Kind, e.CreatedAt, e.ID), idVal); err != nil {
		return err
	}
	if err := txn.Set(authorKey(e.PubKey, e.CreatedAt, e.ID), idVal); err != nil {
		return err
	}
	return txn.Set(createdKey(e.CreatedAt, e.ID), idVal)
}

// deleteEventIndexes removes exactly the entries writeEventIndexes wrote.
func (s *Store) deleteEventIndexes(txn *badger.Txn, e *event.Event) error {
	if err := txn.Delete(authorKindKey(e.PubKey, e.Kind, e.CreatedAt, e.ID)); err != nil {
		return err
	}
	if err := txn.Delete(authorKindDTagKey(e.PubKey, e.Kind, e.DTag(), e.CreatedAt, e.ID)); err != nil {
		return err
	}

	if s.schema != record.SchemaFull {
		return nil
	}

	if err := txn.Delete(kindKey(e.Kind, e.CreatedAt, e.ID)); err != nil {
		return err
	}
	if err := txn.Delete(authorKey(e.PubKey, e.CreatedAt, e.ID)); err != nil {
		return err
	}
	return txn.Delete(createdKey(e.CreatedAt, e.ID))
}

// PutEvent inserts or overwrites an event by id.
func (s *Store) PutEvent(ctx context.Context, e *event.Event) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		// Drop index entries of a previous version before re-indexing.
		old, err := getEventTxn(txn, e.ID)
		if err == nil {
			if err := s.deleteEventIndexes(txn, old); err != nil {
				return err
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if err := txn.Set(eventKey(e.ID), data); err != nil {
			return err
		}
		return s.writeEventIndexes(txn, e)
	})
}

// GetEvent returns the event with the given id or ErrNotFound.
func (s *Store) GetEvent(ctx context.Context, id string) (*event.Event, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	var e *event.Event
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		e, err = getEventTxn(txn, id)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, record.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// DeleteEvent removes an event and its index entries. Deleting an absent
// id is a no-op.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		e, err := getEventTxn(txn, id)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := txn.Delete(eventKey(id)); err != nil {
			return err
		}
		return s.deleteEventIndexes(txn, e)
	})
}

// eventsByIndexPrefix resolves index entries under a prefix into events,
// in key order. Index keys embed created_at, so key order is ascending
// created_at.
func (s *Store) eventsByIndexPrefix(prefix []byte) ([]*event.Event, error) {
	events := make([]*event.Event, 0)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			id, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}

			e, err := getEventTxn(txn, string(id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue // dangling index entry
			}
			if err != nil {
				return err
			}
			events = append(events, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// scanEvents filters the primary family directly. It serves queries whose
// index the minimal schema does not carry.
func (s *Store) scanEvents(match func(*event.Event) bool) ([]*event.Event, error) {
	events := make([]*event.Event, 0)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixEvent)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var e event.Event
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			})
			if err != nil {
				continue // skip malformed entries
			}
			if match(&e) {
				cp := e
				events = append(events, &cp)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortEvents(events)
	return events, nil
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
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	if s.schema != record.SchemaFull {
		return s.scanEvents(func(e *event.Event) bool {
			return e.Kind == kind
		})
	}
	return s.eventsByIndexPrefix(kindPrefix(kind))
}

// EventsByAuthor returns all events by one author.
func (s *Store) EventsByAuthor(ctx context.Context, pubkey string) ([]*event.Event, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	if s.schema != record.SchemaFull {
		return s.scanEvents(func(e *event.Event) bool {
			return e.PubKey == pubkey
		})
	}
	return s.eventsByIndexPrefix(authorPrefix(pubkey))
}

// EventsByAuthorKind returns all events by one author with one kind. The
// backing index exists in every schema tier.
func (s *Store) EventsByAuthorKind(ctx context.Context, pubkey string, kind int) ([]*event.Event, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	return s.eventsByIndexPrefix(authorKindPrefix(pubkey, kind))
}

// EventsByAuthorKindDTag narrows EventsByAuthorKind to one d tag. The
// backing index exists in every schema tier.
func (s *Store) EventsByAuthorKindDTag(ctx context.Context, pubkey string, kind int, dTag string) ([]*event.Event, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	return s.eventsByIndexPrefix(authorKindDTagPrefix(pubkey, kind, dTag))
}

// EventsByCreatedRange returns events with since <= created_at <= until
// in ascending created_at order. until <= 0 means unbounded; limit <= 0
// means unlimited.
func (s *Store) EventsByCreatedRange(ctx context.Context, since, until int64, limit int) ([]*event.Event, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	if s.schema != record.SchemaFull {
		events, err := s.scanEvents(func(e *event.Event) bool {
			if e.CreatedAt < since {
				return false
			}
			return until <= 0 || e.CreatedAt <= until
		})
		if err != nil {
			return nil, err
		}
		if limit > 0 && len(events) > limit {
			events = events[:limit]
		}
		return events, nil
	}

	events := make([]*event.Event, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixCreated)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(createdSeekKey(since)); it.Valid(); it.Next() {
			item := it.Item()

			if until > 0 && createdAtFromKey(item.Key()) > until {
				break
			}

			id, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			e, err := getEventTxn(txn, string(id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}

			events = append(events, e)
			if limit > 0 && len(events) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// putRecord marshals and stores one auxiliary record.
func (s *Store) putRecord(key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// getRecord loads and unmarshals one auxiliary record, mapping missing
// keys to ErrNotFound.
func (s *Store) getRecord(key []byte, v any) error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return record.ErrNotFound
	}
	return err
}

// PutRelay upserts a relay record keyed by URL.
func (s *Store) PutRelay(ctx context.Context, r *record.Relay) error {
	if err := s.auxCheck(ctx); err != nil {
		return err
	}
	return s.putRecord(relayKey(r.URL), r)
}

// GetRelay returns a relay record or ErrNotFound.
func (s *Store) GetRelay(ctx context.Context, url string) (*record.Relay, error) {
	if err := s.auxCheck(ctx); err != nil {
		return nil, err
	}

	var r record.Relay
	if err := s.getRecord(relayKey(url), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Relays returns all relay records ordered by URL.
func (s *Store) Relays(ctx context.Context) ([]*record.Relay, error) {
	if err := s.auxCheck(ctx); err != nil {
		return nil, err
	}

	relays := make([]*record.Relay, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixRelay)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var r record.Relay
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			})
			if err != nil {
				continue
			}
			cp := r
			relays = append(relays, &cp)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return relays, nil
}

// PutInfo upserts a metadata record keyed by Key and Type.
func (s *Store) PutInfo(ctx context.Context, i *record.Info) error {
	if err := s.auxCheck(ctx); err != nil {
		return err
	}
	return s.putRecord(infoKey(i.CompositeKey()), i)
}

// GetInfo returns a metadata record or ErrNotFound.
func (s *Store) GetInfo(ctx context.Context, key, typ string) (*record.Info, error) {
	if err := s.auxCheck(ctx); err != nil {
		return nil, err
	}

	var i record.Info
	if err := s.getRecord(infoKey(record.InfoKey(key, typ)), &i); err != nil {
		return nil, err
	}
	return &i, nil
}

// PutNotification upserts a notification keyed by id and maintains the
// time index.
func (s *Store) PutNotification(ctx context.Context, n *record.Notification) error {
	if err := s.auxCheck(ctx); err != nil {
		return err
	}

	data, err := json.Marshal(n)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		// Re-point the time index when an existing notification moves.
		item, err := txn.Get(notificationKey(n.ID))
		if err == nil {
			var old record.Notification
			verr := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &old)
			})
			if verr == nil && old.Timestamp != n.Timestamp {
				if err := txn.Delete(notifTimeKey(old.Timestamp, old.ID)); err != nil {
					return err
				}
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if err := txn.Set(notificationKey(n.ID), data); err != nil {
			return err
		}
		return txn.Set(notifTimeKey(n.Timestamp, n.ID), []byte(n.ID))
	})
}

// NotificationsSince returns notifications with Timestamp >= since in
// ascending timestamp order.
func (s *Store) NotificationsSince(ctx context.Context, since int64) ([]*record.Notification, error) {
	if err := s.auxCheck(ctx); err != nil {
		return nil, err
	}

	notifications := make([]*record.Notification, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixNotifTime)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(notifTimeSeekKey(since)); it.Valid(); it.Next() {
			id, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}

			item, err := txn.Get(notificationKey(string(id)))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue // dangling index entry
			}
			if err != nil {
				return err
			}

			var n record.Notification
			err = item.Value(func(val []byte) error {
				return json.Unmarshal(val, &n)
			})
			if err != nil {
				continue
			}
			cp := n
			notifications = append(notifications, &cp)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

// PutObservedRelay upserts relay health bookkeeping keyed by URL.
func (s *Store) PutObservedRelay(ctx context.Context, o *record.ObservedRelay) error {
	if err := s.auxCheck(ctx); err != nil {
		return err
	}
	return s.putRecord(observedKey(o.URL), o)
}

// GetObservedRelay returns relay health bookkeeping or ErrNotFound.
func (s *Store) GetObservedRelay(ctx context.Context, url string) (*record.ObservedRelay, error) {
	if err := s.auxCheck(ctx); err != nil {
		return nil, err
	}

	var o record.ObservedRelay
	if err := s.getRecord(observedKey(url), &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// PutRelayMapping upserts an author-to-relay sighting.
func (s *Store) PutRelayMapping(ctx context.Context, m *record.RelayMapping) error {
	if err := s.auxCheck(ctx); err != nil {
		return err
	}
	return s.putRecord(mappingKey(m.PubKey, m.URL), m)
}

// RelayMappingsByPubKey returns every relay one author was seen on.
func (s *Store) RelayMappingsByPubKey(ctx context.Context, pubkey string) ([]*record.RelayMapping, error) {
	if err := s.auxCheck(ctx); err != nil {
		return nil, err
	}

	mappings := make([]*record.RelayMapping, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = mappingPrefix(pubkey)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var m record.RelayMapping
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &m)
			})
			if err != nil {
				continue
			}
			cp := m
			mappings = append(mappings, &cp)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return mappings, nil
}

// Stats returns per-table record counts and approximate byte sizes by
// walking each primary key family without fetching values.
func (s *Store) Stats(ctx context.Context) (record.Stats, error) {
	if err := s.check(ctx); err != nil {
		return record.Stats{}, err
	}

	prefixes := []struct {
		table  string
		prefix string
	}{
		{record.TableEvents, prefixEvent},
		{record.TableRelays, prefixRelay},
		{record.TableInfo, prefixInfo},
		{record.TableNotifications, prefixNotification},
		{record.TableObservedRelays, prefixObserved},
		{record.TableRelayMappings, prefixMapping},
	}

	stats := record.NewStats()
	err := s.db.View(func(txn *badger.Txn) error {
		for _, p := range prefixes {
			opts := badger.DefaultIteratorOptions
			opts.PrefetchValues = false
			opts.Prefix = []byte(p.prefix)

			it := txn.NewIterator(opts)
			for it.Rewind(); it.Valid(); it.Next() {
				stats.Add(p.table, it.Item().ValueSize())
			}
			it.Close()
		}
		return nil
	})
	if err != nil {
		return record.Stats{}, err
	}
	return stats, nil
}

// Wipe destroys every row in every table without closing the store.
func (s *Store) Wipe(ctx context.Context) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	return s.db.DropAll()
}

// Schema reports the layout this store was opened with.
func (s *Store) Schema() record.Schema {
	return s.schema
}

// Close stops background GC and releases the database.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	close(s.gcStop)
	s.gcWg.Wait()

	return s.db.Close()
}

// Ensure Store implements record.Store
var _ record.Store = (*Store)(nil)
