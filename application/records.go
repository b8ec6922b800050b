package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/plumenote/eventstore/domain/event"
	"github.com/plumenote/eventstore/domain/record"
	"github.com/plumenote/eventstore/infrastructure/logging"
)

// auxWrite writes an auxiliary record to the substrate, falling back to
// the overflow when the substrate cannot take it. The circuit breaker
// does not guard auxiliary writes: a minimal schema fails them forever
// with ErrSchemaReduced, and counting those as failures would trip the
// circuit that guards healthy event writes.
func (s *Store) auxWrite(ctx context.Context, st record.Store, table string, write func(record.Store) error) error {
	err := write(st)
	if err == nil {
		s.stats.Recompute(ctx, st)
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if errors.Is(err, record.ErrSchemaReduced) {
		logging.Warn().
			Add(logging.Component("store")).
			Add(logging.Table(table)).
			Msg("table unavailable under minimal schema; keeping the record in memory")
	} else {
		s.metrics.RecordDegradation(ctx, "aux_write")
		logging.Warn().
			Add(logging.Component("store")).
			Add(logging.Table(table)).
			Add(logging.ErrorField(err)).
			Msg("substrate write failed; keeping the record in memory")
	}
	if merr := write(s.overflow); merr != nil {
		logging.Error().
			Add(logging.Component("store")).
			Add(logging.Table(table)).
			Add(logging.ErrorField(merr)).
			Msg("memory fallback write failed")
	}
	return nil
}

// auxGet reads an auxiliary record, consulting the overflow when the
// substrate misses or cannot answer. The boolean reports presence.
func auxGet[T any](s *Store, table string, get func(record.Store) (T, error), st record.Store) (T, bool, error) {
	var zero T
	rec, err := get(st)
	if err == nil {
		return rec, true, nil
	}
	switch {
	case errors.Is(err, record.ErrNotFound):
	case errors.Is(err, record.ErrSchemaReduced):
		logging.Debug().
			Add(logging.Component("store")).
			Add(logging.Table(table)).
			Msg("table unavailable under minimal schema; consulting memory")
	default:
		return zero, false, fmt.Errorf("%s lookup: %w", table, err)
	}
	if rec, oerr := get(s.overflow); oerr == nil {
		return rec, true, nil
	}
	return zero, false, nil
}

// PutRelay upserts a configured relay keyed by URL.
func (s *Store) PutRelay(ctx context.Context, r *record.Relay) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, err := s.activeLocked()
	if err != nil {
		return err
	}
	if r == nil || r.URL == "" {
		logging.Warn().
			Add(logging.Component("store")).
			Add(logging.Table(record.TableRelays)).
			Msg("ignoring relay record without a URL")
		return nil
	}
	return s.auxWrite(ctx, st, record.TableRelays, func(st record.Store) error {
		return st.PutRelay(ctx, r)
	})
}

// GetRelay returns a configured relay by URL. The boolean reports
// presence.
func (s *Store) GetRelay(ctx context.Context, url string) (*record.Relay, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, err := s.activeLocked()
	if err != nil {
		return nil, false, err
	}
	return auxGet(s, record.TableRelays, func(st record.Store) (*record.Relay, error) {
		return st.GetRelay(ctx, url)
	}, st)
}

// Relays returns every configured relay ordered by URL.
func (s *Store) Relays(ctx context.Context) ([]*record.Relay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, err := s.activeLocked()
	if err != nil {
		return nil, err
	}

	primary, err := st.Relays(ctx)
	if err != nil {
		if !errors.Is(err, record.ErrSchemaReduced) {
			return nil, fmt.Errorf("relays: %w", err)
		}
		logging.Debug().
			Add(logging.Component("store")).
			Add(logging.Table(record.TableRelays)).
			Msg("table unavailable under minimal schema; consulting memory")
		primary = nil
	}
	fallback, _ := s.overflow.Relays(ctx)
	return mergeRecords(primary, fallback,
		func(r *record.Relay) string { return r.URL },
		func(a, b *record.Relay) bool { return a.URL < b.URL }), nil
}

// PutInfo upserts a metadata record keyed by (Key, Type).
func (s *Store) PutInfo(ctx context.Context, i *record.Info) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, err := s.activeLocked()
	if err != nil {
		return err
	}
	if i == nil || i.Key == "" {
		logging.Warn().
			Add(logging.Component("store")).
			Add(logging.Table(record.TableInfo)).
			Msg("ignoring info record without a key")
		return nil
	}
	return s.auxWrite(ctx, st, record.TableInfo, func(st record.Store) error {
		return st.PutInfo(ctx, i)
	})
}

// GetInfo returns a metadata record by (Key, Type). The boolean reports
// presence.
func (s *Store) GetInfo(ctx context.Context, key, typ string) (*record.Info, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, err := s.activeLocked()
	if err != nil {
		return nil, false, err
	}
	return auxGet(s, record.TableInfo, func(st record.Store) (*record.Info, error) {
		return st.GetInfo(ctx, key, typ)
	}, st)
}

// PutNotification upserts a notification keyed by id.
func (s *Store) PutNotification(ctx context.Context, n *record.Notification) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, err := s.activeLocked()
	if err != nil {
		return err
	}
	if n == nil || n.ID == "" {
		logging.Warn().
			Add(logging.Component("store")).
			Add(logging.Table(record.TableNotifications)).
			Msg("ignoring notification without an id")
		return nil
	}
	return s.auxWrite(ctx, st, record.TableNotifications, func(st record.Store) error {
		return st.PutNotification(ctx, n)
	})
}

// NotificationsSince returns notifications with Timestamp >= since in
// ascending timestamp order.
func (s *Store) NotificationsSince(ctx context.Context, since int64) ([]*record.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, err := s.activeLocked()
	if err != nil {
		return nil, err
	}

	primary, err := st.NotificationsSince(ctx, since)
	if err != nil {
		if !errors.Is(err, record.ErrSchemaReduced) {
			return nil, fmt.Errorf("notifications: %w", err)
		}
		logging.Debug().
			Add(logging.Component("store")).
			Add(logging.Table(record.TableNotifications)).
			Msg("table unavailable under minimal schema; consulting memory")
		primary = nil
	}
	fallback, _ := s.overflow.NotificationsSince(ctx, since)
	return mergeRecords(primary, fallback,
		func(n *record.Notification) string { return n.ID },
		func(a, b *record.Notification) bool {
			if a.Timestamp != b.Timestamp {
				return a.Timestamp < b.Timestamp
			}
			return a.ID < b.ID
		}), nil
}

// PutObservedRelay upserts relay health bookkeeping keyed by URL.
func (s *Store) PutObservedRelay(ctx context.Context, o *record.ObservedRelay) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, err := s.activeLocked()
	if err != nil {
		return err
	}
	if o == nil || o.URL == "" {
		logging.Warn().
			Add(logging.Component("store")).
			Add(logging.Table(record.TableObservedRelays)).
			Msg("ignoring observed relay without a URL")
		return nil
	}
	return s.auxWrite(ctx, st, record.TableObservedRelays, func(st record.Store) error {
		return st.PutObservedRelay(ctx, o)
	})
}

// GetObservedRelay returns relay health bookkeeping by URL. The boolean
// reports presence.
func (s *Store) GetObservedRelay(ctx context.Context, url string) (*record.ObservedRelay, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, err := s.activeLocked()
	if err != nil {
		return nil, false, err
	}
	return auxGet(s, record.TableObservedRelays, func(st record.Store) (*record.ObservedRelay, error) {
		return st.GetObservedRelay(ctx, url)
	}, st)
}

// PutRelayMapping upserts an author-to-relay sighting.
func (s *Store) PutRelayMapping(ctx context.Context, m *record.RelayMapping) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, err := s.activeLocked()
	if err != nil {
		return err
	}
	if m == nil || m.URL == "" || !event.ValidAuthor(m.PubKey) {
		logging.Warn().
			Add(logging.Component("store")).
			Add(logging.Table(record.TableRelayMappings)).
			Msg("ignoring relay mapping without a valid author and URL")
		return nil
	}
	return s.auxWrite(ctx, st, record.TableRelayMappings, func(st record.Store) error {
		return st.PutRelayMapping(ctx, m)
	})
}

// RelayMappingsByPubKey returns every relay one author was seen on,
// ordered by URL.
func (s *Store) RelayMappingsByPubKey(ctx context.Context, pubkey string) ([]*record.RelayMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, err := s.activeLocked()
	if err != nil {
		return nil, err
	}
	if !event.ValidAuthor(pubkey) {
		logging.Warn().
			Add(logging.Component("store")).
			Add(logging.PubKey(pubkey)).
			Msg("dropping invalid author from query")
		return []*record.RelayMapping{}, nil
	}

	primary, err := st.RelayMappingsByPubKey(ctx, pubkey)
	if err != nil {
		if !errors.Is(err, record.ErrSchemaReduced) {
			return nil, fmt.Errorf("relay mappings: %w", err)
		}
		logging.Debug().
			Add(logging.Component("store")).
			Add(logging.Table(record.TableRelayMappings)).
			Msg("table unavailable under minimal schema; consulting memory")
		primary = nil
	}
	fallback, _ := s.overflow.RelayMappingsByPubKey(ctx, pubkey)
	return mergeRecords(primary, fallback,
		func(m *record.RelayMapping) string { return m.URL },
		func(a, b *record.RelayMapping) bool { return a.URL < b.URL }), nil
}
