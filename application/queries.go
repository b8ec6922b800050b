package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/plumenote/eventstore/domain/event"
	"github.com/plumenote/eventstore/domain/record"
	"github.com/plumenote/eventstore/infrastructure/logging"
)

// GetEventByID returns one event by id. The boolean reports presence; an
// absent id is not an error.
func (s *Store) GetEventByID(ctx context.Context, id string) (*event.Event, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, err := s.activeLocked()
	if err != nil {
		return nil, false, err
	}
	if id == "" {
		logging.Warn().
			Add(logging.Component("store")).
			Msg("ignoring lookup with empty id")
		return nil, false, nil
	}

	e, err := st.GetEvent(ctx, id)
	if err == nil {
		return e, true, nil
	}
	if !errors.Is(err, record.ErrNotFound) {
		return nil, false, fmt.Errorf("get event: %w", err)
	}
	if e, oerr := s.overflow.GetEvent(ctx, id); oerr == nil {
		return e, true, nil
	}
	return nil, false, nil
}

// GetEventsByKind returns every stored event of one kind in ascending
// created_at order.
func (s *Store) GetEventsByKind(ctx context.Context, kind int) ([]*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, err := s.activeLocked()
	if err != nil {
		return nil, err
	}

	primary, err := st.EventsByKind(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("events by kind: %w", err)
	}
	fallback, _ := s.overflow.EventsByKind(ctx, kind)
	return mergeEvents(primary, fallback), nil
}

// GetEventsByAuthor returns every stored event from the given authors.
// Invalid author keys are dropped; none left means an empty result, not
// an error.
func (s *Store) GetEventsByAuthor(ctx context.Context, pubkeys ...string) ([]*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, err := s.activeLocked()
	if err != nil {
		return nil, err
	}

	all := make([]*event.Event, 0)
	for _, pk := range usableAuthors(pubkeys) {
		primary, err := st.EventsByAuthor(ctx, pk)
		if err != nil {
			return nil, fmt.Errorf("events by author: %w", err)
		}
		fallback, _ := s.overflow.EventsByAuthor(ctx, pk)
		all = append(all, mergeEvents(primary, fallback)...)
	}
	sortEvents(all)
	return all, nil
}

// GetEventsByAuthorKind returns every stored event of one kind from the
// given authors.
func (s *Store) GetEventsByAuthorKind(ctx context.Context, kind int, pubkeys ...string) ([]*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, err := s.activeLocked()
	if err != nil {
		return nil, err
	}

	all := make([]*event.Event, 0)
	for _, pk := range usableAuthors(pubkeys) {
		primary, err := st.EventsByAuthorKind(ctx, pk, kind)
		if err != nil {
			return nil, fmt.Errorf("events by author and kind: %w", err)
		}
		fallback, _ := s.overflow.EventsByAuthorKind(ctx, pk, kind)
		all = append(all, mergeEvents(primary, fallback)...)
	}
	sortEvents(all)
	return all, nil
}

// GetParameterizedReplaceableEvent returns the newest event holding the
// (author, kind, d tag) identity across the given authors. The boolean
// reports presence.
func (s *Store) GetParameterizedReplaceableEvent(ctx context.Context, kind int, dTag string, pubkeys ...string) (*event.Event, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, err := s.activeLocked()
	if err != nil {
		return nil, false, err
	}

	var newest *event.Event
	for _, pk := range usableAuthors(pubkeys) {
		primary, err := st.EventsByAuthorKindDTag(ctx, pk, kind, dTag)
		if err != nil {
			return nil, false, fmt.Errorf("parameterized lookup: %w", err)
		}
		fallback, _ := s.overflow.EventsByAuthorKindDTag(ctx, pk, kind, dTag)
		for _, e := range mergeEvents(primary, fallback) {
			if newest == nil || e.CreatedAt > newest.CreatedAt {
				newest = e
			}
		}
	}
	if newest == nil {
		return nil, false, nil
	}
	return newest, true, nil
}

// GetEventsSince returns events with since <= created_at <= until in
// ascending created_at order. until <= 0 means unbounded, limit <= 0
// unlimited.
func (s *Store) GetEventsSince(ctx context.Context, since, until int64, limit int) ([]*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, err := s.activeLocked()
	if err != nil {
		return nil, err
	}

	primary, err := st.EventsByCreatedRange(ctx, since, until, limit)
	if err != nil {
		return nil, fmt.Errorf("events by range: %w", err)
	}
	fallback, _ := s.overflow.EventsByCreatedRange(ctx, since, until, limit)
	merged := mergeEvents(primary, fallback)
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}
