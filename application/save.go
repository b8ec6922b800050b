package application

import (
	"context"
	"time"

	"github.com/plumenote/eventstore/domain/event"
	"github.com/plumenote/eventstore/domain/record"
	"github.com/plumenote/eventstore/infrastructure/logging"
)

// SaveOutcome describes what a save did.
type SaveOutcome string

const (
	// SaveStored means the arrival was written as a new record or as an
	// idempotent overwrite of the same id.
	SaveStored SaveOutcome = "stored"

	// SaveReplaced means the arrival displaced at least one older record
	// holding its replacement key.
	SaveReplaced SaveOutcome = "replaced"

	// SaveDiscardedOlder means an equal or newer record already held the
	// replacement key and the arrival was dropped.
	SaveDiscardedOlder SaveOutcome = "discarded_older"
)

// SaveResult reports what a save did and where the record landed.
type SaveResult struct {
	// Outcome is what happened.
	Outcome SaveOutcome

	// Class is the arrival's storage class.
	Class event.Class

	// Replaced is how many records the arrival displaced.
	Replaced int

	// Degraded means the record landed in the memory overflow instead of
	// the substrate.
	Degraded bool
}

// SaveEvent stores an event according to its storage class. Replaceable
// classes resolve newest-wins against the records already holding their
// key; regular and ephemeral kinds insert by id. A permanently degraded
// store skips resolution and inserts by id.
func (s *Store) SaveEvent(ctx context.Context, e *event.Event) (SaveResult, error) {
	start := time.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()
	st, err := s.activeLocked()
	if err != nil {
		return SaveResult{}, err
	}
	if err := e.Validate(); err != nil {
		return SaveResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return SaveResult{}, err
	}

	class := event.Classify(e.Kind)
	res := SaveResult{Outcome: SaveStored, Class: class}

	switch {
	case s.Degraded():
		// The fallback is the store of record now; replacement
		// resolution stopped at the degrade transition.
		if err := st.PutEvent(ctx, e); err != nil {
			return SaveResult{}, err
		}
		res.Degraded = true
	case class.Replaces():
		res, err = s.saveReplaceable(ctx, st, e, class)
		if err != nil {
			return SaveResult{}, err
		}
	default:
		degraded, perr := s.putGuarded(ctx, st, e)
		if perr != nil {
			return SaveResult{}, perr
		}
		res.Degraded = degraded
	}

	if res.Outcome != SaveDiscardedOlder {
		s.stats.Recompute(ctx, st)
	}
	s.metrics.RecordSave(ctx, class.String(), string(res.Outcome), res.Degraded, time.Since(start))
	logging.Debug().
		Add(logging.Component("store")).
		Add(logging.EventID(e.ID)).
		Add(logging.Kind(e.Kind)).
		Add(logging.Class(class)).
		Add(logging.Outcome(string(res.Outcome))).
		Add(logging.Degraded(res.Degraded)).
		Add(logging.Duration(time.Since(start))).
		Msg("save")
	return res, nil
}

// saveReplaceable resolves newest-wins under the arrival's replacement
// key. The stripe lock serializes racing writers of the same key so a
// replacement sequence cannot interleave with another.
func (s *Store) saveReplaceable(ctx context.Context, st record.Store, e *event.Event, class event.Class) (SaveResult, error) {
	res := SaveResult{Outcome: SaveStored, Class: class}

	unlock := s.resolver.Lock(ReplacementKey(e, class))
	defer unlock()

	existing, err := s.replacementSet(ctx, st, e, class)
	if err != nil {
		if ctx.Err() != nil {
			return SaveResult{}, ctx.Err()
		}
		// An unanswerable lookup must not lose the arrival; store it
		// and let a later save resolve the pile-up.
		logging.Warn().
			Add(logging.Component("store")).
			Add(logging.EventID(e.ID)).
			Add(logging.ErrorField(err)).
			Msg("replacement lookup failed; storing without resolution")
		degraded, perr := s.putGuarded(ctx, st, e)
		if perr != nil {
			return SaveResult{}, perr
		}
		res.Degraded = degraded
		return res, nil
	}

	decision := Weigh(existing, e)
	if !decision.Store {
		s.metrics.RecordDiscard(ctx, class.String())
		logging.Debug().
			Add(logging.Component("store")).
			Add(logging.EventID(e.ID)).
			Add(logging.Kind(e.Kind)).
			Add(logging.CreatedAt(e.CreatedAt)).
			Msg("discarding equal or older arrival")
		return SaveResult{Outcome: SaveDiscardedOlder, Class: class}, nil
	}

	for _, id := range decision.Losers {
		s.deleteEverywhere(ctx, st, id)
	}
	degraded, perr := s.putGuarded(ctx, st, e)
	if perr != nil {
		return SaveResult{}, perr
	}
	res.Degraded = degraded
	if len(decision.Losers) > 0 {
		res.Outcome = SaveReplaced
		res.Replaced = len(decision.Losers)
		s.metrics.RecordReplacement(ctx, class.String(), int64(len(decision.Losers)))
	}
	return res, nil
}

// replacementSet collects every record currently holding the arrival's
// replacement key, from the substrate and the overflow both.
func (s *Store) replacementSet(ctx context.Context, st record.Store, e *event.Event, class event.Class) ([]*event.Event, error) {
	var (
		primary  []*event.Event
		fallback []*event.Event
		err      error
	)
	if class == event.ClassParameterizedReplaceable {
		primary, err = st.EventsByAuthorKindDTag(ctx, e.PubKey, e.Kind, e.DTag())
	} else {
		primary, err = st.EventsByAuthorKind(ctx, e.PubKey, e.Kind)
	}
	if err != nil {
		return nil, err
	}
	if class == event.ClassParameterizedReplaceable {
		fallback, _ = s.overflow.EventsByAuthorKindDTag(ctx, e.PubKey, e.Kind, e.DTag())
	} else {
		fallback, _ = s.overflow.EventsByAuthorKind(ctx, e.PubKey, e.Kind)
	}
	return mergeEvents(primary, fallback), nil
}

// putGuarded writes through the circuit breaker. When the substrate or an
// open circuit refuses the write, the record goes to the overflow and the
// save reports degraded.
func (s *Store) putGuarded(ctx context.Context, st record.Store, e *event.Event) (bool, error) {
	err := s.executor.Do(ctx, func(ctx context.Context) error {
		return st.PutEvent(ctx, e)
	})
	if err == nil {
		return false, nil
	}
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	s.metrics.RecordDegradation(ctx, "event_write")
	logging.Warn().
		Add(logging.Component("store")).
		Add(logging.EventID(e.ID)).
		Add(logging.Str("breaker", s.executor.State())).
		Add(logging.ErrorField(err)).
		Msg("substrate write failed; keeping the event in memory")
	if merr := s.overflow.PutEvent(ctx, e); merr != nil {
		logging.Error().
			Add(logging.Component("store")).
			Add(logging.EventID(e.ID)).
			Add(logging.ErrorField(merr)).
			Msg("memory fallback write failed")
	}
	return true, nil
}

// deleteEverywhere removes an id from the substrate and the overflow so a
// replaced record cannot resurface from either side.
func (s *Store) deleteEverywhere(ctx context.Context, st record.Store, id string) {
	err := s.executor.Do(ctx, func(ctx context.Context) error {
		return st.DeleteEvent(ctx, id)
	})
	if err != nil && ctx.Err() == nil {
		s.metrics.RecordDegradation(ctx, "event_delete")
		logging.Warn().
			Add(logging.Component("store")).
			Add(logging.EventID(id)).
			Add(logging.ErrorField(err)).
			Msg("substrate delete failed")
	}
	_ = s.overflow.DeleteEvent(ctx, id)
}

// DeleteEvent removes an event by id from the substrate and the overflow.
// Deleting an absent or empty id is a no-op.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, err := s.activeLocked()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if id == "" {
		logging.Warn().
			Add(logging.Component("store")).
			Msg("ignoring delete with empty id")
		return nil
	}

	s.deleteEverywhere(ctx, st, id)
	s.metrics.RecordDelete(ctx)
	s.stats.Recompute(ctx, st)
	return nil
}
