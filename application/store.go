// Package application wires the storage substrates, the replacement
// resolver, and the lifecycle controller into the store facade the rest
// of the program talks to. The facade owns the policy the substrates
// deliberately lack: storage-class resolution, degradation routing, and
// the merge of substrate reads with the memory overflow.
package application

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/plumenote/eventstore/domain/event"
	"github.com/plumenote/eventstore/domain/lifecycle"
	"github.com/plumenote/eventstore/domain/record"
	"github.com/plumenote/eventstore/infrastructure/logging"
	"github.com/plumenote/eventstore/infrastructure/resilience"
	"github.com/plumenote/eventstore/infrastructure/storage/memory"
	"github.com/plumenote/eventstore/infrastructure/telemetry"
)

// Store is the event store facade. It fronts one substrate selected by
// the lifecycle controller and keeps a memory overflow beside it: records
// the substrate refuses land there and reads merge them back, so a flaky
// disk costs durability, not availability.
type Store struct {
	controller *Controller
	resolver   *Resolver
	executor   *resilience.Executor
	stats      *StatsAggregator
	metrics    telemetry.Metrics

	// overflow catches records that could not reach the substrate.
	overflow *memory.Store

	mu        sync.RWMutex
	substrate record.Store
	closed    bool
}

// Config configures the store facade.
type Config struct {
	// Opener creates and destroys the substrate. Required.
	Opener Opener

	// Executor guards substrate event writes with a circuit breaker.
	// Defaults to the standard breaker settings.
	Executor *resilience.Executor

	// Metrics records operational telemetry. Defaults to no-op.
	Metrics telemetry.Metrics

	// OpenTimeout bounds a single substrate open attempt.
	OpenTimeout time.Duration

	// RecreateDelay is the pause between destroying the database and
	// recreating it.
	RecreateDelay time.Duration

	// RecreateAttempts is how many times a post-destroy open is retried.
	RecreateAttempts int
}

// NewStore creates the facade. The substrate is not opened until Init.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Opener == nil {
		return nil, errors.New("opener is required")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = &telemetry.NoopMetricsProvider{}
	}
	if cfg.Executor == nil {
		cfg.Executor = resilience.NewDefaultExecutor()
	}

	controller, err := NewController(ControllerConfig{
		Opener:           cfg.Opener,
		Metrics:          cfg.Metrics,
		OpenTimeout:      cfg.OpenTimeout,
		RecreateDelay:    cfg.RecreateDelay,
		RecreateAttempts: cfg.RecreateAttempts,
	})
	if err != nil {
		return nil, err
	}

	return &Store{
		controller: controller,
		resolver:   NewResolver(),
		executor:   cfg.Executor,
		stats:      NewStatsAggregator(cfg.Metrics),
		metrics:    cfg.Metrics,
		overflow:   memory.NewStore(),
	}, nil
}

// Init opens the substrate through the recovery ladder. Init on an
// initialized store is a no-op; on a closed store it fails with
// ErrClosed.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return lifecycle.ErrClosed
	}
	if s.substrate != nil {
		return nil
	}

	st, err := s.controller.Open(ctx)
	if err != nil {
		return err
	}
	s.substrate = st
	s.stats.Recompute(ctx, st)

	logging.Info().
		Add(logging.Component("store")).
		Add(logging.Backend(s.controller.Backend())).
		Add(logging.Schema(st.Schema().String())).
		Add(logging.Str("state", s.controller.State().String())).
		Msg("store initialized")
	return nil
}

// activeLocked returns the substrate for an operation. Callers must hold
// s.mu in at least read mode.
func (s *Store) activeLocked() (record.Store, error) {
	if s.closed {
		return nil, lifecycle.ErrClosed
	}
	if s.substrate == nil {
		return nil, lifecycle.ErrNotInitialized
	}
	return s.substrate, nil
}

// Initialized reports whether Init completed and the store accepts calls.
func (s *Store) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.substrate != nil && !s.closed && s.controller.State().Operational()
}

// Degraded reports whether the store serves from the memory fallback.
func (s *Store) Degraded() bool {
	return s.controller.State() == lifecycle.StateDegraded
}

// State returns the lifecycle state.
func (s *Store) State() lifecycle.State {
	return s.controller.State()
}

// Tier reports which recovery tier produced the active substrate.
func (s *Store) Tier() lifecycle.Tier {
	return s.controller.Tier()
}

// Schema reports the active substrate's schema tier, full before Init.
func (s *Store) Schema() record.Schema {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.substrate == nil {
		return record.SchemaFull
	}
	return s.substrate.Schema()
}

// Diagnostics returns what startup probing learned, nil before Init.
func (s *Store) Diagnostics() *Diagnostics {
	return s.controller.Diagnostics()
}

// Stats returns the last good usage snapshot.
func (s *Store) Stats() record.Stats {
	return s.stats.Snapshot()
}

// Backend names the substrate backend.
func (s *Store) Backend() string {
	return s.controller.Backend()
}

// Close releases the substrate and the fallback. Every later operation,
// a second Close included, fails with ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return lifecycle.ErrClosed
	}
	s.closed = true
	s.controller.Stop()
	_ = s.overflow.Close()
	if s.substrate != nil {
		return s.substrate.Close()
	}
	return nil
}

// Wipe clears every table but keeps the store open. When the substrate
// cannot wipe in place it is destroyed and recreated, which can land the
// store on a lower tier.
func (s *Store) Wipe(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.activeLocked()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if werr := st.Wipe(ctx); werr != nil {
		logging.Warn().
			Add(logging.Component("store")).
			Add(logging.ErrorField(werr)).
			Msg("in-place wipe failed; destroying and recreating the database")
		_ = st.Close()
		replacement, rerr := s.controller.Recreate(ctx)
		if rerr != nil {
			return rerr
		}
		s.substrate = replacement
	}

	if err := s.overflow.Wipe(ctx); err != nil {
		return err
	}
	s.metrics.RecordWipe(ctx)
	s.stats.Recompute(ctx, s.substrate)
	logging.Info().
		Add(logging.Component("store")).
		Msg("store wiped")
	return nil
}

// sortEvents orders events by created_at ascending with id as tiebreak,
// the canonical order for every multi-event response.
func sortEvents(events []*event.Event) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].CreatedAt != events[j].CreatedAt {
			return events[i].CreatedAt < events[j].CreatedAt
		}
		return events[i].ID < events[j].ID
	})
}

// mergeRecords merges substrate results with overflow results. A record
// present in both keeps the substrate copy; the result is ordered by less
// and never nil.
func mergeRecords[T any](primary, fallback []T, key func(T) string, less func(a, b T) bool) []T {
	if len(fallback) == 0 {
		if primary == nil {
			return make([]T, 0)
		}
		return primary
	}
	seen := make(map[string]struct{}, len(primary))
	merged := make([]T, 0, len(primary)+len(fallback))
	for _, rec := range primary {
		seen[key(rec)] = struct{}{}
		merged = append(merged, rec)
	}
	for _, rec := range fallback {
		if _, dup := seen[key(rec)]; dup {
			continue
		}
		merged = append(merged, rec)
	}
	sort.Slice(merged, func(i, j int) bool { return less(merged[i], merged[j]) })
	return merged
}

// mergeEvents merges substrate events with overflow events in canonical
// order.
func mergeEvents(primary, fallback []*event.Event) []*event.Event {
	return mergeRecords(primary, fallback,
		func(e *event.Event) string { return e.ID },
		func(a, b *event.Event) bool {
			if a.CreatedAt != b.CreatedAt {
				return a.CreatedAt < b.CreatedAt
			}
			return a.ID < b.ID
		})
}

// usableAuthors drops empty and placeholder author keys from a query.
func usableAuthors(pubkeys []string) []string {
	out := make([]string, 0, len(pubkeys))
	for _, pk := range pubkeys {
		if !event.ValidAuthor(pk) {
			logging.Warn().
				Add(logging.Component("store")).
				Add(logging.PubKey(pk)).
				Msg("dropping invalid author from query")
			continue
		}
		out = append(out, pk)
	}
	return out
}
