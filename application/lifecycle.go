package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/plumenote/eventstore/domain/lifecycle"
	"github.com/plumenote/eventstore/domain/record"
	"github.com/plumenote/eventstore/infrastructure/logging"
	"github.com/plumenote/eventstore/infrastructure/resilience"
	"github.com/plumenote/eventstore/infrastructure/statemachine"
	"github.com/plumenote/eventstore/infrastructure/storage/memory"
	"github.com/plumenote/eventstore/infrastructure/telemetry"
)

// Opener creates and destroys substrate instances. Each storage backend
// provides one; the lifecycle controller drives it through the recovery
// ladder without knowing which backend sits behind it.
type Opener interface {
	// Open creates a substrate carrying the requested schema tier.
	Open(ctx context.Context, schema record.Schema) (record.Store, error)

	// Destroy removes the persistent state entirely so a later Open
	// starts from nothing.
	Destroy(ctx context.Context) error

	// Backend names the substrate for logs.
	Backend() string

	// Dir is the data directory, empty for memory-only backends.
	Dir() string
}

// Controller owns the lifecycle state machine and walks the opener down
// the recovery ladder:
//
//	tier 1: open with the full schema
//	tier 2: destroy the database, wait, recreate with the minimal schema
//	tier 3: abandon persistence and serve from the memory fallback
//
// Only a context that ends mid-ladder reaches the failed state; as long
// as the caller keeps waiting, some tier always produces a usable store.
type Controller struct {
	opener  Opener
	machine *statemachine.Interpreter
	metrics telemetry.Metrics

	openTimeout      time.Duration
	recreateDelay    time.Duration
	recreateAttempts int

	mu   sync.Mutex
	tier lifecycle.Tier
	diag *Diagnostics
}

// ControllerConfig configures the lifecycle controller.
type ControllerConfig struct {
	// Opener creates and destroys the substrate. Required.
	Opener Opener

	// Metrics records transitions and degradations. Defaults to no-op.
	Metrics telemetry.Metrics

	// OpenTimeout bounds a single open attempt before the ladder moves
	// on to the next tier.
	OpenTimeout time.Duration

	// RecreateDelay is the pause between destroying the database and
	// recreating it, giving the filesystem time to release locks.
	RecreateDelay time.Duration

	// RecreateAttempts is how many times a post-destroy open is retried.
	RecreateAttempts int
}

// NewController creates a controller in the unopened state.
func NewController(cfg ControllerConfig) (*Controller, error) {
	if cfg.Opener == nil {
		return nil, errors.New("opener is required")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = &telemetry.NoopMetricsProvider{}
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 10 * time.Second
	}
	if cfg.RecreateDelay <= 0 {
		cfg.RecreateDelay = time.Second
	}
	if cfg.RecreateAttempts <= 0 {
		cfg.RecreateAttempts = 1
	}

	machine, err := statemachine.NewLifecycleMachine()
	if err != nil {
		return nil, fmt.Errorf("build lifecycle machine: %w", err)
	}
	interp := statemachine.NewInterpreter(machine, statemachine.NewContext())
	interp.Start()

	return &Controller{
		opener:           cfg.Opener,
		machine:          interp,
		metrics:          cfg.Metrics,
		openTimeout:      cfg.OpenTimeout,
		recreateDelay:    cfg.RecreateDelay,
		recreateAttempts: cfg.RecreateAttempts,
	}, nil
}

// State returns the current lifecycle state.
func (c *Controller) State() lifecycle.State {
	return c.machine.State()
}

// Tier reports which recovery tier produced the active substrate.
func (c *Controller) Tier() lifecycle.Tier {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tier
}

// Diagnostics returns what startup probing learned, nil before Open.
func (c *Controller) Diagnostics() *Diagnostics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.diag
}

// Backend names the substrate backend.
func (c *Controller) Backend() string {
	return c.opener.Backend()
}

// Stop stops the lifecycle state machine.
func (c *Controller) Stop() {
	c.machine.Stop()
}

// Open runs the recovery ladder and returns the store that will serve the
// contract. A nil error does not imply persistence: tier 3 hands back the
// memory fallback and parks the lifecycle in degraded.
func (c *Controller) Open(ctx context.Context) (record.Store, error) {
	if err := c.transition(ctx, lifecycle.StateOpening, "init"); err != nil {
		return nil, err
	}

	st, err := c.openTier(ctx, record.SchemaFull)
	if err == nil {
		c.setTier(lifecycle.TierFull)
		c.probe()
		if terr := c.transition(ctx, lifecycle.StateReady, "full schema"); terr != nil {
			_ = st.Close()
			return nil, terr
		}
		return st, nil
	}
	if ctx.Err() != nil {
		_ = c.transition(ctx, lifecycle.StateFailed, "context ended during open")
		return nil, ctx.Err()
	}
	logging.Warn().
		Add(logging.Component("lifecycle")).
		Add(logging.Backend(c.opener.Backend())).
		Add(logging.ErrorField(err)).
		Msg("full-schema open failed; destroying and recreating with the minimal schema")

	st, err = c.recreateSchema(ctx, record.SchemaMinimal)
	if err == nil {
		c.setTier(lifecycle.TierMinimal)
		c.probe()
		if terr := c.transition(ctx, lifecycle.StateReady, "minimal schema after recreate"); terr != nil {
			_ = st.Close()
			return nil, terr
		}
		return st, nil
	}
	if ctx.Err() != nil {
		_ = c.transition(ctx, lifecycle.StateFailed, "context ended during recovery")
		return nil, ctx.Err()
	}
	logging.Error().
		Add(logging.Component("lifecycle")).
		Add(logging.Backend(c.opener.Backend())).
		Add(logging.ErrorField(err)).
		Msg("minimal-schema recreate failed; falling back to the in-memory store")

	c.setTier(lifecycle.TierMemory)
	c.probe()
	c.metrics.RecordDegradation(ctx, "init")
	if terr := c.transition(ctx, lifecycle.StateDegraded, "persistent storage unusable"); terr != nil {
		return nil, terr
	}
	return memory.NewStore(), nil
}

// Recreate rebuilds the substrate after a failed wipe. It walks the same
// ladder as Open but from ready: the state only moves when every tier
// fails, which demotes the store to degraded on the memory fallback. A
// minimal-tier store that recreates cleanly comes back at the full tier.
func (c *Controller) Recreate(ctx context.Context) (record.Store, error) {
	st, err := c.recreateSchema(ctx, record.SchemaFull)
	if err == nil {
		c.setTier(lifecycle.TierFull)
		c.probe()
		return st, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	logging.Warn().
		Add(logging.Component("lifecycle")).
		Add(logging.Backend(c.opener.Backend())).
		Add(logging.ErrorField(err)).
		Msg("full-schema recreate failed; retrying with the minimal schema")

	st, err = c.recreateSchema(ctx, record.SchemaMinimal)
	if err == nil {
		c.setTier(lifecycle.TierMinimal)
		c.probe()
		return st, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	logging.Error().
		Add(logging.Component("lifecycle")).
		Add(logging.Backend(c.opener.Backend())).
		Add(logging.ErrorField(err)).
		Msg("recreate failed; falling back to the in-memory store")

	c.setTier(lifecycle.TierMemory)
	c.probe()
	c.metrics.RecordDegradation(ctx, "recreate")
	_ = c.transition(ctx, lifecycle.StateDegraded, "recreate failed")
	return memory.NewStore(), nil
}

type openOutcome struct {
	store record.Store
	err   error
}

// openTier opens the substrate with one schema tier under the open
// timeout. A store that finishes opening after the timeout fired is
// closed, not leaked.
func (c *Controller) openTier(ctx context.Context, schema record.Schema) (record.Store, error) {
	openCtx, cancel := context.WithTimeout(ctx, c.openTimeout)
	defer cancel()

	done := make(chan openOutcome, 1)
	go func() {
		st, err := c.opener.Open(openCtx, schema)
		done <- openOutcome{store: st, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, out.err
		}
		return out.store, nil
	case <-openCtx.Done():
		go func() {
			if out := <-done; out.store != nil {
				_ = out.store.Close()
			}
		}()
		return nil, errors.Join(lifecycle.ErrOpenTimeout, openCtx.Err())
	}
}

// recreateSchema destroys the database, waits out the filesystem, then
// retries the open with the given schema.
func (c *Controller) recreateSchema(ctx context.Context, schema record.Schema) (record.Store, error) {
	if err := c.opener.Destroy(ctx); err != nil {
		return nil, fmt.Errorf("destroy: %w", err)
	}
	if err := sleepContext(ctx, c.recreateDelay); err != nil {
		return nil, err
	}
	return resilience.Reopen(ctx, c.recreateAttempts, c.recreateDelay, func(ctx context.Context) (record.Store, error) {
		return c.openTier(ctx, schema)
	})
}

// transition moves the machine and records the move. The machine is the
// authority on legality; rejections are logged and surfaced.
func (c *Controller) transition(ctx context.Context, to lifecycle.State, reason string) error {
	from := c.machine.State()
	if err := c.machine.Transition(to, reason); err != nil {
		logging.Error().
			Add(logging.Component("lifecycle")).
			Add(logging.FromState(from.String())).
			Add(logging.ToState(to.String())).
			Add(logging.Reason(reason)).
			Add(logging.ErrorField(err)).
			Msg("lifecycle transition rejected")
		return err
	}
	c.metrics.RecordLifecycleTransition(ctx, from.String(), to.String())
	logging.Info().
		Add(logging.Component("lifecycle")).
		Add(logging.FromState(from.String())).
		Add(logging.ToState(to.String())).
		Add(logging.Reason(reason)).
		Msg("lifecycle transition")
	return nil
}

func (c *Controller) setTier(t lifecycle.Tier) {
	c.mu.Lock()
	c.tier = t
	c.mu.Unlock()
	c.machine.Context().Tier = t
}

// probe refreshes the data-directory diagnostics.
func (c *Controller) probe() {
	d := RunDiagnostics(c.opener.Dir())
	c.mu.Lock()
	c.diag = d
	c.mu.Unlock()
}

// sleepContext waits d unless the context ends first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
