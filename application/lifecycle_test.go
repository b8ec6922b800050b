package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/plumenote/eventstore/application"
	"github.com/plumenote/eventstore/domain/lifecycle"
	"github.com/plumenote/eventstore/domain/record"
)

// newController builds a controller with test-friendly recovery timing.
func newController(t *testing.T, opener *fakeOpener) *application.Controller {
	t.Helper()
	c, err := application.NewController(application.ControllerConfig{
		Opener:        opener,
		OpenTimeout:   time.Second,
		RecreateDelay: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}
	t.Cleanup(c.Stop)
	return c
}

func TestNewController_RequiresOpener(t *testing.T) {
	t.Parallel()

	if _, err := application.NewController(application.ControllerConfig{}); err == nil {
		t.Fatal("NewController() without an opener should fail")
	}
}

func TestController_OpenFullSchema(t *testing.T) {
	t.Parallel()

	opener := &fakeOpener{}
	c := newController(t, opener)

	st, err := c.Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer st.Close()

	if c.State() != lifecycle.StateReady {
		t.Errorf("State() = %v, want ready", c.State())
	}
	if c.Tier() != lifecycle.TierFull {
		t.Errorf("Tier() = %v, want full", c.Tier())
	}
	if got := opener.opened(); len(got) != 1 || got[0] != record.SchemaFull {
		t.Errorf("opens = %v, want one full-schema open", got)
	}
	if opener.destroyed() != 0 {
		t.Errorf("destroys = %d, want 0", opener.destroyed())
	}
	if d := c.Diagnostics(); d == nil || !d.ProbeOK {
		t.Errorf("Diagnostics() = %+v, want a passing probe", d)
	}
}

func TestController_MinimalAfterFullFailure(t *testing.T) {
	t.Parallel()

	opener := &fakeOpener{failFull: true}
	c := newController(t, opener)

	st, err := c.Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer st.Close()

	if c.State() != lifecycle.StateReady {
		t.Errorf("State() = %v, want ready", c.State())
	}
	if c.Tier() != lifecycle.TierMinimal {
		t.Errorf("Tier() = %v, want minimal", c.Tier())
	}
	got := opener.opened()
	if len(got) != 2 || got[0] != record.SchemaFull || got[1] != record.SchemaMinimal {
		t.Errorf("opens = %v, want [full minimal]", got)
	}
	if opener.destroyed() != 1 {
		t.Errorf("destroys = %d, want 1", opener.destroyed())
	}
}

func TestController_MemoryFallback(t *testing.T) {
	t.Parallel()

	opener := &fakeOpener{failAll: true}
	c := newController(t, opener)

	st, err := c.Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error = %v, the ladder must bottom out in memory", err)
	}
	defer st.Close()

	if c.State() != lifecycle.StateDegraded {
		t.Errorf("State() = %v, want degraded", c.State())
	}
	if c.Tier() != lifecycle.TierMemory {
		t.Errorf("Tier() = %v, want memory", c.Tier())
	}

	// The fallback is a working store.
	if err := st.PutEvent(context.Background(), testEvent("ev1", "pub1", 1, 100)); err != nil {
		t.Errorf("fallback PutEvent() error = %v", err)
	}
}

func TestController_OpenTimeoutMovesToNextTier(t *testing.T) {
	t.Parallel()

	opener := &fakeOpener{delayFirst: 250 * time.Millisecond}
	c, err := application.NewController(application.ControllerConfig{
		Opener:        opener,
		OpenTimeout:   30 * time.Millisecond,
		RecreateDelay: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}
	t.Cleanup(c.Stop)

	st, err := c.Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer st.Close()

	if c.State() != lifecycle.StateReady {
		t.Errorf("State() = %v, want ready", c.State())
	}
	if c.Tier() != lifecycle.TierMinimal {
		t.Errorf("Tier() = %v, want minimal after a timed-out full open", c.Tier())
	}
}

func TestController_ContextCancelledFails(t *testing.T) {
	t.Parallel()

	c := newController(t, &fakeOpener{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Open(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Open() error = %v, want context.Canceled", err)
	}
	if c.State() != lifecycle.StateFailed {
		t.Errorf("State() = %v, want failed", c.State())
	}
}

func TestController_SecondOpenRejected(t *testing.T) {
	t.Parallel()

	c := newController(t, &fakeOpener{})

	st, err := c.Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer st.Close()

	if _, err := c.Open(context.Background()); !errors.Is(err, lifecycle.ErrInvalidTransition) {
		t.Errorf("second Open() error = %v, want ErrInvalidTransition", err)
	}
}

func TestController_Recreate(t *testing.T) {
	t.Parallel()

	opener := &fakeOpener{}
	c := newController(t, opener)

	st, err := c.Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	_ = st.Close()

	replacement, err := c.Recreate(context.Background())
	if err != nil {
		t.Fatalf("Recreate() error = %v", err)
	}
	defer replacement.Close()

	if opener.destroyed() != 1 {
		t.Errorf("destroys = %d, want 1", opener.destroyed())
	}
	if c.State() != lifecycle.StateReady {
		t.Errorf("State() = %v, want ready to survive a recreate", c.State())
	}
	if c.Tier() != lifecycle.TierFull {
		t.Errorf("Tier() = %v, want full", c.Tier())
	}
}

func TestController_RecreateFallsBackToMemory(t *testing.T) {
	t.Parallel()

	opener := &fakeOpener{}
	c := newController(t, opener)

	st, err := c.Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	_ = st.Close()

	opener.mu.Lock()
	opener.failAll = true
	opener.mu.Unlock()

	replacement, err := c.Recreate(context.Background())
	if err != nil {
		t.Fatalf("Recreate() error = %v, the ladder must bottom out in memory", err)
	}
	defer replacement.Close()

	if c.State() != lifecycle.StateDegraded {
		t.Errorf("State() = %v, want degraded", c.State())
	}
	if c.Tier() != lifecycle.TierMemory {
		t.Errorf("Tier() = %v, want memory", c.Tier())
	}
}
