package application_test

import (
	"testing"
	"time"

	"github.com/plumenote/eventstore/application"
	"github.com/plumenote/eventstore/domain/event"
)

func TestReplacementKey(t *testing.T) {
	t.Parallel()

	profile := testEvent("ev1", "pub1", event.KindProfileMetadata, 100)
	if got := application.ReplacementKey(profile, event.ClassReplaceable); got != "pub1/0" {
		t.Errorf("ReplacementKey(profile) = %q, want pub1/0", got)
	}

	badge := paramEvent("ev2", "pub1", event.KindProfileBadges, 100, "badge")
	if got := application.ReplacementKey(badge, event.ClassParameterizedReplaceable); got != "pub1/30008/badge" {
		t.Errorf("ReplacementKey(badge) = %q, want pub1/30008/badge", got)
	}

	// An absent d tag and an explicit empty one share a key.
	bare := testEvent("ev3", "pub1", 30001, 100)
	tagged := paramEvent("ev4", "pub1", 30001, 100, "")
	bareKey := application.ReplacementKey(bare, event.ClassParameterizedReplaceable)
	taggedKey := application.ReplacementKey(tagged, event.ClassParameterizedReplaceable)
	if bareKey != taggedKey {
		t.Errorf("keys differ: %q vs %q", bareKey, taggedKey)
	}
}

func TestWeigh(t *testing.T) {
	t.Parallel()

	arrival := testEvent("new", "pub1", 0, 100)

	cases := []struct {
		name      string
		existing  []*event.Event
		store     bool
		losers    int
		duplicate bool
	}{
		{
			name:  "no holder",
			store: true,
		},
		{
			name:     "older holder loses",
			existing: []*event.Event{testEvent("old", "pub1", 0, 50)},
			store:    true,
			losers:   1,
		},
		{
			name:     "newer holder wins",
			existing: []*event.Event{testEvent("held", "pub1", 0, 200)},
			store:    false,
		},
		{
			name:     "equal timestamp holder wins",
			existing: []*event.Event{testEvent("held", "pub1", 0, 100)},
			store:    false,
		},
		{
			name:      "same id overwrites in place",
			existing:  []*event.Event{testEvent("new", "pub1", 0, 100)},
			store:     true,
			duplicate: true,
		},
		{
			name: "duplicate beside an older record",
			existing: []*event.Event{
				testEvent("new", "pub1", 0, 100),
				testEvent("old", "pub1", 0, 50),
			},
			store:     true,
			losers:    1,
			duplicate: true,
		},
		{
			name: "several older records all lose",
			existing: []*event.Event{
				testEvent("a", "pub1", 0, 10),
				testEvent("b", "pub1", 0, 20),
				testEvent("c", "pub1", 0, 30),
			},
			store:  true,
			losers: 3,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := application.Weigh(tc.existing, arrival)
			if d.Store != tc.store {
				t.Errorf("Store = %v, want %v", d.Store, tc.store)
			}
			if len(d.Losers) != tc.losers {
				t.Errorf("Losers = %v, want %d ids", d.Losers, tc.losers)
			}
			if d.Duplicate != tc.duplicate {
				t.Errorf("Duplicate = %v, want %v", d.Duplicate, tc.duplicate)
			}
		})
	}
}

func TestResolver_LockSerializesSameKey(t *testing.T) {
	t.Parallel()

	r := application.NewResolver()
	unlock := r.Lock("pub1/0")

	acquired := make(chan struct{})
	go func() {
		u := r.Lock("pub1/0")
		u()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second locker acquired a held stripe")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second locker never acquired the stripe")
	}
}
