package application

import (
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/plumenote/eventstore/domain/event"
)

// resolverStripes is the size of the stripe array. Keys hash onto stripes,
// so unrelated keys may share a mutex; correctness only needs writers of
// the same key to collide.
const resolverStripes = 64

// Resolver serializes replacement sequences per replacement key. Without
// it, two concurrent saves of the same (author, kind[, d tag]) could
// interleave their read-existing and delete-insert steps and lose an
// update.
type Resolver struct {
	locks [resolverStripes]sync.Mutex
}

// NewResolver creates a resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// ReplacementKey builds the identity a replaceable event competes under.
// Parameterized replaceable kinds include the d tag; an absent tag and an
// explicit empty one produce the same key.
func ReplacementKey(e *event.Event, class event.Class) string {
	key := e.PubKey + "/" + strconv.Itoa(e.Kind)
	if class == event.ClassParameterizedReplaceable {
		key += "/" + e.DTag()
	}
	return key
}

// Lock acquires the stripe guarding key and returns its release function.
func (r *Resolver) Lock(key string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	m := &r.locks[h.Sum32()%resolverStripes]
	m.Lock()
	return m.Unlock
}

// Decision is the outcome of weighing an arrival against the records that
// currently hold its replacement key.
type Decision struct {
	// Store reports whether the arrival should be written.
	Store bool

	// Losers are the ids of stored records the arrival supersedes.
	Losers []string

	// Duplicate reports an idempotent re-save of an already stored id.
	Duplicate bool
}

// Weigh applies newest-wins to an arrival. Only a strictly greater
// created_at displaces a stored record; an equal or older arrival is
// discarded. Re-saving an id that is already stored overwrites it in
// place.
func Weigh(existing []*event.Event, arrival *event.Event) Decision {
	d := Decision{Store: true}
	for _, ex := range existing {
		if ex.ID == arrival.ID {
			d.Duplicate = true
			continue
		}
		if ex.CreatedAt >= arrival.CreatedAt {
			return Decision{Store: false}
		}
		d.Losers = append(d.Losers, ex.ID)
	}
	return d
}
