package memory

import (
	"context"

	"github.com/plumenote/eventstore/domain/record"
)

// Opener satisfies the same open/destroy contract as the persistent
// substrates. Destroy is a no-op since nothing outlives the process.
type Opener struct{}

// NewOpener creates an in-memory opener.
func NewOpener() *Opener {
	return &Opener{}
}

// Open returns a fresh empty store. The schema argument is accepted for
// contract parity; memory always carries the full layout.
func (o *Opener) Open(ctx context.Context, _ record.Schema) (record.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return NewStore(), nil
}

// Destroy is a no-op.
func (o *Opener) Destroy(ctx context.Context) error {
	return ctx.Err()
}

// Backend names the substrate for logs and stats.
func (o *Opener) Backend() string {
	return "memory"
}

// Dir returns the empty string; nothing is on disk.
func (o *Opener) Dir() string {
	return ""
}
