package badger

import (
	"context"
	"os"

	"github.com/plumenote/eventstore/domain/record"
)

// Opener opens and destroys BadgerDB substrates on behalf of the
// initialization ladder.
type Opener struct {
	cfg Config
}

// NewOpener creates an opener for the given configuration.
func NewOpener(cfg Config, opts ...Option) *Opener {
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Opener{cfg: cfg}
}

// Open opens a store with the requested schema tier.
func (o *Opener) Open(ctx context.Context, schema record.Schema) (record.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := o.cfg
	cfg.Schema = schema
	return NewStore(cfg)
}

// Destroy removes the on-disk database so the next Open starts from an
// empty directory. In-memory databases carry no state between opens.
func (o *Opener) Destroy(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if o.cfg.InMemory || o.cfg.Dir == "" {
		return nil
	}
	return os.RemoveAll(o.cfg.Dir)
}

// Backend names the substrate for logs.
func (o *Opener) Backend() string {
	return "badger"
}

// Dir returns the data directory, empty for in-memory databases.
func (o *Opener) Dir() string {
	if o.cfg.InMemory {
		return ""
	}
	return o.cfg.Dir
}
