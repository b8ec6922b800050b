package sqlite

import (
	"context"
	"os"

	"github.com/plumenote/eventstore/domain/record"
)

// Opener opens, and when asked destroys, a SQLite store rooted at a
// directory. It exists so the initialization controller can drive the
// open/destroy/reopen recovery ladder without knowing the backend.
type Opener struct {
	dir string
	cfg Config
}

// NewOpener creates an opener for the given directory. An empty DSN is
// derived from the directory.
func NewOpener(dir string, cfg Config, opts ...Option) *Opener {
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" || cfg.DSN == DefaultConfig().DSN {
		cfg.DSN = DSNForDir(dir)
	}
	return &Opener{dir: dir, cfg: cfg}
}

// Open opens the store with the requested schema tier, creating the
// directory if needed.
func (o *Opener) Open(ctx context.Context, schema record.Schema) (record.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if o.dir != "" {
		if err := os.MkdirAll(o.dir, 0o750); err != nil {
			return nil, err
		}
	}

	cfg := o.cfg
	cfg.Schema = schema
	return NewStore(cfg)
}

// Destroy removes the database directory and everything in it.
func (o *Opener) Destroy(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if o.dir == "" {
		return nil
	}
	return os.RemoveAll(o.dir)
}

// Backend names the substrate for logs and stats.
func (o *Opener) Backend() string {
	return "sqlite"
}

// Dir returns the directory the database lives in.
func (o *Opener) Dir() string {
	return o.dir
}
