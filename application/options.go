package application

import (
	"fmt"
	"time"

	domainconfig "github.com/plumenote/eventstore/domain/config"
	infraconfig "github.com/plumenote/eventstore/infrastructure/config"
	"github.com/plumenote/eventstore/infrastructure/logging"
	"github.com/plumenote/eventstore/infrastructure/resilience"
	"github.com/plumenote/eventstore/infrastructure/storage/badger"
	"github.com/plumenote/eventstore/infrastructure/storage/memory"
	"github.com/plumenote/eventstore/infrastructure/storage/sqlite"
	"github.com/plumenote/eventstore/infrastructure/telemetry"
)

// Option customizes store construction.
type Option func(*Config)

// WithOpener selects the substrate opener.
func WithOpener(o Opener) Option {
	return func(c *Config) {
		c.Opener = o
	}
}

// WithExecutor replaces the write-path circuit breaker.
func WithExecutor(e *resilience.Executor) Option {
	return func(c *Config) {
		c.Executor = e
	}
}

// WithMetrics replaces the telemetry sink.
func WithMetrics(m telemetry.Metrics) Option {
	return func(c *Config) {
		c.Metrics = m
	}
}

// WithOpenTimeout bounds a single substrate open attempt.
func WithOpenTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.OpenTimeout = d
	}
}

// WithRecreateDelay sets the pause between destroying the database and
// recreating it.
func WithRecreateDelay(d time.Duration) Option {
	return func(c *Config) {
		c.RecreateDelay = d
	}
}

// WithRecreateAttempts sets how many times a post-destroy open is retried.
func WithRecreateAttempts(n int) Option {
	return func(c *Config) {
		c.RecreateAttempts = n
	}
}

// NewStoreWithOptions creates a store facade using functional options.
func NewStoreWithOptions(opts ...Option) (*Store, error) {
	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewStore(cfg)
}

// NewStoreFromConfig builds the stack a configuration describes: logger,
// opener, write-path breaker, and metrics. The substrate is not opened
// until Init.
func NewStoreFromConfig(cfg *domainconfig.StoreConfig) (*Store, error) {
	built, err := infraconfig.NewBuilder(cfg).Build()
	if err != nil {
		return nil, err
	}
	logging.Init(built.Logging)

	opener, err := OpenerForConfig(cfg.Storage)
	if err != nil {
		return nil, err
	}

	var metrics telemetry.Metrics = &telemetry.NoopMetricsProvider{}
	if built.TelemetryEnabled {
		metrics = telemetry.NewMetricsProvider(telemetry.MetricsConfig{MeterName: built.MeterName})
	}

	return NewStore(Config{
		Opener:           opener,
		Executor:         resilience.NewExecutor(built.Executor),
		Metrics:          metrics,
		OpenTimeout:      built.OpenTimeout,
		RecreateDelay:    built.RecreateDelay,
		RecreateAttempts: built.RecreateAttempts,
	})
}

// OpenerForConfig builds the opener the storage configuration names.
func OpenerForConfig(storage domainconfig.StorageConfig) (Opener, error) {
	switch storage.Backend {
	case domainconfig.BackendBadger:
		opts := []badger.Option{badger.WithDir(storage.Dir)}
		if storage.InMemory {
			opts = append(opts, badger.WithInMemory())
		}
		if storage.SyncWrites {
			opts = append(opts, badger.WithSyncWrites())
		}
		return badger.NewOpener(badger.DefaultConfig(), opts...), nil
	case domainconfig.BackendSQLite:
		var opts []sqlite.Option
		if storage.SyncWrites {
			opts = append(opts, sqlite.WithSyncWrites())
		}
		return sqlite.NewOpener(storage.Dir, sqlite.DefaultConfig(), opts...), nil
	case domainconfig.BackendMemory:
		return memory.NewOpener(), nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", domainconfig.ErrBuildFailed, storage.Backend)
	}
}

// Substrate openers satisfy the facade's Opener contract.
var (
	_ Opener = (*badger.Opener)(nil)
	_ Opener = (*sqlite.Opener)(nil)
	_ Opener = (*memory.Opener)(nil)
)
