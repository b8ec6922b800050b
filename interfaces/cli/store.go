package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plumenote/eventstore/application"
	domainconfig "github.com/plumenote/eventstore/domain/config"
	infraconfig "github.com/plumenote/eventstore/infrastructure/config"
)

// storeOptions holds the flags shared by every command that opens a store.
type storeOptions struct {
	configPath string
	backend    string
	dir        string
	inMemory   bool
	syncWrites bool
}

// registerFlags attaches the shared storage flags to a command.
func (o *storeOptions) registerFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.configPath, "config", "c", "", "Path to configuration file (YAML or JSON)")
	cmd.Flags().StringVar(&o.backend, "backend", "", "Storage backend: badger, sqlite or memory (overrides config)")
	cmd.Flags().StringVar(&o.dir, "dir", "", "Data directory for on-disk backends (overrides config)")
	cmd.Flags().BoolVar(&o.inMemory, "in-memory", false, "Keep the badger backend entirely in memory")
	cmd.Flags().BoolVar(&o.syncWrites, "sync-writes", false, "Flush every write to disk before acknowledging")
}

// loadConfig resolves the effective configuration from the config file, with
// flags overriding individual storage fields.
func (o *storeOptions) loadConfig() (*domainconfig.StoreConfig, error) {
	cfg := domainconfig.DefaultStoreConfig()
	if o.configPath != "" {
		loaded, err := infraconfig.NewLoader().LoadFile(o.configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded
	}

	if o.backend != "" {
		cfg.Storage.Backend = o.backend
	}
	if o.dir != "" {
		cfg.Storage.Dir = o.dir
	}
	if o.inMemory {
		cfg.Storage.InMemory = true
	}
	if o.syncWrites {
		cfg.Storage.SyncWrites = true
	}

	return cfg, nil
}

// openStore builds and initializes the store the options describe. The
// caller owns the returned store and must close it.
func (a *App) openStore(ctx context.Context, opts *storeOptions) (*application.Store, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}

	st, err := application.NewStoreFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build store: %w", err)
	}

	if err := st.Init(ctx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	return st, nil
}
