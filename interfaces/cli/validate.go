package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	infraconfig "github.com/plumenote/eventstore/infrastructure/config"
)

// validateOptions holds options for the validate command.
type validateOptions struct {
	configPath string
	strict     bool
}

// newValidateCmd creates the validate command.
func (a *App) newValidateCmd() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Long: `Validate a store configuration file for correctness.

This command checks:
  - File format (YAML or JSON)
  - Required fields (name, version, storage backend)
  - Field types and constraints
  - Environment variable references (in strict mode)

Examples:
  # Validate a configuration file
  plumestore validate -c store.yaml

  # Strict validation (fail on missing env vars)
  plumestore validate -c store.yaml --strict`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.validateConfig(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Enable strict validation (fail on missing env vars)")

	return cmd
}

// validateConfig validates the configuration file.
func (a *App) validateConfig(opts *validateOptions) error {
	if opts.configPath == "" {
		return fmt.Errorf("configuration file path is required (-c flag)")
	}

	loaderOpts := []infraconfig.LoaderOption{
		infraconfig.WithValidation(true),
	}
	if opts.strict {
		loaderOpts = append(loaderOpts, infraconfig.WithStrictEnv(true))
	}

	loader := infraconfig.NewLoaderWithOptions(loaderOpts...)
	cfg, err := loader.LoadFile(opts.configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	// Additional validation via the builder
	built, err := infraconfig.NewBuilder(cfg).Build()
	if err != nil {
		return fmt.Errorf("configuration build failed: %w", err)
	}

	_, _ = fmt.Fprintf(a.stdout, "✓ Configuration is valid\n")
	_, _ = fmt.Fprintf(a.stdout, "  Name: %s\n", cfg.Name)
	_, _ = fmt.Fprintf(a.stdout, "  Version: %s\n", cfg.Version)
	if cfg.Description != "" {
		_, _ = fmt.Fprintf(a.stdout, "  Description: %s\n", cfg.Description)
	}

	_, _ = fmt.Fprintf(a.stdout, "\nConfiguration summary:\n")
	_, _ = fmt.Fprintf(a.stdout, "  Backend: %s\n", cfg.Storage.Backend)
	if cfg.Storage.Dir != "" {
		_, _ = fmt.Fprintf(a.stdout, "  Directory: %s\n", cfg.Storage.Dir)
	}
	if cfg.Storage.InMemory {
		_, _ = fmt.Fprintf(a.stdout, "  In-memory: true\n")
	}
	if cfg.Storage.SyncWrites {
		_, _ = fmt.Fprintf(a.stdout, "  Sync writes: true\n")
	}
	_, _ = fmt.Fprintf(a.stdout, "  Open timeout: %s\n", built.OpenTimeout)
	_, _ = fmt.Fprintf(a.stdout, "  Recreate delay: %s\n", built.RecreateDelay)
	_, _ = fmt.Fprintf(a.stdout, "  Recreate attempts: %d\n", built.RecreateAttempts)
	_, _ = fmt.Fprintf(a.stdout, "  Breaker threshold: %d\n", built.Executor.BreakerThreshold)
	_, _ = fmt.Fprintf(a.stdout, "  Log level: %s (%s)\n", built.Logging.Level, built.Logging.Format)
	if built.TelemetryEnabled {
		_, _ = fmt.Fprintf(a.stdout, "  Telemetry: enabled\n")
	}

	return nil
}
