package config

import (
	"fmt"
	"time"

	domainconfig "github.com/plumenote/eventstore/domain/config"
	"github.com/plumenote/eventstore/infrastructure/logging"
	"github.com/plumenote/eventstore/infrastructure/resilience"
)

// Builder derives component configurations from a store configuration.
type Builder struct {
	config *domainconfig.StoreConfig
}

// NewBuilder creates a new configuration builder.
func NewBuilder(config *domainconfig.StoreConfig) *Builder {
	return &Builder{config: config}
}

// BuildResult contains the component configurations derived from a store
// configuration.
type BuildResult struct {
	// Logging is the logger configuration.
	Logging logging.Config

	// Executor is the write-path circuit breaker configuration.
	Executor resilience.ExecutorConfig

	// OpenTimeout bounds the initial substrate open.
	OpenTimeout time.Duration

	// RecreateDelay is the pause between destroying a broken database and
	// recreating it.
	RecreateDelay time.Duration

	// RecreateAttempts is how many times the minimal recreate is tried.
	RecreateAttempts int

	// TelemetryEnabled turns OpenTelemetry instruments on.
	TelemetryEnabled bool

	// MeterName overrides the default meter name.
	MeterName string
}

// Build derives the component configurations.
func (b *Builder) Build() (*BuildResult, error) {
	if b.config == nil {
		return nil, fmt.Errorf("%w: nil configuration", domainconfig.ErrBuildFailed)
	}

	validator := domainconfig.NewValidator()
	if errs := validator.Validate(b.config); errs.HasErrors() {
		return nil, fmt.Errorf("%w: %v", domainconfig.ErrBuildFailed, errs)
	}

	result := &BuildResult{
		Logging:  logging.DefaultConfig(),
		Executor: resilience.DefaultExecutorConfig(),
	}

	b.buildLogging(result)
	b.buildResilience(result)
	b.buildLifecycle(result)
	b.buildTelemetry(result)

	return result, nil
}

func (b *Builder) buildLogging(result *BuildResult) {
	if b.config.Logging.Level != "" {
		result.Logging.Level = b.config.Logging.Level
	}
	if b.config.Logging.Format != "" {
		result.Logging.Format = b.config.Logging.Format
	}
}

func (b *Builder) buildResilience(result *BuildResult) {
	if b.config.Resilience.BreakerThreshold > 0 {
		result.Executor.BreakerThreshold = b.config.Resilience.BreakerThreshold
	}
	if b.config.Resilience.BreakerTimeout > 0 {
		result.Executor.BreakerTimeout = b.config.Resilience.BreakerTimeout.Duration()
	}
}

func (b *Builder) buildLifecycle(result *BuildResult) {
	lc := b.config.Lifecycle

	result.OpenTimeout = lc.OpenTimeout.Duration()
	if result.OpenTimeout <= 0 {
		result.OpenTimeout = 10 * time.Second
	}

	result.RecreateDelay = lc.RecreateDelay.Duration()
	if result.RecreateDelay <= 0 {
		result.RecreateDelay = time.Second
	}

	result.RecreateAttempts = lc.RecreateAttempts
	if result.RecreateAttempts <= 0 {
		result.RecreateAttempts = 1
	}
}

func (b *Builder) buildTelemetry(result *BuildResult) {
	result.TelemetryEnabled = b.config.Telemetry.Enabled
	result.MeterName = b.config.Telemetry.MeterName
}
