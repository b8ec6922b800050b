package config

import (
	"errors"
	"testing"
	"time"

	domainconfig "github.com/plumenote/eventstore/domain/config"
)

func TestNewBuilder(t *testing.T) {
	cfg := domainconfig.DefaultStoreConfig()
	builder := NewBuilder(cfg)

	if builder == nil {
		t.Fatal("NewBuilder() returned nil")
	}
}

func TestBuilder_Build_Defaults(t *testing.T) {
	cfg := domainconfig.DefaultStoreConfig()
	cfg.Storage.Backend = domainconfig.BackendMemory

	result, err := NewBuilder(cfg).Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if result.Logging.Level != "info" {
		t.Errorf("Logging.Level = %s, want info", result.Logging.Level)
	}
	if result.Logging.Format != "console" {
		t.Errorf("Logging.Format = %s, want console", result.Logging.Format)
	}
	if result.Executor.BreakerThreshold != 5 {
		t.Errorf("Executor.BreakerThreshold = %d, want 5", result.Executor.BreakerThreshold)
	}
	if result.Executor.BreakerTimeout != 30*time.Second {
		t.Errorf("Executor.BreakerTimeout = %v, want 30s", result.Executor.BreakerTimeout)
	}
	if result.OpenTimeout != 10*time.Second {
		t.Errorf("OpenTimeout = %v, want 10s", result.OpenTimeout)
	}
	if result.RecreateDelay != time.Second {
		t.Errorf("RecreateDelay = %v, want 1s", result.RecreateDelay)
	}
	if result.RecreateAttempts != 1 {
		t.Errorf("RecreateAttempts = %d, want 1", result.RecreateAttempts)
	}
	if result.TelemetryEnabled {
		t.Error("TelemetryEnabled should default to false")
	}
}

func TestBuilder_Build_Overrides(t *testing.T) {
	cfg := &domainconfig.StoreConfig{
		Name:    "custom-store",
		Version: "1.0",
		Storage: domainconfig.StorageConfig{
			Backend: domainconfig.BackendSQLite,
			Dir:     "/tmp/custom",
		},
		Lifecycle: domainconfig.LifecycleConfig{
			OpenTimeout:      domainconfig.Duration(3 * time.Second),
			RecreateDelay:    domainconfig.Duration(500 * time.Millisecond),
			RecreateAttempts: 4,
		},
		Resilience: domainconfig.ResilienceConfig{
			BreakerThreshold: 2,
			BreakerTimeout:   domainconfig.Duration(time.Minute),
		},
		Logging: domainconfig.LoggingConfig{
			Level:  "debug",
			Format: "json",
		},
		Telemetry: domainconfig.TelemetryConfig{
			Enabled:   true,
			MeterName: "custom/store",
		},
	}

	result, err := NewBuilder(cfg).Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if result.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %s, want debug", result.Logging.Level)
	}
	if result.Logging.Format != "json" {
		t.Errorf("Logging.Format = %s, want json", result.Logging.Format)
	}
	if result.Executor.BreakerThreshold != 2 {
		t.Errorf("Executor.BreakerThreshold = %d, want 2", result.Executor.BreakerThreshold)
	}
	if result.Executor.BreakerTimeout != time.Minute {
		t.Errorf("Executor.BreakerTimeout = %v, want 1m", result.Executor.BreakerTimeout)
	}
	if result.OpenTimeout != 3*time.Second {
		t.Errorf("OpenTimeout = %v, want 3s", result.OpenTimeout)
	}
	if result.RecreateDelay != 500*time.Millisecond {
		t.Errorf("RecreateDelay = %v, want 500ms", result.RecreateDelay)
	}
	if result.RecreateAttempts != 4 {
		t.Errorf("RecreateAttempts = %d, want 4", result.RecreateAttempts)
	}
	if !result.TelemetryEnabled {
		t.Error("TelemetryEnabled should be true")
	}
	if result.MeterName != "custom/store" {
		t.Errorf("MeterName = %s, want custom/store", result.MeterName)
	}
}

func TestBuilder_Build_ZeroLifecycleGetsDefaults(t *testing.T) {
	cfg := &domainconfig.StoreConfig{
		Name:    "bare-store",
		Version: "1.0",
		Storage: domainconfig.StorageConfig{
			Backend: domainconfig.BackendMemory,
		},
	}

	result, err := NewBuilder(cfg).Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if result.OpenTimeout != 10*time.Second {
		t.Errorf("OpenTimeout = %v, want 10s default", result.OpenTimeout)
	}
	if result.RecreateDelay != time.Second {
		t.Errorf("RecreateDelay = %v, want 1s default", result.RecreateDelay)
	}
	if result.RecreateAttempts != 1 {
		t.Errorf("RecreateAttempts = %d, want 1 default", result.RecreateAttempts)
	}
}

func TestBuilder_Build_NilConfig(t *testing.T) {
	_, err := NewBuilder(nil).Build()
	if err == nil {
		t.Fatal("Build() with nil config should return error")
	}
	if !errors.Is(err, domainconfig.ErrBuildFailed) {
		t.Errorf("error = %v, want ErrBuildFailed", err)
	}
}

func TestBuilder_Build_InvalidConfig(t *testing.T) {
	cfg := &domainconfig.StoreConfig{
		Name:    "broken-store",
		Version: "1.0",
		Storage: domainconfig.StorageConfig{
			Backend: "cassandra",
		},
	}

	_, err := NewBuilder(cfg).Build()
	if err == nil {
		t.Fatal("Build() with unknown backend should return error")
	}
	if !errors.Is(err, domainconfig.ErrBuildFailed) {
		t.Errorf("error = %v, want ErrBuildFailed", err)
	}
}
