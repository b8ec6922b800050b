// Package config provides domain models for store configuration.
package config

import "time"

// StoreConfig represents the complete event store configuration.
type StoreConfig struct {
	// Name is a human-readable name for this configuration.
	Name string `json:"name" yaml:"name"`
	// Version is the configuration schema version.
	Version string `json:"version" yaml:"version"`
	// Description describes the store's purpose.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Storage selects and configures the persistent substrate.
	Storage StorageConfig `json:"storage" yaml:"storage"`
	// Lifecycle contains open and recovery settings.
	Lifecycle LifecycleConfig `json:"lifecycle,omitempty" yaml:"lifecycle,omitempty"`
	// Resilience contains write-path protection settings.
	Resilience ResilienceConfig `json:"resilience,omitempty" yaml:"resilience,omitempty"`
	// Logging contains logger settings.
	Logging LoggingConfig `json:"logging,omitempty" yaml:"logging,omitempty"`
	// Telemetry contains metrics settings.
	Telemetry TelemetryConfig `json:"telemetry,omitempty" yaml:"telemetry,omitempty"`
}

// Backend names accepted by StorageConfig.
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// StorageConfig selects and configures the persistent substrate.
type StorageConfig struct {
	// Backend is the substrate to open (badger, sqlite, memory).
	Backend string `json:"backend" yaml:"backend"`
	// Dir is the data directory for on-disk backends.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
	// InMemory keeps the badger backend entirely in memory.
	InMemory bool `json:"in_memory,omitempty" yaml:"in_memory,omitempty"`
	// SyncWrites trades write throughput for durability.
	SyncWrites bool `json:"sync_writes,omitempty" yaml:"sync_writes,omitempty"`
}

// LifecycleConfig contains open and recovery settings.
type LifecycleConfig struct {
	// OpenTimeout bounds the initial substrate open.
	OpenTimeout Duration `json:"open_timeout,omitempty" yaml:"open_timeout,omitempty"`
	// RecreateDelay is the pause between destroying a broken database
	// and recreating it.
	RecreateDelay Duration `json:"recreate_delay,omitempty" yaml:"recreate_delay,omitempty"`
	// RecreateAttempts is how many times the minimal recreate is tried
	// before the store falls back to memory.
	RecreateAttempts int `json:"recreate_attempts,omitempty" yaml:"recreate_attempts,omitempty"`
}

// ResilienceConfig contains write-path protection settings.
type ResilienceConfig struct {
	// BreakerThreshold is the number of consecutive write failures
	// before the persistent write path trips open.
	BreakerThreshold int `json:"breaker_threshold,omitempty" yaml:"breaker_threshold,omitempty"`
	// BreakerTimeout is how long the write path stays tripped.
	BreakerTimeout Duration `json:"breaker_timeout,omitempty" yaml:"breaker_timeout,omitempty"`
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `json:"level,omitempty" yaml:"level,omitempty"`
	// Format is the output format (json or console).
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// TelemetryConfig contains metrics settings.
type TelemetryConfig struct {
	// Enabled turns OpenTelemetry instruments on.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// MeterName overrides the default meter name.
	MeterName string `json:"meter_name,omitempty" yaml:"meter_name,omitempty"`
}

// DefaultStoreConfig returns a configuration with sensible defaults.
func DefaultStoreConfig() *StoreConfig {
	return &StoreConfig{
		Name:    "eventstore",
		Version: "1.0",
		Storage: StorageConfig{
			Backend: BackendBadger,
		},
		Lifecycle: LifecycleConfig{
			OpenTimeout:      Duration(10 * time.Second),
			RecreateDelay:    Duration(time.Second),
			RecreateAttempts: 1,
		},
		Resilience: ResilienceConfig{
			BreakerThreshold: 5,
			BreakerTimeout:   Duration(30 * time.Second),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Duration is a time.Duration that supports JSON/YAML string representation.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	// Handle null
	if string(b) == "null" {
		return nil
	}

	// Remove quotes
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	// Parse duration
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
