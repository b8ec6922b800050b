package config

import (
	"encoding/json"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestDuration_JSON_Roundtrip(t *testing.T) {
	tests := []struct {
		name     string
		duration Duration
		wantJSON string
	}{
		{
			name:     "zero value",
			duration: Duration(0),
			wantJSON: `"0s"`,
		},
		{
			name:     "10 seconds",
			duration: Duration(10 * time.Second),
			wantJSON: `"10s"`,
		},
		{
			name:     "1 minute 30 seconds",
			duration: Duration(90 * time.Second),
			wantJSON: `"1m30s"`,
		},
		{
			name:     "milliseconds",
			duration: Duration(500 * time.Millisecond),
			wantJSON: `"500ms"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotJSON, err := json.Marshal(tt.duration)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(gotJSON) != tt.wantJSON {
				t.Errorf("Marshal() = %s, want %s", string(gotJSON), tt.wantJSON)
			}

			var got Duration
			if err := json.Unmarshal(gotJSON, &got); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if got != tt.duration {
				t.Errorf("Roundtrip failed: got %v, want %v", got, tt.duration)
			}
		})
	}
}

func TestDuration_JSON_UnmarshalNull(t *testing.T) {
	d := Duration(5 * time.Second)
	if err := json.Unmarshal([]byte("null"), &d); err != nil {
		t.Fatalf("Unmarshal(null) error = %v", err)
	}
	if d != Duration(5*time.Second) {
		t.Errorf("Unmarshal(null) changed value to %v", d)
	}
}

func TestDuration_JSON_UnmarshalInvalid(t *testing.T) {
	var d Duration
	if err := json.Unmarshal([]byte(`"not a duration"`), &d); err == nil {
		t.Error("Unmarshal() expected error for invalid duration")
	}
}

func TestDuration_YAML_Roundtrip(t *testing.T) {
	orig := Duration(90 * time.Second)

	data, err := yaml.Marshal(orig)
	if err != nil {
		t.Fatalf("yaml.Marshal() error = %v", err)
	}

	var got Duration
	if err := yaml.Unmarshal(data, &got); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}
	if got != orig {
		t.Errorf("Roundtrip failed: got %v, want %v", got, orig)
	}
}

func TestDuration_Duration(t *testing.T) {
	d := Duration(42 * time.Second)
	if d.Duration() != 42*time.Second {
		t.Errorf("Duration() = %v, want %v", d.Duration(), 42*time.Second)
	}
}

func TestDefaultStoreConfig(t *testing.T) {
	cfg := DefaultStoreConfig()

	if cfg.Name == "" {
		t.Error("default config should have a name")
	}
	if cfg.Version == "" {
		t.Error("default config should have a version")
	}
	if cfg.Storage.Backend != BackendBadger {
		t.Errorf("default backend = %q, want %q", cfg.Storage.Backend, BackendBadger)
	}
	if cfg.Lifecycle.OpenTimeout.Duration() != 10*time.Second {
		t.Errorf("default open timeout = %v, want 10s", cfg.Lifecycle.OpenTimeout.Duration())
	}
	if cfg.Lifecycle.RecreateDelay.Duration() != time.Second {
		t.Errorf("default recreate delay = %v, want 1s", cfg.Lifecycle.RecreateDelay.Duration())
	}

	// The defaults must validate clean.
	if errs := NewValidator().Validate(cfg); errs.HasErrors() {
		t.Errorf("default config fails validation: %v", errs)
	}
}

func TestStoreConfig_YAML_Unmarshal(t *testing.T) {
	input := `
name: client-store
version: "1.0"
storage:
  backend: sqlite
  dir: /var/lib/plume
lifecycle:
  open_timeout: 10s
  recreate_delay: 1s
resilience:
  breaker_threshold: 3
  breaker_timeout: 15s
logging:
  level: debug
  format: json
telemetry:
  enabled: true
`

	var cfg StoreConfig
	if err := yaml.Unmarshal([]byte(input), &cfg); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}

	if cfg.Name != "client-store" {
		t.Errorf("Name = %q, want %q", cfg.Name, "client-store")
	}
	if cfg.Storage.Backend != BackendSQLite {
		t.Errorf("Backend = %q, want %q", cfg.Storage.Backend, BackendSQLite)
	}
	if cfg.Storage.Dir != "/var/lib/plume" {
		t.Errorf("Dir = %q, want %q", cfg.Storage.Dir, "/var/lib/plume")
	}
	if cfg.Lifecycle.OpenTimeout.Duration() != 10*time.Second {
		t.Errorf("OpenTimeout = %v, want 10s", cfg.Lifecycle.OpenTimeout.Duration())
	}
	if cfg.Resilience.BreakerThreshold != 3 {
		t.Errorf("BreakerThreshold = %d, want 3", cfg.Resilience.BreakerThreshold)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if !cfg.Telemetry.Enabled {
		t.Error("Telemetry.Enabled = false, want true")
	}
}

func TestStoreConfig_JSON_Unmarshal(t *testing.T) {
	input := `{
		"name": "client-store",
		"version": "1.0",
		"storage": {"backend": "badger", "dir": "/tmp/plume", "sync_writes": true},
		"lifecycle": {"open_timeout": "5s"}
	}`

	var cfg StoreConfig
	if err := json.Unmarshal([]byte(input), &cfg); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}

	if cfg.Storage.Backend != BackendBadger {
		t.Errorf("Backend = %q, want %q", cfg.Storage.Backend, BackendBadger)
	}
	if !cfg.Storage.SyncWrites {
		t.Error("SyncWrites = false, want true")
	}
	if cfg.Lifecycle.OpenTimeout.Duration() != 5*time.Second {
		t.Errorf("OpenTimeout = %v, want 5s", cfg.Lifecycle.OpenTimeout.Duration())
	}
}
