package config

import (
	"encoding/json"
)

// JSONSchema represents a JSON Schema document.
type JSONSchema struct {
	Schema               string                 `json:"$schema,omitempty"`
	ID                   string                 `json:"$id,omitempty"`
	Title                string                 `json:"title,omitempty"`
	Description          string                 `json:"description,omitempty"`
	Type                 string                 `json:"type,omitempty"`
	Properties           map[string]*JSONSchema `json:"properties,omitempty"`
	Required             []string               `json:"required,omitempty"`
	Items                *JSONSchema            `json:"items,omitempty"`
	AdditionalProperties *JSONSchema            `json:"additionalProperties,omitempty"`
	Enum                 []string               `json:"enum,omitempty"`
	Default              any                    `json:"default,omitempty"`
	Minimum              *float64               `json:"minimum,omitempty"`
	Maximum              *float64               `json:"maximum,omitempty"`
	MinLength            *int                   `json:"minLength,omitempty"`
	MaxLength            *int                   `json:"maxLength,omitempty"`
	Pattern              string                 `json:"pattern,omitempty"`
	Format               string                 `json:"format,omitempty"`
	Ref                  string                 `json:"$ref,omitempty"`
	Definitions          map[string]*JSONSchema `json:"$defs,omitempty"`
	OneOf                []*JSONSchema          `json:"oneOf,omitempty"`
	AnyOf                []*JSONSchema          `json:"anyOf,omitempty"`
	AllOf                []*JSONSchema          `json:"allOf,omitempty"`
}

// GenerateSchema generates a JSON Schema for the StoreConfig.
func GenerateSchema() *JSONSchema {
	return &JSONSchema{
		Schema:      "https://json-schema.org/draft/2020-12/schema",
		ID:          "https://github.com/plumenote/eventstore/store-config.schema.json",
		Title:       "Event Store Configuration",
		Description: "Configuration schema for the local event store",
		Type:        "object",
		Required:    []string{"name", "version", "storage"},
		Properties: map[string]*JSONSchema{
			"name": {
				Type:        "string",
				Description: "A human-readable name for this configuration",
			},
			"version": {
				Type:        "string",
				Description: "The configuration schema version",
				Default:     "1.0",
			},
			"description": {
				Type:        "string",
				Description: "Describes the store's purpose",
			},
			"storage":    generateStorageSchema(),
			"lifecycle":  generateLifecycleSchema(),
			"resilience": generateResilienceSchema(),
			"logging":    generateLoggingSchema(),
			"telemetry":  generateTelemetrySchema(),
		},
	}
}

func generateStorageSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Persistent substrate selection",
		Required:    []string{"backend"},
		Properties: map[string]*JSONSchema{
			"backend": {
				Type:        "string",
				Description: "Substrate to open",
				Enum:        []string{"badger", "sqlite", "memory"},
				Default:     "badger",
			},
			"dir": {
				Type:        "string",
				Description: "Data directory for on-disk backends",
			},
			"in_memory": {
				Type:        "boolean",
				Description: "Keep the badger backend entirely in memory",
				Default:     false,
			},
			"sync_writes": {
				Type:        "boolean",
				Description: "Trade write throughput for durability",
				Default:     false,
			},
		},
	}
}

func generateLifecycleSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Open and recovery settings",
		Properties: map[string]*JSONSchema{
			"open_timeout": {
				Type:        "string",
				Description: "Bound on the initial substrate open",
				Format:      "duration",
				Default:     "10s",
			},
			"recreate_delay": {
				Type:        "string",
				Description: "Pause between destroying a broken database and recreating it",
				Format:      "duration",
				Default:     "1s",
			},
			"recreate_attempts": {
				Type:        "integer",
				Description: "Minimal recreate attempts before falling back to memory",
				Minimum:     floatPtr(0),
				Default:     1,
			},
		},
	}
}

func generateResilienceSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Write-path protection settings",
		Properties: map[string]*JSONSchema{
			"breaker_threshold": {
				Type:        "integer",
				Description: "Consecutive write failures before the persistent write path trips open",
				Minimum:     floatPtr(0),
				Default:     5,
			},
			"breaker_timeout": {
				Type:        "string",
				Description: "How long the write path stays tripped",
				Format:      "duration",
				Default:     "30s",
			},
		},
	}
}

func generateLoggingSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Logger settings",
		Properties: map[string]*JSONSchema{
			"level": {
				Type:        "string",
				Description: "Minimum log level",
				Enum:        []string{"trace", "debug", "info", "warn", "error"},
				Default:     "info",
			},
			"format": {
				Type:        "string",
				Description: "Output format",
				Enum:        []string{"json", "console"},
				Default:     "console",
			},
		},
	}
}

func generateTelemetrySchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Metrics settings",
		Properties: map[string]*JSONSchema{
			"enabled": {
				Type:        "boolean",
				Description: "Enable OpenTelemetry instruments",
				Default:     false,
			},
			"meter_name": {
				Type:        "string",
				Description: "Override the default meter name",
			},
		},
	}
}

func floatPtr(f float64) *float64 {
	return &f
}

// SchemaJSON returns the JSON Schema as a JSON string.
func SchemaJSON() (string, error) {
	schema := GenerateSchema()
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
