package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	// Path is the JSON path to the invalid field.
	Path string
	// Message describes the validation error.
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d validation errors:\n  - %s", len(e), strings.Join(msgs, "\n  - "))
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates store configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates the configuration and returns any errors.
func (v *Validator) Validate(config *StoreConfig) ValidationErrors {
	v.errors = nil

	v.validateRequired(config)
	v.validateStorage(config)
	v.validateLifecycle(config)
	v.validateResilience(config)
	v.validateLogging(config)

	return v.errors
}

func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}

func (v *Validator) validateRequired(config *StoreConfig) {
	if config.Name == "" {
		v.addError("name", "name is required")
	}
	if config.Version == "" {
		v.addError("version", "version is required")
	}
}

func (v *Validator) validateStorage(config *StoreConfig) {
	switch config.Storage.Backend {
	case "":
		v.addError("storage.backend", "backend is required")
	case BackendBadger:
		if config.Storage.Dir == "" && !config.Storage.InMemory {
			v.addError("storage.dir", "dir is required for the badger backend unless in_memory is set")
		}
	case BackendSQLite:
		if config.Storage.Dir == "" {
			v.addError("storage.dir", "dir is required for the sqlite backend")
		}
	case BackendMemory:
		// Nothing to configure.
	default:
		v.addError("storage.backend", fmt.Sprintf("unknown backend: %s", config.Storage.Backend))
	}
}

func (v *Validator) validateLifecycle(config *StoreConfig) {
	if config.Lifecycle.OpenTimeout < 0 {
		v.addError("lifecycle.open_timeout", "open_timeout must be non-negative")
	}
	if config.Lifecycle.RecreateDelay < 0 {
		v.addError("lifecycle.recreate_delay", "recreate_delay must be non-negative")
	}
	if config.Lifecycle.RecreateAttempts < 0 {
		v.addError("lifecycle.recreate_attempts", "recreate_attempts must be non-negative")
	}
}

func (v *Validator) validateResilience(config *StoreConfig) {
	if config.Resilience.BreakerThreshold < 0 {
		v.addError("resilience.breaker_threshold", "breaker_threshold must be non-negative")
	}
	if config.Resilience.BreakerTimeout < 0 {
		v.addError("resilience.breaker_timeout", "breaker_timeout must be non-negative")
	}
}

func (v *Validator) validateLogging(config *StoreConfig) {
	if config.Logging.Level != "" {
		validLevels := map[string]bool{
			"trace": true, "debug": true, "info": true,
			"warn": true, "error": true,
		}
		if !validLevels[config.Logging.Level] {
			v.addError("logging.level", fmt.Sprintf("invalid level: %s", config.Logging.Level))
		}
	}

	if config.Logging.Format != "" {
		if config.Logging.Format != "json" && config.Logging.Format != "console" {
			v.addError("logging.format", fmt.Sprintf("invalid format: %s", config.Logging.Format))
		}
	}
}
