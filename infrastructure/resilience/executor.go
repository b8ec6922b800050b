// Package resilience provides resilient execution patterns for the storage
// substrate using fortify.
package resilience

import (
	"context"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"
)

// Executor guards the persistent write path with a circuit breaker. When the
// substrate keeps failing the circuit opens and writes fail fast, letting the
// caller route them to the memory fallback instead of hammering a broken
// database.
type Executor struct {
	breaker circuitbreaker.CircuitBreaker[struct{}]
}

// ExecutorConfig configures the resilient executor.
type ExecutorConfig struct {
	// BreakerThreshold is the number of consecutive failures before the
	// circuit opens.
	BreakerThreshold int

	// BreakerTimeout is how long the circuit stays open before a half-open
	// probe is allowed through.
	BreakerTimeout time.Duration

	// MaxRequests limits probe requests while the circuit is half-open.
	MaxRequests int
}

// DefaultExecutorConfig returns a configuration with sensible defaults.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		BreakerThreshold: 5,
		BreakerTimeout:   30 * time.Second,
		MaxRequests:      1,
	}
}

// NewExecutor creates a new resilient executor.
func NewExecutor(config ExecutorConfig) *Executor {
	// Ensure positive values for uint32 conversion (G115 fix)
	threshold := config.BreakerThreshold
	if threshold <= 0 {
		threshold = 5 // default
	}
	maxRequests := config.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 1
	}

	return &Executor{
		breaker: circuitbreaker.New[struct{}](circuitbreaker.Config{
			MaxRequests: uint32(maxRequests), // #nosec G115 -- bounds checked above
			Interval:    config.BreakerTimeout,
			Timeout:     config.BreakerTimeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(threshold) // #nosec G115 -- bounds checked above
			},
		}),
	}
}

// NewDefaultExecutor creates an executor with default configuration.
func NewDefaultExecutor() *Executor {
	return NewExecutor(DefaultExecutorConfig())
}

// Do runs a substrate write through the circuit breaker. While the circuit
// is open the write fails immediately without touching the substrate.
func (e *Executor) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := e.breaker.Execute(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// State returns the current circuit breaker state (closed, half-open, open).
func (e *Executor) State() string {
	return e.breaker.State().String()
}

// Reopen retries fn with a fixed delay between attempts. The lifecycle
// controller uses it for the destroy-and-recreate recovery sequence, where
// the filesystem may need a moment to release the destroyed directory.
func Reopen[T any](ctx context.Context, attempts int, delay time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if attempts <= 0 {
		attempts = 1
	}

	retrier := retry.New[T](retry.Config{
		MaxAttempts:   attempts,
		InitialDelay:  delay,
		BackoffPolicy: retry.BackoffExponential,
		Multiplier:    1.0, // fixed delay between attempts
	})
	return retrier.Do(ctx, fn)
}
