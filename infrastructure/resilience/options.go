package resilience

import "time"

// Option configures the executor.
type Option func(*ExecutorConfig)

// WithBreakerThreshold sets the consecutive-failure threshold for the
// circuit breaker.
func WithBreakerThreshold(n int) Option {
	return func(c *ExecutorConfig) {
		c.BreakerThreshold = n
	}
}

// WithBreakerTimeout sets how long the circuit stays open.
func WithBreakerTimeout(d time.Duration) Option {
	return func(c *ExecutorConfig) {
		c.BreakerTimeout = d
	}
}

// WithMaxRequests sets the half-open probe request limit.
func WithMaxRequests(n int) Option {
	return func(c *ExecutorConfig) {
		c.MaxRequests = n
	}
}

// NewExecutorWithOptions creates an executor with the given options.
func NewExecutorWithOptions(opts ...Option) *Executor {
	config := DefaultExecutorConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return NewExecutor(config)
}
