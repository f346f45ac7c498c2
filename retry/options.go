package retry

import "time"

type config struct {
	maxAttempts int
	backoff     BackoffStrategy
	condition   Condition
	onRetry     func(attempt int, err error, wait time.Duration)
	timeout     time.Duration
}

func defaultConfig() *config {
	return &config{
		maxAttempts: 3,
		backoff:     ExponentialBackoff(100 * time.Millisecond),
		condition:   Always(),
	}
}

// Option configures Do
type Option func(*config)

// MaxAttempts counts the first call; values below 1 are ignored
func MaxAttempts(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithBackoff sets the delay between attempts
func WithBackoff(b BackoffStrategy) Option {
	return func(c *config) {
		if b != nil {
			c.backoff = b
		}
	}
}

// If sets which errors are retried
func If(cond Condition) Option {
	return func(c *config) {
		if cond != nil {
			c.condition = cond
		}
	}
}

// OnRetry is called before waiting for the next attempt
func OnRetry(f func(attempt int, err error, wait time.Duration)) Option {
	return func(c *config) {
		c.onRetry = f
	}
}

// AttemptTimeout bounds a single attempt
func AttemptTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}
