package retry

import (
	"math"
	"math/rand/v2"
	"time"
)

// BackoffStrategy returns the wait after the given attempt (1-based)
type BackoffStrategy interface {
	Next(attempt int) time.Duration
}

// BackoffOption tunes a strategy
type BackoffOption func(*backoffConfig)

type backoffConfig struct {
	multiplier float64
	maxDelay   time.Duration
	jitter     float64
}

func newBackoffConfig(opts []BackoffOption) backoffConfig {
	c := backoffConfig{multiplier: 2, maxDelay: 5 * time.Second, jitter: 0.2}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithMultiplier sets the growth factor of ExponentialBackoff
func WithMultiplier(m float64) BackoffOption {
	return func(c *backoffConfig) {
		if m > 0 {
			c.multiplier = m
		}
	}
}

// WithMaxDelay caps the wait
func WithMaxDelay(d time.Duration) BackoffOption {
	return func(c *backoffConfig) {
		if d > 0 {
			c.maxDelay = d
		}
	}
}

// WithJitter randomizes the wait by up to ratio in both directions (0 disables)
func WithJitter(ratio float64) BackoffOption {
	return func(c *backoffConfig) {
		if ratio >= 0 && ratio <= 1 {
			c.jitter = ratio
		}
	}
}

type exponentialBackoff struct {
	base time.Duration
	cfg  backoffConfig
}

// ExponentialBackoff waits base * multiplier^(attempt-1)
func ExponentialBackoff(base time.Duration, opts ...BackoffOption) BackoffStrategy {
	return &exponentialBackoff{base: base, cfg: newBackoffConfig(opts)}
}

func (b *exponentialBackoff) Next(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	delay := float64(b.base) * math.Pow(b.cfg.multiplier, float64(attempt-1))
	return b.cfg.finish(delay)
}

type constantBackoff struct {
	delay time.Duration
	cfg   backoffConfig
}

// ConstantBackoff always waits delay
func ConstantBackoff(delay time.Duration, opts ...BackoffOption) BackoffStrategy {
	return &constantBackoff{delay: delay, cfg: newBackoffConfig(opts)}
}

func (b *constantBackoff) Next(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return b.cfg.finish(float64(b.delay))
}

type noBackoff struct{}

// NoBackoff retries immediately
func NoBackoff() BackoffStrategy {
	return noBackoff{}
}

func (noBackoff) Next(int) time.Duration { return 0 }

func (c backoffConfig) finish(delay float64) time.Duration {
	if limit := float64(c.maxDelay); delay > limit {
		delay = limit
	}
	if c.jitter > 0 {
		delay += delay * c.jitter * (2*rand.Float64() - 1)
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}
