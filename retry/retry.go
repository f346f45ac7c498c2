// Package retry re-runs an operation with backoff until it succeeds, the
// condition rejects the error, attempts run out or the context ends.
package retry

import (
	"context"
	"time"
)

// Do runs operation until it succeeds
func Do(ctx context.Context, operation func(ctx context.Context) error, opts ...Option) error {
	_, err := DoWithData(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, operation(ctx)
	}, opts...)
	return err
}

// DoWithData runs operation until it succeeds and returns its result.
// Failures are collected in a *MultiError.
func DoWithData[T any](ctx context.Context, operation func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	var (
		zero T
		errs []error
	)
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		opCtx, cancel := ctx, context.CancelFunc(func() {})
		if cfg.timeout > 0 {
			opCtx, cancel = context.WithTimeout(ctx, cfg.timeout)
		}
		result, err := operation(opCtx)
		cancel()
		if err == nil {
			return result, nil
		}
		errs = append(errs, err)

		if attempt >= cfg.maxAttempts || !cfg.condition.ShouldRetry(err, attempt) {
			return zero, &MultiError{Errors: errs, Attempts: attempt}
		}

		wait := cfg.backoff.Next(attempt)
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < wait {
			return zero, &MultiError{Errors: append(errs, context.DeadlineExceeded), Attempts: attempt}
		}
		if cfg.onRetry != nil {
			cfg.onRetry(attempt, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		}
	}
}
