package retry

import (
	"context"
	"errors"
	"net"
	"syscall"
)

// Condition decides whether a failed attempt is retried
type Condition interface {
	ShouldRetry(err error, attempt int) bool
}

// ConditionFunc adapts a function to Condition
type ConditionFunc func(err error, attempt int) bool

func (f ConditionFunc) ShouldRetry(err error, attempt int) bool {
	return f(err, attempt)
}

// Always retries every error
func Always() Condition {
	return ConditionFunc(func(err error, _ int) bool { return err != nil })
}

// Never disables retries
func Never() Condition {
	return ConditionFunc(func(error, int) bool { return false })
}

// OnErrors retries errors matching any target (errors.Is)
func OnErrors(targets ...error) Condition {
	return ConditionFunc(func(err error, _ int) bool {
		for _, target := range targets {
			if errors.Is(err, target) {
				return true
			}
		}
		return false
	})
}

// Not inverts cond
func Not(cond Condition) Condition {
	return ConditionFunc(func(err error, attempt int) bool {
		return err != nil && !cond.ShouldRetry(err, attempt)
	})
}

// And retries only if every condition agrees
func And(conds ...Condition) Condition {
	return ConditionFunc(func(err error, attempt int) bool {
		for _, c := range conds {
			if !c.ShouldRetry(err, attempt) {
				return false
			}
		}
		return err != nil
	})
}

// OnTransient retries network failures: timeouts, refused or reset
// connections and broken pipes. Context cancellation is never retried.
func OnTransient() Condition {
	return ConditionFunc(func(err error, _ int) bool {
		if err == nil || errors.Is(err, context.Canceled) {
			return false
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return true
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return true
		}
		return errors.Is(err, syscall.ECONNREFUSED) ||
			errors.Is(err, syscall.ECONNRESET) ||
			errors.Is(err, syscall.ETIMEDOUT) ||
			errors.Is(err, syscall.EPIPE)
	})
}
