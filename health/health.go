// Package health aggregates readiness checks: the settings manager and the
// remote stores settings are fetched from.
package health

import (
	"context"
	"time"
)

// Status of a check or of the whole report
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// Checker is implemented by anything that can report readiness
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckResult one checker's outcome
type CheckResult struct {
	Name     string        `json:"name"`
	Status   Status        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Response the aggregated report
type Response struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Duration  time.Duration          `json:"duration"`
	Checks    map[string]CheckResult `json:"checks"`
}

// IsHealthy reports whether every check passed
func (r *Response) IsHealthy() bool {
	return r.Status == StatusHealthy
}
