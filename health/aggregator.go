package health

import (
	"context"
	"sync"
	"time"
)

// Aggregator runs registered checkers concurrently under one timeout
type Aggregator struct {
	mu       sync.RWMutex
	checkers []Checker
	timeout  time.Duration
}

// NewAggregator creates an aggregator; timeout defaults to 5s
func NewAggregator(timeout time.Duration) *Aggregator {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Aggregator{timeout: timeout}
}

// Register adds checkers; a later checker with the same name replaces the
// earlier one in the report
func (a *Aggregator) Register(checkers ...Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.checkers = append(a.checkers, checkers...)
}

// Check runs every checker and summarizes the results
func (a *Aggregator) Check(ctx context.Context) *Response {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	a.mu.RLock()
	checkers := append([]Checker(nil), a.checkers...)
	a.mu.RUnlock()

	results := make([]CheckResult, len(checkers))
	var wg sync.WaitGroup
	for i, c := range checkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = checkOne(ctx, c)
		}()
	}
	wg.Wait()

	resp := &Response{Status: StatusHealthy, Checks: make(map[string]CheckResult, len(results))}
	for _, r := range results {
		resp.Checks[r.Name] = r
		if r.Status != StatusHealthy {
			resp.Status = StatusUnhealthy
		}
	}
	resp.Timestamp = time.Now()
	resp.Duration = time.Since(start)
	return resp
}

func checkOne(ctx context.Context, c Checker) CheckResult {
	start := time.Now()
	result := CheckResult{Name: c.Name(), Status: StatusHealthy}
	if err := c.Check(ctx); err != nil {
		result.Status = StatusUnhealthy
		result.Error = err.Error()
	}
	result.Duration = time.Since(start)
	return result
}
