// Package health runs named readiness checks against the running adapter
// (currently just backing-store reachability) on an interval, and reports
// their latest outcome.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/precachefs/precachefs/pkg/types"
)

// Checker implements types.HealthChecker: a named set of checks, each run
// on Check and polled on an interval by Run.
type Checker struct {
	mu     sync.RWMutex
	checks map[string]func(context.Context) error
	status map[string]types.HealthStatus
}

// New returns an empty Checker; use RegisterCheck to add checks.
func New() *Checker {
	return &Checker{
		checks: make(map[string]func(context.Context) error),
		status: make(map[string]types.HealthStatus),
	}
}

// RegisterCheck adds a named check. Re-registering a name replaces it.
func (c *Checker) RegisterCheck(name string, check func(context.Context) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Check runs every registered check once, records each result, and
// returns the aggregate: healthy only if every check passed.
func (c *Checker) Check(ctx context.Context) types.HealthStatus {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	c.mu.RUnlock()

	overall := types.HealthStatus{Status: "healthy", LastCheck: time.Now(), Details: map[string]string{}}
	for _, name := range names {
		start := time.Now()
		err := c.runOne(name)
		result := types.HealthStatus{LastCheck: start, Response: time.Since(start)}
		if err != nil {
			result.Status = "unhealthy"
			result.Message = err.Error()
			overall.Status = "unhealthy"
			overall.ErrorCount++
			overall.Details[name] = err.Error()
		} else {
			result.Status = "healthy"
		}

		c.mu.Lock()
		prev := c.status[name]
		if err != nil {
			result.ErrorCount = prev.ErrorCount + 1
		}
		c.status[name] = result
		c.mu.Unlock()
	}
	return overall
}

func (c *Checker) runOne(name string) error {
	c.mu.RLock()
	check := c.checks[name]
	c.mu.RUnlock()
	if check == nil {
		return nil
	}
	return check(context.Background())
}

// GetStatus returns the most recent result of every registered check.
func (c *Checker) GetStatus() map[string]types.HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]types.HealthStatus, len(c.status))
	for name, status := range c.status {
		out[name] = status
	}
	return out
}

// Run calls Check every interval until ctx is done. Intended to be
// started in its own goroutine by the adapter.
func (c *Checker) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}
