// Package health serves liveness and readiness for the tagging service
package health

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
)

const checkTimeout = 3 * time.Second

// CheckFunc pings one dependency (database, redis, graph)
type CheckFunc func(ctx context.Context) error

type Checker struct {
	service   string
	startedAt time.Time
	ready     atomic.Bool

	mu     sync.RWMutex
	checks map[string]CheckFunc
}

func NewChecker(service string) *Checker {
	return &Checker{
		service:   service,
		startedAt: time.Now(),
		checks:    make(map[string]CheckFunc),
	}
}

// AddCheck registers or replaces a dependency check reported by /health
func (c *Checker) AddCheck(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// SetReady flips /ready once the reference snapshot is loaded
func (c *Checker) SetReady(ready bool) {
	c.ready.Store(ready)
}

func (c *Checker) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", c.Health)
	e.GET("/ready", c.Ready)
}

type HealthStatus struct {
	Status     string                  `json:"status"`
	Version    string                  `json:"version"`
	Uptime     string                  `json:"uptime"`
	Checks     map[string]*CheckResult `json:"checks"`
	ReportedAt time.Time               `json:"reported_at"`
}

type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Health runs every registered check concurrently, each bounded by the same
// deadline. One failing dependency makes the whole report unhealthy.
func (c *Checker) Health(ctx echo.Context) error {
	c.mu.RLock()
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	reqCtx, cancel := context.WithTimeout(ctx.Request().Context(), checkTimeout)
	defer cancel()

	results := make(map[string]*CheckResult, len(checks))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for name, check := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := run(reqCtx, check)
			mu.Lock()
			results[name] = result
			mu.Unlock()
		}()
	}
	wg.Wait()

	status := &HealthStatus{
		Status:     "healthy",
		Version:    c.service,
		Uptime:     time.Since(c.startedAt).Round(time.Second).String(),
		Checks:     results,
		ReportedAt: time.Now(),
	}
	for _, r := range results {
		if r.Status != "healthy" {
			status.Status = "unhealthy"
			return ctx.JSON(http.StatusServiceUnavailable, status)
		}
	}
	return ctx.JSON(http.StatusOK, status)
}

func run(ctx context.Context, check CheckFunc) *CheckResult {
	started := time.Now()
	if err := check(ctx); err != nil {
		return &CheckResult{Status: "unhealthy", Message: err.Error()}
	}
	return &CheckResult{Status: "healthy", Latency: time.Since(started).String()}
}

// Ready reports whether startup finished
func (c *Checker) Ready(ctx echo.Context) error {
	if c.ready.Load() {
		return ctx.JSON(http.StatusOK, map[string]string{"status": "ready"})
	}
	return ctx.JSON(http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
}
