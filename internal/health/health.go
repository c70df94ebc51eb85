// Package health provides liveness and readiness checks for imectx.
//
// Features:
//   - Liveness probe (is the process running)
//   - Readiness probe (is the input method usable and being sampled)
//   - Per-check timeouts and panic recovery
//   - HTTP endpoints returning JSON
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"imectx/internal/ime"
)

// Status represents the health status of a check.
type Status string

const (
	// StatusHealthy indicates the check passed.
	StatusHealthy Status = "healthy"
	// StatusDegraded indicates a non-critical check failed.
	StatusDegraded Status = "degraded"
	// StatusUnhealthy indicates a critical check failed.
	StatusUnhealthy Status = "unhealthy"
)

// Result is the outcome of one check.
type Result struct {
	Status   Status        `json:"status"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Check performs one health check.
type Check func(ctx context.Context) Result

type entry struct {
	name     string
	critical bool
	check    Check
}

// Checker runs registered checks.
type Checker struct {
	mu        sync.RWMutex
	checks    []entry
	timeout   time.Duration
	startTime time.Time
	now       func() time.Time
}

// NewChecker creates a checker whose checks time out after timeout.
func NewChecker(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Checker{timeout: timeout, startTime: time.Now(), now: time.Now}
}

// Register adds a check. A failing critical check makes the whole status
// unhealthy; other failures only degrade it.
func (c *Checker) Register(name string, critical bool, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks = append(c.checks, entry{name: name, critical: critical, check: check})
}

// Run executes every check and aggregates the results.
func (c *Checker) Run(ctx context.Context) (Status, map[string]Result) {
	c.mu.RLock()
	checks := append([]entry(nil), c.checks...)
	c.mu.RUnlock()

	overall := StatusHealthy
	results := make(map[string]Result, len(checks))
	for _, e := range checks {
		r := c.run(ctx, e.check)
		results[e.name] = r

		if r.Status == StatusHealthy {
			continue
		}
		if e.critical {
			overall = StatusUnhealthy
		} else if overall == StatusHealthy {
			overall = StatusDegraded
		}
	}
	return overall, results
}

func (c *Checker) run(ctx context.Context, check Check) (result Result) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := c.now()
	done := make(chan Result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- Result{Status: StatusUnhealthy, Message: fmt.Sprintf("check panicked: %v", r)}
			}
		}()
		done <- check(ctx)
	}()

	select {
	case result = <-done:
	case <-ctx.Done():
		result = Result{Status: StatusUnhealthy, Message: "check timed out"}
	}
	result.Duration = c.now().Sub(start)
	return result
}

// Response is the body of the readiness endpoint.
type Response struct {
	Status    Status            `json:"status"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]Result `json:"checks,omitempty"`
	Failing   []string          `json:"failing,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Response runs the checks and builds the endpoint body.
func (c *Checker) Response(ctx context.Context) Response {
	status, results := c.Run(ctx)

	var failing []string
	for name, r := range results {
		if r.Status != StatusHealthy {
			failing = append(failing, name)
		}
	}
	sort.Strings(failing)

	return Response{
		Status:    status,
		Uptime:    c.now().Sub(c.startTime).Truncate(time.Second).String(),
		Checks:    results,
		Failing:   failing,
		Timestamp: c.now(),
	}
}

// LivenessHandler reports that the process is running.
func (c *Checker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "alive",
			"timestamp": c.now(),
		})
	})
}

// ReadinessHandler runs the checks. It answers 503 when a critical check
// fails.
func (c *Checker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := c.Response(r.Context())
		code := http.StatusOK
		if resp.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, resp)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// IMECheck fails when the system has no input method support.
func IMECheck(p ime.Platform) Check {
	return func(ctx context.Context) Result {
		if !ime.Available(p) {
			return Result{Status: StatusUnhealthy, Message: ime.ErrUnavailable.Error()}
		}
		return Result{Status: StatusHealthy, Message: ime.Describe(p).Framework}
	}
}

// FreshnessCheck fails when last reports a time older than maxAge, or the
// zero time.
func FreshnessCheck(last func() time.Time, maxAge time.Duration) Check {
	return func(ctx context.Context) Result {
		t := last()
		if t.IsZero() {
			return Result{Status: StatusUnhealthy, Message: "no sample taken yet"}
		}
		if age := time.Since(t); age > maxAge {
			return Result{Status: StatusUnhealthy, Message: fmt.Sprintf("last sample %s ago", age.Truncate(time.Millisecond))}
		}
		return Result{Status: StatusHealthy}
	}
}
