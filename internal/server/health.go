package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type HealthStatus string

const (
	StatusUp       HealthStatus = "up"
	StatusDown     HealthStatus = "down"
	StatusDegraded HealthStatus = "degraded"
)

// Probe reports whether a dependency is reachable.
type Probe func(ctx context.Context) error

type probeEntry struct {
	probe    Probe
	critical bool
}

// ComponentHealth is the outcome of one probe.
type ComponentHealth struct {
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
	Latency string       `json:"latency,omitempty"`
}

// HealthReport aggregates all probes; the overall status is the worst one.
type HealthReport struct {
	Status     HealthStatus               `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	Timestamp  string                     `json:"timestamp"`
}

// HealthChecker runs registered probes concurrently. A failing critical probe
// marks the service down; a failing optional one only degrades it.
type HealthChecker struct {
	mu      sync.RWMutex
	probes  map[string]probeEntry
	timeout time.Duration
	logger  *slog.Logger
}

func NewHealthChecker(timeout time.Duration, logger *slog.Logger) *HealthChecker {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthChecker{
		probes:  make(map[string]probeEntry),
		timeout: timeout,
		logger:  logger.With("component", "health"),
	}
}

// Register adds a named probe.
func (c *HealthChecker) Register(name string, critical bool, p Probe) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probes[name] = probeEntry{probe: p, critical: critical}
}

func (c *HealthChecker) Run(ctx context.Context) HealthReport {
	c.mu.RLock()
	probes := make(map[string]probeEntry, len(c.probes))
	for name, p := range c.probes {
		probes[name] = p
	}
	c.mu.RUnlock()

	report := HealthReport{
		Status:     StatusUp,
		Components: make(map[string]ComponentHealth, len(probes)),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for name, entry := range probes {
		g.Go(func() error {
			start := time.Now()
			comp := ComponentHealth{Status: StatusUp}
			if err := entry.probe(gctx); err != nil {
				comp.Status, comp.Message = StatusDegraded, err.Error()
				if entry.critical {
					comp.Status = StatusDown
				}
				c.logger.Warn("health probe failed", "probe", name, "error", err)
			}
			comp.Latency = time.Since(start).Round(time.Millisecond).String()
			mu.Lock()
			report.Components[name] = comp
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for _, comp := range report.Components {
		switch comp.Status {
		case StatusDown:
			report.Status = StatusDown
			return report
		case StatusDegraded:
			report.Status = StatusDegraded
		}
	}
	return report
}

// LiveHandler answers liveness probes without touching dependencies.
func (c *HealthChecker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
	}
}

// ReadyHandler returns 503 only when a critical probe is down.
func (c *HealthChecker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), c.timeout)
		defer cancel()
		report := c.Run(ctx)
		status := http.StatusOK
		if report.Status == StatusDown {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, report)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
