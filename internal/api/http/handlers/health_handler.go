package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticketing-system/internal/observability"
)

const readinessTimeout = 2 * time.Second

// Backend is a storage dependency the readiness probe can check. Both
// persistence.Postgres and persistence.Redis satisfy it.
type Backend interface {
	Configured() bool
	Ping(ctx context.Context) error
}

// HealthHandler serves the probes and the counters snapshot.
type HealthHandler struct {
	serviceName string
	version     string
	started     time.Time
	backends    map[string]Backend
	metrics     *observability.Metrics
}

// NewHealthHandler returns a new handler instance. backends maps a display
// name such as "postgres" to its probe.
func NewHealthHandler(serviceName, version string, backends map[string]Backend, metrics *observability.Metrics) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		started:     time.Now(),
		backends:    backends,
		metrics:     metrics,
	}
}

// Live never touches a backend.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":         "alive",
		"service":        h.serviceName,
		"version":        h.version,
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
	})
}

// Ready pings every configured backend. A backend running in memory is
// reported as "in-memory" and never fails the probe.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	statuses := make(fiber.Map, len(h.backends))
	ready := true
	for name, backend := range h.backends {
		status, ok := checkBackend(ctx, backend)
		statuses[name] = status
		ready = ready && ok
	}

	if !ready {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "DEPENDENCY_UNAVAILABLE",
				"message": "one or more dependencies unavailable",
				"details": statuses,
			},
		})
	}
	return c.JSON(fiber.Map{"status": "ready", "dependencies": statuses})
}

func checkBackend(ctx context.Context, backend Backend) (string, bool) {
	if backend == nil || !backend.Configured() {
		return "in-memory", true
	}
	if err := backend.Ping(ctx); err != nil {
		return err.Error(), false
	}
	return "ok", true
}

// Metrics reports in-process request and event counters.
func (h *HealthHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.metrics.Snapshot()})
}
