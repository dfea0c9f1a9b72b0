package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// TableResolver is the slice of the locator the readiness probe exercises.
type TableResolver interface {
	Resolve(ctx context.Context, logicalName string) (string, error)
}

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	resolver    TableResolver
	table       string
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(serviceName, version string, resolver TableResolver, statusTable string) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, resolver: resolver, table: statusTable}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports service readiness by resolving the status table.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := h.resolver.Resolve(ctx, h.table); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "DEPENDENCY_UNAVAILABLE",
				"message": "status table could not be resolved",
				"details": fiber.Map{"statusTable": err.Error()},
			},
		})
	}

	return c.JSON(fiber.Map{
		"status":       "ready",
		"dependencies": fiber.Map{"statusTable": "ok"},
	})
}
