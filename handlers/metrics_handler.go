package handlers

import (
	"github.com/driveline-au/quote-backend/database"
	"github.com/driveline-au/quote-backend/services"
	"github.com/gofiber/fiber/v2"
)

type MetricsHandler struct {
	Client *services.UnderwritingClient
}

func NewMetricsHandler(client *services.UnderwritingClient) *MetricsHandler {
	return &MetricsHandler{Client: client}
}

// GetMetrics exposes per-endpoint remote call metrics plus database pool
// statistics for operational visibility.
func (h *MetricsHandler) GetMetrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"vehicle_lookup":     h.Client.LookupMetrics.Snapshot(),
			"address_validation": h.Client.AddressMetrics.Snapshot(),
			"quote_creation":     h.Client.QuoteMetrics.Snapshot(),
			"database":           database.GetConnectionStats(),
		},
	})
}
