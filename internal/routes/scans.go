package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tulip-app/tulip/internal/scanlog"
)

// RegisterScanRoutes wires client scan reports and the per-account history.
// The report endpoint is idempotent when a Redis-backed middleware is given.
func RegisterScanRoutes(r fiber.Router, h *scanlog.Handler, idem fiber.Handler) {
	group := r.Group("/scans")
	if idem != nil {
		group.Post("/", idem, h.Report)
	} else {
		group.Post("/", h.Report)
	}
	group.Get("/history", h.History)
}
