package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tulip-app/tulip/internal/saved"
	"github.com/tulip-app/tulip/internal/scan"
)

// RegisterProductRoutes wires barcode resolution, search and saved products.
func RegisterProductRoutes(r fiber.Router, scans *scan.Handler, bookmarks *saved.Handler) {
	group := r.Group("/products")
	group.Get("/scan/:barcode", scans.Resolve)
	group.Get("/search", scans.Search)
	group.Get("/saved", bookmarks.List)
	group.Post("/saved/:productId", bookmarks.Save)
	group.Delete("/saved/:productId", bookmarks.Unsave)
}
