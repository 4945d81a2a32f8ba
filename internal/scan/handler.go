package scan

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/tulip-app/tulip/internal/account"
	"github.com/tulip-app/tulip/internal/auth"
	"github.com/tulip-app/tulip/internal/product"
)

// Handler exposes barcode resolution and catalog search over HTTP.
type Handler struct {
	svc *Service
}

// NewHandler builds the scan HTTP handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Resolve handles GET /products/scan/:barcode.
func (h *Handler) Resolve(c *fiber.Ctx) error {
	acc, ok := auth.AccountFromCtx(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "not authenticated")
	}

	barcode := c.Params("barcode")
	res, err := h.svc.Resolve(c.UserContext(), acc.ID, barcode)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrQuotaExceeded):
			return c.Status(http.StatusForbidden).JSON(fiber.Map{
				"error":           "monthly scan limit reached, upgrade your plan to continue scanning",
				"scans_remaining": 0,
			})
		case errors.Is(err, product.ErrNotFound):
			return fiber.NewError(http.StatusNotFound, "product not found")
		case errors.Is(err, account.ErrNotFound):
			return fiber.NewError(http.StatusUnauthorized, "account not found")
		default:
			return fiber.NewError(http.StatusInternalServerError, "internal error")
		}
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"product":         res.Product,
		"scans_remaining": res.ScansRemaining,
	})
}

// Search handles GET /products/search?q=.
func (h *Handler) Search(c *fiber.Ctx) error {
	query := c.Query("q")
	results, err := h.svc.Search(c.UserContext(), query)
	if err != nil {
		if errors.Is(err, product.ErrEmptyQuery) {
			return fiber.NewError(http.StatusBadRequest, "search query is required")
		}
		return fiber.NewError(http.StatusInternalServerError, "internal error")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"products": results})
}
