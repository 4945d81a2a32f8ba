package saved

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/tulip-app/tulip/internal/account"
	"github.com/tulip-app/tulip/internal/auth"
)

// Handler exposes the saved-products endpoints.
type Handler struct {
	registry *Registry
}

// NewHandler builds the saved-products HTTP handler.
func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

// List handles GET /products/saved.
func (h *Handler) List(c *fiber.Ctx) error {
	acc, ok := auth.AccountFromCtx(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "not authenticated")
	}

	products, err := h.registry.List(c.UserContext(), acc)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "internal error")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"products": products})
}

// Save handles POST /products/saved/:productId.
func (h *Handler) Save(c *fiber.Ctx) error {
	acc, ok := auth.AccountFromCtx(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "not authenticated")
	}

	if err := h.registry.Save(c.UserContext(), acc, c.Params("productId")); err != nil {
		switch {
		case errors.Is(err, account.ErrAlreadySaved):
			return fiber.NewError(http.StatusBadRequest, "product already saved")
		case errors.Is(err, account.ErrCapacityExceeded):
			return fiber.NewError(http.StatusForbidden, "saved products limit reached, upgrade your plan to save more")
		case errors.Is(err, account.ErrNotFound):
			return fiber.NewError(http.StatusUnauthorized, "account not found")
		default:
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"saved": true})
}

// Unsave handles DELETE /products/saved/:productId.
func (h *Handler) Unsave(c *fiber.Ctx) error {
	acc, ok := auth.AccountFromCtx(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "not authenticated")
	}

	if err := h.registry.Unsave(c.UserContext(), acc, c.Params("productId")); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return fiber.NewError(http.StatusUnauthorized, "account not found")
		}
		return fiber.NewError(http.StatusInternalServerError, "internal error")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"saved": false})
}
