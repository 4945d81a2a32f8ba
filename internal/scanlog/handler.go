package scanlog

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/tulip-app/tulip/internal/auth"
)

// Handler exposes client scan reports and the per-account history.
type Handler struct {
	svc *Service
}

// NewHandler builds the scan-report HTTP handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type reportRequest struct {
	Barcode     string        `json:"barcode"`
	ProductName string        `json:"product_name"`
	Prices      []PriceReport `json:"prices"`
}

// Report handles POST /scans. Clients submit a scan event with optional
// observed prices after resolving a barcode on-device.
func (h *Handler) Report(c *fiber.Ctx) error {
	acc, ok := auth.AccountFromCtx(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "not authenticated")
	}

	var req reportRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Barcode == "" {
		return fiber.NewError(http.StatusBadRequest, "barcode is required")
	}

	entry, err := h.svc.Report(c.UserContext(), ReportInput{
		AccountID:   acc.ID,
		Barcode:     req.Barcode,
		ProductName: req.ProductName,
		Prices:      req.Prices,
	})
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "internal error")
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"scan": entry})
}

// History handles GET /scans/history, newest first.
func (h *Handler) History(c *fiber.Ctx) error {
	acc, ok := auth.AccountFromCtx(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "not authenticated")
	}

	entries, err := h.svc.History(c.UserContext(), acc.ID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "internal error")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"scans": entries})
}
