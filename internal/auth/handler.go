package auth

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/tulip-app/tulip/internal/account"
	"github.com/tulip-app/tulip/internal/notification"
	"github.com/tulip-app/tulip/internal/quota"
	"github.com/tulip-app/tulip/internal/tier"
)

// Handler exposes signup/login/profile/upgrade endpoints.
type Handler struct {
	accounts *account.Service
	tokens   *Service
	tracker  *quota.Tracker
	notifier notification.Notifier
}

// NewHandler builds the auth HTTP handler.
func NewHandler(accounts *account.Service, tokens *Service, tracker *quota.Tracker, notifier notification.Notifier) *Handler {
	return &Handler{accounts: accounts, tokens: tokens, tracker: tracker, notifier: notifier}
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userPayload struct {
	ID             string         `json:"id"`
	Email          string         `json:"email"`
	Name           string         `json:"name"`
	Tier           string         `json:"tier"`
	ScansRemaining tier.Remaining `json:"scans_remaining"`
}

type sessionResponse struct {
	Token Token       `json:"token"`
	User  userPayload `json:"user"`
}

func (h *Handler) userPayload(acc account.Account) userPayload {
	return userPayload{
		ID:             acc.ID,
		Email:          acc.Email,
		Name:           acc.Name,
		Tier:           string(acc.Tier),
		ScansRemaining: h.tracker.Remaining(acc),
	}
}

// Signup registers a free-tier account and opens a session.
func (h *Handler) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	acc, err := h.accounts.Register(c.UserContext(), account.Credentials{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		if errors.Is(err, account.ErrEmailTaken) {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	token, err := h.tokens.Issue(acc)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "internal error")
	}

	return c.Status(http.StatusCreated).JSON(sessionResponse{Token: token, User: h.userPayload(acc)})
}

// Login verifies credentials and opens a session. The monthly quota window
// is checked and reset here, at session start; individual lookups never
// re-examine the period boundary.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	acc, err := h.accounts.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, account.ErrInvalidCredentials) {
			return fiber.NewError(http.StatusUnauthorized, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, "internal error")
	}

	acc, err = h.tracker.ResetIfNewPeriod(c.UserContext(), acc)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "internal error")
	}

	token, err := h.tokens.Issue(acc)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "internal error")
	}

	return c.Status(http.StatusOK).JSON(sessionResponse{Token: token, User: h.userPayload(acc)})
}

// Me returns the authenticated account's profile.
func (h *Handler) Me(c *fiber.Ctx) error {
	acc, ok := AccountFromCtx(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "not authenticated")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"user": h.userPayload(acc)})
}

type upgradeRequest struct {
	Tier string `json:"tier"`
}

// Upgrade moves the account to a paid tier.
func (h *Handler) Upgrade(c *fiber.Ctx) error {
	acc, ok := AccountFromCtx(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "not authenticated")
	}

	var req upgradeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	target, err := tier.Parse(req.Tier)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid tier")
	}

	upgraded, err := h.accounts.Upgrade(c.UserContext(), acc.ID, target)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	if h.notifier != nil {
		_ = h.notifier.Send(c.UserContext(), notification.Message{
			Kind:        notification.KindTierUpgraded,
			Destination: upgraded.Email,
			Body:        fmt.Sprintf("Your plan is now %s", upgraded.Tier),
		})
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{"user": h.userPayload(upgraded)})
}

// AccountFromCtx fetches the authenticated account stored by the JWT middleware.
func AccountFromCtx(c *fiber.Ctx) (account.Account, bool) {
	acc, ok := c.Locals("account").(account.Account)
	return acc, ok
}
