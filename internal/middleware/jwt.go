package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/tulip-app/tulip/internal/account"
	"github.com/tulip-app/tulip/internal/auth"
	"github.com/tulip-app/tulip/internal/config"
)

// JWTAuth validates bearer tokens and loads the authenticated account into
// the request context. Downstream handlers read it via auth.AccountFromCtx.
func JWTAuth(cfg config.Config, repo account.Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])
		claims, err := auth.ParseAndVerifyHS256(tokenStr, []byte(cfg.JWTSecret))
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}
		sub, _ := claims["sub"].(string)

		acc, err := repo.FindByID(c.UserContext(), sub)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "account not found")
		}

		c.Locals("user_id", acc.ID)
		c.Locals("account", acc)
		return c.Next()
	}
}
