package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tulip-app/tulip/internal/auth"
)

// RegisterAuthRoutes wires signup, login and account-management endpoints.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, rateLimiter, jwtmw fiber.Handler) {
	group := r.Group("/auth")
	group.Post("/signup", h.Signup)
	if rateLimiter != nil {
		group.Post("/login", rateLimiter, h.Login)
	} else {
		group.Post("/login", h.Login)
	}
	group.Get("/me", jwtmw, h.Me)
	group.Put("/upgrade", jwtmw, h.Upgrade)
}
