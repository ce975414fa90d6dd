package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mada-pay/mada_pay/internal/identity"
)

// RegisterIdentityRoutes wires onboarding endpoints.
func RegisterIdentityRoutes(r fiber.Router, h *identity.Handler) {
	r.Post("/identity/register", h.Register)
	r.Get("/users/:userId", h.Get)
}
