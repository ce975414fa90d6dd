package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mada-pay/mada_pay/internal/payments"
)

// RegisterPaymentRoutes wires payment endpoints.
func RegisterPaymentRoutes(r fiber.Router, h *payments.Handler, idem fiber.Handler) {
	r.Post("/payments/transfer", idem, h.Transfer)
}
