package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mada-pay/mada_pay/internal/mobilemoney"
)

// RegisterMobileMoneyRoutes wires cash-in and cash-out endpoints.
func RegisterMobileMoneyRoutes(r fiber.Router, h *mobilemoney.Handler, idem, limiter fiber.Handler) {
	r.Post("/wallets/:walletId/withdraw", limiter, idem, h.Withdraw)
	r.Post("/wallets/:walletId/deposit", idem, h.Deposit)
}
