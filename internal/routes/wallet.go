package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mada-pay/mada_pay/internal/wallet"
)

// RegisterWalletRoutes wires wallet-related endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Post("/wallets", h.Create)
	r.Get("/wallets/:walletId", h.Get)
	r.Post("/wallets/:walletId/freeze", h.Freeze)
	r.Post("/wallets/:walletId/unfreeze", h.Unfreeze)
	r.Post("/wallets/:walletId/close", h.Close)
	r.Get("/owners/:ownerId/balances", h.Balances)
	r.Get("/owners/:ownerId/transactions", h.Transactions)
	r.Post("/transactions/:transactionId/cancel", h.CancelTransaction)
}
