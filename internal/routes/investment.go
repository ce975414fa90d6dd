package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mada-pay/mada_pay/internal/investment"
)

// RegisterInvestmentRoutes wires the asset catalog and position endpoints.
func RegisterInvestmentRoutes(r fiber.Router, h *investment.Handler, idem fiber.Handler) {
	r.Get("/assets", h.Assets)
	r.Post("/investments", idem, h.Invest)
	r.Get("/investments/:investmentId", h.Get)
	r.Post("/investments/:investmentId/liquidate", idem, h.Liquidate)
	r.Get("/owners/:ownerId/investments", h.Portfolio)
	r.Post("/owners/:ownerId/investments/refresh", h.Refresh)
}
