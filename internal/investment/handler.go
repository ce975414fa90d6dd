package investment

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/mada-pay/mada_pay/internal/domain"
	"github.com/mada-pay/mada_pay/internal/wallet"
)

// Handler exposes investment HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an investment handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Assets lists the catalog with current quotes.
func (h *Handler) Assets(c *fiber.Ctx) error {
	quotes, err := h.service.Quotes(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]AssetResponse, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, AssetResponse{
			Asset:    string(q.Asset),
			Symbol:   q.Asset.Symbol(),
			Name:     q.Asset.Name(),
			PriceUSD: q.USD,
			Price:    q.Local,
			AsOf:     q.AsOf,
		})
	}
	return c.JSON(fiber.Map{"assets": out})
}

// Invest opens a position funded by a main wallet.
func (h *Handler) Invest(c *fiber.Ctx) error {
	var req InvestRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	asset, err := domain.ParseAsset(req.Asset)
	if err != nil {
		return err
	}

	result, err := h.service.Invest(c.UserContext(), InvestInput{
		WalletID: req.WalletID,
		Asset:    asset,
		Amount:   req.Amount,
		Quote:    manualQuote(asset, req.PriceLocal, req.PriceUSD),
		Notes:    req.Notes,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(InvestResponse{
		Investment:     ToResponse(result.Investment),
		TransactionID:  result.TransactionID,
		Fee:            result.Fee,
		Total:          result.Total,
		FundingBalance: result.FundingBalance,
		AssetWalletID:  result.AssetWallet.ID,
		AssetBalance:   result.AssetWallet.Balance,
	})
}

// Get returns one position.
func (h *Handler) Get(c *fiber.Ctx) error {
	id, err := wallet.ParamID(c, "investmentId")
	if err != nil {
		return err
	}
	inv, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(ToResponse(inv))
}

// Portfolio lists the positions of an owner, optionally filtered by ?status=.
func (h *Handler) Portfolio(c *fiber.Ctx) error {
	ownerID, err := wallet.ParamID(c, "ownerId")
	if err != nil {
		return err
	}
	status := domain.InvestmentStatus(c.Query("status"))
	switch status {
	case "", domain.InvestmentActive, domain.InvestmentSold, domain.InvestmentPartial:
	default:
		return fiber.NewError(http.StatusBadRequest, "unknown status "+string(status))
	}
	p, err := h.service.ListPositions(c.UserContext(), ownerID, status)
	if err != nil {
		return err
	}
	return c.JSON(toPortfolioResponse(p))
}

// Refresh revalues every active position of an owner at current prices.
func (h *Handler) Refresh(c *fiber.Ctx) error {
	ownerID, err := wallet.ParamID(c, "ownerId")
	if err != nil {
		return err
	}
	updated, err := h.service.RefreshPrices(c.UserContext(), ownerID)
	if err != nil {
		return err
	}
	out := make([]Response, 0, len(updated))
	for _, inv := range updated {
		out = append(out, ToResponse(inv))
	}
	return c.JSON(fiber.Map{"updated": out})
}

// Liquidate sells a whole position.
func (h *Handler) Liquidate(c *fiber.Ctx) error {
	id, err := wallet.ParamID(c, "investmentId")
	if err != nil {
		return err
	}
	var req LiquidateRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}
	current, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}

	result, err := h.service.Liquidate(c.UserContext(), LiquidateInput{
		InvestmentID: id,
		Quantity:     req.Quantity,
		Quote:        manualQuote(current.Asset, req.PriceLocal, req.PriceUSD),
	})
	if err != nil {
		return err
	}
	return c.JSON(LiquidateResponse{
		Investment:     ToResponse(result.Investment),
		TransactionID:  result.TransactionID,
		Proceeds:       result.Proceeds,
		Fee:            result.Fee,
		Net:            result.Net,
		FundingBalance: result.FundingBalance,
	})
}
