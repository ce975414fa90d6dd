package wallet

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/mada-pay/mada_pay/internal/domain"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	OwnerID  int64  `json:"owner_id"`
	Kind     string `json:"kind"`
	Asset    string `json:"asset"`
	Currency string `json:"currency"`
	Name     string `json:"name"`
}

// Create provisions a wallet for the given owner.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Kind == "" {
		req.Kind = string(domain.ClassMain)
	}
	assetRef := req.Asset
	if assetRef == "" {
		assetRef = req.Currency
	}
	kind, err := domain.ParseWalletKind(req.Kind, assetRef)
	if err != nil {
		return err
	}
	currency := req.Currency
	if req.Asset != "" && currency == "" {
		currency = kind.Currency(h.service.BaseCurrency())
	}

	w, err := h.service.Create(c.UserContext(), CreateInput{
		OwnerID:  req.OwnerID,
		Kind:     kind,
		Currency: currency,
		Name:     req.Name,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(ToResponse(w))
}

// Get returns one wallet.
func (h *Handler) Get(c *fiber.Ctx) error {
	id, err := ParamID(c, "walletId")
	if err != nil {
		return err
	}
	w, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(ToResponse(w))
}

// Balances returns every wallet balance of the owner plus the aggregate.
func (h *Handler) Balances(c *fiber.Ctx) error {
	ownerID, err := ParamID(c, "ownerId")
	if err != nil {
		return err
	}
	balances, err := h.service.Balances(c.UserContext(), ownerID)
	if err != nil {
		return err
	}
	total, err := h.service.TotalBalance(c.UserContext(), ownerID)
	if err != nil {
		return err
	}

	items := make([]fiber.Map, 0, len(balances))
	for _, b := range balances {
		items = append(items, fiber.Map{
			"wallet_id":         b.WalletID,
			"kind":              b.Kind.Class(),
			"currency":          b.Currency,
			"balance":           b.Balance,
			"available_balance": b.Available,
			"locked_balance":    b.Locked,
			"status":            b.Status,
		})
	}
	return c.JSON(fiber.Map{
		"owner_id": ownerID,
		"wallets":  items,
		"total": fiber.Map{
			"currency": total.Currency,
			"amount":   total.Amount,
			"policy":   total.Policy,
		},
		"as_of": total.AsOf,
	})
}

// Transactions lists the latest entries across the owner's wallets.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	ownerID, err := ParamID(c, "ownerId")
	if err != nil {
		return err
	}
	limit := c.QueryInt("limit", DefaultRecentLimit)
	if limit > 100 {
		limit = 100
	}
	txs, err := h.service.RecentTransactions(c.UserContext(), ownerID, limit)
	if err != nil {
		return err
	}
	out := make([]TransactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, ToTransactionResponse(t))
	}
	return c.JSON(fiber.Map{"owner_id": ownerID, "transactions": out})
}

// Freeze blocks the wallet.
func (h *Handler) Freeze(c *fiber.Ctx) error {
	return h.transition(c, h.service.Freeze)
}

// Unfreeze re-activates the wallet.
func (h *Handler) Unfreeze(c *fiber.Ctx) error {
	return h.transition(c, h.service.Unfreeze)
}

// Close permanently closes an empty wallet.
func (h *Handler) Close(c *fiber.Ctx) error {
	return h.transition(c, h.service.Close)
}

// CancelTransaction aborts a pending or processing entry.
func (h *Handler) CancelTransaction(c *fiber.Ctx) error {
	id, err := ParamID(c, "transactionId")
	if err != nil {
		return err
	}
	t, err := h.service.CancelTransaction(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(ToTransactionResponse(t))
}

func (h *Handler) transition(c *fiber.Ctx, fn func(ctx context.Context, id int64) (domain.Wallet, error)) error {
	id, err := ParamID(c, "walletId")
	if err != nil {
		return err
	}
	w, err := fn(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(ToResponse(w))
}
