package mobilemoney

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/mada-pay/mada_pay/internal/wallet"
)

// Handler exposes HTTP endpoints for mobile-money flows.
type Handler struct {
	service *Service
}

// NewHandler constructs a mobile-money handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Withdraw cashes out a wallet to a mobile-money number.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	walletID, err := wallet.ParamID(c, "walletId")
	if err != nil {
		return err
	}
	var req WithdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	result, err := h.service.Withdraw(c.UserContext(), WithdrawInput{
		WalletID:    walletID,
		Amount:      req.Amount,
		PhoneNumber: req.PhoneNumber,
		Provider:    req.Provider,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(toResponse(result))
}

// Deposit records an operator-confirmed top-up.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	walletID, err := wallet.ParamID(c, "walletId")
	if err != nil {
		return err
	}
	var req DepositRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	result, err := h.service.Deposit(c.UserContext(), DepositInput{
		WalletID:    walletID,
		Amount:      req.Amount,
		PhoneNumber: req.PhoneNumber,
		Provider:    req.Provider,
		Reference:   req.Reference,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(toResponse(result))
}
