package identity

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/mada-pay/mada_pay/internal/domain"
	"github.com/mada-pay/mada_pay/internal/wallet"
)

// WalletProvisioner opens the main wallet of a new user.
type WalletProvisioner interface {
	EnsureMain(ctx context.Context, ownerID int64) (domain.Wallet, error)
}

// Handler exposes identity endpoints.
type Handler struct {
	service *Service
	wallets WalletProvisioner
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(service *Service, wallets WalletProvisioner) *Handler {
	return &Handler{service: service, wallets: wallets}
}

type registerRequest struct {
	Name                string `json:"name"`
	Email               string `json:"email"`
	Phone               string `json:"phone"`
	Password            string `json:"password"`
	Plan                string `json:"subscription_plan"`
	MobileMoneyNumber   string `json:"mobile_money_number"`
	MobileMoneyProvider string `json:"mobile_money_provider"`
}

type userResponse struct {
	ID                  int64            `json:"id"`
	Name                string           `json:"name"`
	Email               string           `json:"email"`
	Phone               string           `json:"phone"`
	Plan                string           `json:"subscription_plan"`
	MobileMoneyNumber   string           `json:"mobile_money_number,omitempty"`
	MobileMoneyProvider string           `json:"mobile_money_provider,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
	MainWallet          *wallet.Response `json:"main_wallet,omitempty"`
}

func toUserResponse(u User) userResponse {
	return userResponse{
		ID:                  u.ID,
		Name:                u.Name,
		Email:               u.Email,
		Phone:               u.Phone,
		Plan:                string(u.Plan),
		MobileMoneyNumber:   u.MobileMoneyNumber,
		MobileMoneyProvider: u.MobileMoneyProvider,
		CreatedAt:           u.CreatedAt,
	}
}

// Register handles user onboarding and opens the main wallet.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, err := h.service.Register(c.UserContext(), Registration{
		Name:                req.Name,
		Email:               req.Email,
		Phone:               req.Phone,
		Password:            req.Password,
		Plan:                req.Plan,
		MobileMoneyNumber:   req.MobileMoneyNumber,
		MobileMoneyProvider: req.MobileMoneyProvider,
	})
	if err != nil {
		return err
	}
	primary, err := h.wallets.EnsureMain(c.UserContext(), user.ID)
	if err != nil {
		return err
	}

	resp := toUserResponse(user)
	view := wallet.ToResponse(primary)
	resp.MainWallet = &view
	return c.Status(http.StatusCreated).JSON(resp)
}

// Get returns a registered user.
func (h *Handler) Get(c *fiber.Ctx) error {
	id, err := wallet.ParamID(c, "userId")
	if err != nil {
		return err
	}
	user, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(toUserResponse(user))
}
