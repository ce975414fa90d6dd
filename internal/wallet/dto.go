package wallet

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/mada-pay/mada_pay/internal/domain"
)

// Response is the API view of a wallet.
type Response struct {
	ID            int64           `json:"id"`
	OwnerID       int64           `json:"owner_id"`
	Kind          string          `json:"kind"`
	Name          string          `json:"name"`
	Currency      string          `json:"currency"`
	Balance       decimal.Decimal `json:"balance"`
	Available     decimal.Decimal `json:"available_balance"`
	Locked        decimal.Decimal `json:"locked_balance"`
	Status        string          `json:"status"`
	AccountNumber string          `json:"account_number"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ToResponse renders w for the API.
func ToResponse(w domain.Wallet) Response {
	return Response{
		ID:            w.ID,
		OwnerID:       w.OwnerID,
		Kind:          string(w.Kind.Class()),
		Name:          w.Name,
		Currency:      w.Currency,
		Balance:       w.Balance,
		Available:     w.AvailableBalance(),
		Locked:        w.LockedBalance,
		Status:        string(w.Status),
		AccountNumber: w.AccountNumber,
		CreatedAt:     w.CreatedAt,
	}
}

// TransactionResponse is the API view of a ledger entry.
type TransactionResponse struct {
	ID                   int64             `json:"id"`
	UUID                 string            `json:"uuid"`
	FromWalletID         *int64            `json:"from_wallet_id,omitempty"`
	ToWalletID           *int64            `json:"to_wallet_id,omitempty"`
	Type                 string            `json:"type"`
	Amount               decimal.Decimal   `json:"amount"`
	Fee                  decimal.Decimal   `json:"fee"`
	Currency             string            `json:"currency"`
	Status               string            `json:"status"`
	MobileMoneyNumber    string            `json:"mobile_money_number,omitempty"`
	MobileMoneyProvider  string            `json:"mobile_money_provider,omitempty"`
	MobileMoneyReference string            `json:"mobile_money_reference,omitempty"`
	Description          string            `json:"description,omitempty"`
	Metadata             map[string]string `json:"metadata,omitempty"`
	FailureReason        string            `json:"failure_reason,omitempty"`
	CompletedAt          *time.Time        `json:"completed_at,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
}

// ToTransactionResponse renders t for the API.
func ToTransactionResponse(t domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:                   t.ID,
		UUID:                 t.UUID.String(),
		FromWalletID:         t.FromWalletID,
		ToWalletID:           t.ToWalletID,
		Type:                 string(t.Type),
		Amount:               t.Amount,
		Fee:                  t.Fee,
		Currency:             t.Currency,
		Status:               string(t.Status),
		MobileMoneyNumber:    t.MobileMoneyNumber,
		MobileMoneyProvider:  t.MobileMoneyProvider,
		MobileMoneyReference: t.MobileMoneyReference,
		Description:          t.Description,
		Metadata:             t.Metadata,
		FailureReason:        t.FailureReason,
		CompletedAt:          t.CompletedAt,
		CreatedAt:            t.CreatedAt,
	}
}

// ParamID reads a positive int64 route parameter.
func ParamID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}
