package mobilemoney

import "github.com/shopspring/decimal"

// WithdrawRequest captures user-provided data to cash out a wallet.
type WithdrawRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	PhoneNumber string          `json:"phone_number"`
	Provider    string          `json:"provider"`
	Description string          `json:"description"`
}

// DepositRequest captures an operator-confirmed top-up.
type DepositRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	PhoneNumber string          `json:"phone_number"`
	Provider    string          `json:"provider"`
	Reference   string          `json:"reference"`
	Description string          `json:"description"`
}

// Response represents the API response for mobile-money actions.
type Response struct {
	TransactionID    int64           `json:"transaction_id"`
	UUID             string          `json:"uuid"`
	Status           string          `json:"status"`
	Amount           decimal.Decimal `json:"amount"`
	Fee              decimal.Decimal `json:"fee"`
	Total            decimal.Decimal `json:"total"`
	Reference        string          `json:"reference,omitempty"`
	WalletBalance    decimal.Decimal `json:"wallet_balance"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
}

func toResponse(r Result) Response {
	return Response{
		TransactionID:    r.TransactionID,
		UUID:             r.UUID.String(),
		Status:           string(r.Status),
		Amount:           r.Amount,
		Fee:              r.Fee,
		Total:            r.Total,
		Reference:        r.Reference,
		WalletBalance:    r.WalletBalance,
		AvailableBalance: r.Available,
	}
}
