package investment

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mada-pay/mada_pay/internal/domain"
	"github.com/mada-pay/mada_pay/internal/pricing"
)

// InvestRequest opens a position. Prices are optional and override the quote source.
type InvestRequest struct {
	WalletID   int64               `json:"wallet_id"`
	Asset      string              `json:"asset"`
	Amount     decimal.Decimal     `json:"amount"`
	PriceLocal decimal.NullDecimal `json:"price_local"`
	PriceUSD   decimal.NullDecimal `json:"price_usd"`
	Notes      string              `json:"notes"`
}

// LiquidateRequest sells a position.
type LiquidateRequest struct {
	Quantity   decimal.NullDecimal `json:"quantity"`
	PriceLocal decimal.NullDecimal `json:"price_local"`
	PriceUSD   decimal.NullDecimal `json:"price_usd"`
}

// manualQuote builds a quote from request prices, or nil when none were given.
func manualQuote(asset domain.Asset, local, usd decimal.NullDecimal) *pricing.Quote {
	if !local.Valid && !usd.Valid {
		return nil
	}
	return &pricing.Quote{Asset: asset, Local: local.Decimal, USD: usd.Decimal, AsOf: time.Now().UTC()}
}

// Response is the API view of a position.
type Response struct {
	ID               int64           `json:"id"`
	OwnerID          int64           `json:"owner_id"`
	WalletID         int64           `json:"wallet_id"`
	FundingWalletID  int64           `json:"funding_wallet_id"`
	Asset            string          `json:"asset"`
	Symbol           string          `json:"symbol"`
	Quantity         decimal.Decimal `json:"quantity"`
	PurchasePrice    decimal.Decimal `json:"purchase_price"`
	PurchasePriceUSD decimal.Decimal `json:"purchase_price_usd"`
	TotalInvested    decimal.Decimal `json:"total_invested"`
	TotalInvestedUSD decimal.Decimal `json:"total_invested_usd"`
	CurrentPrice     decimal.Decimal `json:"current_price"`
	CurrentPriceUSD  decimal.Decimal `json:"current_price_usd"`
	CurrentValue     decimal.Decimal `json:"current_value"`
	CurrentValueUSD  decimal.Decimal `json:"current_value_usd"`
	UnrealizedPnL    decimal.Decimal `json:"unrealized_pnl"`
	UnrealizedPnLUSD decimal.Decimal `json:"unrealized_pnl_usd"`
	PnLPercentage    decimal.Decimal `json:"pnl_percentage"`
	Status           string          `json:"status"`
	SellPrice        *string         `json:"sell_price,omitempty"`
	RealizedPnL      *string         `json:"realized_pnl,omitempty"`
	SoldAt           *time.Time      `json:"sold_at,omitempty"`
	Notes            string          `json:"notes,omitempty"`
	PriceUpdatedAt   time.Time       `json:"price_updated_at"`
	CreatedAt        time.Time       `json:"created_at"`
}

// ToResponse renders inv for the API.
func ToResponse(inv domain.Investment) Response {
	return Response{
		ID:               inv.ID,
		OwnerID:          inv.OwnerID,
		WalletID:         inv.WalletID,
		FundingWalletID:  inv.FundingWalletID,
		Asset:            string(inv.Asset),
		Symbol:           inv.Asset.Symbol(),
		Quantity:         inv.Quantity,
		PurchasePrice:    inv.PurchasePrice,
		PurchasePriceUSD: inv.PurchasePriceUSD,
		TotalInvested:    inv.TotalInvested,
		TotalInvestedUSD: inv.TotalInvestedUSD,
		CurrentPrice:     inv.CurrentPrice,
		CurrentPriceUSD:  inv.CurrentPriceUSD,
		CurrentValue:     inv.CurrentValue,
		CurrentValueUSD:  inv.CurrentValueUSD,
		UnrealizedPnL:    inv.UnrealizedPnL,
		UnrealizedPnLUSD: inv.UnrealizedPnLUSD,
		PnLPercentage:    inv.PnLPercentage,
		Status:           string(inv.Status),
		SellPrice:        nullString(inv.SellPrice),
		RealizedPnL:      nullString(inv.RealizedPnL),
		SoldAt:           inv.SoldAt,
		Notes:            inv.Notes,
		PriceUpdatedAt:   inv.PriceUpdatedAt,
		CreatedAt:        inv.CreatedAt,
	}
}

func nullString(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.String()
	return &s
}

// InvestResponse is returned after a purchase.
type InvestResponse struct {
	Investment     Response        `json:"investment"`
	TransactionID  int64           `json:"transaction_id"`
	Fee            decimal.Decimal `json:"fee"`
	Total          decimal.Decimal `json:"total"`
	FundingBalance decimal.Decimal `json:"funding_balance"`
	AssetWalletID  int64           `json:"asset_wallet_id"`
	AssetBalance   decimal.Decimal `json:"asset_balance"`
}

// LiquidateResponse is returned after a sale.
type LiquidateResponse struct {
	Investment     Response        `json:"investment"`
	TransactionID  int64           `json:"transaction_id"`
	Proceeds       decimal.Decimal `json:"proceeds"`
	Fee            decimal.Decimal `json:"fee"`
	Net            decimal.Decimal `json:"net"`
	FundingBalance decimal.Decimal `json:"funding_balance"`
}

// PortfolioResponse lists positions with their totals.
type PortfolioResponse struct {
	OwnerID       int64           `json:"owner_id"`
	Positions     []Response      `json:"positions"`
	TotalInvested decimal.Decimal `json:"total_invested"`
	CurrentValue  decimal.Decimal `json:"current_value"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
	PnLPercentage decimal.Decimal `json:"pnl_percentage"`
}

// AssetResponse is one catalog entry with its current quote.
type AssetResponse struct {
	Asset    string          `json:"asset"`
	Symbol   string          `json:"symbol"`
	Name     string          `json:"name"`
	PriceUSD decimal.Decimal `json:"price_usd"`
	Price    decimal.Decimal `json:"price"`
	AsOf     time.Time       `json:"as_of"`
}

func toPortfolioResponse(p Portfolio) PortfolioResponse {
	positions := make([]Response, 0, len(p.Positions))
	for _, inv := range p.Positions {
		positions = append(positions, ToResponse(inv))
	}
	return PortfolioResponse{
		OwnerID:       p.OwnerID,
		Positions:     positions,
		TotalInvested: p.TotalInvested,
		CurrentValue:  p.CurrentValue,
		UnrealizedPnL: p.UnrealizedPnL,
		PnLPercentage: p.PnLPercentage,
	}
}
