package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvestmentStatus is the lifecycle state of a position.
type InvestmentStatus string

const (
	InvestmentActive  InvestmentStatus = "active"
	InvestmentSold    InvestmentStatus = "sold"
	InvestmentPartial InvestmentStatus = "partial"
)

var hundred = decimal.NewFromInt(100)

// Investment is a tracked holding of a non-base asset with cost basis and live P&L.
// Local amounts are in the base currency of the funding wallet.
type Investment struct {
	ID              int64
	OwnerID         int64
	WalletID        int64
	FundingWalletID int64
	Asset           Asset
	Quantity        decimal.Decimal

	PurchasePrice    decimal.Decimal
	PurchasePriceUSD decimal.Decimal
	TotalInvested    decimal.Decimal
	TotalInvestedUSD decimal.Decimal

	CurrentPrice     decimal.Decimal
	CurrentPriceUSD  decimal.Decimal
	CurrentValue     decimal.Decimal
	CurrentValueUSD  decimal.Decimal
	UnrealizedPnL    decimal.Decimal
	UnrealizedPnLUSD decimal.Decimal
	PnLPercentage    decimal.Decimal

	Status         InvestmentStatus
	SoldAt         *time.Time
	SellPrice      decimal.NullDecimal
	SellPriceUSD   decimal.NullDecimal
	RealizedPnL    decimal.NullDecimal
	RealizedPnLUSD decimal.NullDecimal

	PurchaseTransactionID *int64
	SellTransactionID     *int64
	Notes                 string
	PriceUpdatedAt        time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// OpenPosition describes a freshly bought position.
type OpenPosition struct {
	OwnerID         int64
	WalletID        int64
	FundingWalletID int64
	Asset           Asset
	Quantity        decimal.Decimal
	PriceLocal      decimal.Decimal
	PriceUSD        decimal.Decimal
	Invested        decimal.Decimal
	InvestedUSD     decimal.Decimal
	PurchaseTxID    int64
	Now             time.Time
}

// NewInvestment builds an active position whose value equals its cost, so P&L starts at zero.
func NewInvestment(p OpenPosition) Investment {
	now := p.Now.UTC()
	invested := RoundLocal(p.Invested)
	investedUSD := RoundLocal(p.InvestedUSD)
	return Investment{
		OwnerID:               p.OwnerID,
		WalletID:              p.WalletID,
		FundingWalletID:       p.FundingWalletID,
		Asset:                 p.Asset,
		Quantity:              RoundQuantity(p.Quantity),
		PurchasePrice:         RoundLocal(p.PriceLocal),
		PurchasePriceUSD:      RoundLocal(p.PriceUSD),
		TotalInvested:         invested,
		TotalInvestedUSD:      investedUSD,
		CurrentPrice:          RoundLocal(p.PriceLocal),
		CurrentPriceUSD:       RoundLocal(p.PriceUSD),
		CurrentValue:          invested,
		CurrentValueUSD:       investedUSD,
		UnrealizedPnL:         decimal.Zero,
		UnrealizedPnLUSD:      decimal.Zero,
		PnLPercentage:         decimal.Zero,
		Status:                InvestmentActive,
		PurchaseTransactionID: Ref(p.PurchaseTxID),
		PriceUpdatedAt:        now,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

// UpdatePrices revalues the position at new unit prices.
func (i *Investment) UpdatePrices(priceLocal, priceUSD decimal.Decimal, now time.Time) error {
	if !priceLocal.IsPositive() || priceUSD.IsNegative() {
		return Fail(ErrInvalidPrice, "price %s/%s USD for %s", priceLocal, priceUSD, i.Asset)
	}
	if i.Status == InvestmentSold {
		return Fail(ErrInvalidTransition, "investment %d is sold", i.ID)
	}
	i.CurrentPrice = RoundLocal(priceLocal)
	i.CurrentPriceUSD = RoundLocal(priceUSD)
	i.CurrentValue = RoundLocal(i.Quantity.Mul(priceLocal))
	i.CurrentValueUSD = RoundLocal(i.Quantity.Mul(priceUSD))
	i.UnrealizedPnL = i.CurrentValue.Sub(i.TotalInvested)
	i.UnrealizedPnLUSD = i.CurrentValueUSD.Sub(i.TotalInvestedUSD)
	if i.TotalInvested.IsPositive() {
		i.PnLPercentage = i.UnrealizedPnL.Div(i.TotalInvested).Mul(hundred).Round(2)
	} else {
		i.PnLPercentage = decimal.Zero
	}
	i.PriceUpdatedAt = now.UTC()
	return nil
}

// MarkSold closes the whole position at the given unit prices.
func (i *Investment) MarkSold(sellLocal, sellUSD decimal.Decimal, sellTxID int64, now time.Time) error {
	if !sellLocal.IsPositive() || sellUSD.IsNegative() {
		return Fail(ErrInvalidPrice, "sell price %s for %s", sellLocal, i.Asset)
	}
	if i.Status != InvestmentActive {
		return Fail(ErrInvalidTransition, "investment %d is %s", i.ID, i.Status)
	}
	soldAt := now.UTC()
	i.Status = InvestmentSold
	i.SellPrice = decimal.NewNullDecimal(RoundLocal(sellLocal))
	i.SellPriceUSD = decimal.NewNullDecimal(RoundLocal(sellUSD))
	i.RealizedPnL = decimal.NewNullDecimal(RoundLocal(i.Quantity.Mul(sellLocal)).Sub(i.TotalInvested))
	i.RealizedPnLUSD = decimal.NewNullDecimal(RoundLocal(i.Quantity.Mul(sellUSD)).Sub(i.TotalInvestedUSD))
	i.SellTransactionID = Ref(sellTxID)
	i.SoldAt = &soldAt
	return nil
}

// IsInProfit reports a positive unrealized P&L.
func (i *Investment) IsInProfit() bool { return i.UnrealizedPnL.IsPositive() }

// IsInLoss reports a negative unrealized P&L.
func (i *Investment) IsInLoss() bool { return i.UnrealizedPnL.IsNegative() }
