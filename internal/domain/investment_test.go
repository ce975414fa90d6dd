package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openBitcoin(t *testing.T) Investment {
	t.Helper()
	return NewInvestment(OpenPosition{
		OwnerID:         1,
		WalletID:        2,
		FundingWalletID: 1,
		Asset:           AssetBitcoin,
		Quantity:        dec("0.5"),
		PriceLocal:      dec("200000"),
		PriceUSD:        dec("44.44"),
		Invested:        dec("100000"),
		InvestedUSD:     dec("22.22"),
		PurchaseTxID:    9,
		Now:             time.Now(),
	})
}

func TestInvestment_NewStartsAtZeroPnL(t *testing.T) {
	inv := openBitcoin(t)

	assert.Equal(t, InvestmentActive, inv.Status)
	assert.True(t, inv.CurrentValue.Equal(inv.TotalInvested))
	assert.True(t, inv.UnrealizedPnL.IsZero())
	assert.True(t, inv.PnLPercentage.IsZero())
	require.NotNil(t, inv.PurchaseTransactionID)
	assert.Equal(t, int64(9), *inv.PurchaseTransactionID)
}

func TestInvestment_UpdatePrices(t *testing.T) {
	inv := openBitcoin(t)

	require.NoError(t, inv.UpdatePrices(dec("230000"), dec("51.11"), time.Now()))
	assert.True(t, inv.CurrentValue.Equal(dec("115000")), "value %s", inv.CurrentValue)
	assert.True(t, inv.UnrealizedPnL.Equal(dec("15000")), "pnl %s", inv.UnrealizedPnL)
	assert.True(t, inv.PnLPercentage.Equal(dec("15")), "pct %s", inv.PnLPercentage)
	assert.True(t, inv.IsInProfit())

	require.NoError(t, inv.UpdatePrices(dec("150000"), dec("33.33"), time.Now()))
	assert.True(t, inv.IsInLoss())

	assert.ErrorIs(t, inv.UpdatePrices(decimal.Zero, dec("1"), time.Now()), ErrInvalidPrice)
}

func TestInvestment_UpdatePricesBitcoinAtMarket(t *testing.T) {
	inv := NewInvestment(OpenPosition{
		OwnerID:         1,
		WalletID:        2,
		FundingWalletID: 1,
		Asset:           AssetBitcoin,
		Quantity:        dec("0.00023"),
		PriceLocal:      dec("434782608.70"),
		PriceUSD:        dec("95000"),
		Invested:        dec("100000"),
		InvestedUSD:     dec("21.85"),
		PurchaseTxID:    3,
		Now:             time.Now(),
	})

	require.NoError(t, inv.UpdatePrices(dec("500000000"), dec("111111.11"), time.Now()))
	assert.True(t, inv.CurrentValue.Equal(dec("115000")), "value %s", inv.CurrentValue)
	assert.True(t, inv.UnrealizedPnL.Equal(dec("15000")), "pnl %s", inv.UnrealizedPnL)
	assert.True(t, inv.PnLPercentage.Equal(dec("15.00")), "pct %s", inv.PnLPercentage)
}

func TestInvestment_UpdatePricesWithZeroCostBasis(t *testing.T) {
	inv := openBitcoin(t)
	inv.TotalInvested = decimal.Zero

	require.NoError(t, inv.UpdatePrices(dec("200000"), dec("44.44"), time.Now()))
	assert.True(t, inv.PnLPercentage.IsZero())
}

func TestInvestment_MarkSold(t *testing.T) {
	inv := openBitcoin(t)

	require.NoError(t, inv.MarkSold(dec("210000"), dec("46.67"), 11, time.Now()))
	assert.Equal(t, InvestmentSold, inv.Status)
	require.True(t, inv.RealizedPnL.Valid)
	assert.True(t, inv.RealizedPnL.Decimal.Equal(dec("5000")), "realized %s", inv.RealizedPnL.Decimal)
	require.NotNil(t, inv.SoldAt)

	assert.ErrorIs(t, inv.MarkSold(dec("210000"), dec("46.67"), 12, time.Now()), ErrInvalidTransition)
	assert.ErrorIs(t, inv.UpdatePrices(dec("210000"), dec("46.67"), time.Now()), ErrInvalidTransition)
}
