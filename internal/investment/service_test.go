package investment

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mada-pay/mada_pay/internal/domain"
	"github.com/mada-pay/mada_pay/internal/ledger"
	"github.com/mada-pay/mada_pay/internal/logging"
	"github.com/mada-pay/mada_pay/internal/pricing"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func quote(asset domain.Asset, local, usd string) *pricing.Quote {
	return &pricing.Quote{Asset: asset, Local: dec(local), USD: dec(usd), AsOf: time.Now()}
}

type failingSource struct{}

func (failingSource) UnitPrice(_ context.Context, asset domain.Asset) (pricing.Quote, error) {
	return pricing.Quote{}, domain.Fail(domain.ErrProviderFailure, "%s feed down", asset)
}

// lockRecorder remembers the order in which wallet rows are locked.
type lockRecorder struct {
	ledger.Store
	locked []int64
}

func (s *lockRecorder) Atomic(ctx context.Context, fn func(ledger.Tx) error) error {
	return s.Store.Atomic(ctx, func(tx ledger.Tx) error {
		return fn(&recordingTx{Tx: tx, locked: &s.locked})
	})
}

type recordingTx struct {
	ledger.Tx
	locked *[]int64
}

func (t *recordingTx) LockWallet(ctx context.Context, id int64) (domain.Wallet, error) {
	*t.locked = append(*t.locked, id)
	return t.Tx.LockWallet(ctx, id)
}

func newService(store ledger.Store, prices pricing.Source) *Service {
	return NewService(store, prices, domain.DefaultPolicy(), nil, logging.Discard())
}

func TestInvestOpensPosition(t *testing.T) {
	store := ledger.NewInMemory()
	ctx := context.Background()
	funding := ledger.SeedWallet(store, 1, domain.MainWallet(), "MGA", dec("500000"))
	svc := newService(store, nil)

	res, err := svc.Invest(ctx, InvestInput{
		WalletID: funding.ID,
		Asset:    domain.AssetBitcoin,
		Amount:   dec("100000"),
		Quote:    quote(domain.AssetBitcoin, "10000", "2"),
	})
	require.NoError(t, err)

	assert.True(t, res.Fee.Equal(dec("2000")))
	assert.True(t, res.Total.Equal(dec("102000")))
	assert.True(t, res.FundingBalance.Equal(dec("398000")))
	assert.Equal(t, domain.CryptoWallet(domain.AssetBitcoin), res.AssetWallet.Kind)
	assert.Equal(t, "BTC", res.AssetWallet.Currency)
	assert.True(t, res.AssetWallet.Balance.Equal(dec("10")))

	inv := res.Investment
	assert.Equal(t, domain.InvestmentActive, inv.Status)
	assert.True(t, inv.Quantity.Equal(dec("10")))
	assert.True(t, inv.TotalInvested.Equal(dec("100000")))
	assert.True(t, inv.TotalInvestedUSD.Equal(dec("20")))
	assert.True(t, inv.UnrealizedPnL.IsZero())
	require.NotNil(t, inv.PurchaseTransactionID)
	assert.Equal(t, res.TransactionID, *inv.PurchaseTransactionID)

	stored, err := store.Wallet(ctx, funding.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(dec("398000")))

	tx, err := store.Transaction(ctx, res.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.TypeInvestment, tx.Type)
	assert.Equal(t, domain.StatusCompleted, tx.Status)
	assert.Equal(t, "MGA", tx.Currency)
	assert.True(t, tx.TotalDebited().Equal(dec("102000")))
	assert.Equal(t, "10", tx.Metadata["quantity"])
}

func TestInvestInsufficientFundsLeavesNoTrace(t *testing.T) {
	store := ledger.NewInMemory()
	ctx := context.Background()
	funding := ledger.SeedWallet(store, 1, domain.MainWallet(), "MGA", dec("100000"))
	svc := newService(store, nil)

	_, err := svc.Invest(ctx, InvestInput{
		WalletID: funding.ID,
		Asset:    domain.AssetGold,
		Amount:   dec("100000"),
		Quote:    quote(domain.AssetGold, "382500", "85"),
	})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	wallets, err := store.WalletsByOwner(ctx, 1)
	require.NoError(t, err)
	require.Len(t, wallets, 1)
	assert.True(t, wallets[0].Balance.Equal(dec("100000")))

	positions, err := store.InvestmentsByOwner(ctx, 1, "")
	require.NoError(t, err)
	assert.Empty(t, positions)
}

func TestInvestBitcoinAtMarketPriceNeedsRoomForFee(t *testing.T) {
	store := ledger.NewInMemory()
	ctx := context.Background()
	funding := ledger.SeedWallet(store, 1, domain.MainWallet(), "MGA", dec("100000"))
	svc := newService(store, nil)

	_, err := svc.Invest(ctx, InvestInput{
		WalletID: funding.ID,
		Asset:    domain.AssetBitcoin,
		Amount:   dec("100000"),
		Quote:    quote(domain.AssetBitcoin, "427500000", "95000"),
	})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	got, err := store.Wallet(ctx, funding.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(dec("100000")))
}

func TestInvestLocksWalletsInIDOrder(t *testing.T) {
	mem := ledger.NewInMemory()
	ctx := context.Background()
	holding := ledger.SeedWallet(mem, 1, domain.CryptoWallet(domain.AssetBitcoin), "MGA", decimal.Zero)
	funding := ledger.SeedWallet(mem, 1, domain.MainWallet(), "MGA", dec("500000"))
	require.Less(t, holding.ID, funding.ID)

	store := &lockRecorder{Store: mem}
	svc := newService(store, nil)

	res, err := svc.Invest(ctx, InvestInput{
		WalletID: funding.ID,
		Asset:    domain.AssetBitcoin,
		Amount:   dec("100000"),
		Quote:    quote(domain.AssetBitcoin, "10000", "2"),
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{holding.ID, funding.ID}, store.locked)
	assert.Equal(t, holding.ID, res.AssetWallet.ID)
	assert.True(t, res.AssetWallet.Balance.Equal(dec("10")))
	assert.True(t, res.FundingBalance.Equal(dec("398000")))
}

func TestInvestRejections(t *testing.T) {
	cases := []struct {
		name   string
		kind   domain.WalletKind
		amount string
		quote  *pricing.Quote
		want   error
	}{
		{"below minimum", domain.MainWallet(), "5000", quote(domain.AssetBitcoin, "10000", "2"), domain.ErrInvalidAmount},
		{"negative", domain.MainWallet(), "-20000", quote(domain.AssetBitcoin, "10000", "2"), domain.ErrInvalidAmount},
		{"zero price", domain.MainWallet(), "20000", quote(domain.AssetBitcoin, "0", "2"), domain.ErrInvalidPrice},
		{"quote for other asset", domain.MainWallet(), "20000", quote(domain.AssetGold, "10000", "2"), domain.ErrInvalidRequest},
		{"dust quantity", domain.MainWallet(), "20000", quote(domain.AssetBitcoin, "1000000000000000", "2"), domain.ErrInvalidAmount},
		{"funded from asset wallet", domain.GoldWallet(), "20000", quote(domain.AssetBitcoin, "10000", "2"), domain.ErrInvalidRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := ledger.NewInMemory()
			w := ledger.SeedWallet(store, 1, tc.kind, "MGA", dec("1000000"))
			svc := newService(store, nil)

			_, err := svc.Invest(context.Background(), InvestInput{
				WalletID: w.ID,
				Asset:    domain.AssetBitcoin,
				Amount:   dec(tc.amount),
				Quote:    tc.quote,
			})
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestInvestReusesAssetWallet(t *testing.T) {
	store := ledger.NewInMemory()
	ctx := context.Background()
	funding := ledger.SeedWallet(store, 1, domain.MainWallet(), "MGA", dec("1000000"))
	svc := newService(store, nil)

	first, err := svc.Invest(ctx, InvestInput{WalletID: funding.ID, Asset: domain.AssetEthereum, Amount: dec("20000"), Quote: quote(domain.AssetEthereum, "10000", "2")})
	require.NoError(t, err)
	second, err := svc.Invest(ctx, InvestInput{WalletID: funding.ID, Asset: domain.AssetEthereum, Amount: dec("30000"), Quote: quote(domain.AssetEthereum, "10000", "2")})
	require.NoError(t, err)

	assert.Equal(t, first.AssetWallet.ID, second.AssetWallet.ID)
	assert.True(t, second.AssetWallet.Balance.Equal(dec("5")))

	wallets, err := store.WalletsByOwner(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, wallets, 2)
}

func TestInvestFrozenFundingWallet(t *testing.T) {
	store := ledger.NewInMemory()
	ctx := context.Background()
	funding := ledger.SeedWallet(store, 1, domain.MainWallet(), "MGA", dec("1000000"))
	require.NoError(t, store.Atomic(ctx, func(tx ledger.Tx) error {
		w, err := tx.LockWallet(ctx, funding.ID)
		if err != nil {
			return err
		}
		if err := w.Freeze(); err != nil {
			return err
		}
		return tx.UpdateWallet(ctx, w)
	}))
	svc := newService(store, nil)

	_, err := svc.Invest(ctx, InvestInput{WalletID: funding.ID, Asset: domain.AssetGold, Amount: dec("20000"), Quote: quote(domain.AssetGold, "10000", "2")})
	require.ErrorIs(t, err, domain.ErrWalletInactive)
}

func TestUpdatePricesAndLiquidate(t *testing.T) {
	store := ledger.NewInMemory()
	ctx := context.Background()
	funding := ledger.SeedWallet(store, 1, domain.MainWallet(), "MGA", dec("500000"))
	svc := newService(store, nil)

	opened, err := svc.Invest(ctx, InvestInput{WalletID: funding.ID, Asset: domain.AssetBitcoin, Amount: dec("100000"), Quote: quote(domain.AssetBitcoin, "10000", "2")})
	require.NoError(t, err)

	inv, err := svc.UpdatePrices(ctx, opened.Investment.ID, quote(domain.AssetBitcoin, "11500", "2.3"))
	require.NoError(t, err)
	assert.True(t, inv.CurrentValue.Equal(dec("115000")))
	assert.True(t, inv.UnrealizedPnL.Equal(dec("15000")))
	assert.True(t, inv.PnLPercentage.Equal(dec("15")))
	assert.True(t, inv.UnrealizedPnLUSD.Equal(dec("3")))
	assert.True(t, inv.IsInProfit())

	_, err = svc.Liquidate(ctx, LiquidateInput{
		InvestmentID: inv.ID,
		Quantity:     decimal.NewNullDecimal(dec("4")),
		Quote:        quote(domain.AssetBitcoin, "10500", "2.1"),
	})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	sold, err := svc.Liquidate(ctx, LiquidateInput{InvestmentID: inv.ID, Quote: quote(domain.AssetBitcoin, "10500", "2.1")})
	require.NoError(t, err)
	assert.True(t, sold.Proceeds.Equal(dec("105000")))
	assert.True(t, sold.Fee.IsZero())
	assert.True(t, sold.Net.Equal(dec("105000")))
	assert.True(t, sold.FundingBalance.Equal(dec("503000")))
	assert.Equal(t, domain.InvestmentSold, sold.Investment.Status)
	assert.True(t, sold.Investment.RealizedPnL.Decimal.Equal(dec("5000")))
	require.NotNil(t, sold.Investment.SellTransactionID)
	assert.Equal(t, sold.TransactionID, *sold.Investment.SellTransactionID)

	holding, err := store.Wallet(ctx, opened.AssetWallet.ID)
	require.NoError(t, err)
	assert.True(t, holding.Balance.IsZero())

	recent, err := store.RecentTransactions(ctx, []int64{funding.ID}, 5)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, domain.TypeDivestment, recent[0].Type)
	assert.Equal(t, domain.TypeInvestment, recent[1].Type)

	_, err = svc.Liquidate(ctx, LiquidateInput{InvestmentID: inv.ID, Quote: quote(domain.AssetBitcoin, "10500", "2.1")})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = svc.UpdatePrices(ctx, inv.ID, quote(domain.AssetBitcoin, "12000", "2.4"))
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestLiquidateAppliesDivestmentFee(t *testing.T) {
	store := ledger.NewInMemory()
	ctx := context.Background()
	funding := ledger.SeedWallet(store, 1, domain.MainWallet(), "MGA", dec("500000"))
	policy := domain.DefaultPolicy()
	policy[domain.TypeDivestment] = domain.FeeRule{Rate: dec("0.01"), Minimum: decimal.Zero}
	svc := NewService(store, nil, policy, nil, logging.Discard())

	opened, err := svc.Invest(ctx, InvestInput{WalletID: funding.ID, Asset: domain.AssetGold, Amount: dec("100000"), Quote: quote(domain.AssetGold, "10000", "2")})
	require.NoError(t, err)

	sold, err := svc.Liquidate(ctx, LiquidateInput{InvestmentID: opened.Investment.ID, Quote: quote(domain.AssetGold, "9000", "1.8")})
	require.NoError(t, err)
	assert.True(t, sold.Proceeds.Equal(dec("90000")))
	assert.True(t, sold.Fee.Equal(dec("900")))
	assert.True(t, sold.FundingBalance.Equal(dec("487100")))
	assert.True(t, sold.Investment.RealizedPnL.Decimal.Equal(dec("-10000")))
}

func TestRefreshPricesFromSource(t *testing.T) {
	store := ledger.NewInMemory()
	ctx := context.Background()
	funding := ledger.SeedWallet(store, 1, domain.MainWallet(), "MGA", dec("1000000"))
	prices := pricing.NewStaticSource(dec("4500"))
	svc := newService(store, prices)

	opened, err := svc.Invest(ctx, InvestInput{WalletID: funding.ID, Asset: domain.AssetBitcoin, Amount: dec("100000")})
	require.NoError(t, err)
	assert.True(t, opened.Investment.PurchasePrice.Equal(dec("427500000")))
	assert.True(t, opened.Investment.Quantity.Equal(dec("0.00023392")))

	prices.Set(domain.AssetBitcoin, dec("190000"))
	updated, err := svc.RefreshPrices(ctx, 1)
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.True(t, updated[0].CurrentPrice.Equal(dec("855000000")))
	assert.True(t, updated[0].IsInProfit())

	portfolio, err := svc.ListPositions(ctx, 1, domain.InvestmentActive)
	require.NoError(t, err)
	require.Len(t, portfolio.Positions, 1)
	assert.True(t, portfolio.TotalInvested.Equal(dec("100000")))
	assert.True(t, portfolio.CurrentValue.Equal(updated[0].CurrentValue))
	assert.True(t, portfolio.UnrealizedPnL.IsPositive())
}

func TestPriceSourceFailure(t *testing.T) {
	store := ledger.NewInMemory()
	funding := ledger.SeedWallet(store, 1, domain.MainWallet(), "MGA", dec("1000000"))
	svc := newService(store, failingSource{})

	_, err := svc.Invest(context.Background(), InvestInput{WalletID: funding.ID, Asset: domain.AssetBitcoin, Amount: dec("100000")})
	require.ErrorIs(t, err, domain.ErrProviderFailure)

	_, err = svc.Quotes(context.Background())
	require.ErrorIs(t, err, domain.ErrProviderFailure)
}

func TestListPositionsFiltersByStatus(t *testing.T) {
	store := ledger.NewInMemory()
	ctx := context.Background()
	funding := ledger.SeedWallet(store, 1, domain.MainWallet(), "MGA", dec("1000000"))
	svc := newService(store, nil)

	kept, err := svc.Invest(ctx, InvestInput{WalletID: funding.ID, Asset: domain.AssetGold, Amount: dec("20000"), Quote: quote(domain.AssetGold, "10000", "2")})
	require.NoError(t, err)
	sold, err := svc.Invest(ctx, InvestInput{WalletID: funding.ID, Asset: domain.AssetEthereum, Amount: dec("30000"), Quote: quote(domain.AssetEthereum, "10000", "2")})
	require.NoError(t, err)
	_, err = svc.Liquidate(ctx, LiquidateInput{InvestmentID: sold.Investment.ID, Quote: quote(domain.AssetEthereum, "10000", "2")})
	require.NoError(t, err)

	all, err := svc.ListPositions(ctx, 1, "")
	require.NoError(t, err)
	assert.Len(t, all.Positions, 2)
	assert.True(t, all.TotalInvested.Equal(dec("20000")))

	active, err := svc.ListPositions(ctx, 1, domain.InvestmentActive)
	require.NoError(t, err)
	require.Len(t, active.Positions, 1)
	assert.Equal(t, kept.Investment.ID, active.Positions[0].ID)
}
