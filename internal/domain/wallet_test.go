package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestWallet_AvailableBalance(t *testing.T) {
	w := Wallet{Balance: dec("1000"), LockedBalance: dec("250"), Status: WalletActive}

	assert.True(t, w.AvailableBalance().Equal(dec("750")))
	assert.True(t, w.HasSufficientBalance(dec("750")))
	assert.False(t, w.HasSufficientBalance(dec("750.01")))
	assert.False(t, w.HasSufficientBalance(dec("-1")))
}

func TestWallet_DebitAndCredit(t *testing.T) {
	w := Wallet{Balance: dec("100"), LockedBalance: decimal.Zero, Currency: "MGA"}

	require.NoError(t, w.Credit(dec("50.25")))
	assert.True(t, w.Balance.Equal(dec("150.25")))

	err := w.Debit(dec("200"))
	require.ErrorIs(t, err, ErrInsufficientFunds)
	assert.True(t, w.Balance.Equal(dec("150.25")), "balance untouched on failure")

	require.ErrorIs(t, w.Credit(dec("-1")), ErrInvalidAmount)
	require.ErrorIs(t, w.Debit(dec("-1")), ErrInvalidAmount)

	require.NoError(t, w.Debit(dec("150.25")))
	assert.True(t, w.Balance.IsZero())
}

func TestWallet_LockAndUnlock(t *testing.T) {
	w := Wallet{Balance: dec("1000"), LockedBalance: decimal.Zero}

	require.NoError(t, w.Lock(dec("600")))
	require.ErrorIs(t, w.Lock(dec("500")), ErrInsufficientFunds)

	clamped, err := w.Unlock(dec("100"))
	require.NoError(t, err)
	assert.False(t, clamped)
	assert.True(t, w.LockedBalance.Equal(dec("500")))

	clamped, err = w.Unlock(dec("900"))
	require.NoError(t, err)
	assert.True(t, clamped)
	assert.True(t, w.LockedBalance.IsZero())

	_, err = w.Unlock(dec("-5"))
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestWallet_StatusMachine(t *testing.T) {
	w := Wallet{ID: 3, Status: WalletActive, Balance: decimal.Zero, LockedBalance: decimal.Zero}

	require.NoError(t, w.Freeze())
	require.NoError(t, w.Freeze())
	assert.ErrorIs(t, w.EnsureActive(), ErrWalletInactive)

	require.NoError(t, w.Unfreeze())
	require.NoError(t, w.EnsureActive())

	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Close(), ErrInvalidTransition)
	assert.ErrorIs(t, w.Freeze(), ErrInvalidTransition)
	assert.ErrorIs(t, w.Unfreeze(), ErrInvalidTransition)
	assert.ErrorIs(t, w.EnsureActive(), ErrWalletInactive)
}

func TestWallet_CloseRequiresEmptyWallet(t *testing.T) {
	w := Wallet{ID: 4, Status: WalletActive, Balance: dec("0.01"), LockedBalance: decimal.Zero}
	assert.ErrorIs(t, w.Close(), ErrConflict)
	assert.Equal(t, WalletActive, w.Status)
}

func TestWalletKind_Currency(t *testing.T) {
	cases := []struct {
		kind     WalletKind
		currency string
	}{
		{MainWallet(), "MGA"},
		{CryptoWallet(AssetBitcoin), "BTC"},
		{CryptoWallet(AssetEthereum), "ETH"},
		{GoldWallet(), "XAU"},
	}
	for _, tc := range cases {
		t.Run(tc.kind.String(), func(t *testing.T) {
			require.True(t, tc.kind.Valid())
			assert.Equal(t, tc.currency, tc.kind.Currency("MGA"))

			parsed, err := ParseWalletKind(string(tc.kind.Class()), tc.currency)
			require.NoError(t, err)
			assert.Equal(t, tc.kind, parsed)
		})
	}

	assert.False(t, CryptoWallet(AssetGold).Valid())
	_, err := ParseWalletKind("crypto", "XAU")
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = ParseWalletKind("savings", "MGA")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestAsset_WalletKind(t *testing.T) {
	assert.Equal(t, GoldWallet(), AssetGold.WalletKind())
	assert.Equal(t, CryptoWallet(AssetBitcoin), AssetBitcoin.WalletKind())

	a, err := ParseAsset("btc")
	require.NoError(t, err)
	assert.Equal(t, AssetBitcoin, a)

	_, err = ParseAsset("dogecoin")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestNewAccountNumber(t *testing.T) {
	n := NewAccountNumber()
	assert.Regexp(t, `^MR-[0-9A-F]{12}$`, n)
	assert.NotEqual(t, n, NewAccountNumber())
}
