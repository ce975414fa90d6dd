package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletClass is the persisted discriminator of a WalletKind.
type WalletClass string

const (
	ClassMain   WalletClass = "main"
	ClassCrypto WalletClass = "crypto"
	ClassGold   WalletClass = "gold"
)

// WalletKind is a tagged variant: Main, Crypto(asset) or Gold. The wallet currency
// is derived from it, so a crypto wallet cannot carry a fiat currency and vice versa.
type WalletKind struct {
	class WalletClass
	asset Asset
}

// MainWallet is the base-currency wallet every user receives on registration.
func MainWallet() WalletKind { return WalletKind{class: ClassMain} }

// CryptoWallet holds a crypto asset. Passing a non-crypto asset yields an invalid kind.
func CryptoWallet(a Asset) WalletKind { return WalletKind{class: ClassCrypto, asset: a} }

// GoldWallet holds physical gold in grams.
func GoldWallet() WalletKind { return WalletKind{class: ClassGold, asset: AssetGold} }

// ParseWalletKind rebuilds a kind from its persisted class and currency.
func ParseWalletKind(class, currency string) (WalletKind, error) {
	switch WalletClass(strings.ToLower(class)) {
	case ClassMain:
		return MainWallet(), nil
	case ClassGold:
		return GoldWallet(), nil
	case ClassCrypto:
		asset, err := ParseAsset(currency)
		if err != nil {
			return WalletKind{}, err
		}
		kind := CryptoWallet(asset)
		if !kind.Valid() {
			return WalletKind{}, Fail(ErrInvalidRequest, "%s is not a crypto asset", asset)
		}
		return kind, nil
	default:
		return WalletKind{}, Fail(ErrInvalidRequest, "unknown wallet kind %q", class)
	}
}

// Class returns the discriminator.
func (k WalletKind) Class() WalletClass { return k.class }

// Asset returns the held asset for Crypto and Gold kinds.
func (k WalletKind) Asset() (Asset, bool) {
	if k.class == ClassMain {
		return "", false
	}
	return k.asset, true
}

// Valid reports whether the variant is well formed.
func (k WalletKind) Valid() bool {
	switch k.class {
	case ClassMain:
		return k.asset == ""
	case ClassGold:
		return k.asset == AssetGold
	case ClassCrypto:
		return k.asset.Valid() && k.asset != AssetGold
	default:
		return false
	}
}

// Currency returns the wallet currency given the deployment base currency.
func (k WalletKind) Currency(base string) string {
	if k.class == ClassMain {
		return base
	}
	return k.asset.Symbol()
}

// DefaultName mirrors the labels shown to users.
func (k WalletKind) DefaultName() string {
	switch k.class {
	case ClassMain:
		return "Main wallet"
	case ClassGold:
		return "Gold wallet"
	default:
		return fmt.Sprintf("%s wallet", k.asset.Symbol())
	}
}

func (k WalletKind) String() string {
	if k.class == ClassMain {
		return string(k.class)
	}
	return string(k.class) + ":" + k.asset.Symbol()
}

// WalletStatus is the lifecycle state of a wallet.
type WalletStatus string

const (
	WalletActive WalletStatus = "active"
	WalletFrozen WalletStatus = "frozen"
	WalletClosed WalletStatus = "closed"
)

// Wallet is a balance-holding account scoped to one owner and one currency.
// Balances only change through Credit, Debit, Lock and Unlock.
type Wallet struct {
	ID            int64
	OwnerID       int64
	Kind          WalletKind
	Name          string
	Currency      string
	Balance       decimal.Decimal
	LockedBalance decimal.Decimal
	Status        WalletStatus
	AccountNumber string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewAccountNumber generates the public account number of a wallet.
func NewAccountNumber() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "MR-" + raw[:12]
}

// AvailableBalance is the balance not reserved by pending operations.
func (w *Wallet) AvailableBalance() decimal.Decimal {
	return w.Balance.Sub(w.LockedBalance)
}

// HasSufficientBalance reports whether amount can be debited or reserved.
// Negative amounts never qualify.
func (w *Wallet) HasSufficientBalance(amount decimal.Decimal) bool {
	if amount.IsNegative() {
		return false
	}
	return w.AvailableBalance().GreaterThanOrEqual(amount)
}

// CheckFunds is HasSufficientBalance with the failure reason attached.
func (w *Wallet) CheckFunds(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return Fail(ErrInvalidAmount, "amount %s is negative", amount)
	}
	if !w.HasSufficientBalance(amount) {
		return Fail(ErrInsufficientFunds, "available %s %s, required %s", w.AvailableBalance(), w.Currency, amount)
	}
	return nil
}

// Credit adds amount to the balance.
func (w *Wallet) Credit(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return Fail(ErrInvalidAmount, "credit amount %s is negative", amount)
	}
	w.Balance = w.Balance.Add(amount)
	return nil
}

// Debit removes amount from the balance if it is available.
func (w *Wallet) Debit(amount decimal.Decimal) error {
	if err := w.CheckFunds(amount); err != nil {
		return err
	}
	w.Balance = w.Balance.Sub(amount)
	return nil
}

// Lock reserves amount out of the available balance.
func (w *Wallet) Lock(amount decimal.Decimal) error {
	if err := w.CheckFunds(amount); err != nil {
		return err
	}
	w.LockedBalance = w.LockedBalance.Add(amount)
	return nil
}

// Unlock releases a reservation. The locked balance is clamped at zero; clamped
// reports whether the requested amount exceeded what was locked.
func (w *Wallet) Unlock(amount decimal.Decimal) (clamped bool, err error) {
	if amount.IsNegative() {
		return false, Fail(ErrInvalidAmount, "unlock amount %s is negative", amount)
	}
	if amount.GreaterThan(w.LockedBalance) {
		w.LockedBalance = decimal.Zero
		return true, nil
	}
	w.LockedBalance = w.LockedBalance.Sub(amount)
	return false, nil
}

// IsActive reports whether the wallet accepts balance mutations.
func (w *Wallet) IsActive() bool { return w.Status == WalletActive }

// EnsureActive fails with ErrWalletInactive for frozen or closed wallets.
func (w *Wallet) EnsureActive() error {
	if !w.IsActive() {
		return Fail(ErrWalletInactive, "wallet %d is %s", w.ID, w.Status)
	}
	return nil
}

// Freeze moves an active wallet to frozen.
func (w *Wallet) Freeze() error {
	switch w.Status {
	case WalletFrozen:
		return nil
	case WalletActive:
		w.Status = WalletFrozen
		return nil
	default:
		return Fail(ErrInvalidTransition, "cannot freeze %s wallet", w.Status)
	}
}

// Unfreeze moves a frozen wallet back to active.
func (w *Wallet) Unfreeze() error {
	switch w.Status {
	case WalletActive:
		return nil
	case WalletFrozen:
		w.Status = WalletActive
		return nil
	default:
		return Fail(ErrInvalidTransition, "cannot unfreeze %s wallet", w.Status)
	}
}

// Close is terminal. Wallets still holding funds cannot be closed.
func (w *Wallet) Close() error {
	if w.Status == WalletClosed {
		return Fail(ErrInvalidTransition, "wallet %d already closed", w.ID)
	}
	if !w.Balance.IsZero() || !w.LockedBalance.IsZero() {
		return Fail(ErrConflict, "wallet %d still holds %s %s", w.ID, w.Balance, w.Currency)
	}
	w.Status = WalletClosed
	return nil
}
