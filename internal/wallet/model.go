package wallet

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mada-pay/mada_pay/internal/domain"
)

// Balance is the balance view of one wallet.
type Balance struct {
	WalletID  int64
	Kind      domain.WalletKind
	Currency  string
	Balance   decimal.Decimal
	Available decimal.Decimal
	Locked    decimal.Decimal
	Status    domain.WalletStatus
	AsOf      time.Time
}

// Total is the aggregate balance of an owner in the base currency.
type Total struct {
	OwnerID  int64
	Currency string
	Amount   decimal.Decimal
	Policy   string
	AsOf     time.Time
}

func balanceOf(w domain.Wallet, now time.Time) Balance {
	return Balance{
		WalletID:  w.ID,
		Kind:      w.Kind,
		Currency:  w.Currency,
		Balance:   w.Balance,
		Available: w.AvailableBalance(),
		Locked:    w.LockedBalance,
		Status:    w.Status,
		AsOf:      now,
	}
}
