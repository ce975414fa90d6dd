package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mada-pay/mada_pay/internal/domain"
)

// SeedWallet is a test helper that inserts a wallet with the given balance
// when using the in-memory store. It returns the stored wallet.
func SeedWallet(s Store, ownerID int64, kind domain.WalletKind, base string, balance decimal.Decimal) domain.Wallet {
	w := domain.Wallet{
		OwnerID:       ownerID,
		Kind:          kind,
		Name:          kind.DefaultName(),
		Currency:      kind.Currency(base),
		Balance:       balance,
		LockedBalance: decimal.Zero,
		Status:        domain.WalletActive,
		AccountNumber: domain.NewAccountNumber(),
	}
	if mem, ok := s.(*inMemoryStore); ok {
		err := mem.Atomic(context.Background(), func(tx Tx) error {
			return tx.InsertWallet(context.Background(), &w)
		})
		if err != nil {
			panic(fmt.Sprintf("seed wallet for owner %d: %v", ownerID, err))
		}
	}
	return w
}

// SeedBalance overwrites the balance of a wallet held by the in-memory store.
func SeedBalance(s Store, walletID int64, amount decimal.Decimal) {
	if mem, ok := s.(*inMemoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		if w, exists := mem.state.wallets[walletID]; exists {
			w.Balance = amount
			mem.state.wallets[walletID] = w
		}
	}
}
