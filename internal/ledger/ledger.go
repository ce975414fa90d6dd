package ledger

import (
	"context"

	"github.com/mada-pay/mada_pay/internal/domain"
)

// Reader exposes the read side of the ledger. Lookups of missing rows return
// domain.ErrNotFound.
type Reader interface {
	Wallet(ctx context.Context, id int64) (domain.Wallet, error)
	WalletsByOwner(ctx context.Context, ownerID int64) ([]domain.Wallet, error)
	Transaction(ctx context.Context, id int64) (domain.Transaction, error)
	// RecentTransactions returns entries touching any of walletIDs, newest first.
	RecentTransactions(ctx context.Context, walletIDs []int64, limit int) ([]domain.Transaction, error)
	Investment(ctx context.Context, id int64) (domain.Investment, error)
	// InvestmentsByOwner filters by status unless status is empty.
	InvestmentsByOwner(ctx context.Context, ownerID int64, status domain.InvestmentStatus) ([]domain.Investment, error)
}

// Tx is a unit of work. Rows obtained through the Lock methods stay locked
// until the unit of work ends.
type Tx interface {
	Reader

	LockWallet(ctx context.Context, id int64) (domain.Wallet, error)
	// LockWalletByKind returns the non-closed wallet of ownerID with the given kind.
	LockWalletByKind(ctx context.Context, ownerID int64, kind domain.WalletKind) (domain.Wallet, bool, error)
	InsertWallet(ctx context.Context, w *domain.Wallet) error
	UpdateWallet(ctx context.Context, w domain.Wallet) error

	InsertTransaction(ctx context.Context, t *domain.Transaction) error
	LockTransaction(ctx context.Context, id int64) (domain.Transaction, error)
	UpdateTransaction(ctx context.Context, t domain.Transaction) error

	InsertInvestment(ctx context.Context, i *domain.Investment) error
	LockInvestment(ctx context.Context, id int64) (domain.Investment, error)
	UpdateInvestment(ctx context.Context, i domain.Investment) error
}

// Store defines the contract implemented by ledger backends (Postgres, memory).
// Every balance mutation happens inside Atomic: either all writes of fn are
// committed or none are.
type Store interface {
	Reader
	Atomic(ctx context.Context, fn func(tx Tx) error) error
}
