package wallet

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mada-pay/mada_pay/internal/config"
	"github.com/mada-pay/mada_pay/internal/domain"
	"github.com/mada-pay/mada_pay/internal/ledger"
	"github.com/mada-pay/mada_pay/internal/pricing"
)

// DefaultRecentLimit is the number of entries shown on the dashboard.
const DefaultRecentLimit = 5

// Settings selects deployment-wide wallet behaviour.
type Settings struct {
	BaseCurrency  string
	BalancePolicy string
}

// Service exposes wallet operations backed by the ledger store. Every balance
// mutation runs inside one unit of work holding the wallet row lock.
type Service struct {
	store    ledger.Store
	prices   pricing.Source
	settings Settings
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds a wallet service instance. prices may be nil when the
// naive balance policy is used.
func NewService(store ledger.Store, prices pricing.Source, settings Settings, logger *slog.Logger) *Service {
	if settings.BaseCurrency == "" {
		settings.BaseCurrency = "MGA"
	}
	if settings.BalancePolicy == "" {
		settings.BalancePolicy = config.BalancePolicyConvert
	}
	return &Service{store: store, prices: prices, settings: settings, logger: logger, now: time.Now}
}

// BaseCurrency returns the currency of main wallets.
func (s *Service) BaseCurrency() string { return s.settings.BaseCurrency }

// CreateInput captures data required to create a wallet.
type CreateInput struct {
	OwnerID int64
	Kind    domain.WalletKind
	// Currency is optional; when given it must match the kind.
	Currency string
	Name     string
}

// Create provisions a wallet. An owner holds at most one open wallet per kind.
func (s *Service) Create(ctx context.Context, input CreateInput) (domain.Wallet, error) {
	if input.OwnerID <= 0 {
		return domain.Wallet{}, domain.Fail(domain.ErrInvalidRequest, "owner id is required")
	}
	if !input.Kind.Valid() {
		return domain.Wallet{}, domain.Fail(domain.ErrInvalidRequest, "invalid wallet kind %s", input.Kind)
	}
	currency := input.Kind.Currency(s.settings.BaseCurrency)
	if input.Currency != "" && !strings.EqualFold(input.Currency, currency) {
		return domain.Wallet{}, domain.Fail(domain.ErrInvalidRequest, "%s wallet cannot hold %s", input.Kind, input.Currency)
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = input.Kind.DefaultName()
	}

	w := domain.Wallet{
		OwnerID:       input.OwnerID,
		Kind:          input.Kind,
		Name:          name,
		Currency:      currency,
		Balance:       decimal.Zero,
		LockedBalance: decimal.Zero,
		Status:        domain.WalletActive,
		AccountNumber: domain.NewAccountNumber(),
	}
	err := s.store.Atomic(ctx, func(tx ledger.Tx) error {
		return tx.InsertWallet(ctx, &w)
	})
	if err != nil {
		return domain.Wallet{}, err
	}
	s.logger.Info("wallet created", "wallet_id", w.ID, "owner_id", w.OwnerID, "kind", w.Kind.String())
	return w, nil
}

// EnsureMain returns the main wallet of ownerID, creating it when missing.
func (s *Service) EnsureMain(ctx context.Context, ownerID int64) (domain.Wallet, error) {
	var out domain.Wallet
	err := s.store.Atomic(ctx, func(tx ledger.Tx) error {
		w, found, err := tx.LockWalletByKind(ctx, ownerID, domain.MainWallet())
		if err != nil {
			return err
		}
		if found {
			out = w
			return nil
		}
		out = domain.Wallet{
			OwnerID:       ownerID,
			Kind:          domain.MainWallet(),
			Name:          domain.MainWallet().DefaultName(),
			Currency:      s.settings.BaseCurrency,
			Balance:       decimal.Zero,
			LockedBalance: decimal.Zero,
			Status:        domain.WalletActive,
			AccountNumber: domain.NewAccountNumber(),
		}
		return tx.InsertWallet(ctx, &out)
	})
	return out, err
}

// Get retrieves a wallet.
func (s *Service) Get(ctx context.Context, id int64) (domain.Wallet, error) {
	return s.store.Wallet(ctx, id)
}

// ListByOwner returns the wallets of ownerID ordered by id.
func (s *Service) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Wallet, error) {
	return s.store.WalletsByOwner(ctx, ownerID)
}

// Balances returns the balance view of every wallet of ownerID.
func (s *Service) Balances(ctx context.Context, ownerID int64) ([]Balance, error) {
	wallets, err := s.store.WalletsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	out := make([]Balance, 0, len(wallets))
	for _, w := range wallets {
		out = append(out, balanceOf(w, now))
	}
	return out, nil
}

// TotalBalance aggregates the balances of ownerID in the base currency. Under the
// convert policy asset wallets are valued at the current local unit price; under
// the naive policy raw balances are summed whatever their currency.
func (s *Service) TotalBalance(ctx context.Context, ownerID int64) (Total, error) {
	wallets, err := s.store.WalletsByOwner(ctx, ownerID)
	if err != nil {
		return Total{}, err
	}

	total := decimal.Zero
	quotes := make(map[domain.Asset]pricing.Quote)
	for _, w := range wallets {
		if w.Status == domain.WalletClosed || w.Balance.IsZero() {
			continue
		}
		asset, isAsset := w.Kind.Asset()
		if !isAsset || s.settings.BalancePolicy == config.BalancePolicyNaive {
			total = total.Add(w.Balance)
			continue
		}
		q, ok := quotes[asset]
		if !ok {
			if s.prices == nil {
				return Total{}, domain.Fail(domain.ErrProviderFailure, "no price source configured")
			}
			if q, err = s.prices.UnitPrice(ctx, asset); err != nil {
				return Total{}, err
			}
			quotes[asset] = q
		}
		total = total.Add(w.Balance.Mul(q.Local))
	}

	if s.settings.BalancePolicy != config.BalancePolicyNaive {
		total = domain.RoundLocal(total)
	}
	return Total{
		OwnerID:  ownerID,
		Currency: s.settings.BaseCurrency,
		Amount:   total,
		Policy:   s.settings.BalancePolicy,
		AsOf:     s.now().UTC(),
	}, nil
}

// RecentTransactions returns the latest entries across all wallets of ownerID.
func (s *Service) RecentTransactions(ctx context.Context, ownerID int64, limit int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	wallets, err := s.store.WalletsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(wallets))
	for _, w := range wallets {
		ids = append(ids, w.ID)
	}
	if len(ids) == 0 {
		return []domain.Transaction{}, nil
	}
	return s.store.RecentTransactions(ctx, ids, limit)
}

// Credit adds amount to an active wallet.
func (s *Service) Credit(ctx context.Context, walletID int64, amount decimal.Decimal) (domain.Wallet, error) {
	return s.mutate(ctx, walletID, func(w *domain.Wallet) error {
		if err := w.EnsureActive(); err != nil {
			return err
		}
		return w.Credit(amount)
	})
}

// Debit removes amount from an active wallet.
func (s *Service) Debit(ctx context.Context, walletID int64, amount decimal.Decimal) (domain.Wallet, error) {
	return s.mutate(ctx, walletID, func(w *domain.Wallet) error {
		if err := w.EnsureActive(); err != nil {
			return err
		}
		return w.Debit(amount)
	})
}

// Lock reserves amount of an active wallet.
func (s *Service) Lock(ctx context.Context, walletID int64, amount decimal.Decimal) (domain.Wallet, error) {
	return s.mutate(ctx, walletID, func(w *domain.Wallet) error {
		if err := w.EnsureActive(); err != nil {
			return err
		}
		return w.Lock(amount)
	})
}

// Unlock releases a reservation. Releasing is allowed on frozen wallets so
// pending operations can be compensated.
func (s *Service) Unlock(ctx context.Context, walletID int64, amount decimal.Decimal) (domain.Wallet, error) {
	return s.mutate(ctx, walletID, func(w *domain.Wallet) error {
		clamped, err := w.Unlock(amount)
		if clamped {
			s.logger.Warn("unlock exceeded locked balance",
				slog.Int64("wallet_id", w.ID), slog.String("amount", amount.String()))
		}
		return err
	})
}

// Freeze blocks balance mutations on the wallet.
func (s *Service) Freeze(ctx context.Context, walletID int64) (domain.Wallet, error) {
	return s.mutate(ctx, walletID, func(w *domain.Wallet) error { return w.Freeze() })
}

// Unfreeze re-activates a frozen wallet.
func (s *Service) Unfreeze(ctx context.Context, walletID int64) (domain.Wallet, error) {
	return s.mutate(ctx, walletID, func(w *domain.Wallet) error { return w.Unfreeze() })
}

// Close permanently closes an empty wallet.
func (s *Service) Close(ctx context.Context, walletID int64) (domain.Wallet, error) {
	return s.mutate(ctx, walletID, func(w *domain.Wallet) error { return w.Close() })
}

// CancelTransaction aborts a pending or processing entry. A processing
// withdrawal has its payout in flight and is settled only by the payout flow.
func (s *Service) CancelTransaction(ctx context.Context, transactionID int64) (domain.Transaction, error) {
	var out domain.Transaction
	err := s.store.Atomic(ctx, func(tx ledger.Tx) error {
		t, err := tx.LockTransaction(ctx, transactionID)
		if err != nil {
			return err
		}
		if t.Type == domain.TypeWithdrawal && t.Status == domain.StatusProcessing {
			return domain.Fail(domain.ErrInvalidTransition, "withdrawal %d has a payout in flight", t.ID)
		}
		if err := t.Cancel(); err != nil {
			return err
		}
		if err := tx.UpdateTransaction(ctx, t); err != nil {
			return err
		}
		out = t
		return nil
	})
	return out, err
}

func (s *Service) mutate(ctx context.Context, walletID int64, fn func(w *domain.Wallet) error) (domain.Wallet, error) {
	var out domain.Wallet
	err := s.store.Atomic(ctx, func(tx ledger.Tx) error {
		w, err := tx.LockWallet(ctx, walletID)
		if err != nil {
			return err
		}
		if err := fn(&w); err != nil {
			return err
		}
		if err := tx.UpdateWallet(ctx, w); err != nil {
			return err
		}
		out = w
		return nil
	})
	return out, err
}
