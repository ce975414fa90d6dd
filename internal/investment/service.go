package investment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mada-pay/mada_pay/internal/domain"
	"github.com/mada-pay/mada_pay/internal/ledger"
	"github.com/mada-pay/mada_pay/internal/notification"
	"github.com/mada-pay/mada_pay/internal/pricing"
)

var hundred = decimal.NewFromInt(100)

// Service buys and sells asset positions against a base-currency wallet.
type Service struct {
	store    ledger.Store
	prices   pricing.Source
	policy   domain.Policy
	notifier notification.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs an investment service.
func NewService(store ledger.Store, prices pricing.Source, policy domain.Policy, notifier notification.Notifier, logger *slog.Logger) *Service {
	if notifier == nil {
		notifier = notification.Nop{}
	}
	return &Service{store: store, prices: prices, policy: policy, notifier: notifier, logger: logger, now: time.Now}
}

// InvestInput captures a purchase request. Quote is fetched from the price
// source when nil.
type InvestInput struct {
	WalletID int64
	Asset    domain.Asset
	Amount   decimal.Decimal
	Quote    *pricing.Quote
	Notes    string
}

// InvestResult describes the opened position and the wallets after the move.
type InvestResult struct {
	Investment     domain.Investment
	TransactionID  int64
	Fee            decimal.Decimal
	Total          decimal.Decimal
	FundingBalance decimal.Decimal
	AssetWallet    domain.Wallet
}

// Invest debits amount plus fee from the funding wallet, credits the bought
// quantity to the owner's asset wallet (created on first purchase) and records
// the position, all in one unit of work.
func (s *Service) Invest(ctx context.Context, input InvestInput) (InvestResult, error) {
	if !input.Asset.Valid() {
		return InvestResult{}, domain.Fail(domain.ErrInvalidRequest, "unknown asset %q", input.Asset)
	}
	fee, total, err := s.policy.Quote(domain.TypeInvestment, input.Amount)
	if err != nil {
		return InvestResult{}, err
	}
	quote, err := s.quote(ctx, input.Asset, input.Quote)
	if err != nil {
		return InvestResult{}, err
	}
	quantity := domain.RoundQuantity(input.Amount.Div(quote.Local))
	if !quantity.IsPositive() {
		return InvestResult{}, domain.Fail(domain.ErrInvalidAmount, "%s buys less than one unit of %s", input.Amount, quote.Asset.Symbol())
	}

	var result InvestResult
	err = s.store.Atomic(ctx, func(tx ledger.Tx) error {
		owner, err := tx.Wallet(ctx, input.WalletID)
		if err != nil {
			return err
		}
		if owner.Kind.Class() != domain.ClassMain {
			return domain.Fail(domain.ErrInvalidRequest, "wallet %d cannot fund investments", owner.ID)
		}
		holdingID, err := s.assetWallet(ctx, tx, owner.OwnerID, input.Asset)
		if err != nil {
			return err
		}
		funding, holding, err := lockPair(ctx, tx, owner.ID, holdingID)
		if err != nil {
			return err
		}
		if err := funding.EnsureActive(); err != nil {
			return err
		}
		if err := funding.Debit(total); err != nil {
			return err
		}
		if err := holding.EnsureActive(); err != nil {
			return err
		}
		if err := holding.Credit(quantity); err != nil {
			return err
		}

		t := domain.Transaction{
			UUID:         uuid.New(),
			FromWalletID: domain.Ref(funding.ID),
			ToWalletID:   domain.Ref(holding.ID),
			Type:         domain.TypeInvestment,
			Amount:       input.Amount,
			Currency:     funding.Currency,
			Fee:          fee,
			Status:       domain.StatusPending,
			Description:  fmt.Sprintf("Purchase of %s %s", quantity, input.Asset.Symbol()),
			Metadata: map[string]string{
				"asset":          string(input.Asset),
				"quantity":       quantity.String(),
				"unit_price":     quote.Local.String(),
				"unit_price_usd": quote.USD.String(),
			},
		}
		if err := t.MarkCompleted(s.now(), ""); err != nil {
			return err
		}
		if err := tx.InsertTransaction(ctx, &t); err != nil {
			return err
		}
		if err := tx.UpdateWallet(ctx, funding); err != nil {
			return err
		}
		if err := tx.UpdateWallet(ctx, holding); err != nil {
			return err
		}

		inv := domain.NewInvestment(domain.OpenPosition{
			OwnerID:         funding.OwnerID,
			WalletID:        holding.ID,
			FundingWalletID: funding.ID,
			Asset:           input.Asset,
			Quantity:        quantity,
			PriceLocal:      quote.Local,
			PriceUSD:        quote.USD,
			Invested:        input.Amount,
			InvestedUSD:     quantity.Mul(quote.USD),
			PurchaseTxID:    t.ID,
			Now:             s.now(),
		})
		inv.Notes = input.Notes
		if err := tx.InsertInvestment(ctx, &inv); err != nil {
			return err
		}

		result = InvestResult{
			Investment:     inv,
			TransactionID:  t.ID,
			Fee:            fee,
			Total:          total,
			FundingBalance: funding.Balance,
			AssetWallet:    holding,
		}
		return nil
	})
	if err != nil {
		return InvestResult{}, err
	}

	s.logger.Info("investment opened",
		slog.Int64("investment_id", result.Investment.ID),
		slog.String("asset", string(input.Asset)),
		slog.String("quantity", quantity.String()),
		slog.String("amount", input.Amount.String()))
	s.notify(ctx, notification.KindInvestmentOpened, result.Investment,
		fmt.Sprintf("You bought %s %s for %s", quantity, input.Asset.Symbol(), input.Amount))
	return result, nil
}

// UpdatePrices revalues one position. Quote is fetched when nil.
func (s *Service) UpdatePrices(ctx context.Context, investmentID int64, quote *pricing.Quote) (domain.Investment, error) {
	current, err := s.store.Investment(ctx, investmentID)
	if err != nil {
		return domain.Investment{}, err
	}
	q, err := s.quote(ctx, current.Asset, quote)
	if err != nil {
		return domain.Investment{}, err
	}

	var out domain.Investment
	err = s.store.Atomic(ctx, func(tx ledger.Tx) error {
		inv, err := tx.LockInvestment(ctx, investmentID)
		if err != nil {
			return err
		}
		if err := inv.UpdatePrices(q.Local, q.USD, s.now()); err != nil {
			return err
		}
		if err := tx.UpdateInvestment(ctx, inv); err != nil {
			return err
		}
		out = inv
		return nil
	})
	return out, err
}

// RefreshPrices revalues every active position of ownerID, fetching one quote
// per distinct asset.
func (s *Service) RefreshPrices(ctx context.Context, ownerID int64) ([]domain.Investment, error) {
	active, err := s.store.InvestmentsByOwner(ctx, ownerID, domain.InvestmentActive)
	if err != nil {
		return nil, err
	}
	quotes := make(map[domain.Asset]pricing.Quote)
	for _, inv := range active {
		if _, ok := quotes[inv.Asset]; ok {
			continue
		}
		q, err := s.quote(ctx, inv.Asset, nil)
		if err != nil {
			return nil, err
		}
		quotes[inv.Asset] = q
	}

	out := make([]domain.Investment, 0, len(active))
	err = s.store.Atomic(ctx, func(tx ledger.Tx) error {
		for _, candidate := range active {
			inv, err := tx.LockInvestment(ctx, candidate.ID)
			if err != nil {
				return err
			}
			if inv.Status != domain.InvestmentActive {
				continue
			}
			q := quotes[inv.Asset]
			if err := inv.UpdatePrices(q.Local, q.USD, s.now()); err != nil {
				return err
			}
			if err := tx.UpdateInvestment(ctx, inv); err != nil {
				return err
			}
			out = append(out, inv)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("prices refreshed", slog.Int64("owner_id", ownerID), slog.Int("positions", len(out)))
	return out, nil
}

// LiquidateInput captures a sell request. Quantity, when set, must equal the
// whole position. Quote is fetched when nil.
type LiquidateInput struct {
	InvestmentID int64
	Quantity     decimal.NullDecimal
	Quote        *pricing.Quote
}

// LiquidateResult describes the closed position and the proceeds.
type LiquidateResult struct {
	Investment     domain.Investment
	TransactionID  int64
	Proceeds       decimal.Decimal
	Fee            decimal.Decimal
	Net            decimal.Decimal
	FundingBalance decimal.Decimal
}

// Liquidate sells the whole position: the asset wallet is debited by the held
// quantity and the funding wallet credited with the proceeds net of fee.
func (s *Service) Liquidate(ctx context.Context, input LiquidateInput) (LiquidateResult, error) {
	current, err := s.store.Investment(ctx, input.InvestmentID)
	if err != nil {
		return LiquidateResult{}, err
	}
	if current.Status != domain.InvestmentActive {
		return LiquidateResult{}, domain.Fail(domain.ErrInvalidTransition, "investment %d is %s", current.ID, current.Status)
	}
	if input.Quantity.Valid && !input.Quantity.Decimal.Equal(current.Quantity) {
		return LiquidateResult{}, domain.Fail(domain.ErrInvalidTransition, "partial liquidation is not supported, position holds %s", current.Quantity)
	}
	q, err := s.quote(ctx, current.Asset, input.Quote)
	if err != nil {
		return LiquidateResult{}, err
	}

	var result LiquidateResult
	err = s.store.Atomic(ctx, func(tx ledger.Tx) error {
		inv, err := tx.LockInvestment(ctx, input.InvestmentID)
		if err != nil {
			return err
		}
		if inv.Status != domain.InvestmentActive {
			return domain.Fail(domain.ErrInvalidTransition, "investment %d is %s", inv.ID, inv.Status)
		}

		holding, funding, err := lockPair(ctx, tx, inv.WalletID, inv.FundingWalletID)
		if err != nil {
			return err
		}
		if err := holding.EnsureActive(); err != nil {
			return err
		}
		if err := funding.EnsureActive(); err != nil {
			return err
		}
		if err := holding.Debit(inv.Quantity); err != nil {
			return err
		}

		proceeds := domain.RoundLocal(inv.Quantity.Mul(q.Local))
		fee, _, err := s.policy.Quote(domain.TypeDivestment, proceeds)
		if err != nil {
			return err
		}
		net := proceeds.Sub(fee)
		if err := funding.Credit(net); err != nil {
			return err
		}

		t := domain.Transaction{
			UUID:         uuid.New(),
			FromWalletID: domain.Ref(holding.ID),
			ToWalletID:   domain.Ref(funding.ID),
			Type:         domain.TypeDivestment,
			Amount:       proceeds,
			Currency:     funding.Currency,
			Fee:          fee,
			Status:       domain.StatusPending,
			Description:  fmt.Sprintf("Sale of %s %s", inv.Quantity, inv.Asset.Symbol()),
			Metadata: map[string]string{
				"asset":          string(inv.Asset),
				"investment_id":  fmt.Sprint(inv.ID),
				"quantity":       inv.Quantity.String(),
				"unit_price":     q.Local.String(),
				"unit_price_usd": q.USD.String(),
			},
		}
		if err := t.MarkCompleted(s.now(), ""); err != nil {
			return err
		}
		if err := tx.InsertTransaction(ctx, &t); err != nil {
			return err
		}
		if err := inv.MarkSold(q.Local, q.USD, t.ID, s.now()); err != nil {
			return err
		}
		if err := tx.UpdateWallet(ctx, holding); err != nil {
			return err
		}
		if err := tx.UpdateWallet(ctx, funding); err != nil {
			return err
		}
		if err := tx.UpdateInvestment(ctx, inv); err != nil {
			return err
		}

		result = LiquidateResult{
			Investment:     inv,
			TransactionID:  t.ID,
			Proceeds:       proceeds,
			Fee:            fee,
			Net:            net,
			FundingBalance: funding.Balance,
		}
		return nil
	})
	if err != nil {
		return LiquidateResult{}, err
	}

	s.logger.Info("investment liquidated",
		slog.Int64("investment_id", result.Investment.ID),
		slog.String("proceeds", result.Proceeds.String()),
		slog.String("realized_pnl", result.Investment.RealizedPnL.Decimal.String()))
	s.notify(ctx, notification.KindInvestmentLiquidated, result.Investment,
		fmt.Sprintf("You sold %s %s for %s", result.Investment.Quantity, result.Investment.Asset.Symbol(), result.Net))
	return result, nil
}

// Get returns one position.
func (s *Service) Get(ctx context.Context, investmentID int64) (domain.Investment, error) {
	return s.store.Investment(ctx, investmentID)
}

// Portfolio aggregates the positions of one owner.
type Portfolio struct {
	OwnerID       int64
	Positions     []domain.Investment
	TotalInvested decimal.Decimal
	CurrentValue  decimal.Decimal
	UnrealizedPnL decimal.Decimal
	PnLPercentage decimal.Decimal
}

// ListPositions returns the positions of ownerID, newest first, optionally
// filtered by status, with totals over the active ones.
func (s *Service) ListPositions(ctx context.Context, ownerID int64, status domain.InvestmentStatus) (Portfolio, error) {
	positions, err := s.store.InvestmentsByOwner(ctx, ownerID, status)
	if err != nil {
		return Portfolio{}, err
	}
	p := Portfolio{
		OwnerID:       ownerID,
		Positions:     positions,
		TotalInvested: decimal.Zero,
		CurrentValue:  decimal.Zero,
		UnrealizedPnL: decimal.Zero,
		PnLPercentage: decimal.Zero,
	}
	for _, inv := range positions {
		if inv.Status != domain.InvestmentActive {
			continue
		}
		p.TotalInvested = p.TotalInvested.Add(inv.TotalInvested)
		p.CurrentValue = p.CurrentValue.Add(inv.CurrentValue)
	}
	p.UnrealizedPnL = p.CurrentValue.Sub(p.TotalInvested)
	if p.TotalInvested.IsPositive() {
		p.PnLPercentage = p.UnrealizedPnL.Div(p.TotalInvested).Mul(hundred).Round(2)
	}
	return p, nil
}

// Quotes returns the current quote of every catalog asset.
func (s *Service) Quotes(ctx context.Context) ([]pricing.Quote, error) {
	out := make([]pricing.Quote, 0, len(domain.Assets()))
	for _, a := range domain.Assets() {
		q, err := s.quote(ctx, a, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

func (s *Service) quote(ctx context.Context, asset domain.Asset, given *pricing.Quote) (pricing.Quote, error) {
	if given != nil {
		q := *given
		if q.Asset == "" {
			q.Asset = asset
		}
		if q.Asset != asset {
			return pricing.Quote{}, domain.Fail(domain.ErrInvalidRequest, "quote for %s given for %s", q.Asset, asset)
		}
		if err := q.Validate(); err != nil {
			return pricing.Quote{}, err
		}
		return q, nil
	}
	if s.prices == nil {
		return pricing.Quote{}, domain.Fail(domain.ErrProviderFailure, "no price source configured")
	}
	q, err := s.prices.UnitPrice(ctx, asset)
	if err != nil {
		return pricing.Quote{}, err
	}
	if err := q.Validate(); err != nil {
		return pricing.Quote{}, err
	}
	return q, nil
}

// assetWallet returns the id of the owner's open wallet for asset, creating it
// on first purchase. It takes no lock so callers can lock in id order.
func (s *Service) assetWallet(ctx context.Context, tx ledger.Tx, ownerID int64, asset domain.Asset) (int64, error) {
	kind := asset.WalletKind()
	wallets, err := tx.WalletsByOwner(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	for _, w := range wallets {
		if w.Kind == kind && w.Status != domain.WalletClosed {
			return w.ID, nil
		}
	}
	w := domain.Wallet{
		OwnerID:       ownerID,
		Kind:          kind,
		Name:          kind.DefaultName(),
		Currency:      kind.Currency(""),
		Balance:       decimal.Zero,
		LockedBalance: decimal.Zero,
		Status:        domain.WalletActive,
		AccountNumber: domain.NewAccountNumber(),
	}
	if err := tx.InsertWallet(ctx, &w); err != nil {
		return 0, err
	}
	return w.ID, nil
}

// lockPair locks two wallets in ascending id order and returns them in argument order.
func lockPair(ctx context.Context, tx ledger.Tx, first, second int64) (domain.Wallet, domain.Wallet, error) {
	lo, hi := first, second
	if hi < lo {
		lo, hi = hi, lo
	}
	a, err := tx.LockWallet(ctx, lo)
	if err != nil {
		return domain.Wallet{}, domain.Wallet{}, err
	}
	b, err := tx.LockWallet(ctx, hi)
	if err != nil {
		return domain.Wallet{}, domain.Wallet{}, err
	}
	if a.ID == first {
		return a, b, nil
	}
	return b, a, nil
}

func (s *Service) notify(ctx context.Context, kind string, inv domain.Investment, body string) {
	if err := s.notifier.Send(ctx, notification.Message{Kind: kind, OwnerID: inv.OwnerID, Body: body}); err != nil {
		s.logger.Warn("investment notification failed", slog.Int64("investment_id", inv.ID), slog.Any("error", err))
	}
}
