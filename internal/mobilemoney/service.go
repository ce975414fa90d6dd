package mobilemoney

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mada-pay/mada_pay/internal/domain"
	"github.com/mada-pay/mada_pay/internal/ledger"
	"github.com/mada-pay/mada_pay/internal/notification"
)

const (
	defaultProviderTimeout = 15 * time.Second
	finalizeTimeout        = 5 * time.Second
	settleAttempts         = 4
	settleBackoff          = 50 * time.Millisecond
)

// Service coordinates mobile-money withdrawals and deposits using the ledger
// store and the operator connector.
type Service struct {
	store    ledger.Store
	provider Provider
	policy   domain.Policy
	notifier notification.Notifier
	logger   *slog.Logger
	timeout  time.Duration
	backoff  time.Duration
	now      func() time.Time
}

// NewService prepares a mobile-money service.
func NewService(store ledger.Store, provider Provider, policy domain.Policy, notifier notification.Notifier, logger *slog.Logger, timeout time.Duration) *Service {
	if provider == nil {
		provider = StaticProvider{}
	}
	if notifier == nil {
		notifier = notification.Nop{}
	}
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	return &Service{
		store:    store,
		provider: provider,
		policy:   policy,
		notifier: notifier,
		logger:   logger,
		timeout:  timeout,
		backoff:  settleBackoff,
		now:      time.Now,
	}
}

// WithdrawInput captures the data required to cash out to a mobile-money number.
type WithdrawInput struct {
	WalletID    int64
	Amount      decimal.Decimal
	PhoneNumber string
	Provider    string
	Description string
}

// DepositInput captures a provider-confirmed mobile-money top-up.
type DepositInput struct {
	WalletID    int64
	Amount      decimal.Decimal
	PhoneNumber string
	Provider    string
	Reference   string
	Description string
}

// Result represents the domain outcome of a mobile-money operation.
type Result struct {
	OwnerID       int64
	TransactionID int64
	UUID          uuid.UUID
	Status        domain.TransactionStatus
	Amount        decimal.Decimal
	Fee           decimal.Decimal
	Total         decimal.Decimal
	Reference     string
	FailureReason string
	WalletBalance decimal.Decimal
	Available     decimal.Decimal
}

// Withdraw reserves amount plus fee, submits the payout and then either debits
// the reservation and completes the transaction or releases it and marks the
// transaction failed. The caller never observes a debit without completion.
func (s *Service) Withdraw(ctx context.Context, input WithdrawInput) (Result, error) {
	phone, err := NormalizePhone(input.PhoneNumber)
	if err != nil {
		return Result{}, err
	}
	operator, err := ParseOperator(input.Provider)
	if err != nil {
		return Result{}, err
	}
	fee, total, err := s.policy.Quote(domain.TypeWithdrawal, input.Amount)
	if err != nil {
		return Result{}, err
	}

	var pending domain.Transaction
	err = s.store.Atomic(ctx, func(tx ledger.Tx) error {
		w, err := tx.LockWallet(ctx, input.WalletID)
		if err != nil {
			return err
		}
		if w.Kind.Class() != domain.ClassMain {
			return domain.Fail(domain.ErrInvalidRequest, "wallet %d cannot pay out to mobile money", w.ID)
		}
		if err := w.EnsureActive(); err != nil {
			return err
		}
		if err := w.CheckFunds(total); err != nil {
			return err
		}

		description := input.Description
		if description == "" {
			description = fmt.Sprintf("Withdrawal to %s %s", operator, phone)
		}
		pending = domain.Transaction{
			UUID:                uuid.New(),
			FromWalletID:        domain.Ref(w.ID),
			Type:                domain.TypeWithdrawal,
			Amount:              input.Amount,
			Currency:            w.Currency,
			Fee:                 fee,
			Status:              domain.StatusPending,
			MobileMoneyNumber:   phone,
			MobileMoneyProvider: string(operator),
			Description:         description,
		}
		if err := pending.MarkProcessing(); err != nil {
			return err
		}
		if err := tx.InsertTransaction(ctx, &pending); err != nil {
			return err
		}
		if err := w.Lock(total); err != nil {
			return err
		}
		return tx.UpdateWallet(ctx, w)
	})
	if err != nil {
		return Result{}, err
	}

	log := s.logger.With(slog.Int64("transaction_id", pending.ID), slog.Int64("wallet_id", input.WalletID))
	log.Info("withdrawal reserved", slog.String("amount", input.Amount.String()), slog.String("fee", fee.String()))

	receipt, payoutErr := s.submit(ctx, Payout{
		TransactionUUID: pending.UUID,
		Operator:        operator,
		PhoneNumber:     phone,
		Amount:          input.Amount,
		Currency:        pending.Currency,
	})

	// The reservation must be settled even when the caller has gone away.
	base := context.WithoutCancel(ctx)
	notifyCtx, cancel := context.WithTimeout(base, finalizeTimeout)
	defer cancel()

	if payoutErr != nil {
		reason := domain.Reason(payoutErr)
		result, err := s.settle(base, log, pending.ID, func(w *domain.Wallet, t *domain.Transaction) error {
			if t.Status == domain.StatusFailed {
				return nil
			}
			if err := s.release(w, total, log); err != nil {
				return err
			}
			return t.MarkFailed(reason)
		})
		if err != nil {
			log.Error("withdrawal compensation failed", slog.Any("error", err), slog.String("provider_error", reason))
			return Result{}, err
		}
		log.Warn("withdrawal failed", slog.String("reason", reason))
		s.notify(notifyCtx, result, notification.KindWithdrawalFailed, phone,
			fmt.Sprintf("Withdrawal of %s %s failed: %s", input.Amount, pending.Currency, reason))
		return result, domain.Fail(domain.ErrProviderFailure, "%s", reason)
	}

	if err := s.retry(base, log, func(ctx context.Context) error {
		return s.recordPayout(ctx, pending.ID, receipt.Reference)
	}); err != nil {
		log.Error("payout reference not recorded", slog.Any("error", err), slog.String("reference", receipt.Reference))
	}

	result, err := s.settle(base, log, pending.ID, func(w *domain.Wallet, t *domain.Transaction) error {
		if t.Status == domain.StatusCompleted {
			return nil
		}
		if err := s.release(w, total, log); err != nil {
			return err
		}
		if err := w.Debit(total); err != nil {
			return err
		}
		return t.MarkCompleted(s.now(), receipt.Reference)
	})
	if err != nil {
		log.Error("withdrawal completion failed after payout", slog.Any("error", err), slog.String("reference", receipt.Reference))
		return Result{}, err
	}
	log.Info("withdrawal completed", slog.String("reference", receipt.Reference))
	s.notify(notifyCtx, result, notification.KindWithdrawalCompleted, phone,
		fmt.Sprintf("Withdrawal of %s %s sent to %s", input.Amount, pending.Currency, phone))
	return result, nil
}

// Deposit records a mobile-money top-up already confirmed by the operator.
func (s *Service) Deposit(ctx context.Context, input DepositInput) (Result, error) {
	phone, err := NormalizePhone(input.PhoneNumber)
	if err != nil {
		return Result{}, err
	}
	operator, err := ParseOperator(input.Provider)
	if err != nil {
		return Result{}, err
	}
	fee, _, err := s.policy.Quote(domain.TypeDeposit, input.Amount)
	if err != nil {
		return Result{}, err
	}
	credited := input.Amount.Sub(fee)
	reference := input.Reference
	if reference == "" {
		reference = NewReference(operator)
	}

	var result Result
	err = s.store.Atomic(ctx, func(tx ledger.Tx) error {
		w, err := tx.LockWallet(ctx, input.WalletID)
		if err != nil {
			return err
		}
		if w.Kind.Class() != domain.ClassMain {
			return domain.Fail(domain.ErrInvalidRequest, "wallet %d cannot receive mobile money", w.ID)
		}
		if err := w.EnsureActive(); err != nil {
			return err
		}
		if err := w.Credit(credited); err != nil {
			return err
		}
		description := input.Description
		if description == "" {
			description = fmt.Sprintf("Deposit from %s %s", operator, phone)
		}
		t := domain.Transaction{
			UUID:                uuid.New(),
			ToWalletID:          domain.Ref(w.ID),
			Type:                domain.TypeDeposit,
			Amount:              input.Amount,
			Currency:            w.Currency,
			Fee:                 fee,
			Status:              domain.StatusPending,
			MobileMoneyNumber:   phone,
			MobileMoneyProvider: string(operator),
			Description:         description,
		}
		if err := t.MarkCompleted(s.now(), reference); err != nil {
			return err
		}
		if err := tx.InsertTransaction(ctx, &t); err != nil {
			return err
		}
		if err := tx.UpdateWallet(ctx, w); err != nil {
			return err
		}
		result = resultOf(w, t)
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	s.logger.Info("deposit recorded", slog.Int64("transaction_id", result.TransactionID), slog.Int64("wallet_id", input.WalletID))
	s.notify(ctx, result, notification.KindDepositReceived, phone,
		fmt.Sprintf("Deposit of %s received", input.Amount))
	return result, nil
}

func (s *Service) submit(ctx context.Context, payout Payout) (PayoutReceipt, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	receipt, err := s.provider.SubmitPayout(ctx, payout)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return PayoutReceipt{}, domain.Fail(domain.ErrProviderFailure, "%s did not answer within %s", payout.Operator, s.timeout)
		}
		return PayoutReceipt{}, err
	}
	return receipt, nil
}

// recordPayout stores the operator reference on a withdrawal still awaiting settlement.
func (s *Service) recordPayout(ctx context.Context, txID int64, reference string) error {
	return s.store.Atomic(ctx, func(tx ledger.Tx) error {
		t, err := tx.LockTransaction(ctx, txID)
		if err != nil {
			return err
		}
		if t.Status != domain.StatusProcessing {
			return nil
		}
		t.MobileMoneyReference = reference
		if t.Metadata == nil {
			t.Metadata = map[string]string{}
		}
		t.Metadata["payout_reference"] = reference
		t.Metadata["payout_submitted_at"] = s.now().UTC().Format(time.RFC3339)
		return tx.UpdateTransaction(ctx, t)
	})
}

// settle locks the transaction and its source wallet and applies fn to both,
// retrying store failures. fn must tolerate a transaction it already settled.
func (s *Service) settle(ctx context.Context, log *slog.Logger, txID int64, fn func(w *domain.Wallet, t *domain.Transaction) error) (Result, error) {
	var result Result
	err := s.retry(ctx, log, func(ctx context.Context) error {
		return s.store.Atomic(ctx, func(tx ledger.Tx) error {
			t, err := tx.LockTransaction(ctx, txID)
			if err != nil {
				return err
			}
			if t.FromWalletID == nil {
				return domain.Fail(domain.ErrInvalidRequest, "transaction %d has no source wallet", txID)
			}
			w, err := tx.LockWallet(ctx, *t.FromWalletID)
			if err != nil {
				return err
			}
			if err := fn(&w, &t); err != nil {
				return err
			}
			if err := tx.UpdateWallet(ctx, w); err != nil {
				return err
			}
			if err := tx.UpdateTransaction(ctx, t); err != nil {
				return err
			}
			result = resultOf(w, t)
			return nil
		})
	})
	return result, err
}

// retry runs op up to settleAttempts times with doubling backoff, each attempt
// bounded by finalizeTimeout. Domain errors are final.
func (s *Service) retry(ctx context.Context, log *slog.Logger, op func(ctx context.Context) error) error {
	delay := s.backoff
	for attempt := 1; ; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, finalizeTimeout)
		err := op(attemptCtx)
		cancel()

		var domainErr *domain.Error
		if err == nil || errors.As(err, &domainErr) || attempt == settleAttempts {
			return err
		}
		log.Warn("settlement attempt failed", slog.Int("attempt", attempt), slog.Any("error", err))

		select {
		case <-ctx.Done():
			return err
		case <-time.After(delay):
		}
		delay *= 2
	}
}

func (s *Service) release(w *domain.Wallet, amount decimal.Decimal, log *slog.Logger) error {
	clamped, err := w.Unlock(amount)
	if clamped {
		log.Warn("unlock exceeded locked balance", slog.String("amount", amount.String()))
	}
	return err
}

func (s *Service) notify(ctx context.Context, r Result, kind, destination, body string) {
	if err := s.notifier.Send(ctx, notification.Message{Kind: kind, OwnerID: r.OwnerID, Destination: destination, Body: body}); err != nil {
		s.logger.Warn("mobile money notification failed", slog.Int64("transaction_id", r.TransactionID), slog.Any("error", err))
	}
}

func resultOf(w domain.Wallet, t domain.Transaction) Result {
	return Result{
		OwnerID:       w.OwnerID,
		TransactionID: t.ID,
		UUID:          t.UUID,
		Status:        t.Status,
		Amount:        t.Amount,
		Fee:           t.Fee,
		Total:         t.TotalDebited(),
		Reference:     t.MobileMoneyReference,
		FailureReason: t.FailureReason,
		WalletBalance: w.Balance,
		Available:     w.AvailableBalance(),
	}
}
