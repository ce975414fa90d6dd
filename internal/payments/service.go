package payments

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
)

// Service moves funds between wallets of the same currency.
type Service struct {
	store    ledger.Store
	policy   domain.Policy
	notifier notification.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs a payment service.
func NewService(store ledger.Store, policy domain.Policy, notifier notification.Notifier, logger *slog.Logger) *Service {
	if notifier == nil {
		notifier = notification.Nop{}
	}
	return &Service{store: store, policy: policy, notifier: notifier, logger: logger, now: time.Now}
}

// TransferInput captures the data needed to move funds between wallets.
type TransferInput struct {
	FromWalletID int64
	ToWalletID   int64
	Amount       decimal.Decimal
	Description  string
	// RequestorOwnerID, when set, must own the source wallet.
	RequestorOwnerID int64
}

// TransferResult describes the ledger outcome of a transfer.
type TransferResult struct {
	TransactionID int64
	UUID          uuid.UUID
	Amount        decimal.Decimal
	Fee           decimal.Decimal
	FromBalance   decimal.Decimal
	ToBalance     decimal.Decimal
	CompletedAt   time.Time
}

// ErrNotOwner indicates the caller does not own the source wallet.
var ErrNotOwner = &domain.Error{Kind: domain.ErrInvalidRequest, Reason: "not owner of source wallet"}

// Transfer debits amount plus the transfer fee from the source wallet and
// credits amount to the destination in one unit of work. Both rows are locked in
// ascending id order.
func (s *Service) Transfer(ctx context.Context, input TransferInput) (TransferResult, error) {
	if input.FromWalletID == input.ToWalletID {
		return TransferResult{}, domain.Fail(domain.ErrInvalidRequest, "source and destination wallets are the same")
	}
	fee, total, err := s.policy.Quote(domain.TypeTransfer, input.Amount)
	if err != nil {
		return TransferResult{}, err
	}

	var (
		result      TransferResult
		from, to    domain.Wallet
		description = input.Description
	)
	err = s.store.Atomic(ctx, func(tx ledger.Tx) error {
		first, second := input.FromWalletID, input.ToWalletID
		if second < first {
			first, second = second, first
		}
		a, err := tx.LockWallet(ctx, first)
		if err != nil {
			return err
		}
		b, err := tx.LockWallet(ctx, second)
		if err != nil {
			return err
		}
		from, to = a, b
		if from.ID != input.FromWalletID {
			from, to = b, a
		}

		if input.RequestorOwnerID > 0 && from.OwnerID != input.RequestorOwnerID {
			return ErrNotOwner
		}
		if err := from.EnsureActive(); err != nil {
			return err
		}
		if err := to.EnsureActive(); err != nil {
			return err
		}
		if from.Currency != to.Currency {
			return domain.Fail(domain.ErrInvalidRequest, "cannot transfer %s to a %s wallet", from.Currency, to.Currency)
		}
		if err := from.Debit(total); err != nil {
			return err
		}
		if err := to.Credit(input.Amount); err != nil {
			return err
		}

		if description == "" {
			description = fmt.Sprintf("Transfer to %s", to.AccountNumber)
		}
		t := domain.Transaction{
			UUID:         uuid.New(),
			FromWalletID: domain.Ref(from.ID),
			ToWalletID:   domain.Ref(to.ID),
			Type:         domain.TypeTransfer,
			Amount:       input.Amount,
			Currency:     from.Currency,
			Fee:          fee,
			Status:       domain.StatusPending,
			Description:  description,
		}
		if err := t.MarkCompleted(s.now(), ""); err != nil {
			return err
		}
		if err := tx.InsertTransaction(ctx, &t); err != nil {
			return err
		}
		if err := tx.UpdateWallet(ctx, from); err != nil {
			return err
		}
		if err := tx.UpdateWallet(ctx, to); err != nil {
			return err
		}

		result = TransferResult{
			TransactionID: t.ID,
			UUID:          t.UUID,
			Amount:        t.Amount,
			Fee:           t.Fee,
			FromBalance:   from.Balance,
			ToBalance:     to.Balance,
			CompletedAt:   *t.CompletedAt,
		}
		return nil
	})
	if err != nil {
		return TransferResult{}, err
	}

	s.logger.Info("transfer completed",
		slog.Int64("transaction_id", result.TransactionID),
		slog.Int64("from_wallet_id", from.ID),
		slog.Int64("to_wallet_id", to.ID),
		slog.String("amount", input.Amount.String()))

	if err := s.notifier.Send(ctx, notification.Message{
		Kind:        notification.KindTransferReceived,
		OwnerID:     to.OwnerID,
		Destination: to.AccountNumber,
		Body:        fmt.Sprintf("You received %s %s from %s", input.Amount, to.Currency, from.AccountNumber),
	}); err != nil {
		s.logger.Warn("transfer notification failed", slog.Int64("transaction_id", result.TransactionID), slog.Any("error", err))
	}

	return result, nil
}
