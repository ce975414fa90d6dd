package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TypeTransfer     TransactionType = "transfer"
	TypeDeposit      TransactionType = "deposit"
	TypeWithdrawal   TransactionType = "withdrawal"
	TypeInvestment   TransactionType = "investment"
	TypeDivestment   TransactionType = "divestment"
	TypeFee          TransactionType = "fee"
	TypeSubscription TransactionType = "subscription"
)

// TransactionStatus is the lifecycle state of a ledger entry.
type TransactionStatus string

const (
	StatusPending    TransactionStatus = "pending"
	StatusProcessing TransactionStatus = "processing"
	StatusCompleted  TransactionStatus = "completed"
	StatusFailed     TransactionStatus = "failed"
	StatusCancelled  TransactionStatus = "cancelled"
)

// Transaction is one financial movement and its outcome. Once completed only
// annotations may change.
type Transaction struct {
	ID                   int64
	UUID                 uuid.UUID
	FromWalletID         *int64
	ToWalletID           *int64
	Type                 TransactionType
	Amount               decimal.Decimal
	Currency             string
	Fee                  decimal.Decimal
	Status               TransactionStatus
	MobileMoneyNumber    string
	MobileMoneyProvider  string
	MobileMoneyReference string
	Description          string
	Metadata             map[string]string
	CompletedAt          *time.Time
	FailureReason        string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// TotalDebited is what the source wallet pays, stored amount plus stored fee.
func (t *Transaction) TotalDebited() decimal.Decimal {
	return t.Amount.Add(t.Fee)
}

// IsTerminal reports whether no further status change is possible.
func (t *Transaction) IsTerminal() bool {
	switch t.Status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// MarkProcessing moves a pending entry to processing.
func (t *Transaction) MarkProcessing() error {
	switch t.Status {
	case StatusProcessing:
		return nil
	case StatusPending:
		t.Status = StatusProcessing
		return nil
	default:
		return Fail(ErrInvalidTransition, "transaction %s is %s", t.UUID, t.Status)
	}
}

// MarkCompleted stamps completion. Completing twice is a no-op and leaves
// CompletedAt and the reference untouched.
func (t *Transaction) MarkCompleted(now time.Time, reference string) error {
	switch t.Status {
	case StatusCompleted:
		return nil
	case StatusPending, StatusProcessing:
		completedAt := now.UTC()
		t.Status = StatusCompleted
		t.CompletedAt = &completedAt
		if reference != "" {
			t.MobileMoneyReference = reference
		}
		return nil
	default:
		return Fail(ErrInvalidTransition, "cannot complete %s transaction %s", t.Status, t.UUID)
	}
}

// MarkFailed records why the movement did not happen.
func (t *Transaction) MarkFailed(reason string) error {
	if t.Status != StatusPending && t.Status != StatusProcessing {
		return Fail(ErrInvalidTransition, "cannot fail %s transaction %s", t.Status, t.UUID)
	}
	t.Status = StatusFailed
	t.FailureReason = reason
	return nil
}

// Cancel aborts a pending or processing entry.
func (t *Transaction) Cancel() error {
	if t.Status != StatusPending && t.Status != StatusProcessing {
		return Fail(ErrInvalidTransition, "cannot cancel %s transaction %s", t.Status, t.UUID)
	}
	t.Status = StatusCancelled
	return nil
}

// Ref returns a pointer suitable for nullable id columns.
func Ref(id int64) *int64 {
	return &id
}
