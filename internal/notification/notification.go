package notification

import (
	"context"
	"log/slog"
)

const (
	// KindTransferReceived tells a recipient that funds arrived.
	KindTransferReceived = "transfer_received"
	// KindDepositReceived confirms a mobile-money top-up.
	KindDepositReceived = "deposit_received"
	// KindWithdrawalCompleted confirms a mobile-money payout.
	KindWithdrawalCompleted = "withdrawal_completed"
	// KindWithdrawalFailed reports a payout that was released back to the wallet.
	KindWithdrawalFailed     = "withdrawal_failed"
	KindInvestmentOpened     = "investment_opened"
	KindInvestmentLiquidated = "investment_liquidated"
)

// Message describes a notification payload.
type Message struct {
	Kind        string
	OwnerID     int64
	Destination string
	Body        string
}

// Notifier delivers notifications to downstream systems. Delivery failures
// never undo a committed money movement.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is a stub implementation that writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		"kind", message.Kind,
		"owner_id", message.OwnerID,
		"destination", message.Destination,
		"body", message.Body,
	)
	return nil
}

// Nop discards every message.
type Nop struct{}

// Send implements Notifier.
func (Nop) Send(context.Context, Message) error { return nil }
