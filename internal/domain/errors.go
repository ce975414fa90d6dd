package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAmount is returned for negative, zero where positive is required, or malformed amounts.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientFunds occurs when a debit or reservation exceeds the available balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrWalletInactive is returned when a frozen or closed wallet is targeted by a mutation.
	ErrWalletInactive = errors.New("wallet inactive")

	// ErrInvalidPrice indicates a missing or non-positive price snapshot.
	ErrInvalidPrice = errors.New("invalid price")

	// ErrProviderFailure wraps failures and timeouts of external payout or price calls.
	ErrProviderFailure = errors.New("provider failure")

	// ErrNotFound indicates a referenced wallet, transaction, investment or user is missing.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates the request collides with existing state, e.g. a second main wallet.
	ErrConflict = errors.New("conflict")

	// ErrInvalidRequest covers malformed input that is not an amount or a price.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidTransition is returned when a status change is not allowed from the current status.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Error pairs a taxonomy kind with a human-readable reason.
type Error struct {
	Kind   error
	Reason string
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Reason
}

func (e *Error) Unwrap() error { return e.Kind }

// Fail builds an *Error of the given kind.
func Fail(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// Reason extracts the human-readable reason of err, falling back to its message.
func Reason(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Reason != "" {
		return de.Reason
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
