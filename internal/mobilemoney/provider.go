package mobilemoney

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mada-pay/mada_pay/internal/domain"
)

// Operator is a supported mobile-money network.
type Operator string

const (
	OperatorMVola  Operator = "mvola"
	OperatorOrange Operator = "orange"
	OperatorAirtel Operator = "airtel"
)

// ParseOperator validates a provider name.
func ParseOperator(s string) (Operator, error) {
	switch op := Operator(strings.ToLower(strings.TrimSpace(s))); op {
	case OperatorMVola, OperatorOrange, OperatorAirtel:
		return op, nil
	default:
		return "", domain.Fail(domain.ErrInvalidRequest, "unsupported mobile money provider %q", s)
	}
}

var phonePattern = regexp.MustCompile(`^(0|\+261)[0-9]{9}$`)

// NormalizePhone strips spaces and validates a local or +261 number.
func NormalizePhone(s string) (string, error) {
	phone := strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if !phonePattern.MatchString(phone) {
		return "", domain.Fail(domain.ErrInvalidRequest, "invalid mobile money number %q", s)
	}
	return phone, nil
}

// Payout is the instruction sent to the operator.
type Payout struct {
	TransactionUUID uuid.UUID
	Operator        Operator
	PhoneNumber     string
	Amount          decimal.Decimal
	Currency        string
}

// PayoutReceipt is the operator acknowledgement of a payout.
type PayoutReceipt struct {
	Reference string
	Status    string
}

// Provider represents a connector to a mobile-money operator. SubmitPayout must
// honour ctx cancellation.
type Provider interface {
	SubmitPayout(ctx context.Context, payout Payout) (PayoutReceipt, error)
}

// StaticProvider simulates a successful operator integration.
type StaticProvider struct{}

// SubmitPayout approves the payout with a synthetic reference.
func (StaticProvider) SubmitPayout(ctx context.Context, payout Payout) (PayoutReceipt, error) {
	if err := ctx.Err(); err != nil {
		return PayoutReceipt{}, err
	}
	return PayoutReceipt{Reference: NewReference(payout.Operator), Status: "approved"}, nil
}

// NewReference builds an operator reference such as MMMVO0123456789.
func NewReference(op Operator) string {
	prefix := strings.ToUpper(string(op))
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	return fmt.Sprintf("MM%s%010d", prefix, uuid.New().ID())
}
