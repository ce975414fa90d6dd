package domain

import "github.com/shopspring/decimal"

// FeeRule is the fee rate and minimum accepted amount of one operation type.
type FeeRule struct {
	Rate    decimal.Decimal
	Minimum decimal.Decimal
}

// Policy holds fee rules keyed by transaction type. Types without a rule are free
// and have no minimum.
type Policy map[TransactionType]FeeRule

// DefaultPolicy is the observed production policy: 5% on mobile-money withdrawals
// (minimum 1000), 2% on investments (minimum 10000).
func DefaultPolicy() Policy {
	return Policy{
		TypeWithdrawal: {Rate: decimal.RequireFromString("0.05"), Minimum: decimal.NewFromInt(1000)},
		TypeInvestment: {Rate: decimal.RequireFromString("0.02"), Minimum: decimal.NewFromInt(10000)},
		TypeDivestment: {Rate: decimal.Zero, Minimum: decimal.Zero},
		TypeTransfer:   {Rate: decimal.Zero, Minimum: decimal.Zero},
		TypeDeposit:    {Rate: decimal.Zero, Minimum: decimal.Zero},
	}
}

// Rule returns the rule for t, or a zero rule.
func (p Policy) Rule(t TransactionType) FeeRule {
	if r, ok := p[t]; ok {
		return r
	}
	return FeeRule{Rate: decimal.Zero, Minimum: decimal.Zero}
}

// Quote validates amount against the minimum of t and computes fee and total.
func (p Policy) Quote(t TransactionType, amount decimal.Decimal) (fee, total decimal.Decimal, err error) {
	if !amount.IsPositive() {
		return decimal.Zero, decimal.Zero, Fail(ErrInvalidAmount, "%s amount must be positive, got %s", t, amount)
	}
	rule := p.Rule(t)
	if amount.LessThan(rule.Minimum) {
		return decimal.Zero, decimal.Zero, Fail(ErrInvalidAmount, "%s minimum is %s, got %s", t, rule.Minimum, amount)
	}
	fee = RoundLocal(amount.Mul(rule.Rate))
	return fee, amount.Add(fee), nil
}
