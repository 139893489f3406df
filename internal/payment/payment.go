// Package payment validates split payments before a sale is submitted.
package payment

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"passbook/backend/internal/domain"
)

var (
	ErrNoSplits            = errors.New("at least one payment method is required")
	ErrUnknownMethod       = errors.New("unknown payment method")
	ErrDuplicateMethod     = errors.New("payment method used more than once")
	ErrInvalidAmount       = errors.New("payment amount must be greater than zero")
	ErrInvalidTotal        = errors.New("total must not be negative")
	ErrInsufficientPayment = errors.New("paid amount is less than the total")
	ErrNonCashOverpayment  = errors.New("only cash payments can exceed the total")
)

// DefaultTolerance is one cent.
var DefaultTolerance = decimal.New(1, -2)

// Validator checks split payments against a total. Tolerance absorbs
// rounding differences between the entered splits and the total.
type Validator struct {
	tolerance decimal.Decimal
}

func NewValidator(tolerance decimal.Decimal) *Validator {
	if tolerance.IsNegative() {
		tolerance = decimal.Zero
	}
	return &Validator{tolerance: tolerance}
}

func (v *Validator) Tolerance() decimal.Decimal {
	return v.tolerance
}

// Validate normalizes method names in place and returns how much was paid,
// the change due and what remains. Change can only come from cash.
func (v *Validator) Validate(total decimal.Decimal, splits []domain.PaymentSplit) (domain.PaymentOutcome, error) {
	if total.IsNegative() {
		return domain.PaymentOutcome{}, ErrInvalidTotal
	}
	if len(splits) == 0 {
		return domain.PaymentOutcome{}, ErrNoSplits
	}

	seen := make(map[domain.PaymentMethod]bool, len(splits))
	paid, cash := decimal.Zero, decimal.Zero
	for i := range splits {
		method, ok := domain.ParsePaymentMethod(string(splits[i].Method))
		if !ok || method == domain.MethodManual {
			return domain.PaymentOutcome{}, fmt.Errorf("split %d: %w: %q", i+1, ErrUnknownMethod, splits[i].Method)
		}
		if seen[method] {
			return domain.PaymentOutcome{}, fmt.Errorf("split %d: %w: %s", i+1, ErrDuplicateMethod, method)
		}
		seen[method] = true
		if !splits[i].Amount.IsPositive() {
			return domain.PaymentOutcome{}, fmt.Errorf("split %d: %w", i+1, ErrInvalidAmount)
		}
		splits[i].Method = method
		paid = paid.Add(splits[i].Amount)
		if method == domain.MethodCash {
			cash = cash.Add(splits[i].Amount)
		}
	}

	outcome := domain.PaymentOutcome{Total: total, Paid: paid, Change: decimal.Zero, Remaining: decimal.Zero}
	diff := paid.Sub(total)
	switch {
	case diff.LessThan(v.tolerance.Neg()):
		outcome.Remaining = diff.Neg()
		return outcome, ErrInsufficientPayment
	case diff.GreaterThan(v.tolerance):
		nonCash := paid.Sub(cash)
		if nonCash.Sub(total).GreaterThan(v.tolerance) {
			return outcome, ErrNonCashOverpayment
		}
		outcome.Change = diff
	}
	return outcome, nil
}
