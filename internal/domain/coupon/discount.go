package coupon

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	zero    = decimal.Zero
)

// Options configures discount calculation policy.
type Options struct {
	// CapFixedToBase caps fixed discounts at the base amount, so a $50
	// coupon on a $40 order discounts $40 rather than $50. The original
	// system was inconsistent about this; the cap is the default here.
	CapFixedToBase bool
}

// DefaultOptions returns the standard calculation policy.
func DefaultOptions() Options {
	return Options{CapFixedToBase: true}
}

// Evaluate checks a rule's validity at the given instant, verifies the base
// amount and quantity against the rule's minimums, and returns the computed
// discount. It does not touch the usage counter.
func Evaluate(rule *Rule, base decimal.Decimal, quantity int, now time.Time, opts Options) (*Discount, error) {
	if err := validAt(rule, now); err != nil {
		return nil, err
	}

	if rule.MinQuantity > 0 && quantity < rule.MinQuantity {
		return nil, ErrInvalidCoupon
	}
	if base.LessThan(rule.MinOrderAmount) {
		return nil, &MinimumNotMetError{Code: rule.Code, Minimum: rule.MinOrderAmount}
	}

	amount, err := calculate(rule, base, opts)
	if err != nil {
		return nil, err
	}

	return &Discount{
		Code:        rule.Code,
		Amount:      amount,
		Description: rule.Description,
	}, nil
}

// validAt reports whether the rule is redeemable at the given instant:
// active, inside its validity window, and under its usage cap.
func validAt(rule *Rule, now time.Time) error {
	if !rule.Active {
		return ErrCouponExpired
	}
	if rule.ValidFrom != nil && now.Before(*rule.ValidFrom) {
		return ErrCouponExpired
	}
	if rule.ValidUntil != nil && now.After(*rule.ValidUntil) {
		return ErrCouponExpired
	}
	if rule.MaxUses > 0 && rule.Uses >= rule.MaxUses {
		return ErrCouponUsageLimitReached
	}
	return nil
}

func calculate(rule *Rule, base decimal.Decimal, opts Options) (decimal.Decimal, error) {
	switch rule.Type {
	case TypePercentage:
		amount := base.Mul(rule.Value).Div(hundred)
		if rule.MaxDiscount.IsPositive() {
			amount = decimal.Min(amount, rule.MaxDiscount)
		}
		return floorAtZero(amount).Round(2), nil
	case TypeFixed:
		amount := rule.Value
		if opts.CapFixedToBase {
			amount = decimal.Min(amount, base)
		}
		return floorAtZero(amount).Round(2), nil
	default:
		return zero, errors.Errorf("unsupported discount type: %q", rule.Type)
	}
}

// floorAtZero clamps negative values to zero.
func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return zero
	}
	return d
}
