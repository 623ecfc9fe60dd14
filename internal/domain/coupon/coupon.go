package coupon

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type enumerates the supported discount strategies.
type Type string

const (
	// TypePercentage applies a percentage of the base amount, optionally
	// clamped to the rule's MaxDiscount.
	TypePercentage Type = "percentage"
	// TypeFixed subtracts a fixed monetary amount.
	TypeFixed Type = "fixed"
)

var (
	// ErrInvalidCoupon is returned when a coupon code is not found or the
	// purchase does not satisfy the rule's minimum quantity requirement.
	ErrInvalidCoupon = errors.New("invalid coupon code")
	// ErrCouponExpired is returned when a coupon is inactive or outside its
	// validity window.
	ErrCouponExpired = errors.New("coupon expired or inactive")
	// ErrCouponUsageLimitReached is returned when a coupon has exhausted its
	// allowed uses.
	ErrCouponUsageLimitReached = errors.New("coupon usage limit reached")
)

// MinimumNotMetError indicates the order amount is below the rule's minimum.
// It carries the required minimum so callers can display it.
type MinimumNotMetError struct {
	Code    string
	Minimum decimal.Decimal
}

func (e *MinimumNotMetError) Error() string {
	return fmt.Sprintf("coupon %s requires a minimum order amount of %s", e.Code, e.Minimum.StringFixed(2))
}

// Rule defines a coupon's discount behaviour and eligibility constraints.
// MaxUses of zero means unlimited; a zero MaxDiscount means uncapped; nil
// window bounds are open.
type Rule struct {
	Code           string
	Description    string
	Type           Type
	Value          decimal.Decimal
	MinOrderAmount decimal.Decimal
	MaxDiscount    decimal.Decimal
	MinQuantity    int
	MaxUses        int
	Uses           int
	Active         bool
	ValidFrom      *time.Time
	ValidUntil     *time.Time
}

// Discount holds the computed discount for a successfully resolved code.
type Discount struct {
	Code        string
	Amount      decimal.Decimal
	Description string
}

// Repository provides lookup and redemption of coupon rules. FindByCode
// matches codes case-insensitively and returns ErrInvalidCoupon when no rule
// exists. RedeemUse increments the usage counter atomically, guarded by the
// rule's usage cap in the same statement; it reports false when the cap is
// already exhausted.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Rule, error)
	RedeemUse(ctx context.Context, code string) (bool, error)
}
