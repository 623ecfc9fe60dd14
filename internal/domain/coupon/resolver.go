package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Resolver resolves a coupon code against a base amount and total quantity.
// Validate performs the full validity and minimum checks without consuming a
// use; Redeem performs the same checks and then consumes one use. Redeem is
// deliberately not idempotent: resolving the same code twice consumes two
// uses.
type Resolver interface {
	Validate(ctx context.Context, code string, base decimal.Decimal, quantity int) (*Discount, error)
	Redeem(ctx context.Context, code string, base decimal.Decimal, quantity int) (*Discount, error)
}

// RepoResolver implements Resolver by looking up coupon rules from a
// Repository and applying them via Evaluate.
type RepoResolver struct {
	repo Repository
	opts Options
	now  func() time.Time
}

// NewRepoResolver creates a RepoResolver backed by the given Repository.
func NewRepoResolver(repo Repository, opts Options) *RepoResolver {
	return &RepoResolver{repo: repo, opts: opts, now: time.Now}
}

// Validate resolves the code without consuming a use.
func (r *RepoResolver) Validate(ctx context.Context, code string, base decimal.Decimal, quantity int) (*Discount, error) {
	_, d, err := r.resolve(ctx, code, base, quantity)
	return d, err
}

// Redeem resolves the code and consumes one use. The usage counter is
// incremented with its cap re-checked in the same statement, so two
// concurrent redemptions of a nearly-exhausted code cannot both succeed.
func (r *RepoResolver) Redeem(ctx context.Context, code string, base decimal.Decimal, quantity int) (*Discount, error) {
	rule, d, err := r.resolve(ctx, code, base, quantity)
	if err != nil {
		return nil, err
	}

	ok, err := r.repo.RedeemUse(ctx, rule.Code)
	if err != nil {
		return nil, errors.Wrap(err, "redeem coupon use")
	}
	if !ok {
		return nil, ErrCouponUsageLimitReached
	}

	return d, nil
}

func (r *RepoResolver) resolve(ctx context.Context, code string, base decimal.Decimal, quantity int) (*Rule, *Discount, error) {
	rule, err := r.repo.FindByCode(ctx, NormalizeCode(code))
	if err != nil {
		if errors.Is(err, ErrInvalidCoupon) {
			return nil, nil, ErrInvalidCoupon
		}
		return nil, nil, errors.Wrap(err, "lookup coupon")
	}

	d, err := Evaluate(rule, base, quantity, r.now(), r.opts)
	if err != nil {
		return nil, nil, err
	}
	return rule, d, nil
}

// NormalizeCode uppercases and trims a user-supplied coupon code for lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
