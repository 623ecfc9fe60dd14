package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/fashion-store/internal/domain/coupon"
)

// Lookups deliberately do not filter on active or validity: the domain layer
// distinguishes an unknown code from an expired or disabled one.
const (
	getCouponByCodeSQL = `SELECT code, description, discount_type, value,
		min_order_amount, max_discount, min_quantity, max_uses, uses,
		active, valid_from, valid_until
		FROM coupons WHERE UPPER(code) = UPPER($1)`

	redeemCouponUseSQL = `UPDATE coupons SET uses = uses + 1
		WHERE UPPER(code) = UPPER($1) AND (max_uses = 0 OR uses < max_uses)`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its code (case-insensitive). Returns
// coupon.ErrInvalidCoupon when no such coupon exists.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Rule, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	rule, err := pgx.CollectExactlyOneRow(rows, scanCouponRule)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrInvalidCoupon
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &rule, nil
}

// RedeemUse atomically increments the coupon's usage counter. The usage cap
// is re-checked in the same statement, so the increment cannot exceed it
// under concurrent redemptions. Reports false when the cap is exhausted.
func (r *CouponRepository) RedeemUse(ctx context.Context, code string) (bool, error) {
	tag, err := r.pool.Exec(ctx, redeemCouponUseSQL, code)
	if err != nil {
		return false, fmt.Errorf("redeeming use of coupon %q: %w", code, err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanCouponRule(row pgx.CollectableRow) (coupon.Rule, error) {
	var (
		rule           coupon.Rule
		discountType   string
		value          decimal.Decimal
		minOrderAmount decimal.Decimal
		maxDiscount    decimal.Decimal
		minQuantity    int32
		maxUses        int32
		uses           int32
		validFrom      *time.Time
		validUntil     *time.Time
	)
	err := row.Scan(
		&rule.Code, &rule.Description, &discountType, &value,
		&minOrderAmount, &maxDiscount, &minQuantity, &maxUses, &uses,
		&rule.Active, &validFrom, &validUntil,
	)
	rule.Type = coupon.Type(discountType)
	rule.Value = value
	rule.MinOrderAmount = minOrderAmount
	rule.MaxDiscount = maxDiscount
	rule.MinQuantity = int(minQuantity)
	rule.MaxUses = int(maxUses)
	rule.Uses = int(uses)
	rule.ValidFrom = validFrom
	rule.ValidUntil = validUntil
	return rule, err
}
