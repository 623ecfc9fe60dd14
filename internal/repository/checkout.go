package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/fashion-store/internal/domain/cart"
	"github.com/xenking/fashion-store/internal/domain/coupon"
	"github.com/xenking/fashion-store/internal/domain/order"
)

const (
	// The stock condition is part of the UPDATE itself, so two concurrent
	// checkouts of the same variant serialize on the row and the loser sees
	// zero affected rows instead of driving stock negative.
	reserveStockSQL = `UPDATE product_variants SET stock = stock - $2
		WHERE id = $1 AND stock >= $2`

	insertOrderSQL = `INSERT INTO orders (id, order_number, user_ref, status, payment_status,
		shipping_address, shipping_city, shipping_state, shipping_zip, shipping_country,
		billing_address, billing_city, billing_state, billing_zip, billing_country,
		subtotal, tax_amount, shipping_cost, discount_amount, discount_code,
		total_amount, tracking_number, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25)`

	insertOrderItemSQL = `INSERT INTO order_items (id, order_id, variant_id, product_name, sku, price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	clearCartForCheckoutSQL = `UPDATE carts SET discount_code = '', discount_amount = 0, updated_at = now()
		WHERE id = $1`
)

var _ order.Store = (*CheckoutStore)(nil)

// CheckoutStore implements order.Store: it opens a database transaction and
// hands the checkout service a Tx view scoped to it.
type CheckoutStore struct {
	pool *pgxpool.Pool
}

// NewCheckoutStore returns a CheckoutStore that uses the given pool.
func NewCheckoutStore(pool *pgxpool.Pool) *CheckoutStore {
	return &CheckoutStore{pool: pool}
}

// WithinTx runs fn inside a single transaction. fn's error rolls the
// transaction back; otherwise it commits.
func (s *CheckoutStore) WithinTx(ctx context.Context, fn func(tx order.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning checkout transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := fn(&checkoutTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing checkout transaction: %w", err)
	}
	return nil
}

var _ order.Tx = (*checkoutTx)(nil)

// checkoutTx implements order.Tx over a pgx transaction, reusing the same
// SQL and scan helpers as the pool-backed repositories.
type checkoutTx struct {
	tx pgx.Tx
}

func (t *checkoutTx) FindCart(ctx context.Context, userRef string) (*cart.Cart, error) {
	rows, err := t.tx.Query(ctx, findCartByUserSQL, userRef)
	if err != nil {
		return nil, fmt.Errorf("finding cart for %q: %w", userRef, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCart)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("finding cart for %q: %w", userRef, err)
	}
	return &c, nil
}

func (t *checkoutTx) CartLines(ctx context.Context, cartID string) ([]cart.Line, error) {
	rows, err := t.tx.Query(ctx, listCartLinesSQL, cartID)
	if err != nil {
		return nil, fmt.Errorf("listing cart lines for %q: %w", cartID, err)
	}
	return pgx.CollectRows(rows, scanCartLine)
}

func (t *checkoutTx) FindCoupon(ctx context.Context, code string) (*coupon.Rule, error) {
	rows, err := t.tx.Query(ctx, getCouponByCodeSQL, code)
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

func (t *checkoutTx) RedeemCouponUse(ctx context.Context, code string) (bool, error) {
	tag, err := t.tx.Exec(ctx, redeemCouponUseSQL, code)
	if err != nil {
		return false, fmt.Errorf("redeeming use of coupon %q: %w", code, err)
	}
	return tag.RowsAffected() > 0, nil
}

// ReserveStock decrements the variant's stock by quantity if enough remains.
// Reports false when stock is insufficient.
func (t *checkoutTx) ReserveStock(ctx context.Context, variantID string, quantity int) (bool, error) {
	tag, err := t.tx.Exec(ctx, reserveStockSQL, variantID, int32(quantity))
	if err != nil {
		return false, fmt.Errorf("reserving stock of variant %q: %w", variantID, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (t *checkoutTx) CreateOrder(ctx context.Context, o *order.Order) error {
	_, err := t.tx.Exec(ctx, insertOrderSQL,
		o.ID, o.OrderNumber, o.UserRef, string(o.Status), string(o.PaymentStatus),
		o.Shipping.Address, o.Shipping.City, o.Shipping.State, o.Shipping.Zip, o.Shipping.Country,
		o.Billing.Address, o.Billing.City, o.Billing.State, o.Billing.Zip, o.Billing.Country,
		o.Subtotal, o.TaxAmount, o.ShippingCost, o.DiscountAmount, o.DiscountCode,
		o.TotalAmount, o.TrackingNumber, o.Notes, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

func (t *checkoutTx) CreateOrderItems(ctx context.Context, orderID string, items []order.Item) error {
	for _, it := range items {
		_, err := t.tx.Exec(ctx, insertOrderItemSQL,
			it.ID, orderID, it.VariantID, it.ProductName, it.SKU, it.Price, int32(it.Quantity),
		)
		if err != nil {
			return fmt.Errorf("creating order item %q: %w", it.ID, err)
		}
	}
	return nil
}

// ClearCartItems empties the cart and resets its applied discount; the
// discount has been consumed by the order being created.
func (t *checkoutTx) ClearCartItems(ctx context.Context, cartID string) error {
	if _, err := t.tx.Exec(ctx, clearCartItemsSQL, cartID); err != nil {
		return fmt.Errorf("clearing cart %q: %w", cartID, err)
	}
	if _, err := t.tx.Exec(ctx, clearCartForCheckoutSQL, cartID); err != nil {
		return fmt.Errorf("resetting discount on cart %q: %w", cartID, err)
	}
	return nil
}
