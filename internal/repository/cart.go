package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/fashion-store/internal/domain/cart"
)

const (
	getOrCreateCartSQL = `INSERT INTO carts (id, user_ref)
		VALUES ($1, $2)
		ON CONFLICT (user_ref) DO UPDATE SET updated_at = now()
		RETURNING id, user_ref, discount_code, discount_amount, created_at, updated_at`

	findCartByUserSQL = `SELECT id, user_ref, discount_code, discount_amount, created_at, updated_at
		FROM carts WHERE user_ref = $1`

	listCartLinesSQL = `SELECT i.id, i.cart_id, i.variant_id, i.quantity, i.created_at, i.updated_at,
			p.name, v.sku, p.price, v.stock
		FROM cart_items i
		JOIN product_variants v ON v.id = i.variant_id
		JOIN products p ON p.id = v.product_id
		WHERE i.cart_id = $1
		ORDER BY i.created_at, i.id`

	findCartItemSQL = `SELECT i.id, i.cart_id, i.variant_id, i.quantity, i.created_at, i.updated_at
		FROM cart_items i
		JOIN carts c ON c.id = i.cart_id
		WHERE i.id = $1 AND c.user_ref = $2`

	// xmax = 0 is true only for freshly inserted rows, which distinguishes
	// an insert from a conflict-merge in a single statement.
	upsertCartItemSQL = `INSERT INTO cart_items (id, cart_id, variant_id, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cart_id, variant_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = now()
		RETURNING (xmax = 0)`

	setCartItemQuantitySQL = `UPDATE cart_items SET quantity = $2, updated_at = now() WHERE id = $1`

	deleteCartItemSQL = `DELETE FROM cart_items WHERE id = $1`

	clearCartItemsSQL = `DELETE FROM cart_items WHERE cart_id = $1`

	setCartDiscountSQL = `UPDATE carts SET discount_code = $2, discount_amount = $3, updated_at = now()
		WHERE id = $1`

	clearCartDiscountSQL = `UPDATE carts SET discount_code = '', discount_amount = 0, updated_at = now()
		WHERE id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// GetOrCreate returns the user's cart, creating an empty one on first use.
// The conflict path keeps exactly one cart per user under concurrent calls.
func (r *CartRepository) GetOrCreate(ctx context.Context, userRef string) (*cart.Cart, error) {
	rows, err := r.pool.Query(ctx, getOrCreateCartSQL, uuid.New().String(), userRef)
	if err != nil {
		return nil, fmt.Errorf("getting or creating cart for %q: %w", userRef, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCart)
	if err != nil {
		return nil, fmt.Errorf("getting or creating cart for %q: %w", userRef, err)
	}
	return &c, nil
}

// FindByUser returns the user's cart without creating one.
func (r *CartRepository) FindByUser(ctx context.Context, userRef string) (*cart.Cart, error) {
	rows, err := r.pool.Query(ctx, findCartByUserSQL, userRef)
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

// ListLines returns the cart's items joined with current catalog pricing.
func (r *CartRepository) ListLines(ctx context.Context, cartID string) ([]cart.Line, error) {
	rows, err := r.pool.Query(ctx, listCartLinesSQL, cartID)
	if err != nil {
		return nil, fmt.Errorf("listing cart lines for %q: %w", cartID, err)
	}
	return pgx.CollectRows(rows, scanCartLine)
}

// FindItem returns a cart item scoped to the given user's cart.
func (r *CartRepository) FindItem(ctx context.Context, itemID, userRef string) (*cart.Item, error) {
	rows, err := r.pool.Query(ctx, findCartItemSQL, itemID, userRef)
	if err != nil {
		return nil, fmt.Errorf("finding cart item %q: %w", itemID, err)
	}

	it, err := pgx.CollectExactlyOneRow(rows, scanCartItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrItemNotFound
		}
		return nil, fmt.Errorf("finding cart item %q: %w", itemID, err)
	}
	return &it, nil
}

// UpsertItem inserts a new line for the variant or merges the quantity into
// an existing one. Reports whether a new line was created.
func (r *CartRepository) UpsertItem(ctx context.Context, cartID, variantID string, quantity int) (bool, error) {
	var created bool
	err := r.pool.QueryRow(ctx, upsertCartItemSQL,
		uuid.New().String(), cartID, variantID, int32(quantity),
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("upserting cart item: %w", err)
	}
	return created, nil
}

// SetItemQuantity replaces the quantity of an existing line.
func (r *CartRepository) SetItemQuantity(ctx context.Context, itemID string, quantity int) error {
	tag, err := r.pool.Exec(ctx, setCartItemQuantitySQL, itemID, int32(quantity))
	if err != nil {
		return fmt.Errorf("setting quantity of cart item %q: %w", itemID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrItemNotFound
	}
	return nil
}

// DeleteItem removes a single line from the cart.
func (r *CartRepository) DeleteItem(ctx context.Context, itemID string) error {
	tag, err := r.pool.Exec(ctx, deleteCartItemSQL, itemID)
	if err != nil {
		return fmt.Errorf("deleting cart item %q: %w", itemID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrItemNotFound
	}
	return nil
}

// ClearItems removes every line from the cart.
func (r *CartRepository) ClearItems(ctx context.Context, cartID string) error {
	_, err := r.pool.Exec(ctx, clearCartItemsSQL, cartID)
	if err != nil {
		return fmt.Errorf("clearing cart %q: %w", cartID, err)
	}
	return nil
}

// SetDiscount records an applied discount on the cart.
func (r *CartRepository) SetDiscount(ctx context.Context, cartID, code string, amount decimal.Decimal) error {
	_, err := r.pool.Exec(ctx, setCartDiscountSQL, cartID, code, amount)
	if err != nil {
		return fmt.Errorf("setting discount on cart %q: %w", cartID, err)
	}
	return nil
}

// ClearDiscount removes any applied discount from the cart.
func (r *CartRepository) ClearDiscount(ctx context.Context, cartID string) error {
	_, err := r.pool.Exec(ctx, clearCartDiscountSQL, cartID)
	if err != nil {
		return fmt.Errorf("clearing discount on cart %q: %w", cartID, err)
	}
	return nil
}

func scanCart(row pgx.CollectableRow) (cart.Cart, error) {
	var (
		c      cart.Cart
		amount decimal.Decimal
	)
	err := row.Scan(&c.ID, &c.UserRef, &c.DiscountCode, &amount, &c.CreatedAt, &c.UpdatedAt)
	c.DiscountAmount = amount
	return c, err
}

func scanCartItem(row pgx.CollectableRow) (cart.Item, error) {
	var (
		it  cart.Item
		qty int32
	)
	err := row.Scan(&it.ID, &it.CartID, &it.VariantID, &qty, &it.CreatedAt, &it.UpdatedAt)
	it.Quantity = int(qty)
	return it, err
}

func scanCartLine(row pgx.CollectableRow) (cart.Line, error) {
	var (
		l     cart.Line
		qty   int32
		price decimal.Decimal
		stock int32
	)
	err := row.Scan(
		&l.ID, &l.CartID, &l.VariantID, &qty, &l.CreatedAt, &l.UpdatedAt,
		&l.ProductName, &l.SKU, &price, &stock,
	)
	l.Quantity = int(qty)
	l.Price = price
	l.Stock = int(stock)
	return l, err
}
