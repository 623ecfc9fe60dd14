package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/fashion-store/internal/domain/order"
)

const (
	orderColumns = `id, order_number, user_ref, status, payment_status,
		shipping_address, shipping_city, shipping_state, shipping_zip, shipping_country,
		billing_address, billing_city, billing_state, billing_zip, billing_country,
		subtotal, tax_amount, shipping_cost, discount_amount, discount_code,
		total_amount, tracking_number, notes, created_at, updated_at`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listOrdersByUserSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE user_ref = $1 ORDER BY created_at DESC`

	listOrderItemsSQL = `SELECT id, order_id, variant_id, product_name, sku, price, quantity
		FROM order_items WHERE order_id = $1 ORDER BY id`

	listOrderItemsByOrdersSQL = `SELECT id, order_id, variant_id, product_name, sku, price, quantity
		FROM order_items WHERE order_id = ANY($1) ORDER BY id`

	updateOrderStatusSQL = `UPDATE orders SET status = $2,
		tracking_number = CASE WHEN $3 = '' THEN tracking_number ELSE $3 END,
		updated_at = now()
		WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
// Orders are created only through the checkout transaction; this repository
// covers reads and status updates.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// FindByID returns an order with its item snapshots.
func (r *OrderRepository) FindByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	itemRows, err := r.pool.Query(ctx, listOrderItemsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("listing items of order %q: %w", id, err)
	}
	o.Items, err = pgx.CollectRows(itemRows, scanOrderItem)
	if err != nil {
		return nil, fmt.Errorf("listing items of order %q: %w", id, err)
	}
	return &o, nil
}

// ListByUser returns the user's orders with their item snapshots, newest
// first. Items are fetched in one batch query across all orders.
func (r *OrderRepository) ListByUser(ctx context.Context, userRef string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userRef)
	if err != nil {
		return nil, fmt.Errorf("listing orders for %q: %w", userRef, err)
	}

	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders for %q: %w", userRef, err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	itemRows, err := r.pool.Query(ctx, listOrderItemsByOrdersSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("listing order items for %q: %w", userRef, err)
	}
	items, err := pgx.CollectRows(itemRows, scanOrderItem)
	if err != nil {
		return nil, fmt.Errorf("listing order items for %q: %w", userRef, err)
	}

	for _, it := range items {
		i := index[it.OrderID]
		orders[i].Items = append(orders[i].Items, it)
	}
	return orders, nil
}

// UpdateStatus sets the order's status and, when non-empty, its tracking
// number.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status order.Status, trackingNumber string) error {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, string(status), trackingNumber)
	if err != nil {
		return fmt.Errorf("updating status of order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o             order.Order
		status        string
		paymentStatus string
		subtotal      decimal.Decimal
		tax           decimal.Decimal
		shipping      decimal.Decimal
		discount      decimal.Decimal
		total         decimal.Decimal
	)
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserRef, &status, &paymentStatus,
		&o.Shipping.Address, &o.Shipping.City, &o.Shipping.State, &o.Shipping.Zip, &o.Shipping.Country,
		&o.Billing.Address, &o.Billing.City, &o.Billing.State, &o.Billing.Zip, &o.Billing.Country,
		&subtotal, &tax, &shipping, &discount, &o.DiscountCode,
		&total, &o.TrackingNumber, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
	)
	o.Status = order.Status(status)
	o.PaymentStatus = order.PaymentStatus(paymentStatus)
	o.Subtotal = subtotal
	o.TaxAmount = tax
	o.ShippingCost = shipping
	o.DiscountAmount = discount
	o.TotalAmount = total
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var (
		it    order.Item
		price decimal.Decimal
		qty   int32
	)
	err := row.Scan(&it.ID, &it.OrderID, &it.VariantID, &it.ProductName, &it.SKU, &price, &qty)
	it.Price = price
	it.Quantity = int(qty)
	return it, err
}
