package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status enumerates the order lifecycle states.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// ValidStatus reports whether s is one of the enumerated lifecycle states.
// Any state may transition to any other; there is no transition graph.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// PaymentStatus enumerates payment states tracked on an order.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

var (
	// ErrNotFound is returned when an order does not exist or is not visible
	// to the requesting user.
	ErrNotFound = errors.New("order not found")
	// ErrEmptyCart is returned when checkout is attempted on a cart with no
	// items.
	ErrEmptyCart = errors.New("cart is empty")
)

// InvalidStatusError indicates an unrecognized lifecycle state was supplied.
type InvalidStatusError struct {
	Status string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid order status %q", e.Status)
}

// Address groups the shipping or billing fields captured on an order.
type Address struct {
	Address string
	City    string
	State   string
	Zip     string
	Country string
}

// Order is an immutable record materialized from a cart at checkout. Only
// Status and TrackingNumber change afterwards, via the admin operation.
type Order struct {
	ID             string
	OrderNumber    string
	UserRef        string
	Status         Status
	PaymentStatus  PaymentStatus
	Shipping       Address
	Billing        Address
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	ShippingCost   decimal.Decimal
	DiscountAmount decimal.Decimal
	DiscountCode   string
	TotalAmount    decimal.Decimal
	TrackingNumber string
	Notes          string
	Items          []Item
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Item is an immutable snapshot of a cart line at order time. Price is
// captured at order creation and never follows later catalog changes.
type Item struct {
	ID          string
	OrderID     string
	VariantID   string
	ProductName string
	SKU         string
	Price       decimal.Decimal
	Quantity    int
}

// Total returns the snapshot line total: captured price times quantity.
func (i Item) Total() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Repository defines read and status-update operations for persisted orders.
// Creation happens only through the checkout transaction (Store).
type Repository interface {
	FindByID(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userRef string) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, status Status, trackingNumber string) error
}
