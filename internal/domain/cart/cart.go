package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a user has no cart yet and the operation
	// does not create one.
	ErrNotFound = errors.New("cart not found")
	// ErrItemNotFound is returned when a cart item does not exist or belongs
	// to another user's cart.
	ErrItemNotFound = errors.New("cart item not found")
)

// Cart is a user's mutable pre-purchase basket. Each user has exactly one;
// it holds at most one applied discount.
type Cart struct {
	ID             string
	UserRef        string
	DiscountCode   string
	DiscountAmount decimal.Decimal
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Item is a single cart line. At most one line exists per (cart, variant)
// pair; re-adding the same variant merges quantities.
type Item struct {
	ID        string
	CartID    string
	VariantID string
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Line is an Item joined with the current catalog data needed for pricing.
// Price is the variant's current product price, not a snapshot.
type Line struct {
	Item
	ProductName string
	SKU         string
	Price       decimal.Decimal
	Stock       int
}

// Total returns the line total: current price times quantity.
func (l Line) Total() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Totals holds the derived amounts for a cart.
type Totals struct {
	TotalItems    int
	TotalQuantity int
	Subtotal      decimal.Decimal
	Discount      decimal.Decimal
	Total         decimal.Decimal
}

// CalcTotals derives cart totals from its lines and applied discount.
// Total is floored at zero: a stale discount can exceed the subtotal after
// items are removed, but the cart never displays a negative price.
func CalcTotals(lines []Line, discount decimal.Decimal) Totals {
	t := Totals{
		TotalItems: len(lines),
		Subtotal:   decimal.Zero,
		Discount:   discount,
	}
	for _, l := range lines {
		t.TotalQuantity += l.Quantity
		t.Subtotal = t.Subtotal.Add(l.Total())
	}
	t.Subtotal = t.Subtotal.Round(2)

	total := t.Subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	t.Total = total.Round(2)
	return t
}

// View is a cart together with its priced lines and derived totals, the
// shape handed back to the transport layer after every mutation.
type View struct {
	Cart   Cart
	Lines  []Line
	Totals Totals
}

// Repository defines persistence operations for carts and their items.
// FindItem scopes the lookup to the given user's cart, so items in other
// users' carts are reported as ErrItemNotFound.
type Repository interface {
	GetOrCreate(ctx context.Context, userRef string) (*Cart, error)
	FindByUser(ctx context.Context, userRef string) (*Cart, error)
	ListLines(ctx context.Context, cartID string) ([]Line, error)
	FindItem(ctx context.Context, itemID, userRef string) (*Item, error)
	UpsertItem(ctx context.Context, cartID, variantID string, quantity int) (created bool, err error)
	SetItemQuantity(ctx context.Context, itemID string, quantity int) error
	DeleteItem(ctx context.Context, itemID string) error
	ClearItems(ctx context.Context, cartID string) error
	SetDiscount(ctx context.Context, cartID, code string, amount decimal.Decimal) error
	ClearDiscount(ctx context.Context, cartID string) error
}
