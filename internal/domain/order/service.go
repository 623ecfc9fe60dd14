package order

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/fashion-store/internal/domain/cart"
	"github.com/xenking/fashion-store/internal/domain/catalog"
	"github.com/xenking/fashion-store/internal/domain/coupon"
)

// Tx exposes the storage operations available inside a checkout transaction.
// Every call sees and mutates the same transactional snapshot; ReserveStock
// is a conditional decrement that reports false instead of overselling.
type Tx interface {
	FindCart(ctx context.Context, userRef string) (*cart.Cart, error)
	CartLines(ctx context.Context, cartID string) ([]cart.Line, error)
	FindCoupon(ctx context.Context, code string) (*coupon.Rule, error)
	RedeemCouponUse(ctx context.Context, code string) (bool, error)
	ReserveStock(ctx context.Context, variantID string, quantity int) (bool, error)
	CreateOrder(ctx context.Context, o *Order) error
	CreateOrderItems(ctx context.Context, orderID string, items []Item) error
	ClearCartItems(ctx context.Context, cartID string) error
}

// Store runs a function inside a single database transaction. The function's
// error aborts the transaction; no partial writes survive.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// CheckoutRequest carries the shipping/billing input for materializing an
// order from the user's cart. DiscountCode is only consulted when the cart
// does not already carry an applied discount.
type CheckoutRequest struct {
	Shipping     Address
	Billing      Address
	DiscountCode string
	Notes        string
}

// Config holds checkout policy toggles.
type Config struct {
	// LenientInlineCoupon makes a failing inline discount code non-fatal:
	// the order proceeds with zero discount. This mirrors the storefront's
	// historical behaviour; set false to reject the checkout instead.
	LenientInlineCoupon bool
	// CouponOptions is the discount calculation policy shared with the cart
	// path.
	CouponOptions coupon.Options
}

// DefaultConfig returns the standard checkout policy.
func DefaultConfig() Config {
	return Config{
		LenientInlineCoupon: true,
		CouponOptions:       coupon.DefaultOptions(),
	}
}

// Service materializes orders from carts. All writes of a single checkout
// happen in one transaction supplied by the Store.
type Service struct {
	store   Store
	orders  Repository
	pricing Pricing
	cfg     Config
	now     func() time.Time
}

// NewService creates an order Service with the required dependencies.
func NewService(store Store, orders Repository, pricing Pricing, cfg Config) *Service {
	return &Service{
		store:   store,
		orders:  orders,
		pricing: pricing,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Checkout converts the user's cart into a persisted order: prices the cart
// at current variant prices, applies tax/shipping policy and any discount,
// re-validates and decrements stock per line, snapshots the lines as order
// items, and clears the cart. The whole sequence commits atomically; any
// failure leaves the database untouched.
func (s *Service) Checkout(ctx context.Context, userRef string, req CheckoutRequest) (*Order, error) {
	var out *Order

	err := s.store.WithinTx(ctx, func(tx Tx) error {
		c, err := tx.FindCart(ctx, userRef)
		if err != nil {
			if errors.Is(err, cart.ErrNotFound) {
				return cart.ErrNotFound
			}
			return errors.Wrap(err, "find cart")
		}

		lines, err := tx.CartLines(ctx, c.ID)
		if err != nil {
			return errors.Wrap(err, "list cart lines")
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		subtotal := decimal.Zero
		quantity := 0
		for _, l := range lines {
			subtotal = subtotal.Add(l.Total())
			quantity += l.Quantity
		}
		subtotal = subtotal.Round(2)

		taxAmount := s.pricing.Tax(subtotal)
		shippingCost := s.pricing.Shipping(subtotal)

		discountAmount, discountCode, err := s.resolveDiscount(ctx, tx, c, req.DiscountCode, subtotal, quantity)
		if err != nil {
			return err
		}

		// Unlike the cart view, the order total is not clamped at zero;
		// a stored discount larger than the subtotal yields a signed total.
		totalAmount := subtotal.Add(taxAmount).Add(shippingCost).Sub(discountAmount).Round(2)

		// Re-validate and reserve stock per line. The conditional decrement
		// serializes concurrent checkouts against the same variant.
		items := make([]Item, len(lines))
		for i, l := range lines {
			ok, err := tx.ReserveStock(ctx, l.VariantID, l.Quantity)
			if err != nil {
				return errors.Wrapf(err, "reserve stock for variant %s", l.VariantID)
			}
			if !ok {
				return &catalog.InsufficientStockError{
					VariantID: l.VariantID,
					Requested: l.Quantity,
					Available: l.Stock,
				}
			}

			items[i] = Item{
				ID:          uuid.New().String(),
				VariantID:   l.VariantID,
				ProductName: l.ProductName,
				SKU:         l.SKU,
				Price:       l.Price,
				Quantity:    l.Quantity,
			}
		}

		now := s.now()
		o := &Order{
			ID:             uuid.New().String(),
			OrderNumber:    newOrderNumber(),
			UserRef:        userRef,
			Status:         StatusPending,
			PaymentStatus:  PaymentPending,
			Shipping:       req.Shipping,
			Billing:        req.Billing,
			Subtotal:       subtotal,
			TaxAmount:      taxAmount,
			ShippingCost:   shippingCost,
			DiscountAmount: discountAmount,
			DiscountCode:   discountCode,
			TotalAmount:    totalAmount,
			Notes:          req.Notes,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		if err := tx.CreateOrder(ctx, o); err != nil {
			return errors.Wrap(err, "create order")
		}
		if err := tx.CreateOrderItems(ctx, o.ID, items); err != nil {
			return errors.Wrap(err, "create order items")
		}
		if err := tx.ClearCartItems(ctx, c.ID); err != nil {
			return errors.Wrap(err, "clear cart")
		}

		for i := range items {
			items[i].OrderID = o.ID
		}
		o.Items = items
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// resolveDiscount picks the discount for a checkout: a discount already
// applied to the cart is reused verbatim (its use was consumed at apply
// time); otherwise an inline code from the request is redeemed against the
// subtotal. Inline failures are swallowed under the lenient policy.
func (s *Service) resolveDiscount(
	ctx context.Context,
	tx Tx,
	c *cart.Cart,
	inlineCode string,
	subtotal decimal.Decimal,
	quantity int,
) (decimal.Decimal, string, error) {
	if c.DiscountCode != "" {
		return c.DiscountAmount, c.DiscountCode, nil
	}
	if inlineCode == "" {
		return decimal.Zero, "", nil
	}

	amount, code, err := s.redeemInline(ctx, tx, inlineCode, subtotal, quantity)
	if err != nil {
		if s.cfg.LenientInlineCoupon {
			return decimal.Zero, "", nil
		}
		return decimal.Zero, "", err
	}
	return amount, code, nil
}

func (s *Service) redeemInline(
	ctx context.Context,
	tx Tx,
	code string,
	subtotal decimal.Decimal,
	quantity int,
) (decimal.Decimal, string, error) {
	rule, err := tx.FindCoupon(ctx, coupon.NormalizeCode(code))
	if err != nil {
		if errors.Is(err, coupon.ErrInvalidCoupon) {
			return decimal.Zero, "", coupon.ErrInvalidCoupon
		}
		return decimal.Zero, "", errors.Wrap(err, "lookup coupon")
	}

	d, err := coupon.Evaluate(rule, subtotal, quantity, s.now(), s.cfg.CouponOptions)
	if err != nil {
		return decimal.Zero, "", err
	}

	ok, err := tx.RedeemCouponUse(ctx, rule.Code)
	if err != nil {
		return decimal.Zero, "", errors.Wrap(err, "redeem coupon use")
	}
	if !ok {
		return decimal.Zero, "", coupon.ErrCouponUsageLimitReached
	}

	return d.Amount, d.Code, nil
}

// Get returns an order visible to the given user. Other users' orders are
// reported as not found rather than forbidden.
func (s *Service) Get(ctx context.Context, userRef, orderID string) (*Order, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "find order %s", orderID)
	}
	if o.UserRef != userRef {
		return nil, ErrNotFound
	}
	return o, nil
}

// ListByUser returns the user's orders, newest first.
func (s *Service) ListByUser(ctx context.Context, userRef string) ([]Order, error) {
	orders, err := s.orders.ListByUser(ctx, userRef)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// UpdateStatus sets an order's lifecycle state and, when provided, its
// tracking number. Admin-only; any state may follow any other.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, status Status, trackingNumber string) (*Order, error) {
	if !ValidStatus(status) {
		return nil, &InvalidStatusError{Status: string(status)}
	}

	if err := s.orders.UpdateStatus(ctx, orderID, status, trackingNumber); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "update status of order %s", orderID)
	}
	return s.orders.FindByID(ctx, orderID)
}

// newOrderNumber generates a human-referenceable unique order number like
// ORD-9F2C41D08A3B.
func newOrderNumber() string {
	id := uuid.New()
	hex := strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))
	return "ORD-" + hex[:12]
}
