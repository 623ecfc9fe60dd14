package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/fashion-store/internal/domain/catalog"
	"github.com/xenking/fashion-store/internal/domain/coupon"
)

// ErrInvalidQuantity is returned when a requested quantity is not a positive
// integer.
var ErrInvalidQuantity = errors.New("quantity must be greater than 0")

// Service encapsulates cart business logic: line management with stock
// checks, and discount application via the coupon resolver.
type Service struct {
	carts    Repository
	variants catalog.Repository
	coupons  coupon.Resolver
}

// NewService creates a cart Service with the required dependencies.
func NewService(carts Repository, variants catalog.Repository, coupons coupon.Resolver) *Service {
	return &Service{
		carts:    carts,
		variants: variants,
		coupons:  coupons,
	}
}

// Get returns the user's cart, creating an empty one on first access.
func (s *Service) Get(ctx context.Context, userRef string) (*View, error) {
	c, err := s.carts.GetOrCreate(ctx, userRef)
	if err != nil {
		return nil, errors.Wrap(err, "get or create cart")
	}
	return s.buildView(ctx, c)
}

// AddItem adds a variant to the user's cart. An existing line for the same
// variant has its quantity increased instead of a second line being created;
// the returned created flag distinguishes the two so callers can report 201
// versus 200. The cumulative quantity (existing plus added) must not exceed
// the variant's current stock.
func (s *Service) AddItem(ctx context.Context, userRef, variantID string, quantity int) (*View, bool, error) {
	if quantity <= 0 {
		return nil, false, ErrInvalidQuantity
	}

	v, err := s.variants.GetByID(ctx, variantID)
	if err != nil {
		if errors.Is(err, catalog.ErrVariantNotFound) {
			return nil, false, catalog.ErrVariantNotFound
		}
		return nil, false, errors.Wrapf(err, "get variant %s", variantID)
	}

	c, err := s.carts.GetOrCreate(ctx, userRef)
	if err != nil {
		return nil, false, errors.Wrap(err, "get or create cart")
	}

	lines, err := s.carts.ListLines(ctx, c.ID)
	if err != nil {
		return nil, false, errors.Wrap(err, "list cart lines")
	}

	existing := 0
	for _, l := range lines {
		if l.VariantID == variantID {
			existing = l.Quantity
			break
		}
	}

	if existing+quantity > v.Stock {
		return nil, false, &catalog.InsufficientStockError{
			VariantID: variantID,
			Requested: existing + quantity,
			Available: v.Stock,
		}
	}

	created, err := s.carts.UpsertItem(ctx, c.ID, variantID, quantity)
	if err != nil {
		return nil, false, errors.Wrap(err, "upsert cart item")
	}

	view, err := s.buildView(ctx, c)
	return view, created, err
}

// UpdateItemQuantity replaces a line's quantity. A quantity of zero or less
// deletes the line instead; the returned removed flag reports that case.
func (s *Service) UpdateItemQuantity(ctx context.Context, userRef, itemID string, quantity int) (*View, bool, error) {
	item, err := s.carts.FindItem(ctx, itemID, userRef)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, false, ErrItemNotFound
		}
		return nil, false, errors.Wrapf(err, "find cart item %s", itemID)
	}

	if quantity <= 0 {
		if err := s.carts.DeleteItem(ctx, item.ID); err != nil {
			return nil, false, errors.Wrap(err, "delete cart item")
		}
		view, err := s.viewByUser(ctx, userRef)
		return view, true, err
	}

	v, err := s.variants.GetByID(ctx, item.VariantID)
	if err != nil {
		return nil, false, errors.Wrapf(err, "get variant %s", item.VariantID)
	}
	if quantity > v.Stock {
		return nil, false, &catalog.InsufficientStockError{
			VariantID: item.VariantID,
			Requested: quantity,
			Available: v.Stock,
		}
	}

	if err := s.carts.SetItemQuantity(ctx, item.ID, quantity); err != nil {
		return nil, false, errors.Wrap(err, "set cart item quantity")
	}

	view, err := s.viewByUser(ctx, userRef)
	return view, false, err
}

// RemoveItem deletes a line from the user's cart.
func (s *Service) RemoveItem(ctx context.Context, userRef, itemID string) (*View, error) {
	item, err := s.carts.FindItem(ctx, itemID, userRef)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, errors.Wrapf(err, "find cart item %s", itemID)
	}

	if err := s.carts.DeleteItem(ctx, item.ID); err != nil {
		return nil, errors.Wrap(err, "delete cart item")
	}
	return s.viewByUser(ctx, userRef)
}

// Clear removes every line from the user's cart. Clearing an empty or absent
// cart is a no-op success.
func (s *Service) Clear(ctx context.Context, userRef string) error {
	c, err := s.carts.FindByUser(ctx, userRef)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return errors.Wrap(err, "find cart")
	}

	if err := s.carts.ClearItems(ctx, c.ID); err != nil {
		return errors.Wrap(err, "clear cart items")
	}
	return nil
}

// ApplyDiscount resolves a coupon code against the cart's current subtotal
// and, on success, persists the code and computed amount on the cart.
// Resolution consumes one use of the coupon. On failure the cart is left
// unmodified and the resolver's error surfaces.
func (s *Service) ApplyDiscount(ctx context.Context, userRef, code string) (*View, error) {
	c, err := s.carts.GetOrCreate(ctx, userRef)
	if err != nil {
		return nil, errors.Wrap(err, "get or create cart")
	}

	lines, err := s.carts.ListLines(ctx, c.ID)
	if err != nil {
		return nil, errors.Wrap(err, "list cart lines")
	}
	totals := CalcTotals(lines, decimal.Zero)

	d, err := s.coupons.Redeem(ctx, code, totals.Subtotal, totals.TotalQuantity)
	if err != nil {
		return nil, err
	}

	if err := s.carts.SetDiscount(ctx, c.ID, d.Code, d.Amount); err != nil {
		return nil, errors.Wrap(err, "set cart discount")
	}

	c.DiscountCode = d.Code
	c.DiscountAmount = d.Amount
	return &View{Cart: *c, Lines: lines, Totals: CalcTotals(lines, d.Amount)}, nil
}

// RemoveDiscount clears any applied discount. Removing when none is applied
// succeeds.
func (s *Service) RemoveDiscount(ctx context.Context, userRef string) (*View, error) {
	c, err := s.carts.FindByUser(ctx, userRef)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return s.Get(ctx, userRef)
		}
		return nil, errors.Wrap(err, "find cart")
	}

	if err := s.carts.ClearDiscount(ctx, c.ID); err != nil {
		return nil, errors.Wrap(err, "clear cart discount")
	}

	c.DiscountCode = ""
	c.DiscountAmount = decimal.Zero
	return s.buildView(ctx, c)
}

func (s *Service) viewByUser(ctx context.Context, userRef string) (*View, error) {
	c, err := s.carts.FindByUser(ctx, userRef)
	if err != nil {
		return nil, errors.Wrap(err, "find cart")
	}
	return s.buildView(ctx, c)
}

func (s *Service) buildView(ctx context.Context, c *Cart) (*View, error) {
	lines, err := s.carts.ListLines(ctx, c.ID)
	if err != nil {
		return nil, errors.Wrap(err, "list cart lines")
	}
	return &View{
		Cart:   *c,
		Lines:  lines,
		Totals: CalcTotals(lines, c.DiscountAmount),
	}, nil
}
