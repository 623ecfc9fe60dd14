package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/xenking/fashion-store/internal/domain/cart"
	"github.com/xenking/fashion-store/internal/domain/catalog"
	"github.com/xenking/fashion-store/internal/domain/coupon"
	"github.com/xenking/fashion-store/internal/domain/order"
)

// CartService is the cart surface the HTTP layer consumes.
type CartService interface {
	Get(ctx context.Context, userRef string) (*cart.View, error)
	AddItem(ctx context.Context, userRef, variantID string, quantity int) (*cart.View, bool, error)
	UpdateItemQuantity(ctx context.Context, userRef, itemID string, quantity int) (*cart.View, bool, error)
	RemoveItem(ctx context.Context, userRef, itemID string) (*cart.View, error)
	Clear(ctx context.Context, userRef string) error
	ApplyDiscount(ctx context.Context, userRef, code string) (*cart.View, error)
	RemoveDiscount(ctx context.Context, userRef string) (*cart.View, error)
}

// OrderService is the order surface the HTTP layer consumes.
type OrderService interface {
	Checkout(ctx context.Context, userRef string, req order.CheckoutRequest) (*order.Order, error)
	Get(ctx context.Context, userRef, orderID string) (*order.Order, error)
	ListByUser(ctx context.Context, userRef string) ([]order.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status order.Status, trackingNumber string) (*order.Order, error)
}

// DiscountValidator previews a discount without consuming a use.
type DiscountValidator interface {
	Validate(ctx context.Context, code string, base decimal.Decimal, quantity int) (*coupon.Discount, error)
}

// Handler serves the store's REST API.
type Handler struct {
	carts     CartService
	orders    OrderService
	discounts DiscountValidator
	variants  catalog.Repository
	validate  *validator.Validate
}

// NewHandler creates a Handler with the given domain services.
func NewHandler(carts CartService, orders OrderService, discounts DiscountValidator, variants catalog.Repository) *Handler {
	return &Handler{
		carts:     carts,
		orders:    orders,
		discounts: discounts,
		variants:  variants,
		validate:  validator.New(),
	}
}

// Routes returns the API router. Every route requires an authenticated API
// key; sec supplies the authentication middleware and the admin scope guard.
func (h *Handler) Routes(sec *SecurityHandler) chi.Router {
	r := chi.NewRouter()
	r.Use(sec.Authenticate)

	r.Get("/products", h.ListProducts)

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Post("/add", h.AddCartItem)
		r.Put("/items/{itemID}", h.UpdateCartItem)
		r.Delete("/items/{itemID}", h.RemoveCartItem)
		r.Delete("/clear", h.ClearCart)
		r.Post("/apply-discount", h.ApplyDiscount)
		r.Delete("/remove-discount", h.RemoveDiscount)
	})

	r.Post("/discounts/validate", h.ValidateDiscount)

	r.Route("/orders", func(r chi.Router) {
		r.Post("/create-from-cart", h.CreateOrder)
		r.Get("/", h.ListOrders)
		r.Get("/{orderID}", h.GetOrder)
		r.Get("/{orderID}/tracking", h.GetOrderTracking)
		r.With(sec.RequireScope("admin")).Put("/{orderID}/update-status", h.UpdateOrderStatus)
	})

	return r
}

func (h *Handler) decode(r *http.Request, dst any) error {
	if err := decodeJSON(r, dst); err != nil {
		return err
	}
	return h.validate.Struct(dst)
}
