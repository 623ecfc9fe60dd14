package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/fashion-store/internal/domain/cart"
)

// CartResponse is the API shape of a cart with its lines and totals.
type CartResponse struct {
	ID             string          `json:"id"`
	Items          []CartLine      `json:"items"`
	TotalItems     int             `json:"total_items"`
	TotalQuantity  int             `json:"total_quantity"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountCode   string          `json:"discount_code,omitempty"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Total          decimal.Decimal `json:"total"`
}

// CartLine is a single cart item priced at the current catalog price.
type CartLine struct {
	ID          string          `json:"id"`
	VariantID   string          `json:"variant_id"`
	ProductName string          `json:"product_name"`
	SKU         string          `json:"sku"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Total       decimal.Decimal `json:"total"`
}

// AddItemRequest adds a variant to the cart.
type AddItemRequest struct {
	VariantID string `json:"variant_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// UpdateItemRequest replaces a cart line's quantity. The field is required;
// an explicit zero or negative quantity removes the line.
type UpdateItemRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// ApplyDiscountRequest applies a discount code to the cart.
type ApplyDiscountRequest struct {
	Code string `json:"code" validate:"required"`
}

// GetCart returns the caller's cart, creating an empty one on first use.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())

	view, err := h.carts.Get(r.Context(), id.UserRef)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartResponse(view))
}

// AddCartItem adds a variant to the cart, merging quantity into an existing
// line for the same variant. Responds 201 for a new line, 200 for a merge.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())

	var req AddItemRequest
	if err := h.decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	view, created, err := h.carts.AddItem(r.Context(), id.UserRef, req.VariantID, req.Quantity)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(w, status, toCartResponse(view))
}

// UpdateCartItem replaces a line's quantity; zero or negative removes it.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())
	itemID := chi.URLParam(r, "itemID")

	var req UpdateItemRequest
	if err := h.decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	view, _, err := h.carts.UpdateItemQuantity(r.Context(), id.UserRef, itemID, *req.Quantity)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartResponse(view))
}

// RemoveCartItem deletes a single line from the cart.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())
	itemID := chi.URLParam(r, "itemID")

	view, err := h.carts.RemoveItem(r.Context(), id.UserRef, itemID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartResponse(view))
}

// ClearCart empties the cart. Clearing an absent or already empty cart
// succeeds.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())

	if err := h.carts.Clear(r.Context(), id.UserRef); err != nil {
		respondDomainError(w, r, err)
		return
	}

	view, err := h.carts.Get(r.Context(), id.UserRef)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartResponse(view))
}

// ApplyDiscount validates a discount code against the cart and stores the
// computed amount on it. A failed code leaves the cart unchanged.
func (h *Handler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())

	var req ApplyDiscountRequest
	if err := h.decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	view, err := h.carts.ApplyDiscount(r.Context(), id.UserRef, req.Code)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartResponse(view))
}

// RemoveDiscount removes any applied discount from the cart. Removing when
// none is applied succeeds.
func (h *Handler) RemoveDiscount(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())

	view, err := h.carts.RemoveDiscount(r.Context(), id.UserRef)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartResponse(view))
}

func toCartResponse(view *cart.View) CartResponse {
	items := make([]CartLine, len(view.Lines))
	for i, l := range view.Lines {
		items[i] = CartLine{
			ID:          l.ID,
			VariantID:   l.VariantID,
			ProductName: l.ProductName,
			SKU:         l.SKU,
			Price:       l.Price,
			Quantity:    l.Quantity,
			Total:       l.Total(),
		}
	}
	return CartResponse{
		ID:             view.Cart.ID,
		Items:          items,
		TotalItems:     view.Totals.TotalItems,
		TotalQuantity:  view.Totals.TotalQuantity,
		Subtotal:       view.Totals.Subtotal,
		DiscountCode:   view.Cart.DiscountCode,
		DiscountAmount: view.Totals.Discount,
		Total:          view.Totals.Total,
	}
}
