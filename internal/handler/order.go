package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/fashion-store/internal/domain/order"
)

// AddressPayload is the address shape shared by requests and responses.
type AddressPayload struct {
	Address string `json:"address" validate:"required"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	Zip     string `json:"zip" validate:"required"`
	Country string `json:"country" validate:"required"`
}

// CreateOrderRequest materializes an order from the caller's cart. Billing
// defaults to the shipping address when omitted. DiscountCode is only
// consulted when the cart has no applied discount.
type CreateOrderRequest struct {
	Shipping     AddressPayload  `json:"shipping" validate:"required"`
	Billing      *AddressPayload `json:"billing,omitempty"`
	DiscountCode string          `json:"discount_code,omitempty"`
	Notes        string          `json:"notes,omitempty"`
}

// UpdateStatusRequest sets an order's lifecycle state, optionally with a
// tracking number.
type UpdateStatusRequest struct {
	Status         string `json:"status" validate:"required"`
	TrackingNumber string `json:"tracking_number,omitempty"`
}

// OrderResponse is the API shape of a materialized order.
type OrderResponse struct {
	ID             string              `json:"id"`
	OrderNumber    string              `json:"order_number"`
	Status         string              `json:"status"`
	PaymentStatus  string              `json:"payment_status"`
	Shipping       AddressPayload      `json:"shipping"`
	Billing        AddressPayload      `json:"billing"`
	Items          []OrderItemResponse `json:"items"`
	Subtotal       decimal.Decimal     `json:"subtotal"`
	TaxAmount      decimal.Decimal     `json:"tax_amount"`
	ShippingCost   decimal.Decimal     `json:"shipping_cost"`
	DiscountAmount decimal.Decimal     `json:"discount_amount"`
	DiscountCode   string              `json:"discount_code,omitempty"`
	TotalAmount    decimal.Decimal     `json:"total_amount"`
	TrackingNumber string              `json:"tracking_number,omitempty"`
	Notes          string              `json:"notes,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

// OrderItemResponse is a price-frozen order line snapshot.
type OrderItemResponse struct {
	ID          string          `json:"id"`
	VariantID   string          `json:"variant_id"`
	ProductName string          `json:"product_name"`
	SKU         string          `json:"sku"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Total       decimal.Decimal `json:"total"`
}

// TrackingResponse is the lightweight tracking view of an order.
type TrackingResponse struct {
	OrderNumber    string    `json:"order_number"`
	Status         string    `json:"status"`
	TrackingNumber string    `json:"tracking_number,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CreateOrder materializes an order from the caller's cart in one atomic
// transaction: pricing, discount, stock reservation, snapshots, cart clear.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())

	var req CreateOrderRequest
	if err := h.decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	billing := req.Shipping
	if req.Billing != nil {
		billing = *req.Billing
	}

	o, err := h.orders.Checkout(r.Context(), id.UserRef, order.CheckoutRequest{
		Shipping:     toAddress(req.Shipping),
		Billing:      toAddress(billing),
		DiscountCode: req.DiscountCode,
		Notes:        req.Notes,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toOrderResponse(o))
}

// ListOrders returns the caller's orders, newest first.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())

	orders, err := h.orders.ListByUser(r.Context(), id.UserRef)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]OrderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i])
	}
	respondJSON(w, http.StatusOK, out)
}

// GetOrder returns one of the caller's orders.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())

	o, err := h.orders.Get(r.Context(), id.UserRef, chi.URLParam(r, "orderID"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(o))
}

// GetOrderTracking returns the tracking view of one of the caller's orders.
func (h *Handler) GetOrderTracking(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())

	o, err := h.orders.Get(r.Context(), id.UserRef, chi.URLParam(r, "orderID"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, TrackingResponse{
		OrderNumber:    o.OrderNumber,
		Status:         string(o.Status),
		TrackingNumber: o.TrackingNumber,
		UpdatedAt:      o.UpdatedAt,
	})
}

// UpdateOrderStatus sets an order's status and tracking number. Requires the
// admin scope; the order may belong to any user.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := h.decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "orderID"), order.Status(req.Status), req.TrackingNumber)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(o))
}

func toAddress(a AddressPayload) order.Address {
	return order.Address{
		Address: a.Address,
		City:    a.City,
		State:   a.State,
		Zip:     a.Zip,
		Country: a.Country,
	}
}

func fromAddress(a order.Address) AddressPayload {
	return AddressPayload{
		Address: a.Address,
		City:    a.City,
		State:   a.State,
		Zip:     a.Zip,
		Country: a.Country,
	}
}

func toOrderResponse(o *order.Order) OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = OrderItemResponse{
			ID:          it.ID,
			VariantID:   it.VariantID,
			ProductName: it.ProductName,
			SKU:         it.SKU,
			Price:       it.Price,
			Quantity:    it.Quantity,
			Total:       it.Total(),
		}
	}
	return OrderResponse{
		ID:             o.ID,
		OrderNumber:    o.OrderNumber,
		Status:         string(o.Status),
		PaymentStatus:  string(o.PaymentStatus),
		Shipping:       fromAddress(o.Shipping),
		Billing:        fromAddress(o.Billing),
		Items:          items,
		Subtotal:       o.Subtotal,
		TaxAmount:      o.TaxAmount,
		ShippingCost:   o.ShippingCost,
		DiscountAmount: o.DiscountAmount,
		DiscountCode:   o.DiscountCode,
		TotalAmount:    o.TotalAmount,
		TrackingNumber: o.TrackingNumber,
		Notes:          o.Notes,
		CreatedAt:      o.CreatedAt,
	}
}
