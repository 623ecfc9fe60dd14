package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/xenking/fashion-store/internal/domain/cart"
	"github.com/xenking/fashion-store/internal/domain/catalog"
	"github.com/xenking/fashion-store/internal/domain/coupon"
	"github.com/xenking/fashion-store/internal/domain/order"
)

// ErrorResponse is the uniform error body for all API failures.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Code: code, Message: message})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Wrap(err, "decode body")
	}
	return nil
}

// respondDomainError maps domain errors to HTTP status codes and the uniform
// error body. Unknown errors become a logged 500 without leaking internals.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		stockErr   *catalog.InsufficientStockError
		minErr     *coupon.MinimumNotMetError
		statusErr  *order.InvalidStatusError
		fieldsErrs validator.ValidationErrors
	)

	switch {
	case errors.Is(err, cart.ErrNotFound):
		respondError(w, http.StatusNotFound, "cart_not_found", "cart not found")
	case errors.Is(err, cart.ErrItemNotFound):
		respondError(w, http.StatusNotFound, "cart_item_not_found", "cart item not found")
	case errors.Is(err, catalog.ErrVariantNotFound):
		respondError(w, http.StatusNotFound, "variant_not_found", "product variant not found")
	case errors.Is(err, order.ErrNotFound):
		respondError(w, http.StatusNotFound, "order_not_found", "order not found")
	case errors.Is(err, cart.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be positive")
	case errors.Is(err, order.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "empty_cart", "cart is empty")
	case errors.Is(err, coupon.ErrInvalidCoupon):
		respondError(w, http.StatusBadRequest, "invalid_coupon", "invalid coupon code")
	case errors.Is(err, coupon.ErrCouponExpired):
		respondError(w, http.StatusBadRequest, "coupon_expired", "coupon expired or inactive")
	case errors.Is(err, coupon.ErrCouponUsageLimitReached):
		respondError(w, http.StatusBadRequest, "coupon_exhausted", "coupon usage limit reached")
	case errors.As(err, &minErr):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Code:    "minimum_not_met",
			Message: minErr.Error(),
			Details: map[string]string{"minimum": minErr.Minimum.StringFixed(2)},
		})
	case errors.As(err, &stockErr):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Code:    "insufficient_stock",
			Message: stockErr.Error(),
			Details: map[string]any{
				"variant_id": stockErr.VariantID,
				"requested":  stockErr.Requested,
				"available":  stockErr.Available,
			},
		})
	case errors.As(err, &statusErr):
		respondError(w, http.StatusBadRequest, "invalid_status", statusErr.Error())
	case errors.As(err, &fieldsErrs):
		respondError(w, http.StatusBadRequest, "invalid_request", fieldsErrs.Error())
	default:
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}
