package handler

import (
	"net/http"

	"github.com/shopspring/decimal"
)

// ValidateDiscountRequest previews a discount code against the caller's
// current cart.
type ValidateDiscountRequest struct {
	Code string `json:"code" validate:"required"`
}

// ValidateDiscountResponse reports the discount a code would yield right
// now. Validation never consumes a use.
type ValidateDiscountResponse struct {
	Code        string          `json:"code"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
}

// ValidateDiscount checks a code against the caller's cart subtotal and
// quantity without applying it or consuming a use.
func (h *Handler) ValidateDiscount(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())

	var req ValidateDiscountRequest
	if err := h.decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	view, err := h.carts.Get(r.Context(), id.UserRef)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	d, err := h.discounts.Validate(r.Context(), req.Code, view.Totals.Subtotal, view.Totals.TotalQuantity)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, ValidateDiscountResponse{
		Code:        d.Code,
		Amount:      d.Amount,
		Description: d.Description,
	})
}
