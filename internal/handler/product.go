package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/xenking/fashion-store/internal/domain/catalog"
)

// VariantResponse is the API shape of a purchasable product variant.
type VariantResponse struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	SKU         string          `json:"sku"`
	Size        string          `json:"size"`
	Color       string          `json:"color"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
}

// ListProducts returns all purchasable variants of the catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	variants, err := h.variants.List(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]VariantResponse, len(variants))
	for i, v := range variants {
		out[i] = toVariantResponse(v)
	}
	respondJSON(w, http.StatusOK, out)
}

func toVariantResponse(v catalog.Variant) VariantResponse {
	return VariantResponse{
		ID:          v.ID,
		ProductID:   v.ProductID,
		ProductName: v.ProductName,
		SKU:         v.SKU,
		Size:        v.Size,
		Color:       v.Color,
		Price:       v.Price,
		Stock:       v.Stock,
	}
}
