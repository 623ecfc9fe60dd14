package catalog

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrVariantNotFound is returned when a requested product variant does not exist.
var ErrVariantNotFound = errors.New("variant not found")

// Variant is the purchasable unit of the catalog: one size/color combination
// of a product, carrying its own stock count. Price comes from the parent
// product. The catalog itself is maintained elsewhere; checkout only reads it
// (and decrements stock inside the order transaction).
type Variant struct {
	ID          string
	ProductID   string
	ProductName string
	SKU         string
	Size        string
	Color       string
	Price       decimal.Decimal
	Stock       int
}

// InsufficientStockError indicates a requested quantity exceeds the variant's
// available stock.
type InsufficientStockError struct {
	VariantID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for variant %s: requested %d, available %d",
		e.VariantID, e.Requested, e.Available)
}

// Repository defines read operations for the variant catalog.
type Repository interface {
	List(ctx context.Context) ([]Variant, error)
	GetByID(ctx context.Context, id string) (*Variant, error)
}
