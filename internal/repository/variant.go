package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/fashion-store/internal/domain/catalog"
)

const (
	listVariantsSQL = `SELECT v.id, v.product_id, p.name, v.sku, v.size, v.color, p.price, v.stock
		FROM product_variants v
		JOIN products p ON p.id = v.product_id
		WHERE v.active = TRUE AND p.active = TRUE
		ORDER BY p.name, v.sku`

	getVariantByIDSQL = `SELECT v.id, v.product_id, p.name, v.sku, v.size, v.color, p.price, v.stock
		FROM product_variants v
		JOIN products p ON p.id = v.product_id
		WHERE v.id = $1 AND v.active = TRUE AND p.active = TRUE`
)

var _ catalog.Repository = (*VariantRepository)(nil)

// VariantRepository implements catalog.Repository backed by PostgreSQL.
// Price always comes from the parent product row.
type VariantRepository struct {
	pool *pgxpool.Pool
}

// NewVariantRepository returns a VariantRepository that uses the given pool.
func NewVariantRepository(pool *pgxpool.Pool) *VariantRepository {
	return &VariantRepository{pool: pool}
}

// List returns all active variants of active products.
func (r *VariantRepository) List(ctx context.Context) ([]catalog.Variant, error) {
	rows, err := r.pool.Query(ctx, listVariantsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing variants: %w", err)
	}
	return pgx.CollectRows(rows, scanVariant)
}

// GetByID returns a single active variant by its identifier.
func (r *VariantRepository) GetByID(ctx context.Context, id string) (*catalog.Variant, error) {
	rows, err := r.pool.Query(ctx, getVariantByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting variant %q: %w", id, err)
	}

	v, err := pgx.CollectExactlyOneRow(rows, scanVariant)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrVariantNotFound
		}
		return nil, fmt.Errorf("getting variant %q: %w", id, err)
	}
	return &v, nil
}

func scanVariant(row pgx.CollectableRow) (catalog.Variant, error) {
	var (
		v     catalog.Variant
		price decimal.Decimal
		stock int32
	)
	err := row.Scan(
		&v.ID, &v.ProductID, &v.ProductName, &v.SKU, &v.Size, &v.Color,
		&price, &stock,
	)
	v.Price = price
	v.Stock = int(stock)
	return v, err
}
