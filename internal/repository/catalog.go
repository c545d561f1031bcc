package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iamvazu/smokesignalbbq-sub001/internal/domain/catalog"
)

const (
	getProductPriceSQL = `SELECT price FROM products WHERE id = $1 AND is_active = TRUE`
	getComboPriceSQL   = `SELECT price FROM combos WHERE id = $1 AND is_active = TRUE`
)

var _ catalog.Resolver = (*CatalogRepository)(nil)

// CatalogRepository resolves authoritative unit prices from the catalog
// tables. Inactive entries resolve as not found.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// Price returns the current unit price for the referenced item.
// Returns catalog.ErrItemNotFound when the item does not exist or is inactive.
func (r *CatalogRepository) Price(ctx context.Context, ref catalog.ItemRef) (decimal.Decimal, error) {
	query := getProductPriceSQL
	if ref.Kind == catalog.KindCombo {
		query = getComboPriceSQL
	}

	var price decimal.Decimal
	err := r.pool.QueryRow(ctx, query, ref.ID).Scan(&price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, catalog.ErrItemNotFound
		}
		return decimal.Zero, fmt.Errorf("resolving price for %s: %w", ref, err)
	}
	return price, nil
}
