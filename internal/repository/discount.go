package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iamvazu/smokesignalbbq-sub001/internal/domain/discount"
)

const (
	getDiscountByCodeSQL = `SELECT id, code, discount_type, discount_value, expiry_date,
		usage_limit, used_count, first_order_only, is_active
		FROM discount_codes WHERE code = UPPER($1)`

	// Compare-and-increment: the WHERE clause re-checks the usage limit at
	// commit time so two concurrent redemptions cannot both pass a stale
	// precheck. Zero rows affected means the limit was hit.
	redeemDiscountSQL = `UPDATE discount_codes
		SET used_count = used_count + 1
		WHERE code = $1 AND is_active = TRUE
		AND (usage_limit IS NULL OR used_count < usage_limit)`
)

var _ discount.Resolver = (*DiscountRepository)(nil)

// DiscountRepository provides discount-code lookups backed by PostgreSQL.
// Redemption is not exposed here: used_count is mutated only inside the
// checkout transaction (see OrderRepository.CreateOrder).
type DiscountRepository struct {
	pool *pgxpool.Pool
}

// NewDiscountRepository returns a DiscountRepository that uses the given pool.
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

// FindByCode looks up a discount code by its upper-normalized form.
// Returns discount.ErrInvalid when no such code exists. Inactive codes are
// returned as-is; the domain validation chain maps them to ErrInvalid, which
// keeps "unknown" and "inactive" indistinguishable to clients.
func (r *DiscountRepository) FindByCode(ctx context.Context, code string) (*discount.Code, error) {
	rows, err := r.pool.Query(ctx, getDiscountByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding discount code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanDiscountCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, discount.ErrInvalid
		}
		return nil, fmt.Errorf("finding discount code %q: %w", code, err)
	}
	return &c, nil
}

// redeemDiscount increments a code's used_count inside tx, failing with
// discount.ErrExhausted when the usage limit has been reached.
func redeemDiscount(ctx context.Context, tx pgx.Tx, code string) error {
	tag, err := tx.Exec(ctx, redeemDiscountSQL, code)
	if err != nil {
		return fmt.Errorf("redeeming discount code %q: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		return discount.ErrExhausted
	}
	return nil
}

func scanDiscountCode(row pgx.CollectableRow) (discount.Code, error) {
	var (
		c          discount.Code
		dType      string
		value      decimal.Decimal
		expiry     time.Time
		usageLimit *int32
		usedCount  int32
	)
	err := row.Scan(
		&c.ID, &c.Code, &dType, &value, &expiry,
		&usageLimit, &usedCount, &c.FirstOrderOnly, &c.Active,
	)
	c.Type = discount.Type(dType)
	c.Value = value
	c.ExpiryDate = expiry
	if usageLimit != nil {
		limit := int(*usageLimit)
		c.UsageLimit = &limit
	}
	c.UsedCount = int(usedCount)
	return c, err
}
