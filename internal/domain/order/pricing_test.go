package order

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamvazu/smokesignalbbq-sub001/internal/domain/catalog"
	"github.com/iamvazu/smokesignalbbq-sub001/internal/domain/discount"
)

func testReconciler() Reconciler {
	return Reconciler{
		TaxRate:   decimal.NewFromFloat(0.18),
		Tolerance: decimal.NewFromInt(1),
	}
}

func pricedItem(price int64, qty int) PricedItem {
	return PricedItem{
		Ref:      catalog.ProductRef(uuid.NewString()),
		Quantity: qty,
		Price:    decimal.NewFromInt(price),
	}
}

// One product at 180 x 2, delivery fee 40, tax 18%: subtotal 360, tax
// 64.8 -> 65, total 465.
func TestReconcile_MatchingTotal(t *testing.T) {
	totals, err := testReconciler().Reconcile(
		[]PricedItem{pricedItem(180, 2)},
		nil,
		decimal.NewFromInt(40),
		decimal.NewFromInt(465),
	)
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(360).Equal(totals.Subtotal), "subtotal %s", totals.Subtotal)
	assert.True(t, decimal.NewFromInt(65).Equal(totals.TaxAmount), "tax %s", totals.TaxAmount)
	assert.True(t, decimal.NewFromInt(465).Equal(totals.Total), "total %s", totals.Total)
	assert.True(t, totals.DiscountAmount.IsZero())
}

func TestReconcile_DeclaredTooLow(t *testing.T) {
	_, err := testReconciler().Reconcile(
		[]PricedItem{pricedItem(180, 2)},
		nil,
		decimal.NewFromInt(40),
		decimal.NewFromInt(300),
	)

	var pmErr *PriceMismatchError
	require.ErrorAs(t, err, &pmErr)
	assert.True(t, decimal.NewFromInt(300).Equal(pmErr.Declared))
	assert.True(t, decimal.NewFromInt(465).Equal(pmErr.Computed))
}

func TestReconcile_WithinTolerance(t *testing.T) {
	// Declared off by exactly one unit is absorbed by rounding tolerance.
	_, err := testReconciler().Reconcile(
		[]PricedItem{pricedItem(180, 2)},
		nil,
		decimal.NewFromInt(40),
		decimal.NewFromInt(466),
	)
	require.NoError(t, err)
}

func TestReconcile_JustOutsideTolerance(t *testing.T) {
	_, err := testReconciler().Reconcile(
		[]PricedItem{pricedItem(180, 2)},
		nil,
		decimal.NewFromInt(40),
		decimal.NewFromInt(467),
	)

	var pmErr *PriceMismatchError
	require.ErrorAs(t, err, &pmErr)
}

func TestReconcile_PercentageDiscountBeforeTax(t *testing.T) {
	disc := &discount.Code{
		Code:       "WELCOME10",
		Type:       discount.TypePercentage,
		Value:      decimal.NewFromInt(10),
		ExpiryDate: time.Now().Add(time.Hour),
		Active:     true,
	}

	// subtotal 360, discount 36, discounted 324, tax 58.32, +fee 40 = 422.32 -> 422
	totals, err := testReconciler().Reconcile(
		[]PricedItem{pricedItem(180, 2)},
		disc,
		decimal.NewFromInt(40),
		decimal.NewFromInt(422),
	)
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(36).Equal(totals.DiscountAmount), "discount %s", totals.DiscountAmount)
	assert.True(t, decimal.NewFromInt(58).Equal(totals.TaxAmount), "tax %s", totals.TaxAmount)
	assert.True(t, decimal.NewFromInt(422).Equal(totals.Total), "total %s", totals.Total)
}

func TestReconcile_FixedDiscountFlooredAtZero(t *testing.T) {
	disc := &discount.Code{
		Code:  "BIGFIXED",
		Type:  discount.TypeFixed,
		Value: decimal.NewFromInt(1000),
	}

	// Fixed discount is capped at the subtotal; total is fee only.
	totals, err := testReconciler().Reconcile(
		[]PricedItem{pricedItem(100, 1)},
		disc,
		decimal.NewFromInt(40),
		decimal.NewFromInt(40),
	)
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(100).Equal(totals.DiscountAmount))
	assert.True(t, decimal.NewFromInt(40).Equal(totals.Total))
}

func TestReconcile_MultipleItems(t *testing.T) {
	// 2x180 + 3x120 = 720, tax 129.6, +40 = 889.6 -> 890
	totals, err := testReconciler().Reconcile(
		[]PricedItem{pricedItem(180, 2), pricedItem(120, 3)},
		nil,
		decimal.NewFromInt(40),
		decimal.NewFromInt(890),
	)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(890).Equal(totals.Total), "total %s", totals.Total)
}
